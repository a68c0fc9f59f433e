// Package activitylogs appends timer telemetry samples.
package activitylogs

import (
	"context"

	"github.com/dmitrijs2005/teamflow/internal/server/models"
)

type Repository interface {
	Append(ctx context.Context, log *models.ActivityLog) error
}
