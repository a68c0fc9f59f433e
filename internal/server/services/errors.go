// Package services implements the timer, statistics, payroll and retention
// operations on top of the repositories.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/teamflow/internal/common"
	"github.com/dmitrijs2005/teamflow/internal/logging"
)

var domainErrors = []error{
	common.ErrValidation,
	common.ErrInvalidProject,
	common.ErrAlreadyRunning,
	common.ErrorNotFound,
	common.ErrInvalidState,
	common.ErrPermissionDenied,
}

func isDomainError(err error) bool {
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// fail passes domain errors through unchanged. Anything else is a storage
// or infrastructure failure: it is logged with args and replaced by an
// ErrorInternal-wrapped error so driver details never reach callers.
func fail(ctx context.Context, logger logging.Logger, op string, err error, args ...any) error {
	if isDomainError(err) {
		return err
	}
	logger.Error(ctx, op+" failed", append(args, "error", err)...)
	return fmt.Errorf("%w: %s", common.ErrorInternal, op)
}
