package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/teamflow/internal/clock"
	"github.com/dmitrijs2005/teamflow/internal/server/config"
	"github.com/dmitrijs2005/teamflow/internal/server/models"
	"github.com/google/uuid"
)

// Archiver stores entries before they are deleted and returns where.
type Archiver interface {
	Archive(ctx context.Context, entries []*models.TimeEntry) (string, error)
}

// ObjectPutter is the subset of *s3.Client used by S3Archiver.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// NewS3Client builds a path-style client for an S3-compatible store (MinIO
// in development) from the static credentials in cfg.
func NewS3Client(ctx context.Context, cfg *config.Config) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3RootUser,
			cfg.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3BaseEndpoint)
		}
		o.UsePathStyle = true
	}), nil
}

// S3Archiver writes entries as JSON lines to one object per run.
type S3Archiver struct {
	client ObjectPutter
	bucket string
	clock  clock.Clock
}

func NewS3Archiver(client ObjectPutter, bucket string, c clock.Clock) *S3Archiver {
	return &S3Archiver{client: client, bucket: bucket, clock: c}
}

// ArchiveKey is archive/time_entries/YYYY/MM/DD/<uuid>.jsonl.
func ArchiveKey(t time.Time) string {
	return fmt.Sprintf("archive/time_entries/%04d/%02d/%02d/%s.jsonl", t.Year(), t.Month(), t.Day(), uuid.New())
}

type archivedEntry struct {
	ID             int64      `json:"id"`
	UserID         int64      `json:"user_id"`
	ProjectID      *int64     `json:"project_id"`
	TaskName       string     `json:"task_name"`
	StartTime      time.Time  `json:"start_time"`
	EndTime        *time.Time `json:"end_time"`
	ElapsedSeconds int64      `json:"elapsed_seconds"`
	IdleSeconds    int64      `json:"idle_seconds"`
	ActivityLevel  int        `json:"activity_level"`
	Status         string     `json:"status"`
}

func toArchived(e *models.TimeEntry) archivedEntry {
	a := archivedEntry{
		ID:             e.ID,
		UserID:         e.UserID,
		TaskName:       e.TaskName,
		StartTime:      e.StartTime.UTC(),
		ElapsedSeconds: e.ElapsedSeconds,
		IdleSeconds:    e.IdleSeconds,
		ActivityLevel:  e.ActivityLevel,
		Status:         string(e.Status),
	}
	if e.ProjectID.Valid {
		id := e.ProjectID.Int64
		a.ProjectID = &id
	}
	if e.EndTime.Valid {
		t := e.EndTime.Time.UTC()
		a.EndTime = &t
	}
	return a
}

func (a *S3Archiver) Archive(ctx context.Context, entries []*models.TimeEntry) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, e := range entries {
		if err := enc.Encode(toArchived(e)); err != nil {
			return "", fmt.Errorf("encode entry %d: %w", e.ID, err)
		}
	}

	key := ArchiveKey(a.clock.Now().UTC())
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return "", fmt.Errorf("put archive object: %w", err)
	}
	return key, nil
}
