package services

import (
	"bufio"
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/teamflow/internal/clock"
	"github.com/dmitrijs2005/teamflow/internal/common"
	"github.com/dmitrijs2005/teamflow/internal/logging"
	"github.com/dmitrijs2005/teamflow/internal/server/config"
	"github.com/dmitrijs2005/teamflow/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePutter struct {
	bucket, key string
	body        []byte
	err         error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.bucket = aws.ToString(in.Bucket)
	f.key = aws.ToString(in.Key)
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.body = b
	return &s3.PutObjectOutput{}, nil
}

func TestArchiveKey(t *testing.T) {
	key := ArchiveKey(time.Date(2024, 3, 5, 3, 0, 0, 0, time.UTC))
	assert.Regexp(t, regexp.MustCompile(`^archive/time_entries/2024/03/05/[0-9a-f-]{36}\.jsonl$`), key)
}

func TestS3Archiver_WritesJSONLines(t *testing.T) {
	put := &fakePutter{}
	a := NewS3Archiver(put, "teamflow-archive", clock.NewManual(t0))

	end := t0.Add(time.Hour)
	key, err := a.Archive(context.Background(), []*models.TimeEntry{
		{ID: 1, UserID: 7, TaskName: "a", StartTime: t0, EndTime: sql.NullTime{Time: end, Valid: true}, ElapsedSeconds: 3600, Status: models.StatusCompleted},
		{ID: 2, UserID: 8, ProjectID: sql.NullInt64{Int64: 3, Valid: true}, TaskName: "b", StartTime: t0, Status: models.StatusCompleted},
	})
	require.NoError(t, err)

	assert.Equal(t, "teamflow-archive", put.bucket)
	assert.Equal(t, key, put.key)
	assert.Contains(t, key, "archive/time_entries/2024/03/01/")

	var lines []archivedEntry
	sc := bufio.NewScanner(bytes.NewReader(put.body))
	for sc.Scan() {
		var e archivedEntry
		require.NoError(t, json.Unmarshal(sc.Bytes(), &e))
		lines = append(lines, e)
	}
	require.Len(t, lines, 2)
	assert.Nil(t, lines[0].ProjectID)
	assert.Equal(t, end, *lines[0].EndTime)
	assert.Equal(t, int64(3), *lines[1].ProjectID)
}

func TestNewS3Client(t *testing.T) {
	cfg := &config.Config{}
	cfg.LoadDefaults()

	client, err := NewS3Client(context.Background(), cfg)
	require.NoError(t, err)
	assert.NotNil(t, client)
}

type retentionFixture struct {
	svc  *RetentionService
	mock sqlmock.Sqlmock
	rm   *fakeRepoManager
	inv  *fakeInvalidator
}

func newRetentionFixture(t *testing.T, archiver Archiver) *retentionFixture {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := &retentionFixture{mock: mock, rm: newFakeRepoManager(), inv: &fakeInvalidator{}}
	f.svc = NewRetentionService(db, f.rm, clock.NewManual(t0), archiver, f.inv, logging.Nop())
	return f
}

func seedOldEntries(rm *fakeRepoManager) {
	old := t0.AddDate(-2, 0, 0)
	rm.entries.put(models.TimeEntry{UserID: 1, Status: models.StatusCompleted, StartTime: old, ElapsedSeconds: 60})
	rm.entries.put(models.TimeEntry{UserID: 2, Status: models.StatusCompleted, StartTime: old, ElapsedSeconds: 60})
	rm.entries.put(models.TimeEntry{UserID: 3, Status: models.StatusPaused, StartTime: old})
	rm.entries.put(models.TimeEntry{UserID: 1, Status: models.StatusCompleted, StartTime: t0.AddDate(0, 0, -10)})
}

func TestCleanup_DeletesOldCompletedOnly(t *testing.T) {
	f := newRetentionFixture(t, nil)
	seedOldEntries(f.rm)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	res, err := f.svc.Cleanup(context.Background(), 365)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Deleted)
	assert.Empty(t, res.ArchiveKey)
	assert.Equal(t, t0.AddDate(0, 0, -365), f.rm.entries.cutoff)
	assert.Len(t, f.rm.entries.rows, 2)
	assert.ElementsMatch(t, []int64{1, 2}, f.inv.calls())
}

func TestCleanup_ArchivesBeforeDelete(t *testing.T) {
	put := &fakePutter{}
	f := newRetentionFixture(t, NewS3Archiver(put, "bucket", clock.NewManual(t0)))
	seedOldEntries(f.rm)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	res, err := f.svc.Cleanup(context.Background(), 365)
	require.NoError(t, err)
	assert.Equal(t, put.key, res.ArchiveKey)
	assert.Equal(t, 2, bytes.Count(put.body, []byte("\n")))
}

func TestCleanup_ArchiveFailureRollsBack(t *testing.T) {
	put := &fakePutter{err: errors.New("bucket missing")}
	f := newRetentionFixture(t, NewS3Archiver(put, "bucket", clock.NewManual(t0)))
	seedOldEntries(f.rm)
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.svc.Cleanup(context.Background(), 365)
	assert.ErrorIs(t, err, common.ErrorInternal)
	assert.Empty(t, f.inv.calls())
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCleanup_InvalidDays(t *testing.T) {
	f := newRetentionFixture(t, nil)
	_, err := f.svc.Cleanup(context.Background(), 0)
	assert.ErrorIs(t, err, common.ErrValidation)
}
