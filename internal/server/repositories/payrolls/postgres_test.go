package payrolls

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/teamflow/internal/common"
	"github.com/dmitrijs2005/teamflow/internal/server/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var recordCols = []string{
	"id", "user_id", "period_start", "period_end", "hours_worked", "hourly_rate",
	"gross_pay", "overtime_pay", "deductions", "net_pay", "status", "processed_at", "processed_by",
	"created_at", "updated_at",
}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewPostgresRepository(db), mock, db
}

func march() (time.Time, time.Time) {
	return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
}

func TestUpsert_Written(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	start, end := march()
	now := time.Date(2024, 4, 1, 8, 0, 0, 0, time.UTC)
	rec := &models.PayrollRecord{
		UserID: 1, PeriodStart: start, PeriodEnd: end,
		HoursWorked: decimal.NewFromInt(170), HourlyRate: decimal.NewFromInt(20),
		GrossPay: decimal.NewFromInt(3400), OvertimePay: decimal.NewFromInt(100),
		Deductions: decimal.NewFromInt(680), NetPay: decimal.NewFromInt(2720),
	}

	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+payroll_records.*ON\s+CONFLICT\s+ON\s+CONSTRAINT\s+payroll_records_user_period_key.*WHERE\s+payroll_records\.status\s*=\s*'pending'\s+RETURNING`).
		WithArgs(int64(1), start, end, "170", "20", "3400", "100", "680", "2720").
		WillReturnRows(sqlmock.NewRows([]string{"id", "status", "created_at", "updated_at"}).AddRow(int64(5), "pending", now, now))

	written, err := repo.Upsert(context.Background(), rec)
	require.NoError(t, err)
	assert.True(t, written)
	assert.Equal(t, int64(5), rec.ID)
	assert.Equal(t, models.PayrollPending, rec.Status)
}

func TestUpsert_ProcessedKept(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	start, end := march()
	processedAt := time.Date(2024, 4, 2, 8, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+payroll_records`).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`(?s)^SELECT.*FROM\s+payroll_records\s+WHERE\s+user_id\s*=\s*\$1\s+AND\s+period_start\s*=\s*\$2\s+AND\s+period_end\s*=\s*\$3$`).
		WithArgs(int64(1), start, end).
		WillReturnRows(sqlmock.NewRows(recordCols).AddRow(
			int64(5), int64(1), start, end, "160.00", "20.00", "3200.00", "0.00", "640.00", "2560.00",
			"processed", processedAt, int64(9), processedAt, processedAt))

	rec := &models.PayrollRecord{UserID: 1, PeriodStart: start, PeriodEnd: end, GrossPay: decimal.NewFromInt(9999)}
	written, err := repo.Upsert(context.Background(), rec)
	require.NoError(t, err)
	assert.False(t, written)
	assert.Equal(t, models.PayrollProcessed, rec.Status)
	assert.Equal(t, "3200", rec.GrossPay.String())
	assert.Equal(t, int64(9), rec.ProcessedBy.Int64)
}

func TestMarkProcessed_NotPending(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	at := time.Date(2024, 4, 2, 8, 0, 0, 0, time.UTC)
	mock.ExpectExec(`(?s)^UPDATE\s+payroll_records\s+SET\s+status\s*=\s*'processed'.*WHERE\s+id\s*=\s*\$1\s+AND\s+status\s*=\s*'pending'$`).
		WithArgs(int64(5), at, int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkProcessed(context.Background(), 5, at, 9)
	assert.True(t, errors.Is(err, common.ErrorNotFound))
}

func TestGetForUpdate_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)FROM\s+payroll_records\s+WHERE\s+id\s*=\s*\$1\s+FOR\s+UPDATE$`).
		WithArgs(int64(404)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetForUpdate(context.Background(), 404)
	assert.True(t, errors.Is(err, common.ErrorNotFound))
}

func TestList_StatusFilter(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)FROM\s+payroll_records\s+WHERE\s+status\s*=\s*\$1\s+ORDER\s+BY\s+period_end\s+DESC,\s*id\s+DESC\s+LIMIT\s+\$2$`).
		WithArgs("pending", int64(100)).
		WillReturnRows(sqlmock.NewRows(recordCols))

	got, err := repo.List(context.Background(), ListFilter{Status: models.PayrollPending})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSummary_OpenBounds(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT\s+COUNT\(\*\),.*FROM\s+payroll_records`).
		WithArgs(nil, nil).
		WillReturnRows(sqlmock.NewRows([]string{"n", "h", "g", "d", "net", "pn", "pa"}).
			AddRow(int64(2), "330.00", "6600.00", "1320.00", "5280.00", int64(1), "2720.00"))

	s, err := repo.Summary(context.Background(), sql.NullTime{}, sql.NullTime{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), s.TotalRecords)
	assert.Equal(t, "5280", s.TotalNet.String())
	assert.Equal(t, int64(1), s.PendingCount)
	assert.Equal(t, "2720", s.PendingAmount.String())
}
