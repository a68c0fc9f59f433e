package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/dmitrijs2005/teamflow/internal/clock"
	"github.com/dmitrijs2005/teamflow/internal/common"
	"github.com/dmitrijs2005/teamflow/internal/dbx"
	"github.com/dmitrijs2005/teamflow/internal/logging"
	"github.com/dmitrijs2005/teamflow/internal/server/config"
	"github.com/dmitrijs2005/teamflow/internal/server/models"
	"github.com/dmitrijs2005/teamflow/internal/server/repositories/payrolls"
	"github.com/dmitrijs2005/teamflow/internal/server/repositories/repomanager"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

var (
	secondsPerHour = decimal.NewFromInt(3600)
	hundred        = decimal.NewFromInt(100)
)

// ParseDate parses a YYYY-MM-DD date as midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, s, loc)
	if err != nil {
		return time.Time{}, common.Validationf("invalid date %q, want YYYY-MM-DD", s)
	}
	return t, nil
}

// PayrollPolicy holds the pay rules applied to every period regardless of
// its length.
type PayrollPolicy struct {
	OvertimeEnabled    bool
	RegularHours       decimal.Decimal
	OvertimeMultiplier decimal.Decimal
	TaxRatePercent     decimal.Decimal
}

func PolicyFromConfig(cfg *config.Config) PayrollPolicy {
	return PayrollPolicy{
		OvertimeEnabled:    cfg.AutoOvertime,
		RegularHours:       decimal.NewFromFloat(cfg.RegularHoursLimit),
		OvertimeMultiplier: decimal.NewFromFloat(cfg.OvertimeMultiplier),
		TaxRatePercent:     decimal.NewFromFloat(cfg.TaxRatePercent),
	}
}

// PayFigures are the monetary results of one calculation, rounded to cents.
type PayFigures struct {
	HoursWorked decimal.Decimal
	HourlyRate  decimal.Decimal
	GrossPay    decimal.Decimal
	OvertimePay decimal.Decimal
	Deductions  decimal.Decimal
	NetPay      decimal.Decimal
}

// Compute applies the policy to totalSeconds worked at rate. Only the
// returned figures are rounded.
func (p PayrollPolicy) Compute(totalSeconds int64, rate decimal.Decimal) PayFigures {
	hours := decimal.NewFromInt(totalSeconds).Div(secondsPerHour)
	gross := hours.Mul(rate)

	overtime := decimal.Zero
	if p.OvertimeEnabled && hours.GreaterThan(p.RegularHours) {
		premium := p.OvertimeMultiplier.Sub(decimal.NewFromInt(1))
		overtime = hours.Sub(p.RegularHours).Mul(rate).Mul(premium)
		gross = gross.Add(overtime)
	}

	deductions := gross.Mul(p.TaxRatePercent).Div(hundred)
	net := gross.Sub(deductions)

	return PayFigures{
		HoursWorked: hours.Round(2),
		HourlyRate:  rate.Round(2),
		GrossPay:    gross.Round(2),
		OvertimePay: overtime.Round(2),
		Deductions:  deductions.Round(2),
		NetPay:      net.Round(2),
	}
}

// PayrollData is a calculation result for one user and date range.
type PayrollData struct {
	UserID      int64
	PeriodStart time.Time
	PeriodEnd   time.Time
	Entries     int64
	PayFigures
}

func (d *PayrollData) record() *models.PayrollRecord {
	return &models.PayrollRecord{
		UserID:      d.UserID,
		PeriodStart: d.PeriodStart,
		PeriodEnd:   d.PeriodEnd,
		HoursWorked: d.HoursWorked,
		HourlyRate:  d.HourlyRate,
		GrossPay:    d.GrossPay,
		OvertimePay: d.OvertimePay,
		Deductions:  d.Deductions,
		NetPay:      d.NetPay,
		Status:      models.PayrollPending,
	}
}

// GeneratedPayroll reports one user's generate outcome. Recomputed is false
// when a processed record already covered the range and was kept as is.
type GeneratedPayroll struct {
	Record     *models.PayrollRecord
	Recomputed bool
}

// Notifier is told about processed payroll records.
type Notifier interface {
	PayrollProcessed(ctx context.Context, rec *models.PayrollRecord) error
}

// LogNotifier writes the notification to the log.
type LogNotifier struct {
	Logger logging.Logger
}

func (n LogNotifier) PayrollProcessed(ctx context.Context, rec *models.PayrollRecord) error {
	n.Logger.Info(ctx, "payroll processed",
		"payroll_id", rec.ID, "user_id", rec.UserID,
		"period_start", rec.PeriodStart.Format(dateLayout), "period_end", rec.PeriodEnd.Format(dateLayout),
		"net_pay", rec.NetPay.StringFixed(2))
	return nil
}

type PayrollService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	policy      PayrollPolicy
	notifier    Notifier
	clock       clock.Clock
	loc         *time.Location
	logger      logging.Logger
}

func NewPayrollService(db *sql.DB, m repomanager.RepositoryManager, policy PayrollPolicy,
	notifier Notifier, clk clock.Clock, loc *time.Location, logger logging.Logger) *PayrollService {
	return &PayrollService{
		db:          db,
		repomanager: m,
		policy:      policy,
		notifier:    notifier,
		clock:       clk,
		loc:         loc,
		logger:      logger.With("module", "payroll"),
	}
}

func (s *PayrollService) parseRange(startDate, endDate string) (time.Time, time.Time, error) {
	if startDate == "" || endDate == "" {
		return time.Time{}, time.Time{}, common.Validationf("start_date and end_date are required")
	}
	start, err := ParseDate(startDate, s.loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := ParseDate(endDate, s.loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if start.After(end) {
		return time.Time{}, time.Time{}, common.Validationf("start_date %s is after end_date %s", startDate, endDate)
	}
	return start, end, nil
}

// calculate sums completed entries started within [start, end] (whole
// days) using repositories bound to db. It returns nil when nothing was
// worked.
func (s *PayrollService) calculate(ctx context.Context, db dbx.DBTX, userID int64, start, end time.Time) (*PayrollData, error) {
	total, count, err := s.repomanager.Entries(db).SumCompleted(ctx, userID, start, end.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}

	rate, err := s.repomanager.Users(db).GetHourlyRate(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &PayrollData{
		UserID:      userID,
		PeriodStart: start,
		PeriodEnd:   end,
		Entries:     count,
		PayFigures:  s.policy.Compute(total, rate),
	}, nil
}

// Calculate previews the payroll for one user without storing it.
func (s *PayrollService) Calculate(ctx context.Context, userID int64, startDate, endDate string) (*PayrollData, error) {
	start, end, err := s.parseRange(startDate, endDate)
	if err != nil {
		return nil, err
	}
	data, err := s.calculate(ctx, s.db, userID, start, end)
	if err != nil {
		return nil, fail(ctx, s.logger, "calculate payroll", err, "user_id", userID)
	}
	return data, nil
}

// Generate computes and stores payroll for userID, or for every payroll
// eligible user when userID is 0. Users without completed work are skipped.
func (s *PayrollService) Generate(ctx context.Context, userID int64, startDate, endDate string) ([]GeneratedPayroll, error) {
	start, end, err := s.parseRange(startDate, endDate)
	if err != nil {
		return nil, err
	}

	userIDs := []int64{userID}
	if userID == 0 {
		users, err := s.repomanager.Users(s.db).ListByRoles(ctx, common.PayrollRoles...)
		if err != nil {
			return nil, fail(ctx, s.logger, "generate payroll", err)
		}
		userIDs = userIDs[:0]
		for _, u := range users {
			userIDs = append(userIDs, u.ID)
		}
	}

	result := []GeneratedPayroll{}
	for _, id := range userIDs {
		var generated *GeneratedPayroll
		err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			data, err := s.calculate(ctx, tx, id, start, end)
			if err != nil || data == nil {
				return err
			}
			rec := data.record()
			recomputed, err := s.repomanager.Payrolls(tx).Upsert(ctx, rec)
			if err != nil {
				return err
			}
			generated = &GeneratedPayroll{Record: rec, Recomputed: recomputed}
			return nil
		})
		if err != nil {
			return nil, fail(ctx, s.logger, "generate payroll", err, "user_id", id)
		}
		if generated == nil {
			continue
		}
		if !generated.Recomputed {
			s.logger.Info(ctx, "payroll already processed, kept", "user_id", id, "payroll_id", generated.Record.ID)
		}
		result = append(result, *generated)
	}

	s.logger.Info(ctx, "payroll generated", "start", startDate, "end", endDate, "records", len(result))
	return result, nil
}

// Process marks a pending record as processed by processedBy.
func (s *PayrollService) Process(ctx context.Context, payrollID, processedBy int64) error {
	var rec *models.PayrollRecord
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Payrolls(tx)

		r, err := repo.GetForUpdate(ctx, payrollID)
		if err != nil {
			return err
		}
		if r.Status != models.PayrollPending {
			return common.ErrInvalidState
		}

		now := s.clock.Now().UTC()
		if err := repo.MarkProcessed(ctx, payrollID, now, processedBy); err != nil {
			return err
		}
		r.Status = models.PayrollProcessed
		r.ProcessedAt = sql.NullTime{Time: now, Valid: true}
		r.ProcessedBy = sql.NullInt64{Int64: processedBy, Valid: true}
		rec = r
		return nil
	})
	if err != nil {
		return fail(ctx, s.logger, "process payroll", err, "payroll_id", payrollID)
	}

	if err := s.notifier.PayrollProcessed(ctx, rec); err != nil {
		s.logger.Warn(ctx, "payroll notification failed", "payroll_id", payrollID, "error", err)
	}
	return nil
}

// Summary aggregates records whose period lies within the optional bounds.
func (s *PayrollService) Summary(ctx context.Context, startDate, endDate string) (*models.PayrollSummary, error) {
	var from, to sql.NullTime
	if startDate != "" {
		t, err := ParseDate(startDate, s.loc)
		if err != nil {
			return nil, err
		}
		from = sql.NullTime{Time: t, Valid: true}
	}
	if endDate != "" {
		t, err := ParseDate(endDate, s.loc)
		if err != nil {
			return nil, err
		}
		to = sql.NullTime{Time: t, Valid: true}
	}

	summary, err := s.repomanager.Payrolls(s.db).Summary(ctx, from, to)
	if err != nil {
		return nil, fail(ctx, s.logger, "payroll summary", err)
	}
	return summary, nil
}

// List returns the most recent records, newest period first.
func (s *PayrollService) List(ctx context.Context, limit int) ([]*models.PayrollRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	records, err := s.repomanager.Payrolls(s.db).List(ctx, payrolls.ListFilter{Limit: limit})
	if err != nil {
		return nil, fail(ctx, s.logger, "list payroll", err)
	}
	return records, nil
}

// SetUserRate stores the hourly rate used by future calculations.
func (s *PayrollService) SetUserRate(ctx context.Context, userID int64, rate decimal.Decimal) error {
	if userID <= 0 {
		return common.Validationf("user_id is required")
	}
	if rate.IsNegative() {
		return common.Validationf("hourly rate must not be negative")
	}
	if err := s.repomanager.Users(s.db).SetHourlyRate(ctx, userID, rate.Round(2)); err != nil {
		return fail(ctx, s.logger, "set user rate", err, "user_id", userID)
	}
	s.logger.Info(ctx, "hourly rate updated", "user_id", userID, "hourly_rate", rate.StringFixed(2))
	return nil
}
