package api

import (
	"context"
	"encoding/json"

	"github.com/dmitrijs2005/teamflow/internal/common"
	"github.com/dmitrijs2005/teamflow/internal/server/models"
	"github.com/dmitrijs2005/teamflow/internal/server/services"
	"github.com/shopspring/decimal"
)

type handlers struct {
	timer   Timer
	stats   Stats
	payroll Payroll
}

type entryParams struct {
	EntryID int64 `json:"entry_id"`
}

func (p entryParams) validate() error {
	if p.EntryID <= 0 {
		return common.Validationf("entry_id is required")
	}
	return nil
}

func decodeEntry(params json.RawMessage) (entryParams, error) {
	var p entryParams
	if err := decode(params, &p); err != nil {
		return p, err
	}
	return p, p.validate()
}

func (h *handlers) startTimer(ctx context.Context, pr Principal, params json.RawMessage) (any, error) {
	var p struct {
		ProjectID *int64 `json:"project_id"`
		TaskName  string `json:"task_name"`
	}
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	// 0 is how clients say "no project"
	if p.ProjectID != nil && *p.ProjectID == 0 {
		p.ProjectID = nil
	}

	e, err := h.timer.Start(ctx, pr.UserID, p.ProjectID, p.TaskName)
	if err != nil {
		return nil, err
	}
	return map[string]any{"entry_id": e.ID, "start_time": e.StartTime}, nil
}

func (h *handlers) pauseTimer(ctx context.Context, pr Principal, params json.RawMessage) (any, error) {
	p, err := decodeEntry(params)
	if err != nil {
		return nil, err
	}
	elapsed, err := h.timer.Pause(ctx, pr.UserID, p.EntryID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"elapsed_seconds": elapsed}, nil
}

func (h *handlers) resumeTimer(ctx context.Context, pr Principal, params json.RawMessage) (any, error) {
	p, err := decodeEntry(params)
	if err != nil {
		return nil, err
	}
	e, err := h.timer.Resume(ctx, pr.UserID, p.EntryID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"entry_id": e.ID, "status": e.Status}, nil
}

func (h *handlers) stopTimer(ctx context.Context, pr Principal, params json.RawMessage) (any, error) {
	p, err := decodeEntry(params)
	if err != nil {
		return nil, err
	}
	elapsed, err := h.timer.Stop(ctx, pr.UserID, p.EntryID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"elapsed_seconds": elapsed}, nil
}

func (h *handlers) updateActivity(ctx context.Context, pr Principal, params json.RawMessage) (any, error) {
	var p struct {
		entryParams
		ActivityLevel int   `json:"activity_level"`
		IdleSeconds   int64 `json:"idle_seconds"`
	}
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	if err := h.timer.UpdateActivity(ctx, pr.UserID, p.EntryID, p.ActivityLevel, p.IdleSeconds); err != nil {
		return nil, err
	}
	return struct{}{}, nil
}

func (h *handlers) activeTimer(ctx context.Context, pr Principal, _ json.RawMessage) (any, error) {
	e, err := h.timer.ActiveTimer(ctx, pr.UserID)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return map[string]any{"entry": nil}, nil
	}
	return map[string]any{"entry": newEntryView(e)}, nil
}

// defaultStatsPeriods are reported when get_user_stats names no period.
var defaultStatsPeriods = []models.Period{models.PeriodToday, models.PeriodWeek, models.PeriodMonth}

func (h *handlers) userStats(ctx context.Context, pr Principal, params json.RawMessage) (any, error) {
	var p struct {
		UserID int64         `json:"user_id"`
		Period models.Period `json:"period"`
	}
	if err := decode(params, &p); err != nil {
		return nil, err
	}

	userID, err := statsSubject(pr, p.UserID)
	if err != nil {
		return nil, err
	}

	if p.Period != "" {
		stats, err := h.stats.UserStats(ctx, userID, p.Period)
		if err != nil {
			return nil, err
		}
		return services.NewStatsView(stats), nil
	}

	out := make(map[models.Period]services.StatsView, len(defaultStatsPeriods))
	for _, period := range defaultStatsPeriods {
		stats, err := h.stats.UserStats(ctx, userID, period)
		if err != nil {
			return nil, err
		}
		out[period] = services.NewStatsView(stats)
	}
	return out, nil
}

// statsSubject resolves whose statistics are requested. Reading another
// user's numbers requires view_timesheets.
func statsSubject(pr Principal, requested int64) (int64, error) {
	if requested == 0 || requested == pr.UserID {
		return pr.UserID, nil
	}
	if !pr.Can(common.CapViewTimesheets) {
		return 0, common.ErrPermissionDenied
	}
	return requested, nil
}

func (h *handlers) weeklyBreakdown(ctx context.Context, pr Principal, params json.RawMessage) (any, error) {
	var p struct {
		UserID int64 `json:"user_id"`
	}
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	userID, err := statsSubject(pr, p.UserID)
	if err != nil {
		return nil, err
	}

	days, err := h.stats.WeeklyBreakdown(ctx, userID)
	if err != nil {
		return nil, err
	}
	views := make([]dailyView, 0, len(days))
	for _, d := range days {
		views = append(views, newDailyView(d))
	}
	return map[string]any{"days": views}, nil
}

func (h *handlers) projectDistribution(ctx context.Context, pr Principal, params json.RawMessage) (any, error) {
	var p struct {
		UserID int64         `json:"user_id"`
		Period models.Period `json:"period"`
	}
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	userID, err := statsSubject(pr, p.UserID)
	if err != nil {
		return nil, err
	}
	if p.Period == "" {
		p.Period = models.PeriodMonth
	}

	rows, err := h.stats.ProjectDistribution(ctx, userID, p.Period)
	if err != nil {
		return nil, err
	}
	views := make([]projectTotalView, 0, len(rows))
	for _, r := range rows {
		views = append(views, newProjectTotalView(r))
	}
	return map[string]any{"projects": views}, nil
}

func (h *handlers) teamStats(ctx context.Context, _ Principal, params json.RawMessage) (any, error) {
	var p struct {
		Period models.Period `json:"period"`
	}
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	if p.Period == "" {
		p.Period = models.PeriodToday
	}
	rows, err := h.stats.TeamStats(ctx, p.Period)
	if err != nil {
		return nil, err
	}
	return map[string]any{"rows": rows}, nil
}

func (h *handlers) timesheets(ctx context.Context, _ Principal, params json.RawMessage) (any, error) {
	var p struct {
		UserID    int64  `json:"user_id"`
		StartDate string `json:"start_date"`
		EndDate   string `json:"end_date"`
		Limit     int    `json:"limit"`
	}
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	list, err := h.stats.Timesheets(ctx, services.TimesheetQuery{
		UserID: p.UserID, StartDate: p.StartDate, EndDate: p.EndDate, Limit: p.Limit,
	})
	if err != nil {
		return nil, err
	}
	views := make([]entryView, 0, len(list))
	for _, e := range list {
		views = append(views, newEntryView(e))
	}
	return map[string]any{"entries": views}, nil
}

func (h *handlers) projects(ctx context.Context, _ Principal, _ json.RawMessage) (any, error) {
	list, err := h.timer.Projects(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]projectView, 0, len(list))
	for _, p := range list {
		views = append(views, newProjectView(p))
	}
	return map[string]any{"projects": views}, nil
}

func (h *handlers) generatePayroll(ctx context.Context, _ Principal, params json.RawMessage) (any, error) {
	var p struct {
		UserID    int64  `json:"user_id"`
		StartDate string `json:"start_date"`
		EndDate   string `json:"end_date"`
	}
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	generated, err := h.payroll.Generate(ctx, p.UserID, p.StartDate, p.EndDate)
	if err != nil {
		return nil, err
	}
	views := make([]generatedView, 0, len(generated))
	for _, g := range generated {
		views = append(views, generatedView{
			UserID:     g.Record.UserID,
			PayrollID:  g.Record.ID,
			Recomputed: g.Recomputed,
			Data:       newPayrollView(g.Record),
		})
	}
	return map[string]any{"generated": views}, nil
}

func (h *handlers) processPayroll(ctx context.Context, pr Principal, params json.RawMessage) (any, error) {
	var p struct {
		PayrollID int64 `json:"payroll_id"`
	}
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	if p.PayrollID <= 0 {
		return nil, common.Validationf("payroll_id is required")
	}
	if err := h.payroll.Process(ctx, p.PayrollID, pr.UserID); err != nil {
		return nil, err
	}
	return struct{}{}, nil
}

func (h *handlers) listPayroll(ctx context.Context, _ Principal, params json.RawMessage) (any, error) {
	var p struct {
		Limit int `json:"limit"`
	}
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	records, err := h.payroll.List(ctx, p.Limit)
	if err != nil {
		return nil, err
	}
	views := make([]payrollView, 0, len(records))
	for _, r := range records {
		views = append(views, newPayrollView(r))
	}
	return map[string]any{"records": views}, nil
}

func (h *handlers) payrollSummary(ctx context.Context, _ Principal, params json.RawMessage) (any, error) {
	var p struct {
		StartDate string `json:"start_date"`
		EndDate   string `json:"end_date"`
	}
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	s, err := h.payroll.Summary(ctx, p.StartDate, p.EndDate)
	if err != nil {
		return nil, err
	}
	return newSummaryView(s), nil
}

func (h *handlers) updateUserRate(ctx context.Context, _ Principal, params json.RawMessage) (any, error) {
	var p struct {
		UserID     int64            `json:"user_id"`
		HourlyRate *decimal.Decimal `json:"hourly_rate"`
	}
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	if p.HourlyRate == nil {
		return nil, common.Validationf("hourly_rate is required")
	}
	if err := h.payroll.SetUserRate(ctx, p.UserID, *p.HourlyRate); err != nil {
		return nil, err
	}
	return map[string]any{"user_id": p.UserID, "hourly_rate": money(p.HourlyRate.Round(2))}, nil
}
