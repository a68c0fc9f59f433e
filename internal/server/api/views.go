package api

import (
	"math"
	"time"

	"github.com/dmitrijs2005/teamflow/internal/server/models"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

type entryView struct {
	ID             int64      `json:"id"`
	UserID         int64      `json:"user_id"`
	ProjectID      *int64     `json:"project_id"`
	TaskName       string     `json:"task_name"`
	StartTime      time.Time  `json:"start_time"`
	EndTime        *time.Time `json:"end_time"`
	ElapsedSeconds int64      `json:"elapsed_seconds"`
	Hours          float64    `json:"hours"`
	IdleMinutes    float64    `json:"idle_minutes"`
	ActivityLevel  int        `json:"activity_level"`
	Status         string     `json:"status"`
}

func newEntryView(e *models.TimeEntry) entryView {
	v := entryView{
		ID:             e.ID,
		UserID:         e.UserID,
		TaskName:       e.TaskName,
		StartTime:      e.StartTime,
		ElapsedSeconds: e.ElapsedSeconds,
		Hours:          hours(e.ElapsedSeconds),
		IdleMinutes:    math.Round(float64(e.IdleSeconds)/6) / 10,
		ActivityLevel:  e.ActivityLevel,
		Status:         string(e.Status),
	}
	if e.ProjectID.Valid {
		id := e.ProjectID.Int64
		v.ProjectID = &id
	}
	if e.EndTime.Valid {
		t := e.EndTime.Time
		v.EndTime = &t
	}
	return v
}

type projectView struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	ClientName  string  `json:"client_name"`
	HourlyRate  *string `json:"hourly_rate"`
	Status      string  `json:"status"`
}

func newProjectView(p *models.Project) projectView {
	v := projectView{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		ClientName:  p.ClientName,
		Status:      string(p.Status),
	}
	if p.HourlyRate.Valid {
		r := money(p.HourlyRate.Decimal)
		v.HourlyRate = &r
	}
	return v
}

type dailyView struct {
	Date         string  `json:"date"`
	Weekday      string  `json:"weekday"`
	TotalSeconds int64   `json:"total_seconds"`
	Hours        float64 `json:"hours"`
}

func newDailyView(d models.DailyTotal) dailyView {
	v := dailyView{Date: d.Date, TotalSeconds: d.TotalSeconds, Hours: hours(d.TotalSeconds)}
	if day, err := time.Parse(dateLayout, d.Date); err == nil {
		v.Weekday = day.Weekday().String()
	}
	return v
}

type projectTotalView struct {
	ProjectID    *int64  `json:"project_id"`
	ProjectName  string  `json:"project_name"`
	TotalSeconds int64   `json:"total_seconds"`
	Hours        float64 `json:"hours"`
	Entries      int64   `json:"entries"`
}

func newProjectTotalView(p models.ProjectTotal) projectTotalView {
	v := projectTotalView{
		ProjectName:  p.ProjectName,
		TotalSeconds: p.TotalSeconds,
		Hours:        hours(p.TotalSeconds),
		Entries:      p.Entries,
	}
	if p.ProjectID.Valid {
		id := p.ProjectID.Int64
		v.ProjectID = &id
	}
	return v
}

// hours converts seconds to hours with two decimals.
func hours(seconds int64) float64 {
	return math.Round(float64(seconds)/36) / 100
}

// money renders an amount with exactly two decimals.
func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

type payrollView struct {
	ID          int64   `json:"id"`
	UserID      int64   `json:"user_id"`
	PeriodStart string  `json:"period_start"`
	PeriodEnd   string  `json:"period_end"`
	HoursWorked string  `json:"hours_worked"`
	HourlyRate  string  `json:"hourly_rate"`
	GrossPay    string  `json:"gross_pay"`
	OvertimePay string  `json:"overtime_pay"`
	Deductions  string  `json:"deductions"`
	NetPay      string  `json:"net_pay"`
	Status      string  `json:"status"`
	ProcessedAt *string `json:"processed_at"`
	ProcessedBy *int64  `json:"processed_by"`
}

func newPayrollView(r *models.PayrollRecord) payrollView {
	v := payrollView{
		ID:          r.ID,
		UserID:      r.UserID,
		PeriodStart: r.PeriodStart.Format(dateLayout),
		PeriodEnd:   r.PeriodEnd.Format(dateLayout),
		HoursWorked: money(r.HoursWorked),
		HourlyRate:  money(r.HourlyRate),
		GrossPay:    money(r.GrossPay),
		OvertimePay: money(r.OvertimePay),
		Deductions:  money(r.Deductions),
		NetPay:      money(r.NetPay),
		Status:      string(r.Status),
	}
	if r.ProcessedAt.Valid {
		s := r.ProcessedAt.Time.UTC().Format(time.RFC3339)
		v.ProcessedAt = &s
	}
	if r.ProcessedBy.Valid {
		by := r.ProcessedBy.Int64
		v.ProcessedBy = &by
	}
	return v
}

type generatedView struct {
	UserID     int64       `json:"user_id"`
	PayrollID  int64       `json:"payroll_id"`
	Recomputed bool        `json:"recomputed"`
	Data       payrollView `json:"data"`
}

type summaryView struct {
	TotalRecords    int64  `json:"total_records"`
	TotalHours      string `json:"total_hours"`
	TotalGross      string `json:"total_gross"`
	TotalDeductions string `json:"total_deductions"`
	TotalNet        string `json:"total_net"`
	PendingCount    int64  `json:"pending_count"`
	PendingAmount   string `json:"pending_amount"`
}

func newSummaryView(s *models.PayrollSummary) summaryView {
	return summaryView{
		TotalRecords:    s.TotalRecords,
		TotalHours:      money(s.TotalHours),
		TotalGross:      money(s.TotalGross),
		TotalDeductions: money(s.TotalDeductions),
		TotalNet:        money(s.TotalNet),
		PendingCount:    s.PendingCount,
		PendingAmount:   money(s.PendingAmount),
	}
}
