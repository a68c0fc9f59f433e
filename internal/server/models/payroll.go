package models

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

type PayrollStatus string

const (
	PayrollPending   PayrollStatus = "pending"
	PayrollProcessed PayrollStatus = "processed"
)

// PayrollRecord is a computed pay result for one user over an explicit
// date range. (UserID, PeriodStart, PeriodEnd) is unique.
type PayrollRecord struct {
	ID          int64
	UserID      int64
	PeriodStart time.Time
	PeriodEnd   time.Time

	HoursWorked decimal.Decimal
	HourlyRate  decimal.Decimal
	GrossPay    decimal.Decimal
	OvertimePay decimal.Decimal
	Deductions  decimal.Decimal
	NetPay      decimal.Decimal

	Status      PayrollStatus
	ProcessedAt sql.NullTime
	ProcessedBy sql.NullInt64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PayrollSummary aggregates payroll records over a date window.
type PayrollSummary struct {
	TotalRecords    int64
	TotalHours      decimal.Decimal
	TotalGross      decimal.Decimal
	TotalDeductions decimal.Decimal
	TotalNet        decimal.Decimal
	PendingCount    int64
	PendingAmount   decimal.Decimal
}
