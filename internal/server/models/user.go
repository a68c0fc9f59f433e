package models

import "github.com/shopspring/decimal"

// User is the payroll-relevant view of an identity managed elsewhere.
type User struct {
	ID          int64
	DisplayName string
	Email       string
	Role        string
	HourlyRate  decimal.Decimal
}
