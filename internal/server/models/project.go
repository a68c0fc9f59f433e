package models

import "github.com/shopspring/decimal"

type ProjectStatus string

const (
	ProjectActive   ProjectStatus = "active"
	ProjectInactive ProjectStatus = "inactive"
)

type Project struct {
	ID          int64
	Name        string
	Description string
	ClientName  string
	HourlyRate  decimal.NullDecimal
	Status      ProjectStatus
}
