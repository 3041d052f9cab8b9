package models

import "github.com/shopspring/decimal"

// InstallmentStats summarizes open plans for a branch
type InstallmentStats struct {
	ActiveCount      int             `json:"active_count"`
	TotalOutstanding decimal.Decimal `json:"total_outstanding"`
}
