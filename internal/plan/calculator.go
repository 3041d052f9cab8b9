// Package plan computes hire-purchase payment plans. All functions are pure:
// they back live form editing, so invalid numeric input is clamped instead of
// returning errors.
package plan

import (
	"time"

	"github.com/shopspring/decimal"
)

// Plan is a computed payment plan. Amounts are in whole currency units.
type Plan struct {
	TotalAmount        decimal.Decimal `json:"total_amount"`
	PrepaidAmount      decimal.Decimal `json:"prepaid_amount"`
	TermCount          int             `json:"term_count"`
	PeriodicRate       decimal.Decimal `json:"periodic_rate"` // percent per period
	RemainingPrincipal decimal.Decimal `json:"remaining_principal"`
	TotalInterest      decimal.Decimal `json:"total_interest"`
	TotalPayable       decimal.Decimal `json:"total_payable"`
	PeriodicPayment    decimal.Decimal `json:"periodic_payment"`
}

// Entry is one row of a projected repayment schedule.
type Entry struct {
	Number  int             `json:"number"` // 1-based period index
	DueDate time.Time       `json:"due_date"`
	Amount  decimal.Decimal `json:"amount"`
}

var hundred = decimal.NewFromInt(100)

// Compute derives a plan using flat (simple) interest:
//
//	principal = total - prepaid
//	interest  = principal * rate * term
//	payment   = (principal + interest) / term, rounded to whole units
//
// Prepaid is clamped to [0, total], negative total and rate are treated as
// zero, and a non-positive term yields a zero periodic payment.
func Compute(totalAmount, prepaidAmount decimal.Decimal, termCount int, periodicRate decimal.Decimal) Plan {
	if totalAmount.IsNegative() {
		totalAmount = decimal.Zero
	}
	if prepaidAmount.IsNegative() {
		prepaidAmount = decimal.Zero
	}
	if prepaidAmount.GreaterThan(totalAmount) {
		prepaidAmount = totalAmount
	}
	if periodicRate.IsNegative() {
		periodicRate = decimal.Zero
	}

	principal := totalAmount.Sub(prepaidAmount)
	interest := principal.Mul(periodicRate).Div(hundred).Mul(decimal.NewFromInt(int64(termCount))).Round(0)
	if termCount <= 0 {
		interest = decimal.Zero
	}
	payable := principal.Add(interest)

	payment := decimal.Zero
	if termCount > 0 {
		payment = payable.DivRound(decimal.NewFromInt(int64(termCount)), 0)
	}

	return Plan{
		TotalAmount:        totalAmount,
		PrepaidAmount:      prepaidAmount,
		TermCount:          termCount,
		PeriodicRate:       periodicRate,
		RemainingPrincipal: principal,
		TotalInterest:      interest,
		TotalPayable:       payable,
		PeriodicPayment:    payment,
	}
}

// Schedule projects the repayment rows for a plan starting at startDate.
// Row n falls due n months after the start; every row carries the flat
// periodic payment. The slice is freshly built on each call.
func (p Plan) Schedule(startDate time.Time) []Entry {
	if p.TermCount <= 0 {
		return nil
	}
	entries := make([]Entry, 0, p.TermCount)
	for n := 1; n <= p.TermCount; n++ {
		entries = append(entries, Entry{
			Number:  n,
			DueDate: startDate.AddDate(0, n, 0),
			Amount:  p.PeriodicPayment,
		})
	}
	return entries
}

// EndDate is the due date of the final period.
func (p Plan) EndDate(startDate time.Time) time.Time {
	return startDate.AddDate(0, p.TermCount, 0)
}
