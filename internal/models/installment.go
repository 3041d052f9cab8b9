package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InstallmentStatus is the lifecycle state of an installment plan.
type InstallmentStatus string

const (
	StatusActive    InstallmentStatus = "active"
	StatusCompleted InstallmentStatus = "completed"
	StatusOverdue   InstallmentStatus = "overdue"
	StatusCancelled InstallmentStatus = "cancelled"
)

// Installment is the persisted ledger of one financed sale. The plan snapshot
// fields (TotalAmount through InstallmentAmount) are immutable after creation;
// only CurrentInstallment, RemainingAmount, NextPaymentDate, Status and
// UpdatedAt change, and only through ApplyPayment, Cancel or the overdue sweep.
type Installment struct {
	ID                 string            `json:"id"`
	SaleID             string            `json:"sale_id"`
	CustomerID         string            `json:"customer_id,omitempty"`
	CustomerName       string            `json:"customer_name"`
	CustomerPhone      string            `json:"customer_phone,omitempty"`
	CustomerEmail      string            `json:"customer_email,omitempty"`
	TotalAmount        decimal.Decimal   `json:"total_amount"`
	PrepaidAmount      decimal.Decimal   `json:"prepaid_amount"`
	RemainingAmount    decimal.Decimal   `json:"remaining_amount"`
	InterestRate       decimal.Decimal   `json:"interest_rate"` // percent per period
	TotalWithInterest  decimal.Decimal   `json:"total_with_interest"`
	NumInstallments    int               `json:"num_installments"`
	InstallmentAmount  decimal.Decimal   `json:"installment_amount"`
	CurrentInstallment int               `json:"current_installment"`
	NextPaymentDate    *time.Time        `json:"next_payment_date,omitempty"`
	FinanceCompany     string            `json:"finance_company"`
	Status             InstallmentStatus `json:"status"`
	StartDate          time.Time         `json:"start_date"`
	EndDate            time.Time         `json:"end_date"`
	Notes              string            `json:"notes,omitempty"`
	BranchID           string            `json:"branch_id"`
	CreatedBy          string            `json:"created_by,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

// Closed reports whether the installment accepts no further payments.
func (i Installment) Closed() bool {
	return i.Status == StatusCompleted || i.Status == StatusCancelled
}

// PastDue reports whether an open installment has a due date in the past.
func (i Installment) PastDue(now time.Time) bool {
	if i.Closed() || i.NextPaymentDate == nil {
		return false
	}
	return i.NextPaymentDate.Before(now.Truncate(24 * time.Hour))
}

// ApplyPayment advances the ledger by one period and returns the updated
// ledger together with the payment record to append. The receiver is not
// mutated; persistence of both results is the caller's job.
//
// Amounts above the remaining balance are accepted and clamp the balance to
// zero (early settlement). The plan completes when either the period count is
// exhausted or the balance reaches zero, whichever comes first.
func (i Installment) ApplyPayment(amount decimal.Decimal, method PaymentMethod, notes string, now time.Time) (Installment, InstallmentPayment, error) {
	if i.Closed() {
		return i, InstallmentPayment{}, ErrInvalidState
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return i, InstallmentPayment{}, ErrInvalidAmount
	}

	number := i.CurrentInstallment + 1
	payment := InstallmentPayment{
		ID:                uuid.New().String(),
		InstallmentID:     i.ID,
		InstallmentNumber: number,
		PaymentDate:       now,
		Amount:            amount,
		PaymentMethod:     method,
		Notes:             notes,
		CreatedAt:         now,
	}

	remaining := i.RemainingAmount.Sub(amount)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	completed := number >= i.NumInstallments || remaining.IsZero()

	next := i
	next.CurrentInstallment = number
	next.RemainingAmount = remaining
	next.UpdatedAt = now
	if completed {
		next.Status = StatusCompleted
		next.NextPaymentDate = nil
	} else {
		next.Status = StatusActive
		if i.NextPaymentDate != nil {
			due := i.NextPaymentDate.AddDate(0, 1, 0)
			next.NextPaymentDate = &due
		}
	}

	return next, payment, nil
}

// Cancel aborts an open plan. The ledger is retained as a financial record.
func (i Installment) Cancel(now time.Time) (Installment, error) {
	if i.Closed() {
		return i, ErrInvalidState
	}
	next := i
	next.Status = StatusCancelled
	next.NextPaymentDate = nil
	next.UpdatedAt = now
	return next, nil
}
