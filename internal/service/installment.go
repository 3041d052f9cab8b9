package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/motoshop/installment-service/internal/models"
	"github.com/motoshop/installment-service/internal/plan"
)

// CreateInstallmentInput carries the agreed plan parameters for a new ledger.
type CreateInstallmentInput struct {
	SaleID          string
	CustomerID      string
	CustomerName    string
	CustomerPhone   string
	CustomerEmail   string
	TotalAmount     decimal.Decimal
	PrepaidAmount   decimal.Decimal
	InterestRate    decimal.Decimal // percent per period
	NumInstallments int
	FinanceCompany  string
	StartDate       time.Time // zero value means today
	Notes           string
	BranchID        string
	CreatedBy       string
}

// CreateInstallment computes the plan, snapshots it and persists a new ledger
// starting at period zero.
func (s *Service) CreateInstallment(ctx context.Context, in CreateInstallmentInput) (*models.Installment, error) {
	if in.SaleID == "" {
		return nil, fmt.Errorf("sale id is required: %w", models.ErrValidation)
	}
	if in.CustomerName == "" {
		return nil, fmt.Errorf("customer name is required: %w", models.ErrValidation)
	}
	if in.BranchID == "" {
		return nil, fmt.Errorf("branch id is required: %w", models.ErrValidation)
	}
	if in.NumInstallments < 1 {
		return nil, fmt.Errorf("number of installments must be at least 1: %w", models.ErrValidation)
	}
	if in.TotalAmount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("total amount must be positive: %w", models.ErrInvalidAmount)
	}

	start := in.StartDate
	if start.IsZero() {
		start = time.Now()
	}
	p := plan.Compute(in.TotalAmount, in.PrepaidAmount, in.NumInstallments, in.InterestRate)

	firstDue := start.AddDate(0, 1, 0)
	financeCompany := in.FinanceCompany
	if financeCompany == "" {
		financeCompany = "store"
	}

	inst := &models.Installment{
		ID:                 uuid.New().String(),
		SaleID:             in.SaleID,
		CustomerID:         in.CustomerID,
		CustomerName:       in.CustomerName,
		CustomerPhone:      in.CustomerPhone,
		CustomerEmail:      in.CustomerEmail,
		TotalAmount:        p.TotalAmount,
		PrepaidAmount:      p.PrepaidAmount,
		RemainingAmount:    p.RemainingPrincipal,
		InterestRate:       p.PeriodicRate,
		TotalWithInterest:  p.TotalPayable,
		NumInstallments:    p.TermCount,
		InstallmentAmount:  p.PeriodicPayment,
		CurrentInstallment: 0,
		NextPaymentDate:    &firstDue,
		FinanceCompany:     financeCompany,
		Status:             models.StatusActive,
		StartDate:          start,
		EndDate:            p.EndDate(start),
		Notes:              in.Notes,
		BranchID:           in.BranchID,
		CreatedBy:          in.CreatedBy,
	}

	if err := s.store.CreateInstallment(ctx, inst); err != nil {
		return nil, err
	}

	s.log.Infof("Installment %s created for sale %s: %s over %d periods",
		inst.ID, inst.SaleID, inst.TotalWithInterest, inst.NumInstallments)
	return inst, nil
}

// RecordPayment applies one payment to a ledger. The payment insert and the
// ledger update are committed together, and the update carries an optimistic
// predicate on the current installment count: a concurrent submitter loses
// with ErrConflict and must retry against fresh state. On any failure the
// ledger is left untouched.
func (s *Service) RecordPayment(ctx context.Context, installmentID string, amount decimal.Decimal, method models.PaymentMethod, notes, createdBy string) (*models.Installment, *models.InstallmentPayment, error) {
	inst, err := s.store.GetInstallment(ctx, installmentID)
	if err != nil {
		return nil, nil, err
	}

	updated, payment, err := inst.ApplyPayment(amount, method, notes, time.Now())
	if err != nil {
		return nil, nil, err
	}
	payment.CreatedBy = createdBy

	if err := s.store.RecordPayment(ctx, &updated, inst.CurrentInstallment, &payment); err != nil {
		return nil, nil, err
	}

	s.log.Infof("Payment %d/%d of %s recorded for installment %s, remaining %s",
		payment.InstallmentNumber, updated.NumInstallments, payment.Amount,
		updated.ID, updated.RemainingAmount)
	return &updated, &payment, nil
}

// CancelInstallment aborts an open plan. The record is kept.
func (s *Service) CancelInstallment(ctx context.Context, installmentID string) (*models.Installment, error) {
	inst, err := s.store.GetInstallment(ctx, installmentID)
	if err != nil {
		return nil, err
	}

	cancelled, err := inst.Cancel(time.Now())
	if err != nil {
		return nil, err
	}

	if err := s.store.UpdateInstallmentStatus(ctx, inst.ID, inst.Status, models.StatusCancelled, cancelled.UpdatedAt); err != nil {
		return nil, err
	}

	s.log.Infof("Installment %s cancelled with %s outstanding", inst.ID, inst.RemainingAmount)
	return &cancelled, nil
}

// GetInstallment retrieves one ledger
func (s *Service) GetInstallment(ctx context.Context, id string) (*models.Installment, error) {
	return s.store.GetInstallment(ctx, id)
}

// ListInstallments retrieves all ledgers for a branch
func (s *Service) ListInstallments(ctx context.Context, branchID string) ([]models.Installment, error) {
	if branchID == "" {
		return nil, fmt.Errorf("branch id is required: %w", models.ErrValidation)
	}
	return s.store.ListInstallments(ctx, branchID)
}

// ListPayments retrieves the payment history of a ledger
func (s *Service) ListPayments(ctx context.Context, installmentID string) ([]models.InstallmentPayment, error) {
	if _, err := s.store.GetInstallment(ctx, installmentID); err != nil {
		return nil, err
	}
	return s.store.ListPayments(ctx, installmentID)
}

// InstallmentStats aggregates open plans for a branch
func (s *Service) InstallmentStats(ctx context.Context, branchID string) (*models.InstallmentStats, error) {
	if branchID == "" {
		return nil, fmt.Errorf("branch id is required: %w", models.ErrValidation)
	}
	return s.store.GetInstallmentStats(ctx, branchID)
}

// ListDueInstallments returns open ledgers due on or before the cutoff.
func (s *Service) ListDueInstallments(ctx context.Context, cutoff time.Time) ([]models.Installment, error) {
	return s.store.ListDueInstallments(ctx, cutoff)
}

// MarkOverdue flags an active ledger whose due date has passed. A concurrent
// payment or cancellation wins the race; that outcome is not an error for the
// sweep, so ErrConflict is passed through for the caller to ignore.
func (s *Service) MarkOverdue(ctx context.Context, id string, now time.Time) error {
	return s.store.UpdateInstallmentStatus(ctx, id, models.StatusActive, models.StatusOverdue, now)
}
