package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/motoshop/installment-service/internal/models"
)

const installmentColumns = `
	id, sale_id, customer_id, customer_name, customer_phone, customer_email,
	total_amount, prepaid_amount, remaining_amount, interest_rate,
	total_with_interest, num_installments, installment_amount,
	current_installment, next_payment_date, finance_company, status,
	start_date, end_date, notes, branch_id, created_by, created_at, updated_at`

// CreateInstallment inserts a new installment ledger
func (r *Repository) CreateInstallment(ctx context.Context, inst *models.Installment) error {
	query := `
		INSERT INTO shop.sales_installments (
			id, sale_id, customer_id, customer_name, customer_phone, customer_email,
			total_amount, prepaid_amount, remaining_amount, interest_rate,
			total_with_interest, num_installments, installment_amount,
			current_installment, next_payment_date, finance_company, status,
			start_date, end_date, notes, branch_id, created_by,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		inst.ID, inst.SaleID, nullString(inst.CustomerID), inst.CustomerName,
		nullString(inst.CustomerPhone), nullString(inst.CustomerEmail),
		inst.TotalAmount, inst.PrepaidAmount, inst.RemainingAmount, inst.InterestRate,
		inst.TotalWithInterest, inst.NumInstallments, inst.InstallmentAmount,
		inst.CurrentInstallment, inst.NextPaymentDate, inst.FinanceCompany, inst.Status,
		inst.StartDate, inst.EndDate, nullString(inst.Notes), inst.BranchID,
		nullString(inst.CreatedBy),
	).Scan(&inst.CreatedAt, &inst.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create installment: %w", err)
	}
	return nil
}

// GetInstallment retrieves one installment ledger by id
func (r *Repository) GetInstallment(ctx context.Context, id string) (*models.Installment, error) {
	query := `SELECT ` + installmentColumns + ` FROM shop.sales_installments WHERE id = $1`
	inst, err := scanInstallment(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get installment: %w", err)
	}
	return inst, nil
}

// ListInstallments retrieves all installment ledgers for a branch, newest first
func (r *Repository) ListInstallments(ctx context.Context, branchID string) ([]models.Installment, error) {
	query := `SELECT ` + installmentColumns + `
		FROM shop.sales_installments
		WHERE branch_id = $1
		ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, branchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list installments: %w", err)
	}
	defer rows.Close()
	return collectInstallments(rows)
}

// ListDueInstallments retrieves open ledgers whose next payment falls on or
// before the cutoff date. Used by the overdue sweep and reminder job.
func (r *Repository) ListDueInstallments(ctx context.Context, cutoff time.Time) ([]models.Installment, error) {
	query := `SELECT ` + installmentColumns + `
		FROM shop.sales_installments
		WHERE status IN ('active', 'overdue') AND next_payment_date <= $1
		ORDER BY next_payment_date`
	rows, err := r.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list due installments: %w", err)
	}
	defer rows.Close()
	return collectInstallments(rows)
}

// UpdateInstallmentStatus sets the status only, used by cancellation and the
// overdue sweep. The predicate on the previous status keeps the sweep from
// clobbering a concurrent completion.
func (r *Repository) UpdateInstallmentStatus(ctx context.Context, id string, from, to models.InstallmentStatus, now time.Time) error {
	query := `
		UPDATE shop.sales_installments
		SET status = $3, next_payment_date = CASE WHEN $3 IN ('completed', 'cancelled') THEN NULL ELSE next_payment_date END,
			updated_at = $4
		WHERE id = $1 AND status = $2`
	res, err := r.db.ExecContext(ctx, query, id, from, to, now)
	if err != nil {
		return fmt.Errorf("failed to update installment status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update installment status: %w", err)
	}
	if affected == 0 {
		return models.ErrConflict
	}
	return nil
}

// GetInstallmentStats aggregates open plans for a branch
func (r *Repository) GetInstallmentStats(ctx context.Context, branchID string) (*models.InstallmentStats, error) {
	stats := &models.InstallmentStats{}
	query := `
		SELECT COUNT(*), COALESCE(SUM(remaining_amount), 0)
		FROM shop.sales_installments
		WHERE branch_id = $1 AND status IN ('active', 'overdue')`
	err := r.db.QueryRowContext(ctx, query, branchID).
		Scan(&stats.ActiveCount, &stats.TotalOutstanding)
	if err != nil {
		return nil, fmt.Errorf("failed to get installment stats: %w", err)
	}
	return stats, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInstallment(row rowScanner) (*models.Installment, error) {
	inst := &models.Installment{}
	var customerID, customerPhone, customerEmail, notes, createdBy sql.NullString
	var nextPayment sql.NullTime
	err := row.Scan(
		&inst.ID, &inst.SaleID, &customerID, &inst.CustomerName, &customerPhone,
		&customerEmail, &inst.TotalAmount, &inst.PrepaidAmount, &inst.RemainingAmount,
		&inst.InterestRate, &inst.TotalWithInterest, &inst.NumInstallments,
		&inst.InstallmentAmount, &inst.CurrentInstallment, &nextPayment,
		&inst.FinanceCompany, &inst.Status, &inst.StartDate, &inst.EndDate,
		&notes, &inst.BranchID, &createdBy, &inst.CreatedAt, &inst.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	inst.CustomerID = customerID.String
	inst.CustomerPhone = customerPhone.String
	inst.CustomerEmail = customerEmail.String
	inst.Notes = notes.String
	inst.CreatedBy = createdBy.String
	if nextPayment.Valid {
		t := nextPayment.Time
		inst.NextPaymentDate = &t
	}
	return inst, nil
}

func collectInstallments(rows *sql.Rows) ([]models.Installment, error) {
	var out []models.Installment
	for rows.Next() {
		inst, err := scanInstallment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan installment: %w", err)
		}
		out = append(out, *inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read installments: %w", err)
	}
	return out, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
