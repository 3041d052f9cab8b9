package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/motoshop/installment-service/internal/models"
)

// RecordPayment appends a payment record and applies the post-payment ledger
// fields in one transaction. The ledger update carries an optimistic predicate
// on the previously-read current_installment: zero rows affected means a
// concurrent writer advanced the ledger first, the transaction is rolled back
// and ErrConflict is returned, leaving both tables untouched.
func (r *Repository) RecordPayment(ctx context.Context, inst *models.Installment, expectedCurrent int, p *models.InstallmentPayment) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	insertQuery := `
		INSERT INTO shop.installment_payments (
			id, installment_id, installment_number, payment_date, amount,
			payment_method, notes, created_by, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, CURRENT_TIMESTAMP)
		RETURNING created_at`
	if err := tx.QueryRowContext(ctx, insertQuery,
		p.ID, p.InstallmentID, p.InstallmentNumber, p.PaymentDate, p.Amount,
		p.PaymentMethod, nullString(p.Notes), nullString(p.CreatedBy),
	).Scan(&p.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}

	updateQuery := `
		UPDATE shop.sales_installments
		SET current_installment = $2, remaining_amount = $3, next_payment_date = $4,
			status = $5, updated_at = $6
		WHERE id = $1 AND current_installment = $7`
	res, err := tx.ExecContext(ctx, updateQuery,
		inst.ID, inst.CurrentInstallment, inst.RemainingAmount, inst.NextPaymentDate,
		inst.Status, inst.UpdatedAt, expectedCurrent)
	if err != nil {
		return fmt.Errorf("failed to update installment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update installment: %w", err)
	}
	if affected == 0 {
		return models.ErrConflict
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit payment: %w", err)
	}
	return nil
}

// ListPayments retrieves all payments for an installment ordered by period
func (r *Repository) ListPayments(ctx context.Context, installmentID string) ([]models.InstallmentPayment, error) {
	query := `
		SELECT id, installment_id, installment_number, payment_date, amount,
			payment_method, notes, created_by, created_at
		FROM shop.installment_payments
		WHERE installment_id = $1
		ORDER BY installment_number`
	rows, err := r.db.QueryContext(ctx, query, installmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var out []models.InstallmentPayment
	for rows.Next() {
		var p models.InstallmentPayment
		var notes, createdBy sql.NullString
		if err := rows.Scan(&p.ID, &p.InstallmentID, &p.InstallmentNumber,
			&p.PaymentDate, &p.Amount, &p.PaymentMethod, &notes, &createdBy,
			&p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		p.Notes = notes.String
		p.CreatedBy = createdBy.String
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read payments: %w", err)
	}
	return out, nil
}
