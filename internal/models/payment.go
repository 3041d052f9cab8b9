package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod is how an installment payment was settled.
type PaymentMethod string

const (
	PaymentCash PaymentMethod = "cash"
	PaymentBank PaymentMethod = "bank"
)

// ParsePaymentMethod validates a wire value.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch PaymentMethod(s) {
	case PaymentCash, PaymentBank:
		return PaymentMethod(s), nil
	}
	return "", fmt.Errorf("unknown payment method %q", s)
}

// InstallmentPayment is one recorded repayment against an installment plan.
// Records are append-only; InstallmentNumber values for one plan are
// sequential starting at 1.
type InstallmentPayment struct {
	ID                string          `json:"id"`
	InstallmentID     string          `json:"installment_id"`
	InstallmentNumber int             `json:"installment_number"`
	PaymentDate       time.Time       `json:"payment_date"`
	Amount            decimal.Decimal `json:"amount"`
	PaymentMethod     PaymentMethod   `json:"payment_method"`
	Notes             string          `json:"notes,omitempty"`
	CreatedBy         string          `json:"created_by,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}
