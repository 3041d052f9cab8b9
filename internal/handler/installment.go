package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/motoshop/installment-service/internal/middleware"
	"github.com/motoshop/installment-service/internal/models"
	"github.com/motoshop/installment-service/internal/plan"
	"github.com/motoshop/installment-service/internal/service"
)

const dateLayout = "2006-01-02"

type previewRequest struct {
	TotalAmount     decimal.Decimal `json:"total_amount"`
	PrepaidAmount   decimal.Decimal `json:"prepaid_amount"`
	NumInstallments int             `json:"num_installments"`
	InterestRate    decimal.Decimal `json:"interest_rate"`
	StartDate       string          `json:"start_date,omitempty"`
}

type previewResponse struct {
	plan.Plan
	Schedule []plan.Entry `json:"schedule"`
}

// PreviewPlan computes a plan for the setup form. Inputs are clamped rather
// than rejected so the form can recalculate on every keystroke.
func (h *Handler) PreviewPlan(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w, "invalid request payload")
		return
	}

	start := time.Now()
	if req.StartDate != "" {
		parsed, err := time.Parse(dateLayout, req.StartDate)
		if err != nil {
			h.badRequest(w, "start_date must be YYYY-MM-DD")
			return
		}
		start = parsed
	}

	p := plan.Compute(req.TotalAmount, req.PrepaidAmount, req.NumInstallments, req.InterestRate)
	h.writeJSON(w, http.StatusOK, previewResponse{Plan: p, Schedule: p.Schedule(start)})
}

type createInstallmentRequest struct {
	SaleID          string          `json:"sale_id"`
	CustomerID      string          `json:"customer_id,omitempty"`
	CustomerName    string          `json:"customer_name"`
	CustomerPhone   string          `json:"customer_phone,omitempty"`
	CustomerEmail   string          `json:"customer_email,omitempty"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	PrepaidAmount   decimal.Decimal `json:"prepaid_amount"`
	InterestRate    decimal.Decimal `json:"interest_rate"`
	NumInstallments int             `json:"num_installments"`
	FinanceCompany  string          `json:"finance_company,omitempty"`
	StartDate       string          `json:"start_date,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	BranchID        string          `json:"branch_id"`
}

// CreateInstallment confirms a plan and opens the ledger
func (h *Handler) CreateInstallment(w http.ResponseWriter, r *http.Request) {
	var req createInstallmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w, "invalid request payload")
		return
	}

	var start time.Time
	if req.StartDate != "" {
		parsed, err := time.Parse(dateLayout, req.StartDate)
		if err != nil {
			h.badRequest(w, "start_date must be YYYY-MM-DD")
			return
		}
		start = parsed
	}

	inst, err := h.svc.CreateInstallment(r.Context(), service.CreateInstallmentInput{
		SaleID:          req.SaleID,
		CustomerID:      req.CustomerID,
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		CustomerEmail:   req.CustomerEmail,
		TotalAmount:     req.TotalAmount,
		PrepaidAmount:   req.PrepaidAmount,
		InterestRate:    req.InterestRate,
		NumInstallments: req.NumInstallments,
		FinanceCompany:  req.FinanceCompany,
		StartDate:       start,
		Notes:           req.Notes,
		BranchID:        req.BranchID,
		CreatedBy:       middleware.UserID(r.Context()),
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, inst)
}

// ListInstallments returns all ledgers for a branch
func (h *Handler) ListInstallments(w http.ResponseWriter, r *http.Request) {
	installments, err := h.svc.ListInstallments(r.Context(), r.URL.Query().Get("branch_id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if installments == nil {
		installments = []models.Installment{}
	}
	h.writeJSON(w, http.StatusOK, installments)
}

// GetInstallment returns one ledger
func (h *Handler) GetInstallment(w http.ResponseWriter, r *http.Request) {
	inst, err := h.svc.GetInstallment(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, inst)
}

type recordPaymentRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method"`
	Notes         string          `json:"notes,omitempty"`
}

type recordPaymentResponse struct {
	Installment *models.Installment        `json:"installment"`
	Payment     *models.InstallmentPayment `json:"payment"`
}

// RecordPayment applies one payment to a ledger
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var req recordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w, "invalid request payload")
		return
	}

	method, err := models.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		h.badRequest(w, err.Error())
		return
	}

	inst, payment, err := h.svc.RecordPayment(r.Context(), mux.Vars(r)["id"],
		req.Amount, method, req.Notes, middleware.UserID(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, recordPaymentResponse{Installment: inst, Payment: payment})
}

// ListPayments returns the payment history of a ledger
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.svc.ListPayments(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	if payments == nil {
		payments = []models.InstallmentPayment{}
	}
	h.writeJSON(w, http.StatusOK, payments)
}

// CancelInstallment aborts an open plan
func (h *Handler) CancelInstallment(w http.ResponseWriter, r *http.Request) {
	inst, err := h.svc.CancelInstallment(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, inst)
}

// InstallmentStats returns the open-plan summary for a branch
func (h *Handler) InstallmentStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.InstallmentStats(r.Context(), r.URL.Query().Get("branch_id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}
