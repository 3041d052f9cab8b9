package service

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/motoshop/installment-service/internal/config"
	"github.com/motoshop/installment-service/internal/models"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

// fakeStore implements Store in memory and records the writes it receives.
type fakeStore struct {
	installments map[string]models.Installment
	payments     []models.InstallmentPayment

	recordPaymentErr error
	lastExpected     int
}

func newFakeStore() *fakeStore {
	return &fakeStore{installments: map[string]models.Installment{}}
}

func (f *fakeStore) CreateUser(user *models.User) error { user.ID = 1; return nil }

func (f *fakeStore) FindUserByEmail(email string) (*models.User, error) {
	return nil, models.ErrNotFound
}

func (f *fakeStore) CreateInstallment(_ context.Context, inst *models.Installment) error {
	now := time.Now()
	inst.CreatedAt = now
	inst.UpdatedAt = now
	f.installments[inst.ID] = *inst
	return nil
}

func (f *fakeStore) GetInstallment(_ context.Context, id string) (*models.Installment, error) {
	inst, ok := f.installments[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &inst, nil
}

func (f *fakeStore) ListInstallments(_ context.Context, branchID string) ([]models.Installment, error) {
	var out []models.Installment
	for _, inst := range f.installments {
		if inst.BranchID == branchID {
			out = append(out, inst)
		}
	}
	return out, nil
}

func (f *fakeStore) ListDueInstallments(_ context.Context, cutoff time.Time) ([]models.Installment, error) {
	var out []models.Installment
	for _, inst := range f.installments {
		if !inst.Closed() && inst.NextPaymentDate != nil && !inst.NextPaymentDate.After(cutoff) {
			out = append(out, inst)
		}
	}
	return out, nil
}

func (f *fakeStore) RecordPayment(_ context.Context, inst *models.Installment, expectedCurrent int, payment *models.InstallmentPayment) error {
	f.lastExpected = expectedCurrent
	if f.recordPaymentErr != nil {
		return f.recordPaymentErr
	}
	stored, ok := f.installments[inst.ID]
	if !ok {
		return models.ErrNotFound
	}
	if stored.CurrentInstallment != expectedCurrent {
		return models.ErrConflict
	}
	f.payments = append(f.payments, *payment)
	f.installments[inst.ID] = *inst
	return nil
}

func (f *fakeStore) ListPayments(_ context.Context, installmentID string) ([]models.InstallmentPayment, error) {
	var out []models.InstallmentPayment
	for _, p := range f.payments {
		if p.InstallmentID == installmentID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateInstallmentStatus(_ context.Context, id string, from, to models.InstallmentStatus, now time.Time) error {
	inst, ok := f.installments[id]
	if !ok {
		return models.ErrNotFound
	}
	if inst.Status != from {
		return models.ErrConflict
	}
	inst.Status = to
	inst.UpdatedAt = now
	if to == models.StatusCancelled || to == models.StatusCompleted {
		inst.NextPaymentDate = nil
	}
	f.installments[id] = inst
	return nil
}

func (f *fakeStore) GetInstallmentStats(_ context.Context, branchID string) (*models.InstallmentStats, error) {
	stats := &models.InstallmentStats{TotalOutstanding: decimal.Zero}
	for _, inst := range f.installments {
		if inst.BranchID == branchID && !inst.Closed() {
			stats.ActiveCount++
			stats.TotalOutstanding = stats.TotalOutstanding.Add(inst.RemainingAmount)
		}
	}
	return stats, nil
}

type fakeRates struct {
	rate float64
	err  error
}

func (f fakeRates) GetKeyRate() (float64, error) { return f.rate, f.err }

func newTestService(store Store, rates RateProvider) *Service {
	log := logrus.New()
	log.SetOutput(io.Discard)
	cfg := &config.Config{JWTSecret: "secret", DefaultRate: 1.5, RateMargin: 0.5}
	return NewService(store, rates, log, cfg)
}

func createTestInstallment(t *testing.T, svc *Service) *models.Installment {
	t.Helper()
	inst, err := svc.CreateInstallment(context.Background(), CreateInstallmentInput{
		SaleID:          "sale-1",
		CustomerName:    "Tran Thi B",
		TotalAmount:     d(10_000_000),
		PrepaidAmount:   d(3_000_000),
		InterestRate:    decimal.NewFromInt(1),
		NumInstallments: 6,
		StartDate:       time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		BranchID:        "branch-1",
	})
	require.NoError(t, err)
	return inst
}

func TestCreateInstallmentSnapshotsPlan(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, fakeRates{})

	inst := createTestInstallment(t, svc)

	assert.True(t, inst.RemainingAmount.Equal(d(7_000_000)))
	assert.True(t, inst.TotalWithInterest.Equal(d(7_420_000)))
	assert.True(t, inst.InstallmentAmount.Equal(d(1_236_667)))
	assert.Equal(t, 0, inst.CurrentInstallment)
	assert.Equal(t, models.StatusActive, inst.Status)
	assert.Equal(t, "store", inst.FinanceCompany)
	require.NotNil(t, inst.NextPaymentDate)
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), *inst.NextPaymentDate)
	assert.Equal(t, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), inst.EndDate)
}

func TestCreateInstallmentValidation(t *testing.T) {
	svc := newTestService(newFakeStore(), fakeRates{})

	_, err := svc.CreateInstallment(context.Background(), CreateInstallmentInput{
		CustomerName: "X", TotalAmount: d(1), NumInstallments: 1, BranchID: "b",
	})
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = svc.CreateInstallment(context.Background(), CreateInstallmentInput{
		SaleID: "s", CustomerName: "X", TotalAmount: d(1), NumInstallments: 0, BranchID: "b",
	})
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = svc.CreateInstallment(context.Background(), CreateInstallmentInput{
		SaleID: "s", CustomerName: "X", TotalAmount: d(0), NumInstallments: 3, BranchID: "b",
	})
	assert.ErrorIs(t, err, models.ErrInvalidAmount)
}

func TestRecordPaymentHappyPath(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, fakeRates{})
	inst := createTestInstallment(t, svc)

	updated, payment, err := svc.RecordPayment(context.Background(), inst.ID,
		d(1_236_667), models.PaymentCash, "", "op-1")
	require.NoError(t, err)

	assert.Equal(t, 1, updated.CurrentInstallment)
	assert.Equal(t, 1, payment.InstallmentNumber)
	assert.Equal(t, "op-1", payment.CreatedBy)
	assert.Equal(t, 0, store.lastExpected, "predicate must use the pre-payment count")
	assert.True(t, store.installments[inst.ID].RemainingAmount.Equal(d(5_763_333)))
}

func TestRecordPaymentSequentialNumbering(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, fakeRates{})
	inst := createTestInstallment(t, svc)

	for i := 1; i <= 3; i++ {
		_, payment, err := svc.RecordPayment(context.Background(), inst.ID,
			d(1_236_667), models.PaymentBank, "", "")
		require.NoError(t, err)
		assert.Equal(t, i, payment.InstallmentNumber)
	}
	require.Len(t, store.payments, 3)
}

func TestRecordPaymentConflictLeavesStateUntouched(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, fakeRates{})
	inst := createTestInstallment(t, svc)

	store.recordPaymentErr = models.ErrConflict
	updated, payment, err := svc.RecordPayment(context.Background(), inst.ID,
		d(1_236_667), models.PaymentCash, "", "")

	assert.ErrorIs(t, err, models.ErrConflict)
	assert.Nil(t, updated)
	assert.Nil(t, payment)
	assert.Empty(t, store.payments)
	assert.Equal(t, 0, store.installments[inst.ID].CurrentInstallment)
}

func TestRecordPaymentClosedPlanNeverHitsStore(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, fakeRates{})
	inst := createTestInstallment(t, svc)

	stored := store.installments[inst.ID]
	stored.Status = models.StatusCompleted
	store.installments[inst.ID] = stored

	store.lastExpected = -1
	_, _, err := svc.RecordPayment(context.Background(), inst.ID,
		d(1_000), models.PaymentCash, "", "")
	assert.ErrorIs(t, err, models.ErrInvalidState)
	assert.Equal(t, -1, store.lastExpected, "no write may be attempted")
}

func TestRecordPaymentUnknownLedger(t *testing.T) {
	svc := newTestService(newFakeStore(), fakeRates{})
	_, _, err := svc.RecordPayment(context.Background(), "missing",
		d(1_000), models.PaymentCash, "", "")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestCancelInstallment(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, fakeRates{})
	inst := createTestInstallment(t, svc)

	cancelled, err := svc.CancelInstallment(context.Background(), inst.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)
	assert.Equal(t, models.StatusCancelled, store.installments[inst.ID].Status)

	_, err = svc.CancelInstallment(context.Background(), inst.ID)
	assert.ErrorIs(t, err, models.ErrInvalidState)
}

func TestInstallmentStats(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, fakeRates{})
	createTestInstallment(t, svc)

	stats, err := svc.InstallmentStats(context.Background(), "branch-1")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ActiveCount)
	assert.True(t, stats.TotalOutstanding.Equal(d(7_000_000)))

	_, err = svc.InstallmentStats(context.Background(), "")
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestSuggestedRate(t *testing.T) {
	svc := newTestService(newFakeStore(), fakeRates{rate: 6})
	assert.InDelta(t, 1.0, svc.SuggestedRate(), 1e-9) // 6%/year -> 0.5%/month + 0.5 margin

	svc = newTestService(newFakeStore(), fakeRates{err: errors.New("feed down")})
	assert.InDelta(t, 1.5, svc.SuggestedRate(), 1e-9)
}
