package service

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/motoshop/installment-service/internal/config"
	"github.com/motoshop/installment-service/internal/models"
)

// Store is the persistence contract the service depends on. It is implemented
// by repository.Repository; tests substitute a fake.
type Store interface {
	CreateUser(user *models.User) error
	FindUserByEmail(email string) (*models.User, error)

	CreateInstallment(ctx context.Context, inst *models.Installment) error
	GetInstallment(ctx context.Context, id string) (*models.Installment, error)
	ListInstallments(ctx context.Context, branchID string) ([]models.Installment, error)
	ListDueInstallments(ctx context.Context, cutoff time.Time) ([]models.Installment, error)
	RecordPayment(ctx context.Context, inst *models.Installment, expectedCurrent int, payment *models.InstallmentPayment) error
	ListPayments(ctx context.Context, installmentID string) ([]models.InstallmentPayment, error)
	UpdateInstallmentStatus(ctx context.Context, id string, from, to models.InstallmentStatus, now time.Time) error
	GetInstallmentStats(ctx context.Context, branchID string) (*models.InstallmentStats, error)
}

// RateProvider supplies the current annual reference rate in percent.
type RateProvider interface {
	GetKeyRate() (float64, error)
}

// Service handles business logic
type Service struct {
	store  Store
	rates  RateProvider
	log    *logrus.Logger
	config *config.Config
}

// NewService initializes a new service
func NewService(store Store, rates RateProvider, log *logrus.Logger, cfg *config.Config) *Service {
	return &Service{store: store, rates: rates, log: log, config: cfg}
}

// Register creates a new operator account with hashed password
func (s *Service) Register(username, email, password string) (*models.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hashedPassword),
	}

	if err := s.store.CreateUser(user); err != nil {
		return nil, err
	}

	s.log.Infof("User registered: %s", user.Email)
	return user, nil
}

// Login authenticates an operator and returns a JWT token
func (s *Service) Login(email, password string) (string, error) {
	user, err := s.store.FindUserByEmail(email)
	if err != nil {
		return "", fmt.Errorf("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", fmt.Errorf("invalid credentials")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   fmt.Sprintf("%d", user.ID),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
	})
	tokenString, err := token.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	s.log.Infof("User logged in: %s", user.Email)
	return tokenString, nil
}

// SuggestedRate returns a periodic interest rate proposal for new plans,
// derived from the reference feed plus the configured margin. Falls back to
// the configured default when the feed is unreachable.
func (s *Service) SuggestedRate() float64 {
	annual, err := s.rates.GetKeyRate()
	if err != nil {
		s.log.WithError(err).Warn("Reference rate feed unavailable, using default rate")
		return s.config.DefaultRate
	}
	return annual/12 + s.config.RateMargin
}
