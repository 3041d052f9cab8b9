package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"database/sql"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/motoshop/installment-service/internal/config"
	"github.com/motoshop/installment-service/internal/handler"
	"github.com/motoshop/installment-service/internal/integrations/refrate"
	"github.com/motoshop/installment-service/internal/middleware"
	"github.com/motoshop/installment-service/internal/repository"
	"github.com/motoshop/installment-service/internal/scheduler"
	"github.com/motoshop/installment-service/internal/service"
	"github.com/motoshop/installment-service/internal/utils/email"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logLevel, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	// Initialize database
	db, err := sql.Open("postgres", cfg.DBConn)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}

	// Initialize layers
	repo := repository.NewRepository(db)
	rateClient := refrate.NewClient(cfg, logger)
	svc := service.NewService(repo, rateClient, logger, cfg)
	h := handler.NewHandler(svc, logger)
	sender := email.NewSender(cfg, logger)

	// Start the overdue sweep
	sched := scheduler.NewScheduler(svc, sender, cfg, logger)
	if err := sched.Start(); err != nil {
		logger.Fatalf("Failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	// Setup router
	r := mux.NewRouter()
	// Public routes
	r.HandleFunc("/register", h.Register).Methods("POST")
	r.HandleFunc("/login", h.Login).Methods("POST")
	// Protected routes
	authRouter := r.PathPrefix("/").Subrouter()
	authRouter.Use(middleware.AuthMiddleware(cfg))
	authRouter.HandleFunc("/installments/preview", h.PreviewPlan).Methods("POST")
	authRouter.HandleFunc("/installments/stats", h.InstallmentStats).Methods("GET")
	authRouter.HandleFunc("/installments", h.CreateInstallment).Methods("POST")
	authRouter.HandleFunc("/installments", h.ListInstallments).Methods("GET")
	authRouter.HandleFunc("/installments/{id}", h.GetInstallment).Methods("GET")
	authRouter.HandleFunc("/installments/{id}/payments", h.RecordPayment).Methods("POST")
	authRouter.HandleFunc("/installments/{id}/payments", h.ListPayments).Methods("GET")
	authRouter.HandleFunc("/installments/{id}/cancel", h.CancelInstallment).Methods("POST")
	authRouter.HandleFunc("/suggested-rate", h.SuggestedRate).Methods("GET")

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("Starting server on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down")
	server.Close()
}
