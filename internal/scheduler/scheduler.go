// Package scheduler runs the daily sweep that flags overdue installments and
// sends payment reminders.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/motoshop/installment-service/internal/config"
	"github.com/motoshop/installment-service/internal/models"
	"github.com/motoshop/installment-service/internal/service"
	"github.com/motoshop/installment-service/internal/utils/email"
)

// Scheduler owns the cron runner
type Scheduler struct {
	svc    *service.Service
	sender *email.Sender
	cfg    *config.Config
	log    *logrus.Logger
	cron   *cron.Cron
}

// NewScheduler initializes the cron runner without starting it
func NewScheduler(svc *service.Service, sender *email.Sender, cfg *config.Config, log *logrus.Logger) *Scheduler {
	return &Scheduler{svc: svc, sender: sender, cfg: cfg, log: log, cron: cron.New()}
}

// Start registers the daily job and launches the runner
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.ReminderCron, s.runSweep); err != nil {
		return err
	}
	s.cron.Start()
	s.log.Infof("Overdue sweep scheduled: %s", s.cfg.ReminderCron)
	return nil
}

// Stop halts the runner and waits for a running job to finish
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	s.Sweep(ctx, time.Now())
}

// Sweep flags active ledgers past their due date as overdue and emails
// reminders for plans due within the configured window. Both actions are
// best-effort per ledger; one failure does not stop the sweep.
func (s *Scheduler) Sweep(ctx context.Context, now time.Time) {
	cutoff := now.AddDate(0, 0, s.cfg.ReminderDays)
	due, err := s.svc.ListDueInstallments(ctx, cutoff)
	if err != nil {
		s.log.WithError(err).Error("Overdue sweep: failed to list due installments")
		return
	}

	s.log.Infof("Overdue sweep: %d installments due before %s", len(due), cutoff.Format("2006-01-02"))
	for _, inst := range due {
		overdue := inst.PastDue(now)
		if overdue && inst.Status == models.StatusActive {
			if err := s.svc.MarkOverdue(ctx, inst.ID, now); err != nil {
				// A payment or cancellation raced the sweep; skip quietly.
				if !errors.Is(err, models.ErrConflict) {
					s.log.WithError(err).Errorf("Overdue sweep: failed to flag installment %s", inst.ID)
				}
				continue
			}
			s.log.Infof("Installment %s flagged overdue, %s outstanding", inst.ID, inst.RemainingAmount)
		}

		if inst.CustomerEmail == "" || inst.NextPaymentDate == nil {
			continue
		}
		if err := s.sender.SendPaymentReminder(inst.CustomerEmail, inst.CustomerName,
			*inst.NextPaymentDate, inst.InstallmentAmount, inst.RemainingAmount, overdue); err != nil {
			s.log.WithError(err).Warnf("Overdue sweep: reminder for installment %s not sent", inst.ID)
		}
	}
}
