package email

import (
	"fmt"
	"net/smtp"
	"time"

	"github.com/jordan-wright/email"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/motoshop/installment-service/internal/config"
)

// Sender handles sending emails via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
	}
}

// SendPaymentReminder sends an installment reminder or overdue notice
func (s *Sender) SendPaymentReminder(to, customerName string, dueDate time.Time, amount, remaining decimal.Decimal, isOverdue bool) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{to}
	if isOverdue {
		e.Subject = "Overdue Installment Payment Notification"
	} else {
		e.Subject = "Upcoming Installment Payment Reminder"
	}

	body := fmt.Sprintf(
		"Dear %s,\n\n", customerName,
	)
	if isOverdue {
		body += fmt.Sprintf(
			"Your installment payment of %s was due on %s and is now overdue.\n"+
				"Outstanding balance: %s.\n"+
				"Please visit the store or contact us to settle the payment.\n",
			amount, dueDate.Format("2006-01-02"), remaining,
		)
	} else {
		body += fmt.Sprintf(
			"This is a reminder that your installment payment of %s is due on %s.\n"+
				"Outstanding balance: %s.\n",
			amount, dueDate.Format("2006-01-02"), remaining,
		)
	}
	body += "\nBest regards,\nMotoshop"
	e.Text = []byte(body)

	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	err := e.Send(addr, auth)
	if err != nil {
		s.logger.Errorf("Failed to send email to %s: %v", to, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Email sent to %s: %s", to, e.Subject)
	return nil
}
