package email

import (
	"fmt"
	"net/smtp"
	"time"

	"github.com/Dan9191/card-transfer-service/internal/config"
	"github.com/Dan9191/card-transfer-service/internal/models"
	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
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

// NotifyCardStatusChanged sends a notification email when a card is blocked
// or expired
func (s *Sender) NotifyCardStatusChanged(to, username, cardMasked string, newStatus models.CardStatus, reason string) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{to}
	if newStatus == models.CardStatusExpired {
		e.Subject = "Card Expired Notification"
	} else {
		e.Subject = "Card Blocked Notification"
	}

	// Format email body
	body := fmt.Sprintf(
		"Dear %s,\n\n", username,
	)
	if newStatus == models.CardStatusExpired {
		body += fmt.Sprintf(
			"Your card %s has expired and can no longer be used for transfers.\n"+
				"Please contact support to issue a replacement card.\n",
			cardMasked,
		)
	} else {
		body += fmt.Sprintf(
			"Your card %s has been blocked.\n"+
				"Reason: %s\n"+
				"If you did not request this, please contact support immediately.\n",
			cardMasked, reason,
		)
	}
	body += fmt.Sprintf("\nStatus change time: %s\n", time.Now().Format("2006-01-02 15:04:05"))
	body += "\nBest regards,\nBank Service"
	e.Text = []byte(body)

	// Send email
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
