package email

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"
	"github.com/rmaffei/cobranca-service/internal/config"
	"github.com/sirupsen/logrus"
)

// Sender handles sending collection messages via SMTP
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

// Send delivers one rendered message to the given address. The subject is the
// first line of the rendered text when it is short enough, a fixed subject
// otherwise.
func (s *Sender) Send(ctx context.Context, destination, text string) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{destination}
	e.Subject = subjectFor(text)
	e.Text = []byte(text)

	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	var auth smtp.Auth
	if s.cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	}
	if err := e.Send(addr, auth); err != nil {
		s.logger.Errorf("Failed to send email to %s: %v", destination, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Email sent to %s: %s", destination, e.Subject)
	return nil
}

func subjectFor(text string) string {
	line := text
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		line = text[:i]
	}
	line = strings.TrimSpace(line)
	if line == "" || len(line) > 80 {
		return "Aviso de cobrança"
	}
	return line
}
