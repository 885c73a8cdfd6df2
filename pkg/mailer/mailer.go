// Package mailer sends operational email. Delivery is fire-and-forget:
// failures are logged and never block the triggering operation.
package mailer

import (
	"fmt"
	"net/smtp"

	"support-chat-service/pkg/config"

	"go.uber.org/zap"
)

// Mailer sends mail through the configured SMTP relay.
type Mailer struct {
	cfg    config.SMTPConfig
	logger *zap.Logger
	// send is replaceable in tests
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// New creates a Mailer.
func New(cfg config.SMTPConfig, logger *zap.Logger) *Mailer {
	return &Mailer{cfg: cfg, logger: logger, send: smtp.SendMail}
}

// SendInvite dispatches an invitation email with a temporary password.
// It returns immediately; delivery happens in the background.
func (m *Mailer) SendInvite(to, name, tempPassword string) {
	subject := "You have been invited"
	body := fmt.Sprintf(
		"Hello %s,\r\n\r\nAn account has been created for you. Sign in with the temporary password below; you will be asked to change it on first login.\r\n\r\nTemporary password: %s\r\n",
		name, tempPassword)
	m.dispatch(to, subject, body)
}

// SendPasswordReset dispatches a password reset email.
func (m *Mailer) SendPasswordReset(to, tempPassword string) {
	subject := "Your password has been reset"
	body := fmt.Sprintf(
		"Your password was reset. Sign in with the temporary password below; you will be asked to change it.\r\n\r\nTemporary password: %s\r\n",
		tempPassword)
	m.dispatch(to, subject, body)
}

func (m *Mailer) dispatch(to, subject, body string) {
	go func() {
		addr := m.cfg.Host + ":" + m.cfg.Port

		var auth smtp.Auth
		if m.cfg.Username != "" {
			auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
		}

		msg := []byte(fmt.Sprintf(
			"From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s", m.cfg.From, to, subject, body))

		if err := m.send(addr, auth, m.cfg.From, []string{to}, msg); err != nil {
			m.logger.Warn("Failed to send email",
				zap.String("to", to),
				zap.String("subject", subject),
				zap.Error(err))
		}
	}()
}
