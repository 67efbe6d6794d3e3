package infra

import (
	"fmt"
	"net/smtp"

	"spazatrack/internal/config"

	"github.com/jordan-wright/email"
)

// Mailer wraps SMTP configuration for sending plain-text alert emails.
type Mailer struct {
	host     string
	user     string
	password string
	from     string
	addr     string
	breaker  *CircuitBreaker
}

func NewMailer(cfg *config.Config) *Mailer {
	return &Mailer{
		host:     cfg.SMTPHost,
		user:     cfg.SMTPUser,
		password: cfg.SMTPPassword,
		from:     cfg.AlertFrom,
		addr:     fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
		breaker:  NewCircuitBreaker(DefaultCBConfig()),
	}
}

// Enabled reports whether an SMTP host was configured.
func (m *Mailer) Enabled() bool { return m != nil && m.host != "" }

// Send delivers a plain-text message through the circuit breaker.
func (m *Mailer) Send(to []string, subject, body string) error {
	if !m.Enabled() {
		return fmt.Errorf("mailer: SMTP not configured")
	}
	e := email.NewEmail()
	e.From = m.from
	e.To = to
	e.Subject = subject
	e.Text = []byte(body)

	var auth smtp.Auth
	if m.user != "" {
		auth = smtp.PlainAuth("", m.user, m.password, m.host)
	}
	return m.breaker.Execute(func() error {
		return e.Send(m.addr, auth)
	})
}

// BreakerState exposes the SMTP circuit state for the health endpoint.
func (m *Mailer) BreakerState() CBState {
	if m == nil {
		return CBClosed
	}
	return m.breaker.State()
}
