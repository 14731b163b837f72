package infra

import (
	"fmt"
	"net/smtp"

	"cajadiaria/internal/config"

	"github.com/jordan-wright/email"
)

// Mailer wraps SMTP configuration for sending the closing summaries to the
// supervisor distribution address.
type Mailer struct {
	host     string
	port     int
	user     string
	password string
	addr     string
}

func NewMailer(cfg *config.Config) *Mailer {
	return &Mailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		user:     cfg.SMTPUser,
		password: cfg.SMTPPassword,
		addr:     fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
	}
}

// SendResumenCierre sends a plain-text closing summary.
func (m *Mailer) SendResumenCierre(to, subject, body string) error {
	e := email.NewEmail()
	e.From = m.user
	e.To = []string{to}
	e.Subject = subject
	e.Text = []byte(body)

	auth := smtp.PlainAuth("", m.user, m.password, m.host)
	return e.Send(m.addr, auth)
}
