// Package mail sends plain-text notification mail.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
)

type Message struct {
	From    string
	To      []string
	Subject string
	Body    string
}

type Sender interface {
	Send(ctx context.Context, m Message) error
}

// SMTP delivers through a relay using PLAIN auth when credentials are set.
type SMTP struct {
	Host     string
	Port     string
	Username string
	Password string
}

func (s *SMTP) Send(ctx context.Context, m Message) error {
	if len(m.To) == 0 {
		return fmt.Errorf("mail: no recipients")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if s.Username != "" {
		auth = smtp.PlainAuth("", s.Username, s.Password, s.Host)
	}

	if err := smtp.SendMail(s.Host+":"+s.Port, auth, m.From, m.To, m.Raw()); err != nil {
		return fmt.Errorf("mail: send to %s: %w", strings.Join(m.To, ","), err)
	}
	return nil
}

// Raw renders the message as an RFC 5322 document.
func (m Message) Raw() []byte {
	var b strings.Builder
	b.WriteString("From: " + m.From + "\r\n")
	b.WriteString("To: " + strings.Join(m.To, ", ") + "\r\n")
	b.WriteString("Subject: " + m.Subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(m.Body, "\n", "\r\n"))
	return []byte(b.String())
}

// Console writes mail to the logger instead of sending it. Used when no
// SMTP relay is configured.
type Console struct {
	Logger *slog.Logger
}

func (c Console) Send(_ context.Context, m Message) error {
	l := c.Logger
	if l == nil {
		l = slog.Default()
	}
	l.Info("mail_sent", "backend", "console", "from", m.From, "to", m.To, "subject", m.Subject, "body", m.Body)
	return nil
}
