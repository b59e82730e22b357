package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dimmoon69/booktime/pkg/logging"
	pkgmail "github.com/dimmoon69/booktime/pkg/mail"
)

const (
	contactSubject   = "Message from website"
	maxContactName   = 100
	maxContactLength = 600
)

type ContactService struct {
	Mailer pkgmail.Sender
	From   string
	To     string
}

type ContactForm struct {
	Name    string
	Message string
}

func (f ContactForm) validate() error {
	name := strings.TrimSpace(f.Name)
	msg := strings.TrimSpace(f.Message)
	switch {
	case name == "":
		return fmt.Errorf("%w: name required", ErrValidation)
	case msg == "":
		return fmt.Errorf("%w: message required", ErrValidation)
	case utf8.RuneCountInString(f.Name) > maxContactName:
		return fmt.Errorf("%w: name longer than %d characters", ErrValidation, maxContactName)
	case utf8.RuneCountInString(f.Message) > maxContactLength:
		return fmt.Errorf("%w: message longer than %d characters", ErrValidation, maxContactLength)
	}
	return nil
}

// Send mails the form to customer service. Delivery errors are returned.
func (s *ContactService) Send(ctx context.Context, f ContactForm) error {
	if err := f.validate(); err != nil {
		return err
	}

	msg := pkgmail.Message{
		From:    s.From,
		To:      []string{s.To},
		Subject: contactSubject,
		Body:    fmt.Sprintf("From: %s\n%s", f.Name, f.Message),
	}
	if err := s.Mailer.Send(ctx, msg); err != nil {
		logging.FromContext(ctx).Error("contact_mail_failed", "status", 502, "error", err)
		return fmt.Errorf("%w: %v", ErrMailFailed, err)
	}
	return nil
}
