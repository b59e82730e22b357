package mail

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessage_Raw(t *testing.T) {
	m := Message{
		From:    "site@booktime.domain",
		To:      []string{"customerservice@booktime.domain"},
		Subject: "Message from website",
		Body:    "From: Ann\nhello",
	}

	raw := string(m.Raw())

	assert.Contains(t, raw, "From: site@booktime.domain\r\n")
	assert.Contains(t, raw, "To: customerservice@booktime.domain\r\n")
	assert.Contains(t, raw, "Subject: Message from website\r\n")
	assert.Contains(t, raw, "\r\n\r\nFrom: Ann\r\nhello")
}

func TestSMTP_NoRecipients(t *testing.T) {
	s := &SMTP{Host: "localhost", Port: "2525"}
	err := s.Send(context.Background(), Message{From: "a@b.c"})
	require.Error(t, err)
}

func TestOutbox(t *testing.T) {
	o := &Outbox{}
	require.NoError(t, o.Send(context.Background(), Message{Subject: "one"}))
	require.Len(t, o.Sent(), 1)

	o.Err = errors.New("relay down")
	require.ErrorIs(t, o.Send(context.Background(), Message{Subject: "two"}), o.Err)
	assert.Len(t, o.Sent(), 1)
}
