// Package mailer delivers transactional email. Delivery itself is an external
// collaborator; LogMailer stands in for it until an SMTP/API sender is wired.
package mailer

import (
	"context"
	"log/slog"
	"sync"
)

// Message is a plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// LogMailer writes messages to the structured log instead of sending them.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	m.logger.InfoContext(ctx, "email dispatched",
		"to", msg.To,
		"subject", msg.Subject,
		"body", msg.Body,
	)
	return nil
}

// RecordingMailer keeps sent messages in memory for assertions.
type RecordingMailer struct {
	mu   sync.Mutex
	sent []Message
	Err  error
}

func NewRecordingMailer() *RecordingMailer {
	return &RecordingMailer{}
}

func (m *RecordingMailer) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.sent = append(m.sent, msg)
	return nil
}

// Sent returns a copy of every delivered message.
func (m *RecordingMailer) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.sent...)
}

// Last returns the most recent message to addr.
func (m *RecordingMailer) Last(addr string) (Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].To == addr {
			return m.sent[i], true
		}
	}
	return Message{}, false
}
