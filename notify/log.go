package notify

import (
	"context"
	"log/slog"
	"sync"

	"github.com/MrEthical07/sessionauth/identity"
)

// Log writes a line per message through slog. The body is never logged
// because it carries the code.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger.With("component", "log_notifier")}
}

func (l *Log) Send(ctx context.Context, to identity.Email, subject, _ string) error {
	l.logger.InfoContext(ctx, "notification suppressed", "recipient", to, "subject", subject)
	return nil
}

// Message is one recorded notification.
type Message struct {
	To      identity.Email
	Subject string
	Body    string
}

// Recorder keeps every message in memory and optionally forwards it to a
// channel. Its zero value is ready to use.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
	// C, when set, receives each message; Send blocks until it is read or
	// ctx ends.
	C chan Message
	// Err, when set, is returned by Send instead of recording.
	Err error
}

func (r *Recorder) Send(ctx context.Context, to identity.Email, subject, body string) error {
	if r.Err != nil {
		return r.Err
	}
	msg := Message{To: to, Subject: subject, Body: body}

	r.mu.Lock()
	r.messages = append(r.messages, msg)
	r.mu.Unlock()

	if r.C != nil {
		select {
		case r.C <- msg:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Messages returns a copy of everything recorded so far.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// Last returns the most recent message.
func (r *Recorder) Last() (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.messages) == 0 {
		return Message{}, false
	}
	return r.messages[len(r.messages)-1], true
}
