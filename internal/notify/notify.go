// Package notify publishes build outcome events.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/pkgdocs/internal/logfields"
)

// Event describes one finished package build attempt.
type Event struct {
	BuildID       string    `json:"build_id"`
	Package       string    `json:"package"`
	Version       string    `json:"version"`
	Outcome       string    `json:"outcome"`
	Succeeded     bool      `json:"succeeded"`
	HasDocs       bool      `json:"has_docs"`
	FailedTargets []string  `json:"failed_targets,omitempty"`
	Error         string    `json:"error,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// Notifier delivers build events.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
	Close() error
}

// Noop drops every event.
type Noop struct{}

func (Noop) Notify(context.Context, Event) error { return nil }
func (Noop) Close() error                        { return nil }

// publisher is the subset of *nats.Conn used by NATS.
type publisher interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Close()
}

// NATS publishes events as JSON on a core NATS subject.
type NATS struct {
	conn    publisher
	subject string
}

// NewNATS connects to url and publishes on subject.
func NewNATS(url, subject string) (*NATS, error) {
	conn, err := nats.Connect(url, nats.Name("pkgdocs"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	slog.Info("NATS notifier initialized", logfields.URL(url), logfields.Subject(subject))
	return &NATS{conn: conn, subject: subject}, nil
}

// Notify publishes ev and waits for the server to acknowledge the flush.
func (n *NATS) Notify(ctx context.Context, ev Event) error {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := n.conn.Publish(n.subject, data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := n.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("failed to flush event: %w", err)
	}
	slog.Debug("Published build event", logfields.Subject(n.subject), logfields.Package(ev.Package), logfields.Version(ev.Version))
	return nil
}

func (n *NATS) Close() error {
	n.conn.Close()
	return nil
}

// New returns a NATS notifier when url is set, otherwise Noop.
func New(url, subject string) (Notifier, error) {
	if url == "" {
		return Noop{}, nil
	}
	return NewNATS(url, subject)
}
