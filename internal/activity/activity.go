// Package activity publishes audit events for account security changes.
package activity

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sipico/apptokens/internal/metrics"
)

// Fixed event classification for token lifecycle changes.
const (
	AppSettings  = "settings"
	TypeSecurity = "security"
)

// Subject identifies what happened to a token.
type Subject string

const (
	SubjectTokenCreated Subject = "app_token_created"
	SubjectTokenUpdated Subject = "app_token_updated"
	SubjectTokenDeleted Subject = "app_token_deleted"
)

// ErrPublishUnsupported is returned when the activity backend cannot accept events,
// for example when the activity feature is disabled.
var ErrPublishUnsupported = errors.New("activity: publish not supported")

// Event is one audit record. It is constructed and forwarded, never persisted here.
type Event struct {
	App          string  `json:"app"`
	Type         string  `json:"type"`
	AffectedUser string  `json:"affectedUser"`
	Author       string  `json:"author"`
	Subject      Subject `json:"subject"`
}

// Notifier forwards events to an activity backend.
type Notifier interface {
	Publish(ctx context.Context, ev Event) error
}

// LogPublisher writes events as structured log records.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher returns a LogPublisher. A nil logger uses slog.Default().
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger}
}

// Publish logs ev at info level.
func (p *LogPublisher) Publish(ctx context.Context, ev Event) error {
	p.logger.InfoContext(ctx, "activity",
		"app", ev.App,
		"type", ev.Type,
		"affected_user", ev.AffectedUser,
		"author", ev.Author,
		"subject", string(ev.Subject),
	)
	return nil
}

// Disabled rejects every event with ErrPublishUnsupported.
type Disabled struct{}

// Publish always fails with ErrPublishUnsupported.
func (Disabled) Publish(context.Context, Event) error {
	return ErrPublishUnsupported
}

// Counting wraps a Notifier and counts publications by subject and outcome.
type Counting struct {
	next Notifier
}

// NewCounting returns a Counting decorator around next.
func NewCounting(next Notifier) *Counting {
	return &Counting{next: next}
}

// Publish forwards ev and records the outcome.
func (c *Counting) Publish(ctx context.Context, ev Event) error {
	err := c.next.Publish(ctx, ev)

	outcome := "published"
	switch {
	case errors.Is(err, ErrPublishUnsupported):
		outcome = "unsupported"
	case err != nil:
		outcome = "error"
	}
	metrics.RecordActivityEvent(string(ev.Subject), outcome)

	return err
}
