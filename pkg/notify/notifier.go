package notify

import (
	"context"
	"errors"
	"fmt"
)

// Notification is the payload delivered to staff destinations once per
// poll with newly pending incidents. Chime mirrors the single audible
// cue the dashboard plays for the batch.
type Notification struct {
	Title    string  `json:"title"`
	Body     string  `json:"body"`
	Chime    bool    `json:"chime"`
	Pending  []Entry `json:"pending"`
	Resolved int     `json:"resolved"`
}

// Notifier delivers notifications to a specific destination.
type Notifier interface {
	Name() string
	Send(ctx context.Context, n *Notification) error
}

// Manager broadcasts notifications to all registered notifiers.
type Manager struct {
	notifiers []Notifier
}

// NewManager creates a notification manager.
func NewManager(notifiers []Notifier) *Manager {
	return &Manager{notifiers: notifiers}
}

// HasNotifiers returns true if at least one notifier is configured.
func (m *Manager) HasNotifiers() bool {
	return len(m.notifiers) > 0
}

// Broadcast sends a notification to all registered notifiers.
func (m *Manager) Broadcast(ctx context.Context, n *Notification) error {
	var errs []error
	for _, notifier := range m.notifiers {
		if err := notifier.Send(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", notifier.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// FromBatch builds the broadcast payload for a poll. It returns nil
// when the batch added nothing.
func FromBatch(b Batch) *Notification {
	if len(b.Added) == 0 {
		return nil
	}
	return &Notification{
		Title:    fmt.Sprintf("%d incident(s) pending review", len(b.Added)),
		Body:     "New moderation incidents need attention",
		Chime:    b.Chime,
		Pending:  b.Added,
		Resolved: len(b.Withdrawn),
	}
}
