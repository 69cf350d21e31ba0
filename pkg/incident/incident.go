// Package incident models moderation incidents and their review
// lifecycle: severity vocabulary, status state machine, the severity
// policy applied on creation, and the service exposing lifecycle
// operations over a persistence store.
package incident

import (
	"errors"
	"fmt"
	"time"

	"github.com/campusmod/modwatch/pkg/content"
)

// Severity classifies how serious a flagged piece of content is.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Valid reports whether s is a known severity level.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return true
	}
	return false
}

// Status is the review state of an incident.
type Status string

const (
	StatusPending  Status = "pending-review"
	StatusResolved Status = "resolved"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusResolved:
		return true
	}
	return false
}

// Incident is a moderation-relevant record derived from flagged
// content, tracked through the review state machine. AuthorID is
// immutable after creation.
type Incident struct {
	ID          string       `json:"incident_id" db:"incident_id"`
	ContentID   string       `json:"content_id" db:"content_id"`
	ContentType content.Type `json:"content_type" db:"content_type"`
	AuthorID    string       `json:"author_id" db:"author_id"`
	Severity    Severity     `json:"severity_level" db:"severity_level"`
	Status      Status       `json:"status" db:"status"`
	Timestamp   time.Time    `json:"timestamp" db:"timestamp"`
}

// AlertStatus is the review state of a staff alert.
type AlertStatus string

const (
	AlertUnresolved AlertStatus = "unresolved"
	AlertResolved   AlertStatus = "resolved"
	AlertReviewed   AlertStatus = "reviewed"
)

// Valid reports whether s is a known alert status.
func (s AlertStatus) Valid() bool {
	switch s {
	case AlertUnresolved, AlertResolved, AlertReviewed:
		return true
	}
	return false
}

// Alert is a staff annotation on an incident, created lazily when
// someone acts on it. Many alerts may reference one incident.
type Alert struct {
	ID         string      `json:"alert_id" db:"alert_id"`
	IncidentID string      `json:"incident_id" db:"incident_id"`
	AdminID    string      `json:"admin_id,omitempty" db:"admin_id"`
	Status     AlertStatus `json:"alert_status" db:"alert_status"`
	CreatedAt  time.Time   `json:"created_at" db:"created_at"`
}

// Sentinel errors for lifecycle operations. Store implementations
// report incident and alert outcomes with these so callers can map
// them without knowing the storage engine.
var (
	ErrNotFound        = errors.New("incident not found")
	ErrDuplicateID     = errors.New("incident id already exists")
	ErrInvalid         = errors.New("invalid incident")
	ErrAuthorNotFound  = errors.New("author not found")
	ErrAuthorImmutable = errors.New("author id cannot change")
)

// Validate checks an incident's field vocabulary. It does not consult
// any policy or store.
func Validate(inc Incident) error {
	if inc.ContentID == "" {
		return fmt.Errorf("%w: content id is required", ErrInvalid)
	}
	if !inc.ContentType.Valid() {
		return fmt.Errorf("%w: unknown content type %q", ErrInvalid, inc.ContentType)
	}
	if inc.AuthorID == "" {
		return fmt.Errorf("%w: author id is required", ErrInvalid)
	}
	if !inc.Severity.Valid() {
		return fmt.Errorf("%w: unknown severity level %q", ErrInvalid, inc.Severity)
	}
	if !inc.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalid, inc.Status)
	}
	return nil
}
