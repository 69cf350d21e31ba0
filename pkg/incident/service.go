package incident

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ListOpts controls incident listing.
type ListOpts struct {
	Severity Severity
	Status   Status
	AuthorID string
	Limit    int
}

// Store is the persistence the lifecycle needs. Implementations report
// missing incidents with ErrNotFound and identity collisions with
// ErrDuplicateID.
type Store interface {
	CreateIncident(ctx context.Context, inc Incident) error
	GetIncident(ctx context.Context, id string) (*Incident, error)
	ListIncidents(ctx context.Context, opts ListOpts) ([]Incident, error)
	CountIncidents(ctx context.Context) (int, error)
	UpdateIncidentStatus(ctx context.Context, id string, status Status) error
	DeleteIncident(ctx context.Context, id string) error

	CreateAlert(ctx context.Context, a Alert) error
	ListAlerts(ctx context.Context, incidentID string) ([]Alert, error)

	HasUser(ctx context.Context, id string) (bool, error)
}

// Service exposes the incident lifecycle over a store, applying field
// validation and a severity policy on every creation path.
type Service struct {
	store Store
}

// NewService creates a lifecycle service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Create validates and persists a new incident under the given policy.
// A blank ID is assigned a fresh UUID; a supplied ID that collides is
// rejected with ErrDuplicateID.
func (s *Service) Create(ctx context.Context, inc Incident, policy Policy) (*Incident, error) {
	if err := Validate(inc); err != nil {
		return nil, err
	}
	if !policy.Allows(inc.Severity) {
		return nil, fmt.Errorf("%w: severity %q not permitted by %s policy", ErrInvalid, inc.Severity, policy.Name())
	}

	ok, err := s.store.HasUser(ctx, inc.AuthorID)
	if err != nil {
		return nil, fmt.Errorf("check author %s: %w", inc.AuthorID, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAuthorNotFound, inc.AuthorID)
	}

	if inc.ID == "" {
		inc.ID = uuid.NewString()
	}
	if inc.Timestamp.IsZero() {
		inc.Timestamp = time.Now().UTC()
	}

	if err := s.store.CreateIncident(ctx, inc); err != nil {
		return nil, err
	}
	return &inc, nil
}

// Get returns one incident by ID.
func (s *Service) Get(ctx context.Context, id string) (*Incident, error) {
	return s.store.GetIncident(ctx, id)
}

// List returns incidents matching opts.
func (s *Service) List(ctx context.Context, opts ListOpts) ([]Incident, error) {
	return s.store.ListIncidents(ctx, opts)
}

// Count returns the total number of incidents.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.store.CountIncidents(ctx)
}

// UpdateRequest carries the mutable incident fields. AuthorID is
// accepted only so an attempt to change it can be rejected explicitly.
type UpdateRequest struct {
	Status   Status `json:"status"`
	AuthorID string `json:"author_id,omitempty"`
}

// Update moves an incident to a new status. Any attempt to change the
// author is rejected with ErrAuthorImmutable. The state machine only
// ever exercises pending-review to resolved, but the reverse write is
// not structurally forbidden.
func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (*Incident, error) {
	inc, err := s.store.GetIncident(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.AuthorID != "" && req.AuthorID != inc.AuthorID {
		return nil, ErrAuthorImmutable
	}
	if !req.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalid, req.Status)
	}

	if err := s.store.UpdateIncidentStatus(ctx, id, req.Status); err != nil {
		return nil, err
	}
	inc.Status = req.Status
	return inc, nil
}

// Delete removes an incident. Deleting an unknown ID reports
// ErrNotFound.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.DeleteIncident(ctx, id)
}

// AddAlert records a staff alert against an existing incident.
func (s *Service) AddAlert(ctx context.Context, a Alert) (*Alert, error) {
	if a.IncidentID == "" {
		return nil, fmt.Errorf("%w: incident id is required", ErrInvalid)
	}
	if a.Status == "" {
		a.Status = AlertUnresolved
	}
	if !a.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown alert status %q", ErrInvalid, a.Status)
	}

	if _, err := s.store.GetIncident(ctx, a.IncidentID); err != nil {
		return nil, err
	}

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	if err := s.store.CreateAlert(ctx, a); err != nil {
		return nil, err
	}
	return &a, nil
}

// Alerts lists the alerts recorded against an incident.
func (s *Service) Alerts(ctx context.Context, incidentID string) ([]Alert, error) {
	return s.store.ListAlerts(ctx, incidentID)
}
