// Package uploader promotes staged content records and externally
// produced incident reports into durable storage, keyed by identity so
// re-running against unchanged inputs is a no-op.
package uploader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/campusmod/modwatch/internal/staging"
	"github.com/campusmod/modwatch/internal/store"
	"github.com/campusmod/modwatch/pkg/content"
	"github.com/campusmod/modwatch/pkg/incident"
)

// Store is the durable storage the uploader needs.
type Store interface {
	HasContent(ctx context.Context, typ content.Type, id string) (bool, error)
	InsertContent(ctx context.Context, rec content.Record) error
	HasUser(ctx context.Context, id string) (bool, error)
	GetIncident(ctx context.Context, id string) (*incident.Incident, error)
	CreateIncident(ctx context.Context, inc incident.Incident) error
}

// Report is one entry of the externally produced incident-report
// dataset.
type Report struct {
	ContentID   string `json:"content_id"`
	IncidentID  string `json:"incident_id"`
	AuthorID    string `json:"author_id"`
	ContentType string `json:"content_type"`
	Severity    string `json:"severity_level"`
	Status      string `json:"status"`
}

// Summary counts one upload run.
type Summary struct {
	ContentInserted   int
	ContentSkipped    int
	IncidentsInserted int
	IncidentsSkipped  int
}

// Uploader runs the upload half of the pipeline on its own schedule,
// independent of the fetch job.
type Uploader struct {
	staging     staging.Staging
	store       Store
	reportsPath string
	policy      incident.Policy
}

// New creates an uploader. reportsPath may name a file that does not
// exist yet; the run then uploads content only.
func New(st staging.Staging, db Store, reportsPath string, policy incident.Policy) *Uploader {
	return &Uploader{
		staging:     st,
		store:       db,
		reportsPath: reportsPath,
		policy:      policy,
	}
}

// Run uploads staged content and incident reports, returning the run's
// counters. Duplicate identity keys are skips, never errors.
func (u *Uploader) Run(ctx context.Context) (Summary, error) {
	var sum Summary

	records, err := u.staging.Load(ctx)
	if err != nil {
		return sum, fmt.Errorf("load staging: %w", err)
	}

	for _, rec := range records {
		inserted, err := u.uploadContent(ctx, rec)
		if err != nil {
			return sum, err
		}
		if inserted {
			sum.ContentInserted++
		} else {
			sum.ContentSkipped++
		}
	}

	reports, err := u.loadReports()
	if err != nil {
		return sum, err
	}

	for _, rep := range reports {
		inserted, err := u.uploadReport(ctx, rep)
		if err != nil {
			return sum, err
		}
		if inserted {
			sum.IncidentsInserted++
		} else {
			sum.IncidentsSkipped++
		}
	}

	fmt.Fprintf(os.Stderr, "  upload: content %d inserted / %d skipped, incidents %d inserted / %d skipped\n",
		sum.ContentInserted, sum.ContentSkipped, sum.IncidentsInserted, sum.IncidentsSkipped)
	return sum, nil
}

func (u *Uploader) uploadContent(ctx context.Context, rec content.Record) (bool, error) {
	if rec.AuthorID != "" {
		ok, err := u.store.HasUser(ctx, rec.AuthorID)
		if err != nil {
			return false, fmt.Errorf("check author %s: %w", rec.AuthorID, err)
		}
		if !ok {
			fmt.Fprintf(os.Stderr, "  skip %s/%s: author %s not found\n", rec.Type, rec.ID, rec.AuthorID)
			return false, nil
		}
	}

	exists, err := u.store.HasContent(ctx, rec.Type, rec.ID)
	if err != nil {
		return false, fmt.Errorf("check content %s/%s: %w", rec.Type, rec.ID, err)
	}
	if exists {
		return false, nil
	}

	if err := u.store.InsertContent(ctx, rec); err != nil {
		// A concurrent writer may have claimed the key between the
		// check and the insert; that is a skip, not a failure.
		if errors.Is(err, store.ErrDuplicate) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (u *Uploader) uploadReport(ctx context.Context, rep Report) (bool, error) {
	inc, err := rep.toIncident()
	if err != nil {
		fmt.Fprintf(os.Stderr, "  skip report %s: %v\n", rep.IncidentID, err)
		return false, nil
	}

	// Severity policy applies before the existence check: a filtered
	// severity counts as skipped regardless of duplication.
	if !u.policy.Allows(inc.Severity) {
		return false, nil
	}

	ok, err := u.store.HasUser(ctx, inc.AuthorID)
	if err != nil {
		return false, fmt.Errorf("check author %s: %w", inc.AuthorID, err)
	}
	if !ok {
		fmt.Fprintf(os.Stderr, "  skip report %s: author %s not found\n", inc.ID, inc.AuthorID)
		return false, nil
	}

	if _, err := u.store.GetIncident(ctx, inc.ID); err == nil {
		return false, nil
	} else if !errors.Is(err, incident.ErrNotFound) {
		return false, fmt.Errorf("check incident %s: %w", inc.ID, err)
	}

	if err := u.store.CreateIncident(ctx, inc); err != nil {
		if errors.Is(err, incident.ErrDuplicateID) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (u *Uploader) loadReports() ([]Report, error) {
	data, err := os.ReadFile(u.reportsPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read reports %s: %w", u.reportsPath, err)
	}

	var reports []Report
	if err := json.Unmarshal(data, &reports); err != nil {
		return nil, fmt.Errorf("parse reports %s: %w", u.reportsPath, err)
	}
	return reports, nil
}

func (r Report) toIncident() (incident.Incident, error) {
	inc := incident.Incident{
		ID:          strings.TrimSpace(r.IncidentID),
		ContentID:   strings.TrimSpace(r.ContentID),
		ContentType: content.Type(strings.TrimSpace(r.ContentType)),
		AuthorID:    strings.TrimSpace(r.AuthorID),
		Severity:    incident.Severity(normalize(r.Severity)),
		Status:      incident.Status(normalize(r.Status)),
		Timestamp:   time.Now().UTC(),
	}
	if inc.ID == "" {
		return inc, fmt.Errorf("incident id is required")
	}
	if err := incident.Validate(inc); err != nil {
		return inc, err
	}
	return inc, nil
}

// normalize lowercases a report field and hyphenates inner spaces, so
// the producer's "pending review" matches the stored vocabulary.
func normalize(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "-")
}
