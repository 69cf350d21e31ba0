package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/campusmod/modwatch/pkg/content"
	"github.com/campusmod/modwatch/pkg/incident"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedUser(t *testing.T, s *SQLiteStore, id, schoolID string) {
	t.Helper()
	ctx := context.Background()
	if schoolID != "" {
		err := s.CreateSchool(ctx, School{ID: schoolID, Name: "School " + schoolID})
		if err != nil && !errors.Is(err, ErrDuplicate) {
			t.Fatalf("create school: %v", err)
		}
	}
	err := s.CreateUser(ctx, User{ID: id, Name: "User " + id, Email: id + "@example.edu", SchoolID: schoolID})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
}

func testIncident(id string) incident.Incident {
	return incident.Incident{
		ID:          id,
		ContentID:   "c-" + id,
		ContentType: content.TypePost,
		AuthorID:    "u1",
		Severity:    incident.SeverityHigh,
		Status:      incident.StatusPending,
		Timestamp:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestContentIdentity(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	rec := content.Record{
		Type:      content.TypePost,
		ID:        "p1",
		AuthorID:  "u1",
		Body:      "hello",
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := s.InsertContent(ctx, rec); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.InsertContent(ctx, rec); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	// Same id under a different type is a distinct key.
	rec.Type = content.TypeComment
	if err := s.InsertContent(ctx, rec); err != nil {
		t.Fatalf("insert comment p1: %v", err)
	}

	ok, err := s.HasContent(ctx, content.TypePost, "p1")
	if err != nil || !ok {
		t.Fatalf("expected post p1 present, ok=%v err=%v", ok, err)
	}
	ok, err = s.HasContent(ctx, content.TypeMessage, "p1")
	if err != nil || ok {
		t.Fatalf("expected message p1 absent, ok=%v err=%v", ok, err)
	}

	counts, err := s.CountContent(ctx)
	if err != nil {
		t.Fatalf("count content: %v", err)
	}
	if counts[content.TypePost] != 1 || counts[content.TypeComment] != 1 {
		t.Fatalf("unexpected counts: %v", counts)
	}
}

func TestIncidentCRUD(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	inc := testIncident("i1")
	if err := s.CreateIncident(ctx, inc); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.CreateIncident(ctx, inc); !errors.Is(err, incident.ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}

	got, err := s.GetIncident(ctx, "i1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Severity != incident.SeverityHigh || got.Status != incident.StatusPending {
		t.Fatalf("unexpected incident: %+v", got)
	}
	if _, err := s.GetIncident(ctx, "missing"); !errors.Is(err, incident.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := s.UpdateIncidentStatus(ctx, "i1", incident.StatusResolved); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err = s.GetIncident(ctx, "i1")
	if err != nil {
		t.Fatalf("get after update: %v", err)
	}
	if got.Status != incident.StatusResolved {
		t.Fatalf("expected resolved, got %s", got.Status)
	}
	if err := s.UpdateIncidentStatus(ctx, "missing", incident.StatusResolved); !errors.Is(err, incident.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := s.DeleteIncident(ctx, "i1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteIncident(ctx, "i1"); !errors.Is(err, incident.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestListIncidentsFilters(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		inc := testIncident(fmt.Sprintf("i%d", i))
		inc.Timestamp = inc.Timestamp.Add(time.Duration(i) * time.Hour)
		if i%2 == 0 {
			inc.Severity = incident.SeverityLow
		}
		if i == 3 {
			inc.Status = incident.StatusResolved
			inc.AuthorID = "u2"
		}
		if err := s.CreateIncident(ctx, inc); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	all, err := s.ListIncidents(ctx, incident.ListOpts{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 incidents, got %d", len(all))
	}
	if all[0].ID != "i3" {
		t.Fatalf("expected newest first, got %s", all[0].ID)
	}

	low, err := s.ListIncidents(ctx, incident.ListOpts{Severity: incident.SeverityLow})
	if err != nil {
		t.Fatalf("list low: %v", err)
	}
	if len(low) != 2 {
		t.Fatalf("expected 2 low incidents, got %d", len(low))
	}

	resolved, err := s.ListIncidents(ctx, incident.ListOpts{Status: incident.StatusResolved, AuthorID: "u2"})
	if err != nil {
		t.Fatalf("list resolved: %v", err)
	}
	if len(resolved) != 1 || resolved[0].ID != "i3" {
		t.Fatalf("expected only i3, got %+v", resolved)
	}

	capped, err := s.ListIncidents(ctx, incident.ListOpts{Limit: 2})
	if err != nil {
		t.Fatalf("list capped: %v", err)
	}
	if len(capped) != 2 {
		t.Fatalf("expected 2 incidents with limit, got %d", len(capped))
	}

	n, err := s.CountIncidents(ctx)
	if err != nil || n != 4 {
		t.Fatalf("expected count 4, got %d err=%v", n, err)
	}
}

func TestAlerts(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateIncident(ctx, testIncident("i1")); err != nil {
		t.Fatalf("create incident: %v", err)
	}

	a := incident.Alert{
		ID:         "a1",
		IncidentID: "i1",
		AdminID:    "admin1",
		Status:     incident.AlertUnresolved,
		CreatedAt:  time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC),
	}
	if err := s.CreateAlert(ctx, a); err != nil {
		t.Fatalf("create alert: %v", err)
	}
	if err := s.CreateAlert(ctx, a); !errors.Is(err, incident.ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}

	alerts, err := s.ListAlerts(ctx, "i1")
	if err != nil {
		t.Fatalf("list alerts: %v", err)
	}
	if len(alerts) != 1 || alerts[0].ID != "a1" || alerts[0].Status != incident.AlertUnresolved {
		t.Fatalf("unexpected alerts: %+v", alerts)
	}
}

func TestUsersAndSchools(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	seedUser(t, s, "u1", "s1")

	ok, err := s.HasUser(ctx, "u1")
	if err != nil || !ok {
		t.Fatalf("expected u1 present, ok=%v err=%v", ok, err)
	}
	ok, err = s.HasUser(ctx, "ghost")
	if err != nil || ok {
		t.Fatalf("expected ghost absent, ok=%v err=%v", ok, err)
	}

	u, err := s.GetUser(ctx, "u1")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if u.SchoolID != "s1" {
		t.Fatalf("unexpected user: %+v", u)
	}

	if err := s.CreateUser(ctx, User{ID: "u1", Email: "u1@example.edu"}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if err := s.CreateSchool(ctx, School{ID: "s1", Name: "School s1"}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestAggregateCounts(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	seedUser(t, s, "u1", "s1")
	seedUser(t, s, "u2", "s2")

	days := []time.Time{
		time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 1, 17, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	}
	for i, ts := range days {
		inc := testIncident(fmt.Sprintf("i%d", i))
		inc.Timestamp = ts
		if i == 2 {
			inc.AuthorID = "u2"
		}
		if err := s.CreateIncident(ctx, inc); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	authors, err := s.AuthorIncidentCounts(ctx)
	if err != nil {
		t.Fatalf("author counts: %v", err)
	}
	byAuthor := make(map[string]int)
	for _, c := range authors {
		byAuthor[c.AuthorID] = c.Count
	}
	if byAuthor["u1"] != 2 || byAuthor["u2"] != 1 {
		t.Fatalf("unexpected author counts: %v", byAuthor)
	}

	schools, err := s.SchoolIncidentCounts(ctx)
	if err != nil {
		t.Fatalf("school counts: %v", err)
	}
	bySchool := make(map[string]int)
	for _, c := range schools {
		bySchool[c.School] = c.Count
	}
	if bySchool["School s1"] != 2 || bySchool["School s2"] != 1 {
		t.Fatalf("unexpected school counts: %v", bySchool)
	}

	dayCounts, err := s.DayIncidentCounts(ctx)
	if err != nil {
		t.Fatalf("day counts: %v", err)
	}
	byDay := make(map[string]int)
	for _, c := range dayCounts {
		byDay[c.Day] = c.Count
	}
	if byDay["2026-03-01"] != 2 || byDay["2026-03-02"] != 1 {
		t.Fatalf("unexpected day counts: %v", byDay)
	}
}
