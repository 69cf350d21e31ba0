package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/campusmod/modwatch/pkg/analytics"
	"github.com/campusmod/modwatch/pkg/content"
	"github.com/campusmod/modwatch/pkg/incident"
)

// ErrDuplicate reports a content insert whose identity key is already
// present. The uniqueness constraint is the safety net between the
// upload job and a concurrent manual creation touching the same key.
var ErrDuplicate = errors.New("duplicate identity key")

// User is a content author. The reference from content and incidents
// is weak: an existence check at write time, no foreign key.
type User struct {
	ID       string `db:"id" json:"id"`
	Name     string `db:"name" json:"name"`
	Email    string `db:"email" json:"email"`
	SchoolID string `db:"school_id" json:"school_id"`
}

// School groups users for the analytics rollup.
type School struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Store is the persistence interface.
type Store interface {
	incident.Store
	analytics.Store

	HasContent(ctx context.Context, typ content.Type, id string) (bool, error)
	InsertContent(ctx context.Context, rec content.Record) error
	CountContent(ctx context.Context) (map[content.Type]int, error)

	CreateUser(ctx context.Context, u User) error
	GetUser(ctx context.Context, id string) (*User, error)
	CreateSchool(ctx context.Context, s School) error

	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

// New opens a SQLite database and runs migrations.
func New(path string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (s *SQLiteStore) HasContent(ctx context.Context, typ content.Type, id string) (bool, error) {
	var n int
	err := s.db.GetContext(ctx, &n,
		"SELECT COUNT(*) FROM content WHERE content_type = ? AND content_id = ?", typ, id)
	if err != nil {
		return false, fmt.Errorf("check content %s/%s: %w", typ, id, err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) InsertContent(ctx context.Context, rec content.Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO content (content_type, content_id, parent_id, author_id, body, created_at, collected_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rec.Type, rec.ID, rec.ParentID, rec.AuthorID, rec.Body, rec.CreatedAt, time.Now().UTC())
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s/%s", ErrDuplicate, rec.Type, rec.ID)
	}
	if err != nil {
		return fmt.Errorf("insert content %s/%s: %w", rec.Type, rec.ID, err)
	}
	return nil
}

func (s *SQLiteStore) CountContent(ctx context.Context) (map[content.Type]int, error) {
	rows, err := s.db.QueryxContext(ctx, "SELECT content_type, COUNT(*) FROM content GROUP BY content_type")
	if err != nil {
		return nil, fmt.Errorf("count content: %w", err)
	}
	defer rows.Close()

	counts := make(map[content.Type]int)
	for rows.Next() {
		var typ string
		var cnt int
		if err := rows.Scan(&typ, &cnt); err != nil {
			return nil, err
		}
		counts[content.Type(typ)] = cnt
	}
	return counts, rows.Err()
}

func (s *SQLiteStore) CreateIncident(ctx context.Context, inc incident.Incident) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO incidents (incident_id, content_id, content_type, author_id, severity_level, status, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, inc.ID, inc.ContentID, inc.ContentType, inc.AuthorID, inc.Severity, inc.Status, inc.Timestamp)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", incident.ErrDuplicateID, inc.ID)
	}
	if err != nil {
		return fmt.Errorf("insert incident %s: %w", inc.ID, err)
	}
	return nil
}

func (s *SQLiteStore) GetIncident(ctx context.Context, id string) (*incident.Incident, error) {
	var inc incident.Incident
	err := s.db.GetContext(ctx, &inc, `
		SELECT incident_id, content_id, content_type, author_id, severity_level, status, timestamp
		FROM incidents WHERE incident_id = ?
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", incident.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get incident %s: %w", id, err)
	}
	return &inc, nil
}

func (s *SQLiteStore) ListIncidents(ctx context.Context, opts incident.ListOpts) ([]incident.Incident, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}

	builder := sq.Select("incident_id", "content_id", "content_type", "author_id", "severity_level", "status", "timestamp").
		From("incidents").
		OrderBy("timestamp DESC").
		Limit(uint64(limit))

	if opts.Severity != "" {
		builder = builder.Where(sq.Eq{"severity_level": opts.Severity})
	}
	if opts.Status != "" {
		builder = builder.Where(sq.Eq{"status": opts.Status})
	}
	if opts.AuthorID != "" {
		builder = builder.Where(sq.Eq{"author_id": opts.AuthorID})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build incident query: %w", err)
	}

	var incidents []incident.Incident
	if err := s.db.SelectContext(ctx, &incidents, query, args...); err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	return incidents, nil
}

func (s *SQLiteStore) CountIncidents(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM incidents"); err != nil {
		return 0, fmt.Errorf("count incidents: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) UpdateIncidentStatus(ctx context.Context, id string, status incident.Status) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE incidents SET status = ? WHERE incident_id = ?", status, id)
	if err != nil {
		return fmt.Errorf("update incident %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", incident.ErrNotFound, id)
	}
	return nil
}

func (s *SQLiteStore) DeleteIncident(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM incidents WHERE incident_id = ?", id)
	if err != nil {
		return fmt.Errorf("delete incident %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", incident.ErrNotFound, id)
	}
	return nil
}

func (s *SQLiteStore) CreateAlert(ctx context.Context, a incident.Alert) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO alerts (alert_id, incident_id, admin_id, alert_status, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, a.ID, a.IncidentID, a.AdminID, a.Status, a.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: alert %s", incident.ErrDuplicateID, a.ID)
	}
	if err != nil {
		return fmt.Errorf("insert alert %s: %w", a.ID, err)
	}
	return nil
}

func (s *SQLiteStore) ListAlerts(ctx context.Context, incidentID string) ([]incident.Alert, error) {
	var alerts []incident.Alert
	err := s.db.SelectContext(ctx, &alerts, `
		SELECT alert_id, incident_id, admin_id, alert_status, created_at
		FROM alerts WHERE incident_id = ? ORDER BY created_at
	`, incidentID)
	if err != nil {
		return nil, fmt.Errorf("list alerts for %s: %w", incidentID, err)
	}
	return alerts, nil
}

func (s *SQLiteStore) CreateUser(ctx context.Context, u User) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users (id, name, email, school_id) VALUES (?, ?, ?, ?)",
		u.ID, u.Name, u.Email, u.SchoolID)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: user %s", ErrDuplicate, u.ID)
	}
	if err != nil {
		return fmt.Errorf("insert user %s: %w", u.ID, err)
	}
	return nil
}

func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*User, error) {
	var u User
	err := s.db.GetContext(ctx, &u, "SELECT * FROM users WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", id, sql.ErrNoRows)
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return &u, nil
}

func (s *SQLiteStore) HasUser(ctx context.Context, id string) (bool, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM users WHERE id = ?", id); err != nil {
		return false, fmt.Errorf("check user %s: %w", id, err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) CreateSchool(ctx context.Context, sc School) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO schools (id, name) VALUES (?, ?)", sc.ID, sc.Name)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: school %s", ErrDuplicate, sc.ID)
	}
	if err != nil {
		return fmt.Errorf("insert school %s: %w", sc.ID, err)
	}
	return nil
}

func (s *SQLiteStore) AuthorIncidentCounts(ctx context.Context) ([]analytics.AuthorCount, error) {
	var counts []analytics.AuthorCount
	err := s.db.SelectContext(ctx, &counts, `
		SELECT author_id, COUNT(*) AS cnt FROM incidents GROUP BY author_id
	`)
	if err != nil {
		return nil, fmt.Errorf("author incident counts: %w", err)
	}
	return counts, nil
}

func (s *SQLiteStore) SchoolIncidentCounts(ctx context.Context) ([]analytics.SchoolCount, error) {
	var counts []analytics.SchoolCount
	err := s.db.SelectContext(ctx, &counts, `
		SELECT sc.name AS school, COUNT(*) AS cnt
		FROM incidents i
		JOIN users u ON u.id = i.author_id
		JOIN schools sc ON sc.id = u.school_id
		GROUP BY sc.name
	`)
	if err != nil {
		return nil, fmt.Errorf("school incident counts: %w", err)
	}
	return counts, nil
}

func (s *SQLiteStore) DayIncidentCounts(ctx context.Context) ([]analytics.DayCount, error) {
	var counts []analytics.DayCount
	// substr instead of date(): the driver stores time as ISO-8601
	// text, so the first ten bytes are always the calendar day.
	err := s.db.SelectContext(ctx, &counts, `
		SELECT substr(timestamp, 1, 10) AS day, COUNT(*) AS cnt
		FROM incidents GROUP BY substr(timestamp, 1, 10)
	`)
	if err != nil {
		return nil, fmt.Errorf("day incident counts: %w", err)
	}
	return counts, nil
}
