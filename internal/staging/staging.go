// Package staging holds freshly fetched content records between the
// fetch and upload jobs. The staged dataset is the idempotency boundary:
// merging the same fetch output twice must not grow it or rewrite it.
package staging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/campusmod/modwatch/pkg/content"
)

// ErrCorrupt is returned when the staged dataset exists but cannot be
// parsed. Callers abort the run rather than treating it as empty, which
// would reset the dedup baseline.
var ErrCorrupt = errors.New("staged dataset is corrupt")

// Staging is the staged-dataset store. Load returns an empty slice when
// no dataset has been written yet.
type Staging interface {
	Load(ctx context.Context) ([]content.Record, error)
	Save(ctx context.Context, records []content.Record) error
}

// Merge appends to existing every fetched record whose identity key is
// not already present, and returns the merged slice with the number of
// records added. Order of existing records is preserved.
func Merge(existing, fetched []content.Record) ([]content.Record, int) {
	seen := make(map[content.Key]bool, len(existing))
	for _, r := range existing {
		seen[r.Key()] = true
	}

	merged := existing
	added := 0
	for _, r := range fetched {
		if seen[r.Key()] {
			continue
		}
		seen[r.Key()] = true
		merged = append(merged, r)
		added++
	}
	return merged, added
}

// FileStaging stores the staged dataset as a single JSON document.
type FileStaging struct {
	path string
}

// NewFileStaging creates a file-backed staging store at path.
func NewFileStaging(path string) *FileStaging {
	return &FileStaging{path: path}
}

func (f *FileStaging) Load(ctx context.Context) ([]content.Record, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read staging %s: %w", f.path, err)
	}

	var records []content.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, f.path, err)
	}
	return records, nil
}

func (f *FileStaging) Save(ctx context.Context, records []content.Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal staging: %w", err)
	}

	// Write-then-rename so a crashed save never leaves a half-written
	// dataset behind.
	tmp := f.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write staging %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replace staging %s: %w", f.path, err)
	}
	return nil
}

// MemStaging is an in-memory staging store for tests.
type MemStaging struct {
	mu      sync.Mutex
	records []content.Record
	saves   int
}

// NewMemStaging creates an empty in-memory staging store.
func NewMemStaging() *MemStaging {
	return &MemStaging{}
}

func (m *MemStaging) Load(ctx context.Context) ([]content.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]content.Record, len(m.records))
	copy(out, m.records)
	return out, nil
}

func (m *MemStaging) Save(ctx context.Context, records []content.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = make([]content.Record, len(records))
	copy(m.records, records)
	m.saves++
	return nil
}

// Saves returns how many times Save has been called.
func (m *MemStaging) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
