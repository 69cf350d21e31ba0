package notify

import (
	"sort"
	"sync"
	"time"

	"github.com/campusmod/modwatch/pkg/incident"
)

// Entry is one live notification. Read state survives subsequent polls;
// the entry disappears when its incident resolves.
type Entry struct {
	IncidentID string            `json:"incident_id"`
	Severity   incident.Severity `json:"severity_level"`
	AuthorID   string            `json:"author_id"`
	Read       bool              `json:"read"`
	CreatedAt  time.Time         `json:"created_at"`
}

// Batch is the outcome of one poll. Chime is true at most once per
// batch, regardless of how many incidents arrived.
type Batch struct {
	Added     []Entry
	Withdrawn []string
	Chime     bool
}

// Center owns the previous snapshot and the live notification entries,
// keyed by incident ID so one incident never yields two live entries.
// The snapshot is in-memory only and resets on process restart.
type Center struct {
	mu      sync.Mutex
	prev    []incident.Incident
	entries map[string]*Entry
}

// NewCenter creates an empty notification center.
func NewCenter() *Center {
	return &Center{entries: make(map[string]*Entry)}
}

// Poll diffs cur against the previous snapshot, adds one entry per
// newly pending incident, withdraws entries whose incident resolved,
// and retains cur as the next baseline.
func (c *Center) Poll(cur []incident.Incident) Batch {
	c.mu.Lock()
	defer c.mu.Unlock()

	newlyPending, newlyResolved := Diff(c.prev, cur)

	var batch Batch
	now := time.Now().UTC()

	for _, inc := range newlyPending {
		if _, live := c.entries[inc.ID]; live {
			continue
		}
		entry := &Entry{
			IncidentID: inc.ID,
			Severity:   inc.Severity,
			AuthorID:   inc.AuthorID,
			CreatedAt:  now,
		}
		c.entries[inc.ID] = entry
		batch.Added = append(batch.Added, *entry)
	}

	for _, id := range newlyResolved {
		if _, live := c.entries[id]; live {
			delete(c.entries, id)
			batch.Withdrawn = append(batch.Withdrawn, id)
		}
	}

	batch.Chime = len(batch.Added) > 0
	c.prev = cur
	return batch
}

// MarkRead marks one entry read. Unknown IDs report false.
func (c *Center) MarkRead(incidentID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[incidentID]
	if !ok {
		return false
	}
	entry.Read = true
	return true
}

// Entries returns the live notifications, newest first.
func (c *Center) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Entry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].IncidentID < out[j].IncidentID
	})
	return out
}
