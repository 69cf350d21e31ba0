// Package notify derives transient staff notifications from successive
// snapshots of the persisted incident list. The diff is a pure function
// so the classification rules test without any polling harness.
package notify

import "github.com/campusmod/modwatch/pkg/incident"

// Diff compares the previous poll's incident snapshot with the current
// one. Newly pending incidents are those now pending-review that were
// absent before or carried a different prior status. Newly resolved IDs
// are those now resolved that were pending-review before.
func Diff(prev, cur []incident.Incident) (newlyPending []incident.Incident, newlyResolved []string) {
	before := make(map[string]incident.Status, len(prev))
	for _, inc := range prev {
		before[inc.ID] = inc.Status
	}

	for _, inc := range cur {
		prior, seen := before[inc.ID]
		switch inc.Status {
		case incident.StatusPending:
			if !seen || prior != incident.StatusPending {
				newlyPending = append(newlyPending, inc)
			}
		case incident.StatusResolved:
			if seen && prior == incident.StatusPending {
				newlyResolved = append(newlyResolved, inc.ID)
			}
		}
	}
	return newlyPending, newlyResolved
}
