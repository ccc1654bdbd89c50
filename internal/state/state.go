package state

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/couchcryptid/hazard-alert-service/internal/domain"
)

const (
	// MaxSeenIDs bounds the seen-event-id record.
	MaxSeenIDs = 1000
	// MaxActiveAlerts bounds the merged active alert set.
	MaxActiveAlerts = 100
	// MaxNotifiedKeys bounds the already-notified key record.
	MaxNotifiedKeys = 500
	// BadgeWindow is how recent an alert must be to count toward the badge,
	// independent of the 6h/24h retention windows.
	BadgeWindow = 3 * time.Hour
)

// SeenSet is an ordered, insertion-trimmed set safe for concurrent use.
// Feed adapters consult and mutate it while running in parallel, so a raw
// event id recorded by one adapter is immediately visible to the others.
type SeenSet struct {
	mu      sync.Mutex
	order   []string
	members map[string]bool
	max     int
}

// NewSeenSet builds a set pre-populated with ids, trimmed to the newest max.
func NewSeenSet(ids []string, max int) *SeenSet {
	s := &SeenSet{members: make(map[string]bool, len(ids)), max: max}
	for _, id := range ids {
		s.add(id)
	}
	return s
}

// Contains reports membership.
func (s *SeenSet) Contains(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.members[id]
}

// Add records an id, returning false if it was already present.
func (s *SeenSet) Add(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.add(id)
}

func (s *SeenSet) add(id string) bool {
	if s.members[id] {
		return false
	}
	s.members[id] = true
	s.order = append(s.order, id)
	if s.max > 0 && len(s.order) > s.max {
		drop := s.order[0]
		s.order = s.order[1:]
		delete(s.members, drop)
	}
	return true
}

// Values returns the ids in insertion order for persistence.
func (s *SeenSet) Values() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Len returns the current size.
func (s *SeenSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// State is the full persisted bookkeeping for the aggregation loop. It is
// loaded once at run start, mutated in memory, and written back atomically
// at run end; adapters never touch persistence directly.
type State struct {
	Settings domain.Settings
	Seen     *SeenSet
	Active   []domain.Alert
	Notified *SeenSet
}

// New returns an empty state with properly sized collections.
func New() *State {
	return &State{
		Seen:     NewSeenSet(nil, MaxSeenIDs),
		Notified: NewSeenSet(nil, MaxNotifiedKeys),
	}
}

// Store is the persistence boundary for State. Save must write all records
// in one atomic operation so a crash never leaves them out of sync.
type Store interface {
	Load(ctx context.Context) (*State, error)
	Save(ctx context.Context, st *State) error
	Close() error
}

// MergeAlerts combines the retained subset of previous alerts with this
// run's new ones: alerts older than their type's retention window are
// dropped, duplicates by id keep the most recent time, and the result is
// trimmed to the newest MaxActiveAlerts, ordered oldest first.
func MergeAlerts(existing, fresh []domain.Alert, now time.Time) []domain.Alert {
	byID := make(map[string]domain.Alert)
	var order []string

	keep := func(a domain.Alert) {
		prev, ok := byID[a.ID]
		if !ok {
			byID[a.ID] = a
			order = append(order, a.ID)
			return
		}
		if a.Time > prev.Time {
			byID[a.ID] = a
		}
	}

	for _, a := range existing {
		if now.Sub(a.EventTime()) > a.RetentionWindow() {
			continue
		}
		keep(a)
	}
	for _, a := range fresh {
		keep(a)
	}

	merged := make([]domain.Alert, 0, len(order))
	for _, id := range order {
		merged = append(merged, byID[id])
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Time < merged[j].Time
	})

	if len(merged) > MaxActiveAlerts {
		merged = merged[len(merged)-MaxActiveAlerts:]
	}
	return merged
}

// RecentAlerts returns the alerts inside the badge window.
func RecentAlerts(alerts []domain.Alert, now time.Time) []domain.Alert {
	var out []domain.Alert
	for _, a := range alerts {
		if now.Sub(a.EventTime()) < BadgeWindow {
			out = append(out, a)
		}
	}
	return out
}
