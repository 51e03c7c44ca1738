// Package usage counts dictionary placements across a whole run.
//
// A Tracker outlives the parts of a run. Parts may be built concurrently, so
// the tracker is the one synchronized structure: every method is safe for
// concurrent use. Parts typically count locally and Merge on flush.
package usage

import (
	"slices"
	"strings"
	"sync"
)

// Entry is one key with its placement count.
type Entry struct {
	Key   string
	Count uint64
}

// Summary reports the tracker state.
type Summary struct {
	TotalPlacements uint64
	UniqueKeysUsed  int
	Top             []Entry // most used first
	Bottom          []Entry // least used first
}

// Tracker is a concurrency-safe additive counter keyed by dictionary string.
type Tracker struct {
	mu     sync.Mutex
	counts map[string]uint64
	total  uint64
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{counts: make(map[string]uint64)}
}

// Record counts one placement of key.
func (t *Tracker) Record(key string) {
	t.RecordN(key, 1)
}

// RecordN counts n placements of key. A zero n is ignored.
func (t *Tracker) RecordN(key string, n uint64) {
	if n == 0 {
		return
	}

	t.mu.Lock()
	t.counts[key] += n
	t.total += n
	t.mu.Unlock()
}

// Merge adds every count of other into t.
func (t *Tracker) Merge(other map[string]uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for k, n := range other {
		if n == 0 {
			continue
		}
		t.counts[k] += n
		t.total += n
	}
}

// Count returns the placements recorded for key.
func (t *Tracker) Count(key string) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.counts[key]
}

// Total returns the placements recorded for all keys.
func (t *Tracker) Total() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.total
}

// Snapshot returns a copy of all counts.
func (t *Tracker) Snapshot() map[string]uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]uint64, len(t.counts))
	for k, n := range t.counts {
		out[k] = n
	}

	return out
}

// Summary returns totals plus the n most and n least used keys.
// Ties are broken by ascending key.
func (t *Tracker) Summary(n int) Summary {
	t.mu.Lock()
	entries := make([]Entry, 0, len(t.counts))
	for k, c := range t.counts {
		entries = append(entries, Entry{Key: k, Count: c})
	}
	total := t.total
	t.mu.Unlock()

	s := Summary{TotalPlacements: total, UniqueKeysUsed: len(entries)}
	if n <= 0 || len(entries) == 0 {
		return s
	}
	limit := min(n, len(entries))

	slices.SortFunc(entries, func(a, b Entry) int {
		if a.Count != b.Count {
			if a.Count > b.Count {
				return -1
			}

			return 1
		}

		return strings.Compare(a.Key, b.Key)
	})
	s.Top = slices.Clone(entries[:limit])

	slices.SortFunc(entries, func(a, b Entry) int {
		if a.Count != b.Count {
			if a.Count < b.Count {
				return -1
			}

			return 1
		}

		return strings.Compare(a.Key, b.Key)
	})
	s.Bottom = slices.Clone(entries[:limit])

	return s
}
