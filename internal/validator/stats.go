package validator

import (
	"cmp"
	"maps"
	"slices"
	"sync"
)

// Stats tallies classification outcomes. It is safe for concurrent use.
type Stats struct {
	mu           sync.Mutex
	total        int
	valid        int
	trash        int
	missingCount map[string]int
}

// Add records one result.
func (s *Stats) Add(r Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total++

	if r.Valid {
		s.valid++

		return
	}

	s.trash++

	if s.missingCount == nil {
		s.missingCount = make(map[string]int)
	}

	for _, field := range r.Missing {
		s.missingCount[field]++
	}
}

// Snapshot is a point-in-time copy of Stats.
type Snapshot struct {
	Total   int
	Valid   int
	Trash   int
	Missing map[string]int
}

// Snapshot returns the current counters.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		Total:   s.total,
		Valid:   s.valid,
		Trash:   s.trash,
		Missing: maps.Clone(s.missingCount),
	}
}

// MissingFields returns the fields seen missing, most frequent first.
func (snap Snapshot) MissingFields() []string {
	fields := slices.Collect(maps.Keys(snap.Missing))

	slices.SortFunc(fields, func(a, b string) int {
		if snap.Missing[a] != snap.Missing[b] {
			return snap.Missing[b] - snap.Missing[a]
		}

		return cmp.Compare(a, b)
	})

	return fields
}
