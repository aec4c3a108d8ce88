package model

import (
	"slices"
	"sync"

	"golang.org/x/text/cases"
)

// LeadSet accumulates leads across searches, deduplicating by business name
// (Unicode case-folded). The set is append-only except for Clear, matching
// the UI's merge semantics. Safe for concurrent use.
type LeadSet struct {
	mu    sync.Mutex
	seen  map[string]struct{}
	leads []Lead
}

// NewLeadSet creates an empty lead set.
func NewLeadSet() *LeadSet {
	return &LeadSet{seen: make(map[string]struct{})}
}

// Add merges leads into the set, skipping any whose business name is
// already present. Returns the number actually added.
func (s *LeadSet) Add(leads ...Lead) int {
	// cases.Caser is stateful, so build one per call.
	fold := cases.Fold()

	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, l := range leads {
		key := fold.String(l.BusinessName)
		if _, ok := s.seen[key]; ok {
			continue
		}
		s.seen[key] = struct{}{}
		s.leads = append(s.leads, l)
		added++
	}
	return added
}

// Leads returns the accumulated leads in insertion order.
func (s *LeadSet) Leads() []Lead {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.leads)
}

// Len returns the number of accumulated leads.
func (s *LeadSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.leads)
}

// Clear drops every accumulated lead.
func (s *LeadSet) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = make(map[string]struct{})
	s.leads = nil
}
