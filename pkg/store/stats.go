package store

import "sort"

// SQLStats counts resolver activity against the database for one namespace.
type SQLStats struct {
	Tries    uint64
	Hits     uint64
	Misses   uint64
	Inserted uint64
	Failed   uint64
}

// SQLStatsSet holds per-namespace SQL counters for one reporting cadence.
// Two sets run side by side: the long-interval log report and the short
// telemetry emit, each reset at its own boundary.
type SQLStatsSet struct {
	counters map[string]*SQLStats
}

// NewSQLStatsSet returns an empty set.
func NewSQLStatsSet() *SQLStatsSet {
	return &SQLStatsSet{counters: make(map[string]*SQLStats)}
}

// NS returns the counters for a namespace, creating them on first use.
func (s *SQLStatsSet) NS(ns string) *SQLStats {
	st, ok := s.counters[ns]
	if !ok {
		st = &SQLStats{}
		s.counters[ns] = st
	}
	return st
}

// Namespaces returns the namespaces seen so far, sorted for stable reports.
func (s *SQLStatsSet) Namespaces() []string {
	out := make([]string, 0, len(s.counters))
	for ns := range s.counters {
		out = append(out, ns)
	}
	sort.Strings(out)
	return out
}

// Reset zeroes every counter, starting a new interval.
func (s *SQLStatsSet) Reset() {
	s.counters = make(map[string]*SQLStats)
}
