package cache

import "sort"

// Stats counts cache activity for one namespace.
type Stats struct {
	Tries  uint64
	Hits   uint64
	Misses uint64
	Stored uint64
}

// HitRate returns hits per try in percent, or 0 before any traffic.
func (s *Stats) HitRate() float64 {
	if s.Tries == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Tries) * 100
}

// Profile tracks a running mean latency without an unbounded accumulator:
// mean += (sample - mean) / ++count.
type Profile struct {
	Mean  float64
	Count uint64
}

// Add folds one sample (seconds) into the running mean.
func (p *Profile) Add(sample float64) {
	p.Count++
	p.Mean += (sample - p.Mean) / float64(p.Count)
}

// StatsSet holds per-namespace counters and latency profiles for one
// reporting cadence.
type StatsSet struct {
	counters map[string]*Stats
	profiles map[string]*Profile
}

// NewStatsSet returns an empty set.
func NewStatsSet() *StatsSet {
	return &StatsSet{
		counters: make(map[string]*Stats),
		profiles: make(map[string]*Profile),
	}
}

// NS returns the counters for a namespace, creating them on first use.
func (s *StatsSet) NS(ns string) *Stats {
	st, ok := s.counters[ns]
	if !ok {
		st = &Stats{}
		s.counters[ns] = st
	}
	return st
}

// Profile returns the latency profile for a namespace.
func (s *StatsSet) Profile(ns string) *Profile {
	p, ok := s.profiles[ns]
	if !ok {
		p = &Profile{}
		s.profiles[ns] = p
	}
	return p
}

// Namespaces returns the namespaces seen so far, sorted for stable reports.
func (s *StatsSet) Namespaces() []string {
	out := make([]string, 0, len(s.counters))
	for ns := range s.counters {
		out = append(out, ns)
	}
	sort.Strings(out)
	return out
}

// Reset zeroes every counter and profile, starting a new interval.
func (s *StatsSet) Reset() {
	s.counters = make(map[string]*Stats)
	s.profiles = make(map[string]*Profile)
}
