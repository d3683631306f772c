// Package kv implements the compact key:value record format used for cache
// values and broker notification envelopes: fields are "key:value" pairs
// joined by "|" (e.g. "sr:N0CALL|ct:1203723990|la:34.1167"). Values are
// backslash-escaped so they may carry the delimiter characters and newlines,
// which matters for records stacked line-per-record in a single cache value.
package kv

import "strings"

// Record is an ordered set of key:value fields. Field order is preserved
// across Encode so cache values stay byte-stable.
type Record struct {
	keys []string
	vals map[string]string
}

// New returns an empty record.
func New() *Record {
	return &Record{vals: make(map[string]string)}
}

// Decode parses an encoded record. Segments without a key separator are
// skipped; consumers treat records with missing fields as invalid and filter
// them out, so a partially corrupt value degrades instead of failing.
func Decode(s string) *Record {
	r := New()
	for _, seg := range splitEscaped(s, '|') {
		if seg == "" {
			continue
		}
		key, val, ok := cutEscaped(seg, ':')
		if !ok || key == "" {
			continue
		}
		r.Set(unescape(key), unescape(val))
	}
	return r
}

// Set adds or replaces a field.
func (r *Record) Set(key, value string) {
	if _, ok := r.vals[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.vals[key] = value
}

// Get returns the value for key, or "" when absent.
func (r *Record) Get(key string) string {
	return r.vals[key]
}

// Has reports whether key is present.
func (r *Record) Has(key string) bool {
	_, ok := r.vals[key]
	return ok
}

// Len returns the number of fields.
func (r *Record) Len() int {
	return len(r.keys)
}

// Encode renders the record in field-insertion order.
func (r *Record) Encode() string {
	var b strings.Builder
	for i, key := range r.keys {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(escape(key))
		b.WriteByte(':')
		b.WriteString(escape(r.vals[key]))
	}
	return b.String()
}

func escape(s string) string {
	if !strings.ContainsAny(s, "\\|:\n") {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			b.WriteString(`\\`)
		case '|':
			b.WriteString(`\|`)
		case ':':
			b.WriteString(`\:`)
		case '\n':
			b.WriteString(`\n`)
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func unescape(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
			switch s[i] {
			case 'n':
				b.WriteByte('\n')
			default:
				b.WriteByte(s[i])
			}
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// splitEscaped splits s on sep, honoring backslash escapes. The escapes are
// left in place for unescape to resolve.
func splitEscaped(s string, sep byte) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case sep:
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}

// cutEscaped splits seg at the first unescaped sep.
func cutEscaped(seg string, sep byte) (string, string, bool) {
	for i := 0; i < len(seg); i++ {
		switch seg[i] {
		case '\\':
			i++
		case sep:
			return seg[:i], seg[i+1:], true
		}
	}
	return seg, "", false
}
