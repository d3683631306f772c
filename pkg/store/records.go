package store

import (
	"strconv"
	"strings"

	"github.com/openaprs/aprsinject/pkg/kv"
)

// Cache-only record TTLs, in seconds.
const (
	duplicateTTL int32 = 3600
	positionTTL  int32 = 3600
	positionsTTL int32 = 86400
)

// positionsMaxAge bounds how old a line may be before the rewrite drops it.
const positionsMaxAge int64 = 86400

// positionsCap bounds the positions track length per callsign.
const positionsCap = 100

// DuplicateHash is the duplicate-check key for a source and body pair.
func DuplicateHash(source, body string) string {
	return md5hex(strings.ToLower(source + ":" + body))
}

// CommentHash digests a position comment for the position-error check.
func CommentHash(comment string) string {
	return md5hex(comment)
}

// Duplicate returns the stored duplicate record for a hash, if any.
func (s *Store) Duplicate(hash string) (*kv.Record, bool) {
	v, ok := s.cache.Get(nsDuplicates, hash)
	if !ok {
		return nil, false
	}
	return kv.Decode(v), true
}

// SetDuplicate stores a duplicate record under its hash.
func (s *Store) SetDuplicate(hash string, rec *kv.Record) {
	s.cache.PutTTL(nsDuplicates, hash, rec.Encode(), duplicateTTL)
}

// LastFix returns the stored position-error record for a source, if any.
func (s *Store) LastFix(source string) (*kv.Record, bool) {
	v, ok := s.cache.Get(nsPosition, strings.ToLower(source))
	if !ok {
		return nil, false
	}
	return kv.Decode(v), true
}

// SetLastFix stores the position-error record for a source.
func (s *Store) SetLastFix(source string, rec *kv.Record) {
	s.cache.PutTTL(nsPosition, strings.ToLower(source), rec.Encode(), positionTTL)
}

// AddPositionTrack prepends a fix to the per-callsign track. Previous lines
// are re-emitted minus malformed ones, ones older than a day, and anything
// past the track cap.
func (s *Store) AddPositionTrack(callsignID string, lat, lng float64, ts int64) {
	line := kv.New()
	line.Set("L", strconv.FormatFloat(lat, 'f', 6, 64))
	line.Set("G", strconv.FormatFloat(lng, 'f', 6, 64))
	line.Set("T", strconv.FormatInt(ts, 10))

	out := []string{line.Encode()}
	now := s.now().Unix()

	if prev, ok := s.cache.Get(nsPositions, callsignID); ok {
		for _, old := range strings.Split(prev, "\n") {
			if len(out) >= positionsCap {
				break
			}
			rec := kv.Decode(old)
			if !rec.Has("L") || !rec.Has("G") || !rec.Has("T") {
				continue
			}
			t, err := strconv.ParseInt(rec.Get("T"), 10, 64)
			if err != nil || now-t > positionsMaxAge {
				continue
			}
			out = append(out, old)
		}
	}

	s.cache.PutTTL(nsPositions, callsignID, strings.Join(out, "\n"), positionsTTL)
}

// AddLastPosition prepends a packet record to the per-grid roster. The new
// record must carry sr and ct; a previous line from the same source is
// replaced, malformed or day-old lines are dropped.
func (s *Store) AddLastPosition(locator string, rec *kv.Record) {
	key := strings.ToUpper(locator)
	source := rec.Get("sr")

	out := []string{rec.Encode()}
	now := s.now().Unix()

	if prev, ok := s.cache.Get(nsLastPositions, key); ok {
		for _, old := range strings.Split(prev, "\n") {
			r := kv.Decode(old)
			if !r.Has("sr") || !r.Has("ct") {
				continue
			}
			ct, err := strconv.ParseInt(r.Get("ct"), 10, 64)
			if err != nil || now-ct > positionsMaxAge {
				continue
			}
			if r.Get("sr") == source {
				continue
			}
			out = append(out, old)
		}
	}

	s.cache.PutTTL(nsLastPositions, key, strings.Join(out, "\n"), positionsTTL)
}

// SetLocatorSeen marks a grid locator as recently active.
func (s *Store) SetLocatorSeen(locator string) {
	now := strconv.FormatInt(s.now().Unix(), 10)
	s.cache.Put(nsLocatorSeen, strings.ToUpper(locator), now)
}
