// Package store is the two-tier entity resolver: cache in front, database
// behind, write-through on every hit. Misses fall into an insert-then-reread
// loop that tolerates races with concurrent workers. The store also owns the
// cache-only records used by the duplicate and position-error checks.
package store

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/openaprs/aprsinject/internal/logger"
	"github.com/openaprs/aprsinject/pkg/aprs"
	"github.com/openaprs/aprsinject/pkg/cache"
	"github.com/openaprs/aprsinject/pkg/db"
	"github.com/openaprs/aprsinject/pkg/kv"
)

// Cache namespaces. Entity namespaces hold single ids; the rest hold the
// encoded records described in records.go.
const (
	nsCallsign      = "callsign"
	nsObjectName    = "objectname"
	nsDest          = "dest"
	nsDigi          = "digi"
	nsIcon          = "icon"
	nsPath          = "path"
	nsStatus        = "status"
	nsMessage       = "message"
	nsPacket        = "packet"
	nsMaidenhead    = "maidenhead"
	nsDuplicates    = "duplicates"
	nsPosition      = "position"
	nsPositions     = "positions"
	nsLastPositions = "lastpositions"
	nsLocatorSeen   = "locatorseen"
)

// Config tunes the resolver retry loop.
type Config struct {
	// PacketUUID selects UUID packet ids; the store mints the id and the
	// insert carries it. When false, packet ids come from auto-increment.
	PacketUUID bool `mapstructure:"packet_uuid" yaml:"packet_uuid"`

	// ResolveRetries is the number of insert-then-reread cycles after a
	// database miss.
	ResolveRetries int `mapstructure:"resolve_retries" validate:"gte=1" yaml:"resolve_retries"`

	// ResolveBackoff is the sleep between cycles.
	ResolveBackoff time.Duration `mapstructure:"resolve_backoff" yaml:"resolve_backoff"`
}

// ApplyDefaults fills unset fields with production defaults.
func (c *Config) ApplyDefaults() {
	if c.ResolveRetries == 0 {
		c.ResolveRetries = 3
	}
	if c.ResolveBackoff == 0 {
		c.ResolveBackoff = 3 * time.Second
	}
}

// Store resolves entity ids through the cache and the database. It is owned
// by a single worker and is not safe for concurrent use.
type Store struct {
	db    *db.DB
	cache *cache.Cache
	cfg   Config

	stats *SQLStatsSet
	emit  *SQLStatsSet

	sleep func(time.Duration)
	now   func() time.Time
}

// New builds a Store over an open database and cache tier.
func New(d *db.DB, c *cache.Cache, cfg Config) *Store {
	cfg.ApplyDefaults()
	return &Store{
		db:    d,
		cache: c,
		cfg:   cfg,
		stats: NewSQLStatsSet(),
		emit:  NewSQLStatsSet(),
		sleep: time.Sleep,
		now:   time.Now,
	}
}

// Stats returns the long-interval SQL stats set.
func (s *Store) Stats() *SQLStatsSet {
	return s.stats
}

// EmitStats returns the short-interval SQL stats set.
func (s *Store) EmitStats() *SQLStatsSet {
	return s.emit
}

// Cache exposes the cache tier for stats reporting.
func (s *Store) Cache() *cache.Cache {
	return s.cache
}

func (s *Store) bump(ns string, f func(*SQLStats)) {
	f(s.stats.NS(ns))
	f(s.emit.NS(ns))
}

// resolve is the generic resolver loop shared by every entity namespace.
// An empty cacheKey disables the cache tier (maidenhead is SQL-only).
func (s *Store) resolve(ns, cacheKey string,
	lookup func() (string, bool, error),
	insert func() (string, error)) (string, bool) {

	if cacheKey != "" {
		if id, ok := s.cache.Get(ns, cacheKey); ok {
			return id, true
		}
	}

	if id, ok := s.selectID(ns, cacheKey, lookup); ok {
		return id, true
	}

	for attempt := 0; attempt < s.cfg.ResolveRetries; attempt++ {
		id, err := insert()
		if err == nil {
			s.bump(ns, func(st *SQLStats) { st.Inserted++ })
			s.writeThrough(ns, cacheKey, id)
			return id, true
		}
		if !errors.Is(err, db.ErrLostRace) {
			logger.Warn("entity insert failed",
				logger.KeyNamespace, ns,
				logger.KeyError, err)
		}

		// Either a concurrent worker won the race or the insert failed
		// outright; re-read to pick up whatever row exists now.
		if id, ok := s.selectID(ns, cacheKey, lookup); ok {
			return id, true
		}

		s.sleep(s.cfg.ResolveBackoff)
	}

	s.bump(ns, func(st *SQLStats) { st.Failed++ })
	return "", false
}

func (s *Store) selectID(ns, cacheKey string, lookup func() (string, bool, error)) (string, bool) {
	s.bump(ns, func(st *SQLStats) { st.Tries++ })

	id, found, err := lookup()
	if err != nil {
		logger.Warn("entity lookup failed",
			logger.KeyNamespace, ns,
			logger.KeyError, err)
	}
	if err != nil || !found {
		s.bump(ns, func(st *SQLStats) { st.Misses++ })
		return "", false
	}

	s.bump(ns, func(st *SQLStats) { st.Hits++ })
	s.writeThrough(ns, cacheKey, id)
	return id, true
}

func (s *Store) writeThrough(ns, cacheKey, id string) {
	if cacheKey != "" {
		s.cache.Put(ns, cacheKey, id)
	}
}

// CallsignID resolves the row id for a source callsign.
func (s *Store) CallsignID(source string) (string, bool) {
	return s.resolve(nsCallsign, strings.ToUpper(source),
		func() (string, bool, error) { return s.db.GetCallsignID(source) },
		func() (string, error) { return s.db.InsertCallsign(source) })
}

// NameID resolves the row id for an object name. Names carry arbitrary
// bytes, so the cache key is a digest rather than the name itself.
func (s *Store) NameID(name string) (string, bool) {
	key := md5hex(strings.ToUpper(strings.TrimSpace(name)))
	return s.resolve(nsObjectName, key,
		func() (string, bool, error) { return s.db.GetNameID(name) },
		func() (string, error) { return s.db.InsertName(name) })
}

// DestID resolves the row id for an AX.25 destination.
func (s *Store) DestID(name string) (string, bool) {
	return s.resolve(nsDest, strings.ToUpper(name),
		func() (string, bool, error) { return s.db.GetDestID(name) },
		func() (string, error) { return s.db.InsertDest(name) })
}

// DigiID resolves the row id for a digipeater.
func (s *Store) DigiID(name string) (string, bool) {
	return s.resolve(nsDigi, strings.ToUpper(name),
		func() (string, bool, error) { return s.db.GetDigiID(name) },
		func() (string, error) { return s.db.InsertDigi(name) })
}

// MaidenheadID resolves the row id for a grid locator. Locator presence is
// tracked separately in the locatorseen namespace, so this id skips the
// cache tier entirely.
func (s *Store) MaidenheadID(locator string) (string, bool) {
	return s.resolve(nsMaidenhead, "",
		func() (string, bool, error) { return s.db.GetMaidenheadID(locator) },
		func() (string, error) { return s.db.InsertMaidenhead(locator) })
}

// PacketID creates the packet row for one observation and returns its id.
// Every observation gets a fresh row, so there is no lookup tier.
func (s *Store) PacketID(callsignID string) (string, bool) {
	for attempt := 0; attempt < s.cfg.ResolveRetries; attempt++ {
		id, err := s.insertPacket(callsignID)
		if err == nil {
			s.bump(nsPacket, func(st *SQLStats) { st.Inserted++ })
			return id, true
		}
		logger.Warn("packet insert failed", logger.KeyError, err)
		s.sleep(s.cfg.ResolveBackoff)
	}

	s.bump(nsPacket, func(st *SQLStats) { st.Failed++ })
	return "", false
}

func (s *Store) insertPacket(callsignID string) (string, error) {
	if s.cfg.PacketUUID {
		id := uuid.NewString()
		if err := s.db.InsertPacketUUID(id, callsignID); err != nil {
			return "", err
		}
		return id, nil
	}
	return s.db.InsertPacket(callsignID)
}

// SetPath records the transmitted path text against a packet row.
func (s *Store) SetPath(packetID, body string) bool {
	return s.retryExec(nsPath, func() error { return s.db.InsertPath(packetID, body) })
}

// SetStatus records the status/comment text against a packet row.
func (s *Store) SetStatus(packetID, body string) bool {
	return s.retryExec(nsStatus, func() error { return s.db.InsertStatus(packetID, body) })
}

func (s *Store) retryExec(ns string, exec func() error) bool {
	for attempt := 0; attempt < s.cfg.ResolveRetries; attempt++ {
		s.bump(ns, func(st *SQLStats) { st.Tries++ })
		if err := exec(); err == nil {
			s.bump(ns, func(st *SQLStats) { st.Inserted++ })
			return true
		}
		s.sleep(s.cfg.ResolveBackoff)
	}

	s.bump(ns, func(st *SQLStats) { st.Failed++ })
	return false
}

// IconBySymbol resolves the map-icon descriptor for a symbol pair. The
// caller-visible Icon field is rewritten to a compass variant when the icon
// rotates with course.
func (s *Store) IconBySymbol(table, code string, course int) (aprs.Icon, bool) {
	key := md5hex(table + code)

	if v, ok := s.cache.Get(nsIcon, key); ok {
		rec := kv.Decode(v)
		if rec.Has("id") && rec.Has("pa") && rec.Has("ic") && rec.Has("dir") {
			icon := aprs.Icon{
				ID:        rec.Get("id"),
				Path:      rec.Get("pa"),
				Image:     rec.Get("ic"),
				Direction: rec.Get("dir"),
			}
			return finishIcon(icon, course), true
		}
	}

	s.bump(nsIcon, func(st *SQLStats) { st.Tries++ })

	icon, found, err := s.db.GetIconBySymbol(table, code, course)
	if err != nil {
		logger.Warn("icon lookup failed",
			logger.KeyTable, table,
			logger.KeyError, err)
	}
	if err != nil || !found {
		s.bump(nsIcon, func(st *SQLStats) { st.Misses++ })
		s.bump(nsIcon, func(st *SQLStats) { st.Failed++ })
		return aprs.Icon{}, false
	}

	s.bump(nsIcon, func(st *SQLStats) { st.Hits++ })

	rec := kv.New()
	rec.Set("id", icon.ID)
	rec.Set("pa", icon.Path)
	rec.Set("ic", icon.Image)
	rec.Set("dir", icon.Direction)
	s.cache.Put(nsIcon, key, rec.Encode())

	return finishIcon(icon, course), true
}

func finishIcon(icon aprs.Icon, course int) aprs.Icon {
	if icon.Direction == "Y" {
		icon.Icon = aprs.CompassImage(icon.Path, icon.Image, course)
	} else {
		icon.Icon = icon.Path + "/" + icon.Image
	}
	return icon
}

// InjectRaw runs the raw-frame transaction for a preprocessed packet.
func (s *Store) InjectRaw(p *aprs.Packet) bool {
	return s.inject("raw", p, s.db.Raw)
}

// InjectPosition runs the position transaction.
func (s *Store) InjectPosition(p *aprs.Packet) bool {
	return s.inject("position_tx", p, s.db.Position)
}

// InjectMessage runs the message transaction.
func (s *Store) InjectMessage(p *aprs.Packet) bool {
	return s.inject("message_tx", p, s.db.Message)
}

// InjectTelemetry runs the telemetry transaction.
func (s *Store) InjectTelemetry(p *aprs.Packet) bool {
	return s.inject("telemetry_tx", p, s.db.Telemetry)
}

func (s *Store) inject(ns string, p *aprs.Packet, tx func(*aprs.Packet) error) bool {
	s.bump(ns, func(st *SQLStats) { st.Tries++ })

	if err := tx(p); err != nil {
		logger.Warn("inject transaction failed",
			logger.KeyNamespace, ns,
			logger.KeySource, p.Source,
			logger.KeyError, err)
		s.bump(ns, func(st *SQLStats) { st.Failed++ })
		return false
	}

	s.bump(ns, func(st *SQLStats) { st.Inserted++ })
	return true
}

func md5hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
