// Package db owns every SQL statement of the injector: entity lookups,
// INSERT IGNORE inserts with lost-race detection, and the per-packet-type
// multi-statement transactions. It holds no business logic; callers decide
// what a miss or a failed transaction means.
package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/openaprs/aprsinject/pkg/aprs"
)

// ErrLostRace is returned by inserts when INSERT IGNORE affected no row or
// produced no insert id: a concurrent worker created the same entity between
// our SELECT and our INSERT. The caller re-reads to pick up the winner's row.
var ErrLostRace = errors.New("db: insert lost race")

// Config holds the MySQL connection settings.
type Config struct {
	Host     string `mapstructure:"host" validate:"required" yaml:"host"`
	Port     int    `mapstructure:"port" validate:"gt=0,lte=65535" yaml:"port"`
	User     string `mapstructure:"user" validate:"required" yaml:"user"`
	Password string `mapstructure:"password" yaml:"password,omitempty"`
	Database string `mapstructure:"database" validate:"required" yaml:"database"`

	// PacketUUID selects the UUID packet-id schema: the caller mints the id
	// and the insert binds it through UUID_TO_BIN. When false, packet.id is
	// an auto-increment integer.
	PacketUUID bool `mapstructure:"packet_uuid" yaml:"packet_uuid"`

	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" yaml:"conn_max_lifetime"`
}

// ApplyDefaults fills unset fields with production defaults.
func (c *Config) ApplyDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 3306
	}
	if c.User == "" {
		c.User = "openaprs"
	}
	if c.Database == "" {
		c.Database = "openaprs"
	}
	if c.ConnMaxLifetime == 0 {
		c.ConnMaxLifetime = 5 * time.Minute
	}
}

// DSN renders the go-sql-driver connection string.
func (c Config) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s", c.User, c.Password, c.Host, c.Port, c.Database)
}

// DB wraps the SQL connection plus the one statement prepared up front.
type DB struct {
	sql *sql.DB

	// last_position is the highest-fanout upsert; it stays prepared for the
	// life of the connection.
	lastPosition *sql.Stmt
}

// Open connects to MySQL and prepares the hot-path statement. A failure here
// is fatal to the process.
func Open(cfg Config) (*DB, error) {
	cfg.ApplyDefaults()

	conn, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	return NewWithDB(conn)
}

// NewWithDB builds a DB over an existing connection. Used by tests.
func NewWithDB(conn *sql.DB) (*DB, error) {
	stmt, err := conn.Prepare(sqlLastPosition)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare last_position: %w", err)
	}
	return &DB{sql: conn, lastPosition: stmt}, nil
}

// Close releases the prepared statement and the connection pool.
func (d *DB) Close() error {
	if d.lastPosition != nil {
		d.lastPosition.Close()
	}
	return d.sql.Close()
}

const sqlLastPosition = "INSERT INTO last_position" +
	" (packet_id, callsign_id, name_id, icon_id, latitude, longitude, create_ts)" +
	" VALUES (?, ?, ?, ?, ?, ?, ?)" +
	" ON DUPLICATE KEY UPDATE" +
	" packet_id=VALUES(packet_id), callsign_id=VALUES(callsign_id), name_id=VALUES(name_id)," +
	" icon_id=VALUES(icon_id), latitude=VALUES(latitude), longitude=VALUES(longitude)," +
	" create_ts=VALUES(create_ts)"

// lookup runs a single-column SELECT and reports whether a row existed.
func (d *DB) lookup(query string, arg string) (string, bool, error) {
	var id string
	err := d.sql.QueryRow(query, arg).Scan(&id)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

// GetCallsignID looks up the row id for a source callsign.
func (d *DB) GetCallsignID(source string) (string, bool, error) {
	return d.lookup("SELECT id FROM callsign WHERE source=? LIMIT 1", source)
}

// GetNameID looks up the row id for an object name.
func (d *DB) GetNameID(name string) (string, bool, error) {
	return d.lookup("SELECT id FROM object_name WHERE name=TRIM(?) LIMIT 1", name)
}

// GetDestID looks up the row id for an AX.25 destination.
func (d *DB) GetDestID(name string) (string, bool, error) {
	return d.lookup("SELECT id FROM destination WHERE name=? LIMIT 1", name)
}

// GetDigiID looks up the row id for a digipeater.
func (d *DB) GetDigiID(name string) (string, bool, error) {
	return d.lookup("SELECT id FROM digis WHERE name=? LIMIT 1", name)
}

// GetMaidenheadID looks up the row id for a grid locator.
func (d *DB) GetMaidenheadID(locator string) (string, bool, error) {
	return d.lookup("SELECT id FROM maidenhead WHERE locator=? LIMIT 1", locator)
}

// insert runs an INSERT IGNORE and returns the new row id, or ErrLostRace
// when a concurrent inserter won.
func (d *DB) insert(query string, arg string) (string, error) {
	res, err := d.sql.Exec(query, arg)
	if err != nil {
		return "", err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return "", err
	}
	if affected == 0 {
		return "", ErrLostRace
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", err
	}
	if id == 0 {
		return "", ErrLostRace
	}
	return fmt.Sprintf("%d", id), nil
}

// InsertCallsign creates a callsign row, upper-casing the source.
func (d *DB) InsertCallsign(source string) (string, error) {
	return d.insert("INSERT IGNORE INTO callsign (source) VALUES ( UPPER(?) )", source)
}

// InsertName creates an object_name row, trimming the name.
func (d *DB) InsertName(name string) (string, error) {
	return d.insert("INSERT IGNORE INTO object_name (name) VALUES ( TRIM(?) )", name)
}

// InsertDest creates a destination row.
func (d *DB) InsertDest(name string) (string, error) {
	return d.insert("INSERT IGNORE INTO destination (name) VALUES ( UPPER(?) )", name)
}

// InsertDigi creates a digis row.
func (d *DB) InsertDigi(name string) (string, error) {
	return d.insert("INSERT IGNORE INTO digis (name) VALUES ( UPPER(?) )", name)
}

// InsertMaidenhead creates a maidenhead row.
func (d *DB) InsertMaidenhead(locator string) (string, error) {
	return d.insert("INSERT IGNORE INTO maidenhead (locator) VALUES ( ? )", locator)
}

// InsertPath records the transmitted path text for a packet.
func (d *DB) InsertPath(packetID, body string) error {
	_, err := d.sql.Exec("INSERT IGNORE INTO path (packet_id, body) VALUES (?, ?)", packetID, body)
	return err
}

// InsertStatus records the status/comment text for a packet.
func (d *DB) InsertStatus(packetID, body string) error {
	_, err := d.sql.Exec("INSERT IGNORE INTO statuses (packet_id, body) VALUES (?, ?)", packetID, body)
	return err
}

// InsertPacketUUID creates the packet row under the UUID schema; the caller
// supplies the id.
func (d *DB) InsertPacketUUID(packetID, callsignID string) error {
	_, err := d.sql.Exec(
		"INSERT INTO packet (id, callsign_id, create_ts) VALUES (UUID_TO_BIN(?), ?, UNIX_TIMESTAMP())",
		packetID, callsignID)
	return err
}

// InsertPacket creates the packet row under the auto-increment schema and
// returns the generated id.
func (d *DB) InsertPacket(callsignID string) (string, error) {
	res, err := d.sql.Exec(
		"INSERT INTO packet (callsign_id, create_ts) VALUES (?, UNIX_TIMESTAMP())", callsignID)
	if err != nil {
		return "", err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", err
	}
	if id == 0 {
		return "", ErrLostRace
	}
	return fmt.Sprintf("%d", id), nil
}

// GetIconBySymbol resolves the map-icon descriptor for a symbol pair via the
// getIconBySymbols stored procedure.
func (d *DB) GetIconBySymbol(table, code string, course int) (aprs.Icon, bool, error) {
	var icon aprs.Icon
	err := d.sql.QueryRow("CALL getIconBySymbols(?, ?, ?)", table, code, course).
		Scan(&icon.ID, &icon.Path, &icon.Image, &icon.Icon, &icon.Direction)
	if err == sql.ErrNoRows {
		return aprs.Icon{}, false, nil
	}
	if err != nil {
		return aprs.Icon{}, false, err
	}
	return icon, true, nil
}
