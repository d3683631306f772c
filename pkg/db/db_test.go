package db

import (
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()

	conn, mock, err := sqlmock.New()
	require.NoError(t, err)

	mock.ExpectPrepare(regexp.QuoteMeta(sqlLastPosition))
	d, err := NewWithDB(conn)
	require.NoError(t, err)

	t.Cleanup(func() { _ = d.Close() })
	return d, mock
}

func TestConfigDSN(t *testing.T) {
	cfg := Config{User: "aprs", Password: "secret", Host: "db1", Port: 3306, Database: "openaprs"}
	assert.Equal(t, "aprs:secret@tcp(db1:3306)/openaprs", cfg.DSN())
}

func TestConfigApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 3306, cfg.Port)
	assert.Equal(t, "openaprs", cfg.User)
	assert.Equal(t, "openaprs", cfg.Database)
	assert.NotZero(t, cfg.ConnMaxLifetime)
}

func TestGetCallsignID(t *testing.T) {
	t.Run("hit", func(t *testing.T) {
		d, mock := newMockDB(t)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM callsign WHERE source=? LIMIT 1")).
			WithArgs("N0CALL").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("42"))

		id, found, err := d.GetCallsignID("N0CALL")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "42", id)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("miss is not an error", func(t *testing.T) {
		d, mock := newMockDB(t)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM callsign")).
			WithArgs("N0CALL").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		id, found, err := d.GetCallsignID("N0CALL")
		require.NoError(t, err)
		assert.False(t, found)
		assert.Empty(t, id)
	})

	t.Run("query failure surfaces", func(t *testing.T) {
		d, mock := newMockDB(t)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM callsign")).
			WillReturnError(errors.New("server has gone away"))

		_, _, err := d.GetCallsignID("N0CALL")
		assert.Error(t, err)
	})
}

func TestGetMaidenheadID(t *testing.T) {
	d, mock := newMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM maidenhead WHERE locator=? LIMIT 1")).
		WithArgs("DM04").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("7"))

	id, found, err := d.GetMaidenheadID("DM04")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "7", id)
}

func TestInsertCallsign(t *testing.T) {
	t.Run("returns new id", func(t *testing.T) {
		d, mock := newMockDB(t)
		mock.ExpectExec(regexp.QuoteMeta("INSERT IGNORE INTO callsign (source) VALUES ( UPPER(?) )")).
			WithArgs("n0call").
			WillReturnResult(sqlmock.NewResult(42, 1))

		id, err := d.InsertCallsign("n0call")
		require.NoError(t, err)
		assert.Equal(t, "42", id)
	})

	t.Run("no rows affected means lost race", func(t *testing.T) {
		d, mock := newMockDB(t)
		mock.ExpectExec(regexp.QuoteMeta("INSERT IGNORE INTO callsign")).
			WillReturnResult(sqlmock.NewResult(0, 0))

		_, err := d.InsertCallsign("N0CALL")
		assert.ErrorIs(t, err, ErrLostRace)
	})

	t.Run("zero insert id means lost race", func(t *testing.T) {
		d, mock := newMockDB(t)
		mock.ExpectExec(regexp.QuoteMeta("INSERT IGNORE INTO callsign")).
			WillReturnResult(sqlmock.NewResult(0, 1))

		_, err := d.InsertCallsign("N0CALL")
		assert.ErrorIs(t, err, ErrLostRace)
	})
}

func TestInsertMaidenhead(t *testing.T) {
	d, mock := newMockDB(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT IGNORE INTO maidenhead (locator) VALUES ( ? )")).
		WithArgs("DM04").
		WillReturnResult(sqlmock.NewResult(9, 1))

	id, err := d.InsertMaidenhead("DM04")
	require.NoError(t, err)
	assert.Equal(t, "9", id)
}

func TestInsertPacket(t *testing.T) {
	t.Run("autoincrement id", func(t *testing.T) {
		d, mock := newMockDB(t)
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO packet (callsign_id, create_ts) VALUES (?, UNIX_TIMESTAMP())")).
			WithArgs("42").
			WillReturnResult(sqlmock.NewResult(1001, 1))

		id, err := d.InsertPacket("42")
		require.NoError(t, err)
		assert.Equal(t, "1001", id)
	})

	t.Run("zero id means lost race", func(t *testing.T) {
		d, mock := newMockDB(t)
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO packet")).
			WillReturnResult(sqlmock.NewResult(0, 1))

		_, err := d.InsertPacket("42")
		assert.ErrorIs(t, err, ErrLostRace)
	})
}

func TestInsertPacketUUID(t *testing.T) {
	d, mock := newMockDB(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO packet (id, callsign_id, create_ts) VALUES (UUID_TO_BIN(?), ?, UNIX_TIMESTAMP())")).
		WithArgs("0b9e9a3e-7d84-4f2e-9b7d-1f6c3a2d5e01", "42").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := d.InsertPacketUUID("0b9e9a3e-7d84-4f2e-9b7d-1f6c3a2d5e01", "42")
	assert.NoError(t, err)
}

func TestInsertPathAndStatus(t *testing.T) {
	d, mock := newMockDB(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT IGNORE INTO path (packet_id, body) VALUES (?, ?)")).
		WithArgs("1001", "APRS,TCPIP*").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT IGNORE INTO statuses (packet_id, body) VALUES (?, ?)")).
		WithArgs("1001", "Test").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, d.InsertPath("1001", "APRS,TCPIP*"))
	require.NoError(t, d.InsertStatus("1001", "Test"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetIconBySymbol(t *testing.T) {
	t.Run("resolved", func(t *testing.T) {
		d, mock := newMockDB(t)
		mock.ExpectQuery(regexp.QuoteMeta("CALL getIconBySymbols(?, ?, ?)")).
			WithArgs("/", ">", 90).
			WillReturnRows(sqlmock.NewRows([]string{"id", "path", "image", "icon", "direction"}).
				AddRow("17", "images/aprs", "car.png", "car", "Y"))

		icon, found, err := d.GetIconBySymbol("/", ">", 90)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "17", icon.ID)
		assert.Equal(t, "car.png", icon.Image)
		assert.Equal(t, "Y", icon.Direction)
	})

	t.Run("unknown symbol", func(t *testing.T) {
		d, mock := newMockDB(t)
		mock.ExpectQuery(regexp.QuoteMeta("CALL getIconBySymbols")).
			WillReturnRows(sqlmock.NewRows([]string{"id", "path", "image", "icon", "direction"}))

		_, found, err := d.GetIconBySymbol("/", "!", 0)
		require.NoError(t, err)
		assert.False(t, found)
	})
}
