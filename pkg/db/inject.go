package db

import (
	"database/sql"
	"fmt"
	"regexp"

	"github.com/openaprs/aprsinject/pkg/aprs"
	"github.com/openaprs/aprsinject/pkg/validator"
)

// bulletinTarget matches message addressees that are group bulletins or NWS
// advisories; those also land in last_bulletin.
var bulletinTarget = regexp.MustCompile(`^((BLN[0-9A-Z]{1,6})|(NWS-[0-9A-Z]{1,5}))$`)

// nv binds a value as NULL unless it is non-empty and passes the directives.
func nv(spec, value string) sql.NullString {
	return validator.NullString(spec, value)
}

func yn(present bool) string {
	if present {
		return "Y"
	}
	return "N"
}

// nameID returns the resolved object-name id, or "0" for station packets.
func nameID(p *aprs.Packet) string {
	if p.IDs.ObjectName != "" {
		return p.IDs.ObjectName
	}
	return "0"
}

// withTx runs fn inside a transaction, rolling back on any statement error.
func (d *DB) withTx(fn func(tx *sql.Tx) error) error {
	tx, err := d.sql.Begin()
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Position writes the position-report tables: the last_* upserts always, the
// append-only position history only for non-posdup station packets, and the
// weather tables when weather fields ride along.
func (d *DB) Position(p *aprs.Packet) error {
	return d.withTx(func(tx *sql.Tx) error {
		_, err := tx.Stmt(d.lastPosition).Exec(
			p.IDs.Packet, p.IDs.Callsign, nameID(p), p.IDs.Icon,
			p.Position.Latitude, p.Position.Longitude, p.Timestamp)
		if err != nil {
			return fmt.Errorf("last_position: %w", err)
		}

		_, err = tx.Exec(
			"INSERT INTO last_position_meta (packet_id, callsign_id, name_id, dest_id,"+
				" course, speed, altitude, symbol_table, symbol_code, overlay, `range`, type,"+
				" weather, telemetry, position_type_id, mbits, create_ts)"+
				" VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"+
				" ON DUPLICATE KEY UPDATE"+
				" packet_id=VALUES(packet_id), callsign_id=VALUES(callsign_id), name_id=VALUES(name_id),"+
				" dest_id=VALUES(dest_id), course=VALUES(course), speed=VALUES(speed),"+
				" altitude=VALUES(altitude), symbol_table=VALUES(symbol_table), symbol_code=VALUES(symbol_code),"+
				" overlay=VALUES(overlay), `range`=VALUES(`range`), type=VALUES(type),"+
				" weather=VALUES(weather), telemetry=VALUES(telemetry),"+
				" position_type_id=VALUES(position_type_id), mbits=VALUES(mbits), create_ts=VALUES(create_ts)",
			p.IDs.Packet, p.IDs.Callsign, nameID(p), p.IDs.Destination,
			nv("is:int", p.Position.Course), nv("is:int", p.Position.Speed),
			nv("is:int", p.Position.Altitude), p.Symbol.Table, p.Symbol.Code,
			nv("maxlen:1", p.Symbol.Overlay), nv("is:float", p.Position.Range),
			p.Object.Type, yn(p.Weather.Present), yn(p.Telemetry.Present),
			nv("is:int", p.Position.TypeID), nv("maxlen:3", p.Position.MicEMbits),
			p.Timestamp)
		if err != nil {
			return fmt.Errorf("last_position_meta: %w", err)
		}

		if p.PHG.Present {
			_, err = tx.Exec(
				"INSERT INTO last_phg (packet_id, callsign_id, name_id, power, haat, gain,"+
					" `range`, direction, beacon, create_ts)"+
					" VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"+
					" ON DUPLICATE KEY UPDATE"+
					" packet_id=VALUES(packet_id), callsign_id=VALUES(callsign_id), name_id=VALUES(name_id),"+
					" power=VALUES(power), haat=VALUES(haat), gain=VALUES(gain), `range`=VALUES(`range`),"+
					" direction=VALUES(direction), beacon=VALUES(beacon), create_ts=VALUES(create_ts)",
				p.IDs.Packet, p.IDs.Callsign, nameID(p),
				nv("is:float", p.PHG.Power), nv("is:float", p.PHG.Haat),
				nv("is:float", p.PHG.Gain), nv("is:float", p.PHG.Range),
				nv("is:int", p.PHG.Directivity), nv("is:int", p.PHG.Beacon),
				p.Timestamp)
			if err != nil {
				return fmt.Errorf("last_phg: %w", err)
			}
		}

		if p.DFR.Present {
			_, err = tx.Exec(
				"INSERT INTO last_dfr (packet_id, callsign_id, name_id, bearing, hits,"+
					" `range`, quality, create_ts)"+
					" VALUES (?, ?, ?, ?, ?, ?, ?, ?)"+
					" ON DUPLICATE KEY UPDATE"+
					" packet_id=VALUES(packet_id), callsign_id=VALUES(callsign_id), name_id=VALUES(name_id),"+
					" bearing=VALUES(bearing), hits=VALUES(hits), `range`=VALUES(`range`),"+
					" quality=VALUES(quality), create_ts=VALUES(create_ts)",
				p.IDs.Packet, p.IDs.Callsign, nameID(p),
				nv("is:int", p.DFR.Bearing), nv("is:int", p.DFR.Hits),
				nv("is:float", p.DFR.Range), nv("is:int", p.DFR.Quality),
				p.Timestamp)
			if err != nil {
				return fmt.Errorf("last_dfr: %w", err)
			}
		}

		if p.DFS.Present {
			_, err = tx.Exec(
				"INSERT INTO last_dfs (packet_id, callsign_id, name_id, power, haat, gain,"+
					" `range`, direction, create_ts)"+
					" VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)"+
					" ON DUPLICATE KEY UPDATE"+
					" packet_id=VALUES(packet_id), callsign_id=VALUES(callsign_id), name_id=VALUES(name_id),"+
					" power=VALUES(power), haat=VALUES(haat), gain=VALUES(gain), `range`=VALUES(`range`),"+
					" direction=VALUES(direction), create_ts=VALUES(create_ts)",
				p.IDs.Packet, p.IDs.Callsign, nameID(p),
				nv("is:float", p.DFS.Power), nv("is:float", p.DFS.Haat),
				nv("is:float", p.DFS.Gain), nv("is:float", p.DFS.Range),
				nv("is:int", p.DFS.Directivity),
				p.Timestamp)
			if err != nil {
				return fmt.Errorf("last_dfs: %w", err)
			}
		}

		if p.AFRS.Present != "" {
			_, err = tx.Exec(
				"INSERT INTO last_frequency (packet_id, callsign_id, name_id, frequency,"+
					" `range`, range_east, tone, afrs_type, receive, alternate, type, create_ts)"+
					" VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"+
					" ON DUPLICATE KEY UPDATE"+
					" packet_id=VALUES(packet_id), callsign_id=VALUES(callsign_id), name_id=VALUES(name_id),"+
					" frequency=VALUES(frequency), `range`=VALUES(`range`), range_east=VALUES(range_east),"+
					" tone=VALUES(tone), afrs_type=VALUES(afrs_type), receive=VALUES(receive),"+
					" alternate=VALUES(alternate), type=VALUES(type), create_ts=VALUES(create_ts)",
				p.IDs.Packet, p.IDs.Callsign, nameID(p), p.AFRS.Present,
				nv("is:float", p.AFRS.Range), nv("is:float", p.AFRS.RangeEast),
				nv("maxlen:6", p.AFRS.Tone), nullIfEmpty(p.AFRS.Type),
				nv("maxlen:7", p.AFRS.Receive), nv("maxlen:7", p.AFRS.Alternate),
				p.Object.Type, p.Timestamp)
			if err != nil {
				return fmt.Errorf("last_frequency: %w", err)
			}
		}

		// Redundant fixes and objects only refresh last-known state; the
		// append-only history stays clean of them.
		if !p.Position.Posdup && !p.IsObject() {
			_, err = tx.Exec(
				"INSERT INTO position (packet_id, callsign_id, maidenhead_id, latitude,"+
					" longitude, create_ts) VALUES (?, ?, ?, ?, ?, ?)",
				p.IDs.Packet, p.IDs.Callsign, p.IDs.Maidenhead,
				p.Position.Latitude, p.Position.Longitude, p.Timestamp)
			if err != nil {
				return fmt.Errorf("position: %w", err)
			}

			_, err = tx.Exec(
				"INSERT INTO position_meta (packet_id, course, speed, altitude,"+
					" symbol_table, symbol_code, time_of_fix, create_ts)"+
					" VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
				p.IDs.Packet,
				nv("is:int", p.Position.Course), nv("is:int", p.Position.Speed),
				nv("is:int", p.Position.Altitude), p.Symbol.Table, p.Symbol.Code,
				nv("is:int", p.Position.TimeOfFix), p.Timestamp)
			if err != nil {
				return fmt.Errorf("position_meta: %w", err)
			}
		}

		if p.Weather.Present {
			if err := injectWeather(tx, p); err != nil {
				return err
			}
		}

		return nil
	})
}

func injectWeather(tx *sql.Tx, p *aprs.Packet) error {
	w := p.Weather
	_, err := tx.Exec(
		"INSERT INTO last_weather (packet_id, callsign_id, latitude, longitude,"+
			" wind_direction, wind_speed, wind_gust, temperature, rain_hour,"+
			" rain_calendar_day, rain_24hour_day, humidity, barometer, luminosity, create_ts)"+
			" VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"+
			" ON DUPLICATE KEY UPDATE"+
			" packet_id=VALUES(packet_id), callsign_id=VALUES(callsign_id),"+
			" latitude=VALUES(latitude), longitude=VALUES(longitude),"+
			" wind_direction=VALUES(wind_direction), wind_speed=VALUES(wind_speed),"+
			" wind_gust=VALUES(wind_gust), temperature=VALUES(temperature),"+
			" rain_hour=VALUES(rain_hour), rain_calendar_day=VALUES(rain_calendar_day),"+
			" rain_24hour_day=VALUES(rain_24hour_day), humidity=VALUES(humidity),"+
			" barometer=VALUES(barometer), luminosity=VALUES(luminosity), create_ts=VALUES(create_ts)",
		p.IDs.Packet, p.IDs.Callsign, p.Position.Latitude, p.Position.Longitude,
		nv("is:int", w.WindDirection), nv("is:int", w.WindSpeed), nv("is:int", w.WindGust),
		nv("is:int", w.Temperature), nv("is:float", w.RainHour),
		nv("is:float", w.RainMidnight), nv("is:float", w.Rain24Hour),
		nv("is:int|maxval:100", w.Humidity), nv("is:float", w.Pressure),
		nv("is:int", w.Luminosity), p.Timestamp)
	if err != nil {
		return fmt.Errorf("last_weather: %w", err)
	}

	_, err = tx.Exec(
		"INSERT INTO weather (packet_id, callsign_id, wind_direction, wind_speed,"+
			" wind_gust, temperature, rain_hour, rain_calendar_day, rain_24hour_day,"+
			" humidity, barometer, luminosity, create_ts)"+
			" VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		p.IDs.Packet, p.IDs.Callsign,
		nv("is:int", w.WindDirection), nv("is:int", w.WindSpeed), nv("is:int", w.WindGust),
		nv("is:int", w.Temperature), nv("is:float", w.RainHour),
		nv("is:float", w.RainMidnight), nv("is:float", w.Rain24Hour),
		nv("is:int|maxval:100", w.Humidity), nv("is:float", w.Pressure),
		nv("is:int", w.Luminosity), p.Timestamp)
	if err != nil {
		return fmt.Errorf("weather: %w", err)
	}
	return nil
}

// Message writes the message tables, routes bulletins into last_bulletin,
// and telemetry control messages into their telemetry_* tables.
func (d *DB) Message(p *aprs.Packet) error {
	return d.withTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(
			"INSERT INTO message (packet_id, callsign_id, callsign_to_id, `body`, msgid, create_ts)"+
				" VALUES (?, ?, ?, ?, ?, ?)",
			p.IDs.Packet, p.IDs.Callsign, p.IDs.Target,
			p.Message.Text, p.Message.ID, p.Timestamp)
		if err != nil {
			return fmt.Errorf("message: %w", err)
		}

		_, err = tx.Exec(
			"INSERT INTO last_message (packet_id, callsign_id, callsign_to_id, create_ts)"+
				" VALUES (?, ?, ?, ?)"+
				" ON DUPLICATE KEY UPDATE"+
				" packet_id=VALUES(packet_id), callsign_id=VALUES(callsign_id),"+
				" callsign_to_id=VALUES(callsign_to_id), create_ts=VALUES(create_ts)",
			p.IDs.Packet, p.IDs.Callsign, p.IDs.Target, p.Timestamp)
		if err != nil {
			return fmt.Errorf("last_message: %w", err)
		}

		if bulletinTarget.MatchString(p.Message.Target) {
			_, err = tx.Exec(
				"INSERT INTO last_bulletin (addressee, text, id, create_ts)"+
					" VALUES (?, ?, ?, UNIX_TIMESTAMP())"+
					" ON DUPLICATE KEY UPDATE"+
					" addressee=VALUES(addressee), text=VALUES(text), id=VALUES(id),"+
					" create_ts=VALUES(create_ts)",
				nullIfEmpty(p.Message.Target), nullIfEmpty(p.Message.Text),
				nullIfEmpty(p.Message.ID))
			if err != nil {
				return fmt.Errorf("last_bulletin: %w", err)
			}
		}

		return injectTelemetryControl(tx, p)
	})
}

func injectTelemetryControl(tx *sql.Tx, p *aprs.Packet) error {
	t := p.Telemetry
	switch t.MessageType {
	case "EQNS":
		_, err := tx.Exec(
			"INSERT INTO telemetry_eqns (packet_id, callsign_id, a_0, b_0, c_0, a_1, b_1, c_1,"+
				" a_2, b_2, c_2, a_3, b_3, c_3, a_4, b_4, c_4, create_ts)"+
				" VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"+
				" ON DUPLICATE KEY UPDATE"+
				" packet_id=VALUES(packet_id), callsign_id=VALUES(callsign_id),"+
				" a_0=VALUES(a_0), b_0=VALUES(b_0), c_0=VALUES(c_0), a_1=VALUES(a_1),"+
				" b_1=VALUES(b_1), c_1=VALUES(c_1), a_2=VALUES(a_2), b_2=VALUES(b_2),"+
				" c_2=VALUES(c_2), a_3=VALUES(a_3), b_3=VALUES(b_3), c_3=VALUES(c_3),"+
				" a_4=VALUES(a_4), b_4=VALUES(b_4), c_4=VALUES(c_4), create_ts=VALUES(create_ts)",
			p.IDs.Packet, p.IDs.Callsign,
			nv("is:float", t.EqnsA[0]), nv("is:float", t.EqnsB[0]), nv("is:float", t.EqnsC[0]),
			nv("is:float", t.EqnsA[1]), nv("is:float", t.EqnsB[1]), nv("is:float", t.EqnsC[1]),
			nv("is:float", t.EqnsA[2]), nv("is:float", t.EqnsB[2]), nv("is:float", t.EqnsC[2]),
			nv("is:float", t.EqnsA[3]), nv("is:float", t.EqnsB[3]), nv("is:float", t.EqnsC[3]),
			nv("is:float", t.EqnsA[4]), nv("is:float", t.EqnsB[4]), nv("is:float", t.EqnsC[4]),
			p.Timestamp)
		if err != nil {
			return fmt.Errorf("telemetry_eqns: %w", err)
		}
	case "UNIT":
		_, err := tx.Exec(
			sqlTelemetryLabels("telemetry_unit"),
			p.IDs.Packet, p.IDs.Callsign,
			nv("maxlen:7", t.Labels.Analog[0]), nv("maxlen:6", t.Labels.Analog[1]),
			nv("maxlen:5", t.Labels.Analog[2]), nv("maxlen:6", t.Labels.Analog[3]),
			nv("maxlen:4", t.Labels.Analog[4]),
			nv("maxlen:5", t.Labels.Digital[0]), nv("maxlen:4", t.Labels.Digital[1]),
			nv("maxlen:3", t.Labels.Digital[2]), nv("maxlen:3", t.Labels.Digital[3]),
			nv("maxlen:3", t.Labels.Digital[4]), nv("maxlen:2", t.Labels.Digital[5]),
			nv("maxlen:2", t.Labels.Digital[6]), nv("maxlen:2", t.Labels.Digital[7]),
			p.Timestamp)
		if err != nil {
			return fmt.Errorf("telemetry_unit: %w", err)
		}
	case "PARM":
		_, err := tx.Exec(
			sqlTelemetryLabels("telemetry_parm"),
			p.IDs.Packet, p.IDs.Callsign,
			nullIfEmpty(t.Labels.Analog[0]), nullIfEmpty(t.Labels.Analog[1]),
			nullIfEmpty(t.Labels.Analog[2]), nullIfEmpty(t.Labels.Analog[3]),
			nullIfEmpty(t.Labels.Analog[4]),
			nullIfEmpty(t.Labels.Digital[0]), nullIfEmpty(t.Labels.Digital[1]),
			nullIfEmpty(t.Labels.Digital[2]), nullIfEmpty(t.Labels.Digital[3]),
			nullIfEmpty(t.Labels.Digital[4]), nullIfEmpty(t.Labels.Digital[5]),
			nullIfEmpty(t.Labels.Digital[6]), nullIfEmpty(t.Labels.Digital[7]),
			p.Timestamp)
		if err != nil {
			return fmt.Errorf("telemetry_parm: %w", err)
		}
	case "BITS":
		_, err := tx.Exec(
			"INSERT INTO telemetry_bits (packet_id, callsign_id, bitsense, project_title, create_ts)"+
				" VALUES (?, ?, ?, ?, ?)"+
				" ON DUPLICATE KEY UPDATE"+
				" packet_id=VALUES(packet_id), callsign_id=VALUES(callsign_id),"+
				" bitsense=VALUES(bitsense), project_title=VALUES(project_title),"+
				" create_ts=VALUES(create_ts)",
			p.IDs.Packet, p.IDs.Callsign, t.Bitsense, t.Project, p.Timestamp)
		if err != nil {
			return fmt.Errorf("telemetry_bits: %w", err)
		}
	}
	return nil
}

func sqlTelemetryLabels(table string) string {
	return "INSERT INTO " + table + " (packet_id, callsign_id, a_0, a_1, a_2, a_3, a_4," +
		" d_0, d_1, d_2, d_3, d_4, d_5, d_6, d_7, create_ts)" +
		" VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)" +
		" ON DUPLICATE KEY UPDATE" +
		" packet_id=VALUES(packet_id), callsign_id=VALUES(callsign_id)," +
		" a_0=VALUES(a_0), a_1=VALUES(a_1), a_2=VALUES(a_2), a_3=VALUES(a_3), a_4=VALUES(a_4)," +
		" d_0=VALUES(d_0), d_1=VALUES(d_1), d_2=VALUES(d_2), d_3=VALUES(d_3), d_4=VALUES(d_4)," +
		" d_5=VALUES(d_5), d_6=VALUES(d_6), d_7=VALUES(d_7), create_ts=VALUES(create_ts)"
}

// Raw writes the raw-frame tables: every packet lands here first.
func (d *DB) Raw(p *aprs.Packet) error {
	return d.withTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(
			"INSERT INTO last_raw (packet_id, callsign_id, information, create_ts)"+
				" VALUES (?, ?, ?, UNIX_TIMESTAMP())"+
				" ON DUPLICATE KEY UPDATE"+
				" packet_id=VALUES(packet_id), callsign_id=VALUES(callsign_id),"+
				" information=VALUES(information), create_ts=VALUES(create_ts)",
			p.IDs.Packet, p.IDs.Callsign, p.Raw)
		if err != nil {
			return fmt.Errorf("last_raw: %w", err)
		}

		_, err = tx.Exec(
			"INSERT INTO last_raw_meta (packet_id, callsign_id, dest_id, digi0_id, digi1_id,"+
				" digi2_id, digi3_id, digi4_id, digi5_id, digi6_id, digi7_id, create_ts)"+
				" VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, UNIX_TIMESTAMP())"+
				" ON DUPLICATE KEY UPDATE"+
				" packet_id=VALUES(packet_id), callsign_id=VALUES(callsign_id), dest_id=VALUES(dest_id),"+
				" digi0_id=VALUES(digi0_id), digi1_id=VALUES(digi1_id), digi2_id=VALUES(digi2_id),"+
				" digi3_id=VALUES(digi3_id), digi4_id=VALUES(digi4_id), digi5_id=VALUES(digi5_id),"+
				" digi6_id=VALUES(digi6_id), digi7_id=VALUES(digi7_id), create_ts=VALUES(create_ts)",
			p.IDs.Packet, p.IDs.Callsign, p.IDs.Destination,
			p.IDs.Digis[0], p.IDs.Digis[1], p.IDs.Digis[2], p.IDs.Digis[3],
			p.IDs.Digis[4], p.IDs.Digis[5], p.IDs.Digis[6], p.IDs.Digis[7])
		if err != nil {
			return fmt.Errorf("last_raw_meta: %w", err)
		}

		_, err = tx.Exec(
			"INSERT INTO raw (packet_id, callsign_id, information, create_ts) VALUES (?, ?, ?, ?)",
			p.IDs.Packet, p.IDs.Callsign, p.Raw, p.Timestamp)
		if err != nil {
			return fmt.Errorf("raw: %w", err)
		}

		_, err = tx.Exec(
			"INSERT INTO raw_meta (packet_id, callsign_id, dest_id, digi0_id, digi1_id,"+
				" digi2_id, digi3_id, digi4_id, digi5_id, digi6_id, digi7_id, create_ts)"+
				" VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
			p.IDs.Packet, p.IDs.Callsign, p.IDs.Destination,
			p.IDs.Digis[0], p.IDs.Digis[1], p.IDs.Digis[2], p.IDs.Digis[3],
			p.IDs.Digis[4], p.IDs.Digis[5], p.IDs.Digis[6], p.IDs.Digis[7],
			p.Timestamp)
		if err != nil {
			return fmt.Errorf("raw_meta: %w", err)
		}

		return nil
	})
}

// Telemetry writes a telemetry report into last_telemetry and the history.
func (d *DB) Telemetry(p *aprs.Packet) error {
	return d.withTx(func(tx *sql.Tx) error {
		t := p.Telemetry
		_, err := tx.Exec(
			"INSERT INTO last_telemetry (packet_id, callsign_id, sequence, analog_0,"+
				" analog_1, analog_2, analog_3, analog_4, digital, create_ts)"+
				" VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"+
				" ON DUPLICATE KEY UPDATE"+
				" packet_id=VALUES(packet_id), callsign_id=VALUES(callsign_id),"+
				" sequence=VALUES(sequence), analog_0=VALUES(analog_0), analog_1=VALUES(analog_1),"+
				" analog_2=VALUES(analog_2), analog_3=VALUES(analog_3), analog_4=VALUES(analog_4),"+
				" digital=VALUES(digital), create_ts=VALUES(create_ts)",
			p.IDs.Packet, p.IDs.Callsign,
			nv("is:int", t.Sequence),
			nv("is:float", t.Analog[0]), nv("is:float", t.Analog[1]), nv("is:float", t.Analog[2]),
			nv("is:float", t.Analog[3]), nv("is:float", t.Analog[4]),
			nv("maxlen:8", t.Digital), p.Timestamp)
		if err != nil {
			return fmt.Errorf("last_telemetry: %w", err)
		}

		_, err = tx.Exec(
			"INSERT INTO telemetry (packet_id, callsign_id, sequence, analog_0, analog_1,"+
				" analog_2, analog_3, analog_4, digital, create_ts)"+
				" VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
			p.IDs.Packet, p.IDs.Callsign,
			nv("is:int", t.Sequence),
			nv("is:float", t.Analog[0]), nv("is:float", t.Analog[1]), nv("is:float", t.Analog[2]),
			nv("is:float", t.Analog[3]), nv("is:float", t.Analog[4]),
			nv("maxlen:8", t.Digital), p.Timestamp)
		if err != nil {
			return fmt.Errorf("telemetry: %w", err)
		}

		return nil
	})
}

func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
