package aprs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePosition(t *testing.T) {
	p, err := Parse("N0CALL>APRS,TCPIP*:=3407.00N/11812.00W>Test", 1700000000)
	require.NoError(t, err)

	assert.Equal(t, TypePosition, p.Type)
	assert.Equal(t, "N0CALL", p.Source)
	assert.Equal(t, "APRS", p.DestName)
	assert.Equal(t, []string{"TCPIP"}, p.Path)
	assert.InDelta(t, 34.116667, p.Position.Latitude, 0.0001)
	assert.InDelta(t, -118.2, p.Position.Longitude, 0.0001)
	assert.Equal(t, "/", p.Symbol.Table)
	assert.Equal(t, ">", p.Symbol.Code)
	assert.Equal(t, "DM04", p.Position.Maidenhead)
	assert.Equal(t, "Test", p.Comment)
	assert.Equal(t, int64(1700000000), p.Timestamp)
	assert.False(t, p.IsObject())
}

func TestParsePositionCourseSpeed(t *testing.T) {
	p, err := Parse("W1AW>APRS:=4108.00N/07232.00W>088/036mobile", 1700000000)
	require.NoError(t, err)

	assert.Equal(t, "088", p.Position.Course)
	assert.Equal(t, "036", p.Position.Speed)
	assert.Equal(t, "mobile", p.Comment)
}

func TestParsePositionPHG(t *testing.T) {
	p, err := Parse("K6DBG-1>APRS:!3407.00N/11812.00W#PHG5132digi site", 1700000000)
	require.NoError(t, err)

	require.True(t, p.PHG.Present)
	assert.Equal(t, "25", p.PHG.Power)
	assert.Equal(t, "20", p.PHG.Haat)
	assert.Equal(t, "3", p.PHG.Gain)
	assert.Equal(t, "90", p.PHG.Directivity)
	assert.Equal(t, "digi site", p.Comment)
}

func TestParsePositionAltitude(t *testing.T) {
	p, err := Parse("N0CALL>APRS:=3407.00N/11812.00W>/A=001234 climbing", 1700000000)
	require.NoError(t, err)
	assert.Equal(t, "1234", p.Position.Altitude)
}

func TestParseTimestampedPosition(t *testing.T) {
	p, err := Parse("N0CALL>APRS:@092345z3407.00N/11812.00W>moving", 1700000000)
	require.NoError(t, err)
	assert.Equal(t, TypePosition, p.Type)
	assert.Equal(t, "092345z", p.Position.TimeOfFix)
	assert.InDelta(t, 34.116667, p.Position.Latitude, 0.0001)
}

func TestParseObject(t *testing.T) {
	p, err := Parse("N0CALL>APRS:;LEADER   *092345z4903.50N/07201.75W>", 1700000000)
	require.NoError(t, err)

	assert.Equal(t, TypePosition, p.Type)
	assert.True(t, p.IsObject())
	assert.Equal(t, "LEADER", p.Object.Name)
	assert.Equal(t, "O", p.Object.Type)
	assert.InDelta(t, 49.058333, p.Position.Latitude, 0.0001)
}

func TestParseMessage(t *testing.T) {
	p, err := Parse("N0CALL>APRS::W1AW     :hello there{42", 1700000000)
	require.NoError(t, err)

	assert.Equal(t, TypeMessage, p.Type)
	assert.Equal(t, "W1AW", p.Message.Target)
	assert.Equal(t, "hello there", p.Message.Text)
	assert.Equal(t, "42", p.Message.ID)
}

func TestParseMessageAck(t *testing.T) {
	p, err := Parse("N0CALL>APRS::W1AW     :ack42", 1700000000)
	require.NoError(t, err)
	assert.Equal(t, "42", p.Message.Ack)
	assert.Equal(t, "42", p.Message.AckOnly)
}

func TestParseTelemetryControlMessages(t *testing.T) {
	t.Run("EQNS", func(t *testing.T) {
		p, err := Parse("N0CALL>APRS::N0CALL   :EQNS.0,5.2,0,0,.53,-32,3,4.39,49,-32,3,18,1,2,3", 1700000000)
		require.NoError(t, err)
		assert.Equal(t, "EQNS", p.Telemetry.MessageType)
		assert.Equal(t, "0", p.Telemetry.EqnsA[0])
		assert.Equal(t, "5.2", p.Telemetry.EqnsB[0])
		assert.Equal(t, ".53", p.Telemetry.EqnsB[1])
		assert.Equal(t, "-32", p.Telemetry.EqnsC[1])
		assert.Equal(t, "3", p.Telemetry.EqnsA[2])
	})

	t.Run("BITS", func(t *testing.T) {
		p, err := Parse("N0CALL>APRS::N0CALL   :BITS.10110000,My Big Balloon", 1700000000)
		require.NoError(t, err)
		assert.Equal(t, "BITS", p.Telemetry.MessageType)
		assert.Equal(t, "10110000", p.Telemetry.Bitsense)
		assert.Equal(t, "My Big Balloon", p.Telemetry.Project)
	})

	t.Run("PARM", func(t *testing.T) {
		p, err := Parse("N0CALL>APRS::N0CALL   :PARM.Battery,Btemp,ATemp,Pres,Alt,Camera,Chute,Sun,10m,ATV", 1700000000)
		require.NoError(t, err)
		assert.Equal(t, "PARM", p.Telemetry.MessageType)
		assert.Equal(t, "Battery", p.Telemetry.Labels.Analog[0])
		assert.Equal(t, "Camera", p.Telemetry.Labels.Digital[0])
	})
}

func TestParseTelemetry(t *testing.T) {
	p, err := Parse("N0CALL>APRS:T#005,199,000,255,073,123,01101001", 1700000000)
	require.NoError(t, err)

	assert.Equal(t, TypeTelemetry, p.Type)
	assert.Equal(t, "005", p.Telemetry.Sequence)
	assert.Equal(t, "199", p.Telemetry.Analog[0])
	assert.Equal(t, "123", p.Telemetry.Analog[4])
	assert.Equal(t, "01101001", p.Telemetry.Digital)
}

func TestParseStatus(t *testing.T) {
	p, err := Parse("N0CALL>APRS:>Net Control Center", 1700000000)
	require.NoError(t, err)
	assert.Equal(t, TypeStatus, p.Type)
	assert.Equal(t, "Net Control Center", p.Status)
}

func TestParseWeather(t *testing.T) {
	p, err := Parse("N0CALL>APRS:=3407.00N/11812.00W_220/004g005t077r000p000P000h50b09900", 1700000000)
	require.NoError(t, err)

	require.True(t, p.Weather.Present)
	assert.Equal(t, "220", p.Weather.WindDirection)
	assert.Equal(t, "004", p.Weather.WindSpeed)
	assert.Empty(t, p.Position.Course, "wind pair must not land in course/speed")
	assert.Empty(t, p.Position.Speed)
	assert.Equal(t, "005", p.Weather.WindGust)
	assert.Equal(t, "25", p.Weather.Temperature) // 77F
	assert.Equal(t, "50", p.Weather.Humidity)
	assert.Equal(t, "990.0", p.Weather.Pressure)
}

func TestParsePathSlots(t *testing.T) {
	p, err := Parse("N0CALL>APRS,WIDE1-1,WIDE2-1*,qAR,IGATE:>hi", 1700000000)
	require.NoError(t, err)

	assert.Equal(t, []string{"WIDE1-1", "WIDE2-1", "QAR", "IGATE"}, p.Path)
	assert.Equal(t, "WIDE1-1", p.Digi(1))
	assert.Equal(t, "", p.Digi(5))
	assert.Equal(t, "", p.Digi(0))
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"no body separator", "N0CALL>APRS,TCPIP*"},
		{"no destination", "N0CALL:>hi"},
		{"bad source", "N0 CALL>APRS:>hi"},
		{"empty body", "N0CALL>APRS:"},
		{"truncated position", "N0CALL>APRS:=3407.00N"},
		{"garbage latitude", "N0CALL>APRS:=34zz.00N/11812.00W>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.raw, 1700000000)
			assert.Error(t, err)
		})
	}
}

func TestParseUnknownStaysUnknown(t *testing.T) {
	p, err := Parse("N0CALL>APRS:`(_fn\"Oj/", 1700000000)
	require.NoError(t, err)
	assert.Equal(t, TypeUnknown, p.Type)
}
