// Package aprs defines the typed APRS packet record produced by the frame
// parser and consumed by the ingest pipeline, along with geographic helpers
// for distance, ground speed, and compass heading buckets.
package aprs

// PacketType classifies a decoded APRS packet.
type PacketType string

const (
	TypePosition     PacketType = "POSITION"
	TypeMessage      PacketType = "MESSAGE"
	TypeTelemetry    PacketType = "TELEMETRY"
	TypeStatus       PacketType = "STATUS"
	TypeCapabilities PacketType = "CAPABILITIES"
	TypePeetLogging  PacketType = "PEETLOGGING"
	TypeWeather      PacketType = "WEATHER"
	TypeDX           PacketType = "DX"
	TypeExperimental PacketType = "EXPERIMENTAL"
	TypeBeacon       PacketType = "BEACON"
	TypeUnknown      PacketType = "UNKNOWN"
)

// PathSlots is the number of digipeater slots carried per packet.
const PathSlots = 8

// Position carries the position-report fields. Numeric fields that arrive as
// free text stay strings; they are validated at SQL bind time.
type Position struct {
	Latitude   float64
	Longitude  float64
	Maidenhead string
	Course     string // degrees, text as transmitted
	Speed      string
	Altitude   string
	Range      string
	TimeOfFix  string // embedded timestamp, unix seconds as text
	TypeID     string // position encoding variant id
	MicEMbits  string

	// Posdup is set by the position-error check when the fix is redundant
	// with a very recent one from the same source.
	Posdup bool
}

// Symbol identifies the map symbol of a station.
type Symbol struct {
	Table   string
	Code    string
	Overlay string
}

// Object names a placed APRS object distinct from the transmitting station.
type Object struct {
	Name string
	Type string // "O" object, "I" item, "" station
}

// Message carries an addressed APRS message.
type Message struct {
	Target string
	Text   string
	ID     string
	Ack    string
	Reply  string
	// AckOnly is set when the whole message text is a bare "ackNN"
	// acknowledgement carrying no content of its own.
	AckOnly string
}

// Telemetry carries a telemetry report or a telemetry control message
// (EQNS/UNIT/PARM/BITS) transmitted as an addressed message.
type Telemetry struct {
	Present     bool
	Sequence    string
	Analog      [5]string
	Digital     string
	MessageType string // EQNS, UNIT, PARM, BITS for control messages
	EqnsA       [5]string
	EqnsB       [5]string
	EqnsC       [5]string
	Labels      TelemetryLabels
	Bitsense    string
	Project     string
}

// TelemetryLabels holds per-channel names or units from PARM/UNIT messages.
type TelemetryLabels struct {
	Analog  [5]string
	Digital [8]string
}

// Weather carries the weather-report fields of a position packet.
type Weather struct {
	Present       bool
	WindDirection string
	WindSpeed     string
	WindGust      string
	Temperature   string // celsius
	RainHour      string
	RainMidnight  string
	Rain24Hour    string
	Humidity      string
	Pressure      string
	Luminosity    string
}

// PHG is a power-height-gain report.
type PHG struct {
	Present     bool
	Power       string
	Haat        string
	Gain        string
	Range       string
	Directivity string
	Beacon      string
}

// DFS is a direction-finding signal report.
type DFS struct {
	Present     bool
	Power       string
	Haat        string
	Gain        string
	Range       string
	Directivity string
}

// DFR is a direction-finding report.
type DFR struct {
	Present bool
	Bearing string
	Hits    string
	Range   string
	Quality string
}

// AFRS is an audio-frequency-shift frequency report.
type AFRS struct {
	Present   string // frequency text; empty means absent
	Range     string
	RangeEast string
	Tone      string
	Type      string
	Receive   string
	Alternate string
}

// ResolvedIDs holds the database row ids assigned during preprocess. IDs are
// decimal strings (or a UUID for PacketID) so they flow into SQL binds and
// cache values unchanged. Digi slots not traversed carry the literal "0".
type ResolvedIDs struct {
	Callsign    string
	Destination string
	Packet      string
	Icon        string
	ObjectName  string
	Maidenhead  string
	Target      string // MESSAGE target callsign id
	Digis       [PathSlots]string
}

// Icon is the resolved map-icon descriptor. Direction "Y" means the icon
// rotates with course and Image is rewritten to a compass variant.
type Icon struct {
	ID        string
	Path      string
	Image     string
	Icon      string
	Direction string
}

// Packet is one decoded APRS frame line.
type Packet struct {
	Raw       string // full original line, without the arrival prefix
	Source    string
	Body      string // information field (after the first ':')
	Path      []string
	DestName  string // AX.25 destination (path slot 0)
	Timestamp int64  // arrival time, unix seconds
	Type      PacketType
	Status    string // status text; for positions the trailing comment
	Comment   string // position comment, hashed by the position-error check

	Position  Position
	Symbol    Symbol
	Object    Object
	Message   Message
	Telemetry Telemetry
	Weather   Weather
	PHG       PHG
	DFR       DFR
	DFS       DFS
	AFRS      AFRS

	IDs  ResolvedIDs
	Icon Icon
}

// IsObject reports whether the packet describes a placed object or item
// rather than the transmitting station itself.
func (p *Packet) IsObject() bool {
	return p.Object.Name != ""
}

// HasPosition reports whether the packet carries a usable fix.
func (p *Packet) HasPosition() bool {
	return p.Type == TypePosition
}

// Digi returns the digipeater name at slot n (1-based), or "" when the slot
// is beyond the transmitted path.
func (p *Packet) Digi(n int) string {
	if n < 1 || n > len(p.Path) {
		return ""
	}
	return p.Path[n-1]
}
