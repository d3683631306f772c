package aprs

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse decodes one raw TNC2-format APRS line ("SRC>DEST,PATH:body") into a
// Packet. timestamp is the arrival time in unix seconds. Lines that cannot
// be decoded return an error; the caller rejects the packet and feeds the
// error to the errors topic.
func Parse(raw string, timestamp int64) (*Packet, error) {
	header, body, ok := strings.Cut(raw, ":")
	if !ok {
		return nil, fmt.Errorf("no information field separator")
	}

	source, rest, ok := strings.Cut(header, ">")
	if !ok {
		return nil, fmt.Errorf("no destination separator")
	}
	if !validCallsign(source) {
		return nil, fmt.Errorf("invalid source callsign %q", source)
	}

	hops := strings.Split(rest, ",")
	dest := hops[0]
	if dest == "" {
		return nil, fmt.Errorf("empty destination")
	}

	p := &Packet{
		Raw:       raw,
		Source:    strings.ToUpper(source),
		Body:      body,
		DestName:  strings.ToUpper(strings.TrimSuffix(dest, "*")),
		Timestamp: timestamp,
		Type:      TypeUnknown,
	}
	for _, hop := range hops[1:] {
		hop = strings.ToUpper(strings.TrimSuffix(hop, "*"))
		if hop == "" || len(p.Path) == PathSlots {
			continue
		}
		p.Path = append(p.Path, hop)
	}

	if err := p.parseBody(body); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Packet) parseBody(body string) error {
	if body == "" {
		return fmt.Errorf("empty information field")
	}

	switch body[0] {
	case '!', '=':
		p.Type = TypePosition
		return p.parsePosition(body[1:])
	case '/', '@':
		if len(body) < 8 {
			return fmt.Errorf("truncated timestamped position")
		}
		p.Type = TypePosition
		p.Position.TimeOfFix = body[1:8]
		return p.parsePosition(body[8:])
	case ';':
		return p.parseObject(body[1:])
	case ':':
		return p.parseMessage(body[1:])
	case '>':
		p.Type = TypeStatus
		p.Status = body[1:]
	case '<':
		p.Type = TypeCapabilities
		p.Status = body[1:]
	case '_':
		p.Type = TypeWeather
		p.parseWeather(body[1:])
	case 'T':
		if strings.HasPrefix(body, "T#") {
			p.Type = TypeTelemetry
			return p.parseTelemetry(body[2:])
		}
	case '#', '*':
		p.Type = TypePeetLogging
	case '{':
		p.Type = TypeExperimental
	default:
		if p.DestName == "BEACON" {
			p.Type = TypeBeacon
		}
	}
	return nil
}

// parsePosition decodes an uncompressed lat/symbol/lng/symbol report plus
// its data extension (course/speed or PHG) and trailing comment.
func (p *Packet) parsePosition(s string) error {
	if len(s) < 19 {
		return fmt.Errorf("truncated position report")
	}

	lat, err := parseLat(s[0:8])
	if err != nil {
		return err
	}
	p.Symbol.Table = s[8:9]
	lng, err := parseLng(s[9:18])
	if err != nil {
		return err
	}
	p.Symbol.Code = s[18:19]
	if t := p.Symbol.Table; t != "/" && t != "\\" {
		// Alternate tables use the table byte as an overlay character.
		p.Symbol.Overlay = t
	}

	p.Position.Latitude = lat
	p.Position.Longitude = lng
	p.Position.Maidenhead = Maidenhead(lat, lng)

	comment := s[19:]

	// The weather symbol's leading ddd/sss is wind direction/speed, not a
	// course/speed extension.
	if p.Symbol.Code == "_" {
		p.Type = TypePosition
		p.parseWeather(comment)
		return nil
	}

	switch {
	case len(comment) >= 7 && isDigits(comment[0:3]) && comment[3] == '/' && isDigits(comment[4:7]):
		p.Position.Course = comment[0:3]
		p.Position.Speed = comment[4:7]
		comment = comment[7:]
	case len(comment) >= 7 && strings.HasPrefix(comment, "PHG") && isDigits(comment[3:7]):
		p.parsePHG(comment[3:7])
		comment = comment[7:]
	}

	// Altitude rides in the comment as "/A=nnnnnn" (feet).
	if i := strings.Index(comment, "/A="); i >= 0 && len(comment) >= i+9 && isDigits(comment[i+3:i+9]) {
		p.Position.Altitude = strings.TrimLeft(comment[i+3:i+9], "0")
		if p.Position.Altitude == "" {
			p.Position.Altitude = "0"
		}
	}

	p.Comment = strings.TrimSpace(comment)
	p.Status = p.Comment
	return nil
}

func (p *Packet) parseObject(s string) error {
	if len(s) < 18 {
		return fmt.Errorf("truncated object report")
	}
	p.Object.Name = strings.TrimSpace(s[0:9])
	if p.Object.Name == "" {
		return fmt.Errorf("empty object name")
	}
	p.Object.Type = "O"
	// s[9] is the live/killed flag; s[10:17] the timestamp.
	p.Type = TypePosition
	return p.parsePosition(s[17:])
}

func (p *Packet) parseMessage(s string) error {
	if len(s) < 10 || s[9] != ':' {
		return fmt.Errorf("malformed message addressee")
	}
	p.Type = TypeMessage
	p.Message.Target = strings.ToUpper(strings.TrimSpace(s[0:9]))
	text := s[10:]

	if rest, ok := strings.CutPrefix(text, "ack"); ok && rest != "" && !strings.Contains(rest, " ") {
		p.Message.Ack = rest
		p.Message.AckOnly = rest
		p.Message.Text = text
		return nil
	}
	if rest, ok := strings.CutPrefix(text, "rej"); ok && rest != "" && !strings.Contains(rest, " ") {
		p.Message.Reply = rest
		p.Message.Text = text
		return nil
	}

	if i := strings.LastIndex(text, "{"); i >= 0 {
		p.Message.ID = text[i+1:]
		text = text[:i]
	}
	p.Message.Text = text

	p.parseTelemetryControl(text)
	return nil
}

// parseTelemetryControl recognizes EQNS/UNIT/PARM/BITS definition messages
// carried in the message text.
func (p *Packet) parseTelemetryControl(text string) {
	kind, rest, ok := strings.Cut(text, ".")
	if !ok {
		return
	}
	fields := strings.Split(rest, ",")

	switch kind {
	case "EQNS":
		p.Telemetry.MessageType = kind
		for i := 0; i < 5; i++ {
			if 3*i < len(fields) {
				p.Telemetry.EqnsA[i] = fields[3*i]
			}
			if 3*i+1 < len(fields) {
				p.Telemetry.EqnsB[i] = fields[3*i+1]
			}
			if 3*i+2 < len(fields) {
				p.Telemetry.EqnsC[i] = fields[3*i+2]
			}
		}
	case "UNIT", "PARM":
		p.Telemetry.MessageType = kind
		for i := 0; i < 5 && i < len(fields); i++ {
			p.Telemetry.Labels.Analog[i] = fields[i]
		}
		for i := 0; i < 8 && 5+i < len(fields); i++ {
			p.Telemetry.Labels.Digital[i] = fields[5+i]
		}
	case "BITS":
		p.Telemetry.MessageType = kind
		if len(fields) > 0 {
			p.Telemetry.Bitsense = fields[0]
		}
		if len(fields) > 1 {
			p.Telemetry.Project = strings.Join(fields[1:], ",")
		}
	}
}

func (p *Packet) parseTelemetry(s string) error {
	fields := strings.Split(s, ",")
	if len(fields) < 2 {
		return fmt.Errorf("truncated telemetry report")
	}
	p.Telemetry.Present = true
	p.Telemetry.Sequence = strings.TrimPrefix(fields[0], "#")
	for i := 0; i < 5 && i+1 < len(fields); i++ {
		p.Telemetry.Analog[i] = fields[i+1]
	}
	if len(fields) > 6 {
		p.Telemetry.Digital = fields[6]
	}
	return nil
}

// parseWeather decodes the positionless/positioned weather chain
// (ddd/sss then g..t..r..p..P..h..b..L..).
func (p *Packet) parseWeather(s string) {
	p.Weather.Present = true

	if len(s) >= 7 && isDigits(s[0:3]) && s[3] == '/' && isDigits(s[4:7]) {
		p.Weather.WindDirection = s[0:3]
		p.Weather.WindSpeed = s[4:7]
		s = s[7:]
	}

	for len(s) > 0 {
		tag := s[0]
		width := 3
		switch tag {
		case 'b':
			width = 5
		case 'h':
			width = 2
		case 'g', 't', 'r', 'p', 'P', 'L', 'l':
		default:
			return
		}
		if len(s) < 1+width {
			return
		}
		val := s[1 : 1+width]
		s = s[1+width:]
		if !isDigits(strings.TrimPrefix(val, "-")) {
			continue
		}

		switch tag {
		case 'g':
			p.Weather.WindGust = val
		case 't':
			p.Weather.Temperature = fahrenheitToCelsius(val)
		case 'r':
			p.Weather.RainHour = hundredthsInches(val)
		case 'p':
			p.Weather.Rain24Hour = hundredthsInches(val)
		case 'P':
			p.Weather.RainMidnight = hundredthsInches(val)
		case 'h':
			p.Weather.Humidity = val
		case 'b':
			p.Weather.Pressure = tenthsMillibars(val)
		case 'L', 'l':
			p.Weather.Luminosity = val
		}
	}
}

func (p *Packet) parsePHG(digits string) {
	p.PHG.Present = true
	pw := int(digits[0] - '0')
	h := int(digits[1] - '0')
	g := int(digits[2] - '0')
	d := int(digits[3] - '0')
	p.PHG.Power = strconv.Itoa(pw * pw)
	p.PHG.Haat = strconv.Itoa(10 * (1 << h))
	p.PHG.Gain = strconv.Itoa(g)
	p.PHG.Directivity = strconv.Itoa(d * 45)
}

// parseLat decodes "DDMM.mmN" into decimal degrees.
func parseLat(s string) (float64, error) {
	if len(s) != 8 || (s[7] != 'N' && s[7] != 'S') {
		return 0, fmt.Errorf("invalid latitude %q", s)
	}
	deg, err1 := strconv.ParseFloat(s[0:2], 64)
	min, err2 := strconv.ParseFloat(s[2:7], 64)
	if err1 != nil || err2 != nil {
		return 0, fmt.Errorf("invalid latitude %q", s)
	}
	v := deg + min/60
	if s[7] == 'S' {
		v = -v
	}
	if v < -90 || v > 90 {
		return 0, fmt.Errorf("latitude out of range %q", s)
	}
	return v, nil
}

// parseLng decodes "DDDMM.mmW" into decimal degrees.
func parseLng(s string) (float64, error) {
	if len(s) != 9 || (s[8] != 'E' && s[8] != 'W') {
		return 0, fmt.Errorf("invalid longitude %q", s)
	}
	deg, err1 := strconv.ParseFloat(s[0:3], 64)
	min, err2 := strconv.ParseFloat(s[3:8], 64)
	if err1 != nil || err2 != nil {
		return 0, fmt.Errorf("invalid longitude %q", s)
	}
	v := deg + min/60
	if s[8] == 'W' {
		v = -v
	}
	if v < -180 || v > 180 {
		return 0, fmt.Errorf("longitude out of range %q", s)
	}
	return v, nil
}

func validCallsign(s string) bool {
	if s == "" || len(s) > 9 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') ||
			(c >= '0' && c <= '9') || c == '-' {
			continue
		}
		return false
	}
	return true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func fahrenheitToCelsius(v string) string {
	f, err := strconv.Atoi(v)
	if err != nil {
		return ""
	}
	return strconv.Itoa((f - 32) * 5 / 9)
}

func hundredthsInches(v string) string {
	n, err := strconv.Atoi(v)
	if err != nil {
		return ""
	}
	return strconv.FormatFloat(float64(n)/100, 'f', 2, 64)
}

func tenthsMillibars(v string) string {
	n, err := strconv.Atoi(v)
	if err != nil {
		return ""
	}
	return strconv.FormatFloat(float64(n)/10, 'f', 1, 64)
}
