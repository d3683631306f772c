package worker

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/openaprs/aprsinject/internal/logger"
	"github.com/openaprs/aprsinject/pkg/aprs"
	"github.com/openaprs/aprsinject/pkg/broker"
	"github.com/openaprs/aprsinject/pkg/kv"
	"github.com/openaprs/aprsinject/pkg/store"
)

// duplicateWindow is how recently an identical packet must have been seen to
// reject the new one, in seconds.
const duplicateWindow = 30

// speedLimit is the implied ground speed in mph beyond which a fix is a GPS
// glitch.
const speedLimit = 500

// handle walks one result through the state machine. Reject checks run only
// on the first attempt; a deferred retry resumes at preprocess.
func (w *Worker) handle(r *Result) {
	if r.Packet == nil {
		p, err := aprs.Parse(r.PacketText, r.ArrivedAt)
		if err != nil {
			r.Status = StatusRejected
			r.Error = err.Error()
			w.stats.RejectInvparse++
			if w.metrics != nil {
				w.metrics.RecordReject("invparse")
			}
			w.postError(broker.TopicErrors, r)
			w.glyph("x")
			return
		}
		r.Packet = p
		r.Status = StatusOk
	}

	if r.Retries == 0 {
		if w.checkForDuplicates(r) {
			w.stats.RejectDuplicate++
			if w.metrics != nil {
				w.metrics.RecordReject("duplicate")
			}
			w.postError(broker.TopicDuplicates, r)
			w.glyph("=")
			return
		}
		if w.checkForPositionErrors(r) {
			w.postError(broker.TopicRejects, r)
			w.glyph("p")
			return
		}
	}

	r.Status = StatusOk
	if !w.preprocess(r) {
		r.Status = StatusDeferred
		return
	}
	if !w.inject(r) {
		r.Status = StatusDeferred
		return
	}

	r.Status = StatusOk
	w.process(r)
}

// checkForDuplicates rejects a packet whose source and body were seen within
// the duplicate window. Non-duplicates refresh the record.
func (w *Worker) checkForDuplicates(r *Result) bool {
	p := r.Packet
	hash := store.DuplicateHash(p.Source, p.Body)
	now := w.now().Unix()

	if rec, ok := w.store.Duplicate(hash); ok && rec.Has("ct") {
		ct, err := strconv.ParseInt(rec.Get("ct"), 10, 64)
		if err == nil && now-ct < duplicateWindow {
			r.Status = StatusDuplicate
			r.Error = "duplicate packet"
			return true
		}
	}

	rec := kv.New()
	rec.Set("sr", p.Source)
	rec.Set("ct", strconv.FormatInt(p.Timestamp, 10))
	if p.HasPosition() {
		rec.Set("la", formatCoord(p.Position.Latitude))
		rec.Set("ln", formatCoord(p.Position.Longitude))
	}
	w.store.SetDuplicate(hash, rec)
	return false
}

// checkForPositionErrors applies the impossible-movement rules against the
// last stored fix from the same source. The comment-hash guard keeps a digi
// that rebroadcasts distinct frames from being penalized.
func (w *Worker) checkForPositionErrors(r *Result) bool {
	p := r.Packet
	if p.Type != aprs.TypePosition || p.IsObject() {
		return false
	}

	cm := store.CommentHash(p.Comment)

	if rec, ok := w.store.LastFix(p.Source); ok &&
		rec.Has("la") && rec.Has("ln") && rec.Has("ct") && rec.Has("cm") {

		la, err1 := strconv.ParseFloat(rec.Get("la"), 64)
		ln, err2 := strconv.ParseFloat(rec.Get("ln"), 64)
		ct, err3 := strconv.ParseInt(rec.Get("ct"), 10, 64)
		if err1 == nil && err2 == nil && err3 == nil {
			dist := aprs.Distance(p.Position.Latitude, p.Position.Longitude, la, ln)
			diff := p.Timestamp - ct
			if diff < 0 {
				diff = -diff
			}

			if diff < 1 || dist < 0.1 {
				p.Position.Posdup = true
			}

			speed := aprs.Speed(dist, diff)
			switch {
			case diff < 5 && cm == rec.Get("cm"):
				r.Status = StatusPositError
				r.Error = fmt.Sprintf("position: tx < 5 seconds (%d)", diff)
				w.stats.RejectTosoon++
				if w.metrics != nil {
					w.metrics.RecordReject("tosoon")
				}
			case speed > speedLimit && cm == rec.Get("cm"):
				r.Status = StatusPositError
				r.Error = "position: gps glitch speed > 500"
				w.stats.RejectTofast++
				if w.metrics != nil {
					w.metrics.RecordReject("tofast")
				}
			}
		}
	}

	if r.Status == StatusOk {
		rec := kv.New()
		rec.Set("sr", p.Source)
		rec.Set("la", formatCoord(p.Position.Latitude))
		rec.Set("ln", formatCoord(p.Position.Longitude))
		rec.Set("ct", strconv.FormatInt(p.Timestamp, 10))
		rec.Set("cm", cm)
		w.store.SetLastFix(p.Source, rec)
	}

	return r.Status == StatusPositError
}

// preprocess resolves every entity id the inject transactions will bind.
// Already-resolved ids survive a deferred retry untouched.
func (w *Worker) preprocess(r *Result) bool {
	p := r.Packet

	if p.IDs.Callsign == "" {
		id, ok := w.store.CallsignID(p.Source)
		if !ok {
			r.Error = "could not get callsign id"
			return false
		}
		p.IDs.Callsign = id
	}

	if p.Symbol.Table != "" && p.Symbol.Code != "" && p.IDs.Icon == "" {
		course, _ := strconv.Atoi(p.Position.Course)
		icon, ok := w.store.IconBySymbol(p.Symbol.Table, p.Symbol.Code, course)
		if !ok {
			r.Error = "could not get icon id"
			return false
		}
		p.Icon = icon
		p.IDs.Icon = icon.ID
	}

	if p.IDs.Packet == "" {
		id, ok := w.store.PacketID(p.IDs.Callsign)
		if !ok {
			r.Error = "could not get packet id"
			return false
		}
		p.IDs.Packet = id

		if !w.store.SetPath(p.IDs.Packet, pathText(p)) {
			r.Error = "could not set path"
			return false
		}
	}

	if p.IDs.Destination == "" {
		id, ok := w.store.DestID(p.DestName)
		if !ok {
			r.Error = "could not get destination id"
			return false
		}
		p.IDs.Destination = id
	}

	if p.IsObject() && p.IDs.ObjectName == "" {
		id, ok := w.store.NameID(p.Object.Name)
		if !ok {
			r.Error = "could not get object name id"
			return false
		}
		p.IDs.ObjectName = id
	}

	if p.Type == aprs.TypePosition {
		if !w.store.SetStatus(p.IDs.Packet, p.Status) {
			r.Error = "could not set status"
			return false
		}
		if p.Position.Maidenhead != "" && p.IDs.Maidenhead == "" {
			id, ok := w.store.MaidenheadID(p.Position.Maidenhead)
			if !ok {
				r.Error = "could not get maidenhead id"
				return false
			}
			p.IDs.Maidenhead = id
		}
	}

	if p.Type == aprs.TypeMessage && p.IDs.Target == "" {
		id, ok := w.store.CallsignID(p.Message.Target)
		if !ok {
			r.Error = "could not get message target id"
			return false
		}
		p.IDs.Target = id
	}

	for i := 1; i <= aprs.PathSlots; i++ {
		if p.IDs.Digis[i-1] != "" {
			continue
		}
		name := p.Digi(i)
		if name == "" {
			p.IDs.Digis[i-1] = "0"
			continue
		}
		id, ok := w.store.DigiID(name)
		if !ok {
			r.Error = "could not get digi id"
			return false
		}
		p.IDs.Digis[i-1] = id
	}

	return true
}

// pathText is the transmitted path as it appeared on the wire, asterisks
// included.
func pathText(p *aprs.Packet) string {
	header, _, found := strings.Cut(p.Raw, ":")
	if !found {
		return p.DestName
	}
	_, path, found := strings.Cut(header, ">")
	if !found {
		return p.DestName
	}
	return path
}

// inject writes the raw tables first, then the type-specific transaction.
func (w *Worker) inject(r *Result) bool {
	p := r.Packet

	if !w.store.InjectRaw(p) {
		r.Error = "could not inject raw"
		return false
	}

	switch p.Type {
	case aprs.TypePosition:
		if !w.store.InjectPosition(p) {
			r.Error = "could not inject position"
			return false
		}
		if p.Position.Maidenhead != "" {
			w.locators[p.Position.Maidenhead] = struct{}{}
		}
	case aprs.TypeMessage:
		if !w.store.InjectMessage(p) {
			r.Error = "could not inject message"
			return false
		}
	case aprs.TypeTelemetry:
		if !w.store.InjectTelemetry(p) {
			r.Error = "could not inject telemetry"
			return false
		}
	}

	return true
}

// process finishes a successfully injected packet: counters, the cache-only
// position records, and the message notification.
func (w *Worker) process(r *Result) {
	p := r.Packet
	w.stats.Packets++
	w.stats.Age += w.now().Unix() - p.Timestamp

	switch p.Type {
	case aprs.TypePosition:
		w.stats.Position++
		if p.Position.Posdup {
			w.glyph(",")
		} else {
			w.glyph(".")
		}
		w.recordPositionCaches(p)
	case aprs.TypeMessage:
		w.stats.Message++
		w.glyph("m")
		w.notifyMessage(p)
	case aprs.TypeTelemetry:
		w.stats.Telemetry++
		w.glyph("t")
	case aprs.TypeStatus:
		w.stats.Status++
		w.glyph("s")
	case aprs.TypeWeather:
		w.stats.Weather++
		w.glyph("w")
	case aprs.TypeBeacon:
		w.stats.Beacon++
		w.glyph("b")
	default:
		w.stats.Other++
		w.glyph("?")
	}

	if w.metrics != nil {
		w.metrics.RecordPacket(strings.ToLower(string(p.Type)))
	}
}

// recordPositionCaches maintains the per-callsign track and the per-grid
// roster for an accepted station fix.
func (w *Worker) recordPositionCaches(p *aprs.Packet) {
	if p.IsObject() || p.Position.Posdup {
		return
	}

	w.store.AddPositionTrack(p.IDs.Callsign, p.Position.Latitude, p.Position.Longitude, p.Timestamp)

	if p.Position.Maidenhead != "" {
		w.store.AddLastPosition(p.Position.Maidenhead, rosterRecord(p))
	}
}

// rosterRecord is the per-grid roster line map readers consume: row ids,
// station, path, movement, symbol, and icon alongside the fix itself.
func rosterRecord(p *aprs.Packet) *kv.Record {
	rec := kv.New()
	rec.Set("id", p.IDs.Packet)
	rec.Set("cid", p.IDs.Callsign)
	nid := p.IDs.ObjectName
	if nid == "" {
		nid = "0"
	}
	rec.Set("nid", nid)
	rec.Set("sr", p.Source)
	rec.Set("pa", pathText(p))
	if p.Position.Course != "" {
		rec.Set("cr", p.Position.Course)
	}
	if p.Position.Speed != "" {
		rec.Set("sp", p.Position.Speed)
	}
	if p.Position.Altitude != "" {
		rec.Set("at", p.Position.Altitude)
	}
	rec.Set("st", p.Symbol.Table)
	rec.Set("sc", p.Symbol.Code)
	if p.Symbol.Overlay != "" {
		rec.Set("ovr", p.Symbol.Overlay)
	}
	if p.PHG.Present {
		rec.Set("phgd", p.PHG.Directivity)
	}
	if p.Icon.Icon != "" {
		rec.Set("ic", p.Icon.Icon)
	}
	rec.Set("la", formatCoord(p.Position.Latitude))
	rec.Set("ln", formatCoord(p.Position.Longitude))
	rec.Set("ct", strconv.FormatInt(p.Timestamp, 10))
	rec.Set("cm", p.Comment)
	return rec
}

// notifyMessage publishes the compact envelope downstream consumers watch
// for newly injected APRS messages.
func (w *Worker) notifyMessage(p *aprs.Packet) {
	rec := kv.New()
	rec.Set("ct", strconv.FormatInt(p.Timestamp, 10))
	rec.Set("sr", p.Source)
	rec.Set("to", p.Message.Target)
	rec.Set("ms", p.Message.Text)
	rec.Set("pa", pathText(p))
	if p.Message.ID != "" {
		rec.Set("id", p.Message.ID)
	}
	if p.Message.Ack != "" {
		rec.Set("ack", p.Message.Ack)
	}
	if p.Message.Reply != "" {
		rec.Set("rpl", p.Message.Reply)
	}
	if p.Message.AckOnly != "" {
		rec.Set("ao", p.Message.AckOnly)
	}

	if err := w.broker.Publish(broker.TopicMessages, rec.Encode()); err != nil {
		logger.Warn("message notify failed",
			logger.KeySource, p.Source,
			logger.KeyError, err)
	}
}

// errorEnvelope is the JSON body published for rejected, duplicate, and
// position-error packets.
type errorEnvelope struct {
	Packet  string `json:"packet"`
	Error   string `json:"error"`
	Status  string `json:"status"`
	Created int64  `json:"created"`
}

func (w *Worker) postError(destination string, r *Result) {
	body, err := json.Marshal(errorEnvelope{
		Packet:  r.PacketText,
		Error:   r.Error,
		Status:  r.Status.String(),
		Created: w.now().Unix(),
	})
	if err != nil {
		return
	}
	if err := w.broker.Publish(destination, string(body)); err != nil {
		logger.Warn("error publish failed",
			"destination", destination,
			logger.KeyError, err)
	}
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
