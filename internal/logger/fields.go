package logger

// Standard field keys for structured logging. Use these consistently so the
// ingest pipeline's logs aggregate cleanly by source, packet type, and
// storage tier.
const (
	// Packet identity
	KeySource     = "source"      // transmitting callsign
	KeyTarget     = "target"      // message target callsign
	KeyPacketType = "packet_type" // POSITION, MESSAGE, TELEMETRY, ...
	KeyPacketID   = "packet_id"   // resolved packet row id
	KeyLocator    = "locator"     // maidenhead grid code
	KeyBody       = "body"        // raw packet text

	// Broker
	KeyDestination = "destination" // STOMP destination (topic/queue)
	KeyMessageID   = "message_id"  // STOMP message-id header
	KeyHost        = "host"        // broker host:port

	// Storage tiers
	KeyNamespace = "namespace" // cache namespace
	KeyEntity    = "entity"    // resolver entity (callsign, dest, digi, ...)
	KeyKey       = "key"       // cache key
	KeyTable     = "table"     // SQL table

	// Pipeline
	KeyStatus   = "status"   // result status (ok, rejected, duplicate, ...)
	KeyReason   = "reason"   // reject/defer reason
	KeyAttempts = "attempts" // retry attempts consumed

	// Measurements
	KeyCount      = "count"
	KeyDurationMs = "duration_ms"
	KeyRate       = "rate"
	KeyAge        = "age"

	// Errors
	KeyError = "error"
)
