package transport

// Capabilities describes what a broker backend can do. Callers consult this
// when deciding whether a backend is suitable for cross-process traffic.
type Capabilities struct {
	// Name is the human-readable name of the backend.
	Name string

	// Version is the backend/driver version.
	Version string

	// CrossProcess indicates the backend reaches other processes. The
	// in-memory channel backend does not.
	CrossProcess bool

	// SupportsOrdering indicates delivery order matches publish order per
	// beam.
	SupportsOrdering bool

	// MaxMessageSize is the maximum payload size in bytes (0 = unlimited or
	// unknown).
	MaxMessageSize int64
}

// ChannelCapabilities describes the in-memory channel backend.
var ChannelCapabilities = Capabilities{
	Name:             "channel",
	SupportsOrdering: true,
}

// NATSCapabilities describes the NATS Core backend.
var NATSCapabilities = Capabilities{
	Name:             "nats",
	CrossProcess:     true,
	SupportsOrdering: true,
	MaxMessageSize:   1 << 20,
}
