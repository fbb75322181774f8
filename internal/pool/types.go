package pool

import (
	"errors"
	"log/slog"
	"time"
)

// Errors
var (
	// ErrNotFound is returned for an unknown (or already closed) client name.
	ErrNotFound = errors.New("client not found")

	// ErrUnavailable is returned when the round-robin selected slot is
	// not currently ready. It is an ordinary, retryable condition.
	ErrUnavailable = errors.New("no ready slot available")

	// ErrNoAddresses is a configuration error: a client without broker
	// addresses cannot be built.
	ErrNoAddresses = errors.New("no broker addresses configured")

	// ErrConnNotReady means a channel was asked to rebuild while its
	// parent connection is still reconnecting. Transient.
	ErrConnNotReady = errors.New("parent connection not ready")

	// ErrConnClosed means a channel rebuild ran against an installed
	// connection handle that reports closed. This points at a
	// supervision ordering bug and is logged distinctly.
	ErrConnClosed = errors.New("parent connection is closed")
)

// EventKind identifies a pool lifecycle transition.
type EventKind string

const (
	EventConnectionReady EventKind = "connection_ready"
	EventConnectionLost  EventKind = "connection_lost"
	EventChannelReady    EventKind = "channel_ready"
	EventChannelLost     EventKind = "channel_lost"
)

// Event is one pool lifecycle transition, emitted to the configured
// EventSink as slots fail and recover.
type Event struct {
	Client   string
	Kind     EventKind
	Conn     int // connection slot ordinal
	Channel  int // channel slot ordinal, -1 for connection events
	Addr     string
	HandleID string // handle involved, empty for lost events
	Err      error  // closing error for lost events
	At       time.Time
}

// EventSink receives pool events. Record must not block; sinks drop
// rather than stall a watcher.
type EventSink interface {
	Record(Event)
}

// Stats provides readiness counts for one client.
type Stats struct {
	Connections      int
	ReadyConnections int
	Channels         int
	ReadyChannels    int
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) { r.logger = logger }
}

// WithEventSink sets the sink receiving pool lifecycle events.
func WithEventSink(sink EventSink) Option {
	return func(r *Registry) { r.sink = sink }
}
