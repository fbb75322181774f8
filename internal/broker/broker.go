package broker

// Dialer opens broker connections. The pool holds a single Dialer and
// never touches the wire protocol directly.
type Dialer interface {
	// Dial opens one connection to the broker at addr.
	Dial(addr string) (Connection, error)
}

// Connection is one broker connection able to multiplex sub-channels.
type Connection interface {
	// OpenChannel opens one multiplexed sub-channel on this connection.
	OpenChannel() (Channel, error)

	// NotifyClose returns a one-shot signal fired when the connection
	// ends, carrying the closing error. This is the sole failure
	// detection mechanism; there is no polling.
	NotifyClose() <-chan error

	// IsClosed reports whether the connection has ended.
	IsClosed() bool

	// HandleID returns a unique identifier for this connection handle.
	// A reconnected slot always carries a new handle ID.
	HandleID() string

	// Close gracefully closes the connection.
	Close() error
}

// Channel is one multiplexed sub-channel, valid only for the exact
// connection handle it was opened on.
type Channel interface {
	// NotifyClose returns a one-shot signal fired when the channel ends.
	NotifyClose() <-chan error

	// HandleID returns a unique identifier for this channel handle.
	HandleID() string

	// Close gracefully closes the channel.
	Close() error
}
