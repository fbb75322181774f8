package pool

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/rickgao/amqppool/internal/broker"
)

// connSlot is one pooled broker connection. The slot survives every
// failure of its handle: its watcher re-arms it in place, and only
// client teardown destroys it.
type connSlot struct {
	owner  *Client
	id     int
	addr   string
	logger *slog.Logger

	// handle/ready/closeCh change together; mu prevents torn reads
	// between watchers and Acquire callers.
	mu       sync.Mutex
	conn     broker.Connection // nil while reconnecting
	ready    bool
	closeCh  <-chan error
	channels []*channelSlot

	chanCursor atomic.Uint64
	cancel     context.CancelFunc
}

func newConnSlot(owner *Client, id int, addr string) *connSlot {
	return &connSlot{
		owner:  owner,
		id:     id,
		addr:   addr,
		logger: owner.logger.With("conn", id, "addr", addr),
	}
}

// connectOnce opens one connection to the slot's address and installs
// it together with its close-notification subscription. No retry here;
// retry belongs to reconnectLoop.
func (s *connSlot) connectOnce() error {
	conn, err := s.owner.dialer.Dial(s.addr)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.conn = conn
	s.closeCh = conn.NotifyClose()
	s.ready = true
	s.mu.Unlock()

	return nil
}

// snapshot returns the current handle and readiness as one consistent pair.
func (s *connSlot) snapshot() (broker.Connection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn, s.ready
}

// watch runs for the slot's lifetime. Every close notification triggers
// exactly one reconnect cycle; cancellation exits immediately.
func (s *connSlot) watch(ctx context.Context) {
	for {
		s.mu.Lock()
		closeCh := s.closeCh
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return
		case err := <-closeCh:
			s.logger.Warn("connection lost", "error", err)
			s.owner.emit(EventConnectionLost, s.id, -1, s.addr, "", err)
			if !s.reconnectLoop(ctx) {
				return
			}
		}
	}
}

// reconnectLoop re-establishes the connection, retrying at the fixed
// interval until success. There is no attempt limit: the slot is never
// given up, only teardown cancellation stops the loop. Returns false
// when canceled.
func (s *connSlot) reconnectLoop(ctx context.Context) bool {
	s.markDown()

	// Wake every owned channel slot now: their handles died with the
	// old connection. Each slot's own loop marks it not-ready and
	// retries until this slot is ready again, so the rebuild completes
	// against the replacement handle.
	s.rearmChannels()

	for {
		if ctx.Err() != nil {
			return false
		}

		if err := s.connectOnce(); err != nil {
			s.logger.Warn("connect failed, will retry",
				"error", err,
				"retry_in", s.owner.retry,
			)
			if !sleepCtx(ctx, s.owner.retry) {
				return false
			}
			continue
		}

		if ctx.Err() != nil {
			// Canceled while dialing; the result is discarded.
			s.discard()
			return false
		}

		s.mu.Lock()
		handle := s.conn.HandleID()
		s.mu.Unlock()

		s.logger.Info("connection ready", "handle", handle)
		s.owner.emit(EventConnectionReady, s.id, -1, s.addr, handle, nil)
		return true
	}
}

// markDown clears the handle and readiness as one transition.
func (s *connSlot) markDown() {
	s.mu.Lock()
	s.conn = nil
	s.ready = false
	s.mu.Unlock()
}

// discard drops and closes a handle installed after cancellation was
// observed.
func (s *connSlot) discard() {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.ready = false
	s.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}

func (s *connSlot) addChannel(ch *channelSlot) {
	s.mu.Lock()
	s.channels = append(s.channels, ch)
	s.mu.Unlock()
}

// rearmChannels signals every owned channel slot to rebuild; their old
// sub-channels cannot survive the parent handle's replacement.
func (s *connSlot) rearmChannels() {
	s.mu.Lock()
	channels := append([]*channelSlot(nil), s.channels...)
	s.mu.Unlock()

	for _, ch := range channels {
		ch.bounce()
	}
}

// nextChannel advances this slot's channel cursor and returns the
// selected channel if ready. The cursor always advances.
func (s *connSlot) nextChannel() (broker.Channel, error) {
	s.mu.Lock()
	if len(s.channels) == 0 {
		s.mu.Unlock()
		return nil, ErrUnavailable
	}
	idx := int((s.chanCursor.Add(1) - 1) % uint64(len(s.channels)))
	ch := s.channels[idx]
	s.mu.Unlock()

	handle, ready := ch.snapshot()
	if !ready {
		return nil, ErrUnavailable
	}
	return handle, nil
}

// teardown stops the slot for good: channel slots first, then the
// watcher, then the connection handle. Close errors are logged and
// ignored so teardown always completes.
func (s *connSlot) teardown() {
	s.mu.Lock()
	channels := append([]*channelSlot(nil), s.channels...)
	s.mu.Unlock()

	for _, ch := range channels {
		ch.teardown()
	}

	s.cancel()

	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.ready = false
	s.mu.Unlock()

	if conn != nil {
		if err := conn.Close(); err != nil {
			s.logger.Warn("connection close failed", "error", err)
		}
	}
}
