package pool

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/rickgao/amqppool/internal/broker"
)

// channelSlot is one pooled sub-channel, valid only against the exact
// connection handle it was opened on. Like connSlot it is re-armed in
// place on failure and destroyed only at teardown.
type channelSlot struct {
	owner  *Client
	parent *connSlot
	id     int
	logger *slog.Logger

	mu      sync.Mutex
	ch      broker.Channel // nil while recreating
	ready   bool
	closeCh <-chan error

	// rearm is pulsed by the parent after it swaps in a new connection
	// handle; the old sub-channel is dead regardless of whether its own
	// close notification was observed.
	rearm  chan struct{}
	cancel context.CancelFunc
}

func newChannelSlot(owner *Client, parent *connSlot, id int) *channelSlot {
	return &channelSlot{
		owner:  owner,
		parent: parent,
		id:     id,
		rearm:  make(chan struct{}, 1),
		logger: parent.logger.With("channel", id),
	}
}

// createOnce opens one sub-channel on the parent connection. A parent
// mid-reconnect yields ErrConnNotReady; an installed parent handle that
// reports closed yields ErrConnClosed. Both are retried by the caller,
// but the second is logged as a supervision ordering bug.
func (s *channelSlot) createOnce() error {
	conn, ready := s.parent.snapshot()
	if !ready || conn == nil {
		return ErrConnNotReady
	}
	if conn.IsClosed() {
		return ErrConnClosed
	}

	ch, err := conn.OpenChannel()
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.ch = ch
	s.closeCh = ch.NotifyClose()
	s.ready = true
	s.mu.Unlock()

	return nil
}

// snapshot returns the current handle and readiness as one consistent pair.
func (s *channelSlot) snapshot() (broker.Channel, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ch, s.ready
}

// watch runs for the slot's lifetime, rebuilding the channel on its own
// close notification or on a parent rearm pulse.
func (s *channelSlot) watch(ctx context.Context) {
	for {
		s.mu.Lock()
		closeCh := s.closeCh
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return
		case err := <-closeCh:
			s.logger.Warn("channel lost", "error", err)
			s.owner.emit(EventChannelLost, s.parent.id, s.id, s.parent.addr, "", err)
			if !s.recreateLoop(ctx) {
				return
			}
		case <-s.rearm:
			if !s.recreateLoop(ctx) {
				return
			}
		}
	}
}

// bounce requests one rebuild cycle. Nonblocking; a pending pulse is
// enough, recovery is level-triggered.
func (s *channelSlot) bounce() {
	select {
	case s.rearm <- struct{}{}:
	default:
	}
}

// recreateLoop rebuilds the channel against the parent's current handle,
// retrying at the fixed interval until success. Returns false when
// canceled.
func (s *channelSlot) recreateLoop(ctx context.Context) bool {
	s.mu.Lock()
	old := s.ch
	s.ch = nil
	s.ready = false
	s.mu.Unlock()

	// A pulse that raced with this rebuild is satisfied by it; drop it
	// so it cannot trigger a second rebuild afterwards.
	select {
	case <-s.rearm:
	default:
	}

	// The displaced handle is normally already dead, but a pulse landing
	// after a completed rebuild displaces a live channel; without the
	// Close it would stay open on the broker and count against the
	// connection's channel limit.
	if old != nil {
		old.Close()
	}

	for {
		if ctx.Err() != nil {
			return false
		}

		if err := s.createOnce(); err != nil {
			if errors.Is(err, ErrConnClosed) {
				s.logger.Error("channel rebuild against stale connection", "error", err)
			} else {
				s.logger.Warn("channel open failed, will retry",
					"error", err,
					"retry_in", s.owner.retry,
				)
			}
			if !sleepCtx(ctx, s.owner.retry) {
				return false
			}
			continue
		}

		if ctx.Err() != nil {
			s.discard()
			return false
		}

		s.mu.Lock()
		handle := s.ch.HandleID()
		s.mu.Unlock()

		s.logger.Info("channel ready", "handle", handle)
		s.owner.emit(EventChannelReady, s.parent.id, s.id, s.parent.addr, handle, nil)
		return true
	}
}

// discard drops and closes a handle installed after cancellation was
// observed.
func (s *channelSlot) discard() {
	s.mu.Lock()
	ch := s.ch
	s.ch = nil
	s.ready = false
	s.mu.Unlock()

	if ch != nil {
		ch.Close()
	}
}

// teardown stops the slot for good: cancel the watcher, close the
// handle (logging failures), mark not-ready.
func (s *channelSlot) teardown() {
	s.cancel()

	s.mu.Lock()
	ch := s.ch
	s.ch = nil
	s.ready = false
	s.mu.Unlock()

	if ch != nil {
		if err := ch.Close(); err != nil {
			s.logger.Warn("channel close failed", "error", err)
		}
	}
}
