package pool

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rickgao/amqppool/internal/broker"
	"github.com/rickgao/amqppool/internal/config"
)

// Client is one logical client: a named, fixed-size ring of connection
// slots, each owning a fixed-size ring of channel slots. The rings are
// built once and never resized; slots self-heal in place.
type Client struct {
	name   string
	cfg    config.ClientConfig
	retry  time.Duration
	dialer broker.Dialer
	logger *slog.Logger
	sink   EventSink

	// slots is append-only during bring-up and immutable afterwards;
	// ring traversal needs no locking.
	slots  []*connSlot
	cursor atomic.Uint64

	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed atomic.Bool
}

// newClient builds a fully-populated client. Bring-up is strictly
// sequential: slot k is connected, with all of its channels open,
// before slot k+1 begins. Addresses are assigned round-robin over the
// address list by slot ordinal. Dial failures are retried at the fixed
// interval; only ctx cancellation aborts construction.
func newClient(ctx context.Context, name string, cfg config.ClientConfig, r *Registry) (*Client, error) {
	c := &Client{
		name:   name,
		cfg:    cfg,
		retry:  r.retry,
		dialer: r.dialer,
		logger: r.logger.With("client", name),
		sink:   r.sink,
		slots:  make([]*connSlot, 0, cfg.Connections),
	}

	ctx, c.cancel = context.WithCancel(ctx)

	for i := 0; i < cfg.Connections; i++ {
		addr := cfg.Addresses[i%len(cfg.Addresses)]
		s := newConnSlot(c, i, addr)

		slotCtx, cancel := context.WithCancel(ctx)
		s.cancel = cancel
		c.slots = append(c.slots, s)

		if !s.reconnectLoop(slotCtx) {
			c.close()
			return nil, ctx.Err()
		}

		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			s.watch(slotCtx)
		}()

		for j := 0; j < cfg.ChannelsPerConnection; j++ {
			ch := newChannelSlot(c, s, j)

			chCtx, chCancel := context.WithCancel(ctx)
			ch.cancel = chCancel
			s.addChannel(ch)

			if !ch.recreateLoop(chCtx) {
				c.close()
				return nil, ctx.Err()
			}

			c.wg.Add(1)
			go func() {
				defer c.wg.Done()
				ch.watch(chCtx)
			}()
		}
	}

	return c, nil
}

// Name returns the client's configured name.
func (c *Client) Name() string { return c.name }

// AcquireConnection advances the connection ring cursor and returns the
// selected slot's handle. Nonblocking; the cursor ALWAYS advances, so a
// not-ready slot costs its turn and the next call moves on. A not-ready
// slot yields ErrUnavailable, an ordinary retryable condition.
func (c *Client) AcquireConnection() (broker.Connection, error) {
	s := c.nextSlot()
	conn, ready := s.snapshot()
	if !ready {
		return nil, ErrUnavailable
	}
	return conn, nil
}

// AcquireChannel advances the SAME connection ring cursor as
// AcquireConnection, then advances the selected connection's own
// channel cursor. Channel selection is therefore scoped to the
// connection picked by the shared round-robin, not global across all
// connections' channels. A not-ready connection or channel slot yields
// ErrUnavailable.
func (c *Client) AcquireChannel() (broker.Channel, error) {
	s := c.nextSlot()
	if _, ready := s.snapshot(); !ready {
		return nil, ErrUnavailable
	}
	return s.nextChannel()
}

func (c *Client) nextSlot() *connSlot {
	idx := int((c.cursor.Add(1) - 1) % uint64(len(c.slots)))
	return c.slots[idx]
}

// Stats returns readiness counts across the client's rings.
func (c *Client) Stats() Stats {
	st := Stats{Connections: len(c.slots)}

	for _, s := range c.slots {
		if _, ready := s.snapshot(); ready {
			st.ReadyConnections++
		}

		s.mu.Lock()
		channels := append([]*channelSlot(nil), s.channels...)
		s.mu.Unlock()

		st.Channels += len(channels)
		for _, ch := range channels {
			if _, ready := ch.snapshot(); ready {
				st.ReadyChannels++
			}
		}
	}

	return st
}

// close tears the client down: every slot in ring order, then waits for
// all watcher goroutines to exit. Idempotent.
func (c *Client) close() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}

	c.logger.Info("closing client")

	for _, s := range c.slots {
		s.teardown()
	}

	c.cancel()
	c.wg.Wait()

	c.logger.Info("client closed")
}

// emit forwards a lifecycle event to the configured sink, if any.
func (c *Client) emit(kind EventKind, connID, chanID int, addr, handle string, err error) {
	if c.sink == nil {
		return
	}
	c.sink.Record(Event{
		Client:   c.name,
		Kind:     kind,
		Conn:     connID,
		Channel:  chanID,
		Addr:     addr,
		HandleID: handle,
		Err:      err,
		At:       time.Now(),
	})
}
