package pool

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/amqppool/internal/broker"
	"github.com/rickgao/amqppool/internal/config"
)

// fakeDialer implements broker.Dialer with scriptable failures.
type fakeDialer struct {
	mu       sync.Mutex
	dials    []string    // addresses in dial order
	failNext int         // fail this many dials, then succeed
	failAll  bool        // fail every dial
	conns    []*fakeConn // successful dials in order
}

func (d *fakeDialer) Dial(addr string) (broker.Connection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.dials = append(d.dials, addr)
	if d.failAll {
		return nil, errors.New("dial refused")
	}
	if d.failNext > 0 {
		d.failNext--
		return nil, errors.New("dial refused")
	}

	c := &fakeConn{
		id:      uuid.NewString(),
		addr:    addr,
		closeCh: make(chan error, 1),
	}
	d.conns = append(d.conns, c)
	return c, nil
}

func (d *fakeDialer) setFailAll(v bool) {
	d.mu.Lock()
	d.failAll = v
	d.mu.Unlock()
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.dials)
}

func (d *fakeDialer) dialAddrs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.dials...)
}

func (d *fakeDialer) conn(i int) *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conns[i]
}

func (d *fakeDialer) connCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.conns)
}

// fakeConn implements broker.Connection.
type fakeConn struct {
	id      string
	addr    string
	closeCh chan error

	mu       sync.Mutex
	closed   bool
	channels []*fakeChannel
}

func (c *fakeConn) OpenChannel() (broker.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, errors.New("connection closed")
	}
	ch := &fakeChannel{
		id:      uuid.NewString(),
		closeCh: make(chan error, 1),
	}
	c.channels = append(c.channels, ch)
	return ch, nil
}

func (c *fakeConn) NotifyClose() <-chan error { return c.closeCh }

func (c *fakeConn) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) HandleID() string { return c.id }

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// fail simulates an asynchronous broker-side connection close.
func (c *fakeConn) fail(err error) {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.closeCh <- err
}

func (c *fakeConn) channel(i int) *fakeChannel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channels[i]
}

func (c *fakeConn) channelCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.channels)
}

// fakeChannel implements broker.Channel.
type fakeChannel struct {
	id      string
	closeCh chan error

	mu     sync.Mutex
	closed bool
}

func (c *fakeChannel) NotifyClose() <-chan error { return c.closeCh }
func (c *fakeChannel) HandleID() string          { return c.id }

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeChannel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// fail simulates an asynchronous broker-side channel close.
func (c *fakeChannel) fail(err error) {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.closeCh <- err
}

// recordingSink captures pool events.
type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) Record(ev Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
}

func (s *recordingSink) kinds() []EventKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]EventKind, len(s.events))
	for i, ev := range s.events {
		out[i] = ev.Kind
	}
	return out
}

func testPoolConfig(clients map[string]config.ClientConfig) config.PoolConfig {
	return config.PoolConfig{
		RetryInterval: 10 * time.Millisecond,
		Clients:       clients,
	}
}

// waitUntil polls cond until it holds or the timeout elapses.
func waitUntil(t *testing.T, timeout time.Duration, msg string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}
