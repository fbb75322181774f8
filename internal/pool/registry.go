package pool

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/rickgao/amqppool/internal/broker"
	"github.com/rickgao/amqppool/internal/config"
)

// Registry is the process-wide table of logical clients, keyed by name.
// It is the only object callers interact with directly: built once at
// startup, torn down at shutdown, mutable only by CloseClient/Close.
type Registry struct {
	logger *slog.Logger
	dialer broker.Dialer
	sink   EventSink
	retry  time.Duration

	mu      sync.Mutex
	clients map[string]*Client
}

// New builds a registry from configuration. An empty address list is a
// fatal configuration error; non-positive pool sizes fall back to the
// defaults. Construction is synchronous: every configured connection
// and channel is established (dial failures retried at the fixed
// interval) before New returns, or ctx cancellation aborts it. Clients
// are built in name order so bring-up is deterministic.
func New(ctx context.Context, cfg config.PoolConfig, dialer broker.Dialer, opts ...Option) (*Registry, error) {
	r := &Registry{
		dialer:  dialer,
		retry:   cfg.RetryInterval,
		clients: make(map[string]*Client),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.retry <= 0 {
		r.retry = config.DefaultRetryInterval
	}

	names := make([]string, 0, len(cfg.Clients))
	for name := range cfg.Clients {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		cc := cfg.Clients[name]
		if len(cc.Addresses) == 0 {
			r.Close()
			return nil, fmt.Errorf("client %q: %w", name, ErrNoAddresses)
		}
		if cc.Connections <= 0 {
			cc.Connections = config.DefaultConnections
		}
		if cc.ChannelsPerConnection <= 0 {
			cc.ChannelsPerConnection = config.DefaultChannelsPerConnection
		}

		client, err := newClient(ctx, name, cc, r)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("build client %q: %w", name, err)
		}
		r.clients[name] = client

		r.logger.Info("client ready",
			"client", name,
			"connections", cc.Connections,
			"channels_per_connection", cc.ChannelsPerConnection,
		)
	}

	return r, nil
}

// Get returns the named client.
func (r *Registry) Get(name string) (*Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	client, ok := r.clients[name]
	if !ok {
		return nil, ErrNotFound
	}
	return client, nil
}

// AcquireConnection selects a connection from the named client's ring.
func (r *Registry) AcquireConnection(name string) (broker.Connection, error) {
	client, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	return client.AcquireConnection()
}

// AcquireChannel selects a channel from the named client's ring.
func (r *Registry) AcquireChannel(name string) (broker.Channel, error) {
	client, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	return client.AcquireChannel()
}

// CloseClient tears down the named client and removes it. Closing an
// already-removed client returns ErrNotFound, not a double-close error.
func (r *Registry) CloseClient(name string) error {
	r.mu.Lock()
	client, ok := r.clients[name]
	if ok {
		delete(r.clients, name)
	}
	r.mu.Unlock()

	if !ok {
		return ErrNotFound
	}

	client.close()
	return nil
}

// Close tears down every remaining client.
func (r *Registry) Close() {
	r.mu.Lock()
	clients := make([]*Client, 0, len(r.clients))
	for name, client := range r.clients {
		clients = append(clients, client)
		delete(r.clients, name)
	}
	r.mu.Unlock()

	for _, client := range clients {
		client.close()
	}
}

// Stats returns per-client readiness counts.
func (r *Registry) Stats() map[string]Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]Stats, len(r.clients))
	for name, client := range r.clients {
		out[name] = client.Stats()
	}
	return out
}
