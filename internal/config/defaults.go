package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultRetryInterval         = 3 * time.Second
	DefaultConnections           = 5
	DefaultChannelsPerConnection = 5
	DefaultDBPort                = 5432
	DefaultDBSSLMode             = "prefer"
	DefaultMaxConns              = 10
	DefaultMinConns              = 2
	DefaultJournalBatchSize      = 100
	DefaultJournalFlushInterval  = 1 * time.Second
	DefaultJournalBufferSize     = 1000
	DefaultHealthPort            = 8080
	DefaultHealthPath            = "/healthz"
)

func (c *DaemonConfig) applyDefaults() {
	// Pool defaults
	if c.Pool.RetryInterval == 0 {
		c.Pool.RetryInterval = DefaultRetryInterval
	}
	for name, cc := range c.Pool.Clients {
		if cc.Connections <= 0 {
			cc.Connections = DefaultConnections
		}
		if cc.ChannelsPerConnection <= 0 {
			cc.ChannelsPerConnection = DefaultChannelsPerConnection
		}
		c.Pool.Clients[name] = cc
	}

	// Journal defaults
	if c.Journal.Enabled {
		applyDBDefaults(&c.Journal.Database)
	}
	if c.Journal.BatchSize == 0 {
		c.Journal.BatchSize = DefaultJournalBatchSize
	}
	if c.Journal.FlushInterval == 0 {
		c.Journal.FlushInterval = DefaultJournalFlushInterval
	}
	if c.Journal.BufferSize == 0 {
		c.Journal.BufferSize = DefaultJournalBufferSize
	}

	// Health defaults
	if c.Health.Port == 0 {
		c.Health.Port = DefaultHealthPort
	}
	if c.Health.Path == "" {
		c.Health.Path = DefaultHealthPath
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
