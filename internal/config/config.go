package config

import "time"

// DaemonConfig is the root configuration for a poold instance.
type DaemonConfig struct {
	Instance InstanceConfig `yaml:"instance"`
	Pool     PoolConfig     `yaml:"pool"`
	Journal  JournalConfig  `yaml:"journal"`
	Health   HealthConfig   `yaml:"health"`
}

// InstanceConfig identifies this daemon.
type InstanceConfig struct {
	ID string `yaml:"id"`
	AZ string `yaml:"az"`
}

// PoolConfig holds the connection pool settings for all logical clients.
type PoolConfig struct {
	RetryInterval time.Duration           `yaml:"retry_interval"`
	Clients       map[string]ClientConfig `yaml:"clients"`
}

// ClientConfig describes one logical client: a named set of broker
// addresses and its desired pool sizes.
type ClientConfig struct {
	Addresses             []string `yaml:"addresses"`
	Connections           int      `yaml:"connections"`
	ChannelsPerConnection int      `yaml:"channels_per_connection"`
}

// JournalConfig holds the Postgres event journal settings.
type JournalConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Database      DBConfig      `yaml:"database"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// HealthConfig holds the HTTP health endpoint settings.
type HealthConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}
