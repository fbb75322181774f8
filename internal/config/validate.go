package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *DaemonConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if len(c.Pool.Clients) == 0 {
		return errors.New("pool.clients must define at least one client")
	}
	for name, cc := range c.Pool.Clients {
		if err := cc.validate("pool.clients." + name); err != nil {
			return err
		}
	}

	if c.Journal.Enabled {
		if err := c.Journal.Database.validate("journal.database"); err != nil {
			return err
		}
		if c.Journal.BatchSize < 1 {
			return errors.New("journal.batch_size must be >= 1")
		}
		if c.Journal.BufferSize < 1 {
			return errors.New("journal.buffer_size must be >= 1")
		}
	}

	if c.Health.Port < 1 || c.Health.Port > 65535 {
		return fmt.Errorf("health.port must be between 1 and 65535, got %d", c.Health.Port)
	}

	return nil
}

func (cc ClientConfig) validate(prefix string) error {
	if len(cc.Addresses) == 0 {
		return fmt.Errorf("%s.addresses is required", prefix)
	}
	for i, addr := range cc.Addresses {
		if addr == "" {
			return fmt.Errorf("%s.addresses[%d] must not be empty", prefix, i)
		}
	}
	if cc.Connections < 1 {
		return fmt.Errorf("%s.connections must be >= 1", prefix)
	}
	if cc.ChannelsPerConnection < 1 {
		return fmt.Errorf("%s.channels_per_connection must be >= 1", prefix)
	}
	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
