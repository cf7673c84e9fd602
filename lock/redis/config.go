package redis

import "time"

// Config holds the configuration for the redis lock store.
type Config struct {
	// Table is the name of the hash holding every lock record.
	Table string

	// Prefix is prepended to Table, separating stores sharing one server.
	Prefix string

	// OperationTimeout bounds every call made to the server.
	OperationTimeout time.Duration
}

// HashKey returns the name of the redis hash the store writes to.
func (c Config) HashKey() string {
	return c.Prefix + c.Table
}

// An Option configures a Store instance.
type Option interface {
	Apply(*Config)
}

// OptionFunc is a function that configures a Store config.
type OptionFunc func(*Config)

// Apply calls f(config).
func (f OptionFunc) Apply(config *Config) {
	f(config)
}

// WithTable returns an option that sets the hash name.
func WithTable(value string) Option {
	return OptionFunc(func(c *Config) {
		if value != "" {
			c.Table = value
		}
	})
}

// WithPrefix returns an option that sets the hash name prefix.
func WithPrefix(value string) Option {
	return OptionFunc(func(c *Config) {
		c.Prefix = value
	})
}

// WithOperationTimeout returns an option that bounds every server call.
func WithOperationTimeout(d time.Duration) Option {
	return OptionFunc(func(c *Config) {
		if d > 0 {
			c.OperationTimeout = d
		}
	})
}
