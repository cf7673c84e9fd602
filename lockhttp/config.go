package lockhttp

// DefaultMaxBodySize limits request payloads to 1 MiB.
const DefaultMaxBodySize = 1 << 20

// Config holds the configuration for the lock HTTP handler.
type Config struct {
	// MaxBodySize limits the size of PUT and PATCH bodies.
	MaxBodySize int64
}

// An Option configures a Handler instance.
type Option interface {
	Apply(*Config)
}

// OptionFunc is a function that configures a Handler config.
type OptionFunc func(*Config)

// Apply calls f(config).
func (f OptionFunc) Apply(config *Config) {
	f(config)
}

// WithMaxBodySize sets the largest accepted request body.
func WithMaxBodySize(n int64) Option {
	return OptionFunc(func(c *Config) {
		if n > 0 {
			c.MaxBodySize = n
		}
	})
}
