package relational

// Config holds the configuration for the relational lock store.
type Config struct {
	// TableName is the table holding one row per lock.
	TableName string

	// Dialect selects the SQL flavour. Stores built with New always use
	// Postgres.
	Dialect Dialect
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

// WithTableName sets the lock table name.
func WithTableName(s string) Option {
	return OptionFunc(func(c *Config) {
		if s != "" {
			c.TableName = s
		}
	})
}

// WithDialect sets the SQL dialect used by stores built with NewStdLib.
func WithDialect(d Dialect) Option {
	return OptionFunc(func(c *Config) {
		if d != nil {
			c.Dialect = d
		}
	})
}
