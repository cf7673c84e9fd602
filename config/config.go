// Package config loads the lock store configuration and opens the
// backend it selects.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/enverbisevac/locker/errors"
	"github.com/enverbisevac/locker/validator"
	"gopkg.in/yaml.v3"
)

// Supported drivers.
const (
	DriverFile     = "file"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Config selects exactly one lock store backend.
type Config struct {
	Driver   string          `yaml:"driver"`
	File     FileOptions     `yaml:"file"`
	Redis    RedisOptions    `yaml:"redis"`
	Postgres DatabaseOptions `yaml:"postgres"`
	SQLite   DatabaseOptions `yaml:"sqlite"`
}

// FileOptions configures the filesystem backend.
type FileOptions struct {
	Dir         string        `yaml:"dir"`
	LockTimeout time.Duration `yaml:"lock_timeout"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
}

// RedisOptions configures the connection to Redis. URL takes precedence
// over Addrs.
type RedisOptions struct {
	URL              string        `yaml:"url"`
	Addrs            []string      `yaml:"addrs"`
	Username         string        `yaml:"username"`
	Password         string        `yaml:"password"`
	DB               int           `yaml:"db"`
	Table            string        `yaml:"table"`
	Prefix           string        `yaml:"prefix"`
	OperationTimeout time.Duration `yaml:"operation_timeout"`
}

// DatabaseOptions configures a relational backend.
type DatabaseOptions struct {
	DSN       string `yaml:"dsn"`
	TableName string `yaml:"table"`
}

// Load reads and validates the YAML configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML configuration. ${VAR} references are
// expanded from the environment first.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the options required by the selected driver are set.
func (c *Config) Validate() error {
	v := new(validator.Validator)

	v.Check(validator.In(c.Driver, DriverFile, DriverRedis, DriverPostgres, DriverSQLite, DriverMemory),
		fmt.Errorf("unknown driver %q", c.Driver))

	switch c.Driver {
	case DriverFile:
		v.Check(validator.NotBlank(c.File.Dir), errors.New("file.dir is required"))
		v.Check(c.File.LockTimeout >= 0, errors.New("file.lock_timeout must not be negative"))
		v.Check(c.File.RetryDelay >= 0, errors.New("file.retry_delay must not be negative"))
	case DriverRedis:
		v.Check(validator.NotBlank(c.Redis.URL) || len(c.Redis.Addrs) > 0,
			errors.New("redis.url or redis.addrs is required"))
		v.Check(c.Redis.OperationTimeout >= 0, errors.New("redis.operation_timeout must not be negative"))
	case DriverPostgres:
		v.Check(validator.NotBlank(c.Postgres.DSN), errors.New("postgres.dsn is required"))
		v.Check(c.Postgres.TableName == "" || validator.IsIdentifier(c.Postgres.TableName),
			fmt.Errorf("invalid postgres.table %q", c.Postgres.TableName))
	case DriverSQLite:
		v.Check(validator.NotBlank(c.SQLite.DSN), errors.New("sqlite.dsn is required"))
		v.Check(c.SQLite.TableName == "" || validator.IsIdentifier(c.SQLite.TableName),
			fmt.Errorf("invalid sqlite.table %q", c.SQLite.TableName))
	}

	return v.Err("invalid lock store configuration")
}
