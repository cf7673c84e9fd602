package file

import (
	"io/fs"
	"time"
)

// Config holds the configuration for the filesystem lock store.
type Config struct {
	// Dir is the directory holding one <canonical-key>.lock file per lock.
	Dir string

	// FilePerm and DirPerm are used when lock files and Dir are created.
	FilePerm fs.FileMode
	DirPerm  fs.FileMode

	// LockTimeout bounds how long Get, Update and Delete retry to obtain
	// the advisory lock of a lock file. Zero means a single attempt.
	LockTimeout time.Duration
	RetryDelay  time.Duration
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

// WithFilePermissions sets the permissions of newly created lock files.
func WithFilePermissions(perm fs.FileMode) Option {
	return OptionFunc(func(c *Config) {
		if perm != 0 {
			c.FilePerm = perm
		}
	})
}

// WithDirPermissions sets the permissions used when the lock directory
// has to be created.
func WithDirPermissions(perm fs.FileMode) Option {
	return OptionFunc(func(c *Config) {
		if perm != 0 {
			c.DirPerm = perm
		}
	})
}

// WithLockTimeout sets how long to retry obtaining a file lock before
// failing with a locking error.
func WithLockTimeout(d time.Duration) Option {
	return OptionFunc(func(c *Config) {
		if d >= 0 {
			c.LockTimeout = d
		}
	})
}

// WithRetryDelay sets the pause between two file lock attempts.
func WithRetryDelay(d time.Duration) Option {
	return OptionFunc(func(c *Config) {
		if d > 0 {
			c.RetryDelay = d
		}
	})
}
