package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/enverbisevac/locker/errors"
	"github.com/enverbisevac/locker/lock"
	"github.com/enverbisevac/locker/lock/file"
	"github.com/enverbisevac/locker/lock/inmem"
	lockredis "github.com/enverbisevac/locker/lock/redis"
	"github.com/enverbisevac/locker/lock/relational"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFile(t *testing.T) {
	t.Setenv("LOCKER_DIR", "/var/lib/locker")

	cfg, err := Parse([]byte(`
driver: file
file:
  dir: ${LOCKER_DIR}/locks
  lock_timeout: 2s
  retry_delay: 25ms
`))
	require.NoError(t, err)

	assert.Equal(t, DriverFile, cfg.Driver)
	assert.Equal(t, "/var/lib/locker/locks", cfg.File.Dir)
	assert.Equal(t, 2*time.Second, cfg.File.LockTimeout)
	assert.Equal(t, 25*time.Millisecond, cfg.File.RetryDelay)
}

func TestParseRedis(t *testing.T) {
	cfg, err := Parse([]byte(`
driver: redis
redis:
  addrs: [localhost:6379, localhost:6380]
  db: 2
  table: locks
  prefix: "app:"
  operation_timeout: 3s
`))
	require.NoError(t, err)

	assert.Equal(t, []string{"localhost:6379", "localhost:6380"}, cfg.Redis.Addrs)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, "locks", cfg.Redis.Table)
	assert.Equal(t, "app:", cfg.Redis.Prefix)
	assert.Equal(t, 3*time.Second, cfg.Redis.OperationTimeout)
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"unknown driver", "driver: etcd", `unknown driver "etcd"`},
		{"missing driver", "file:\n  dir: /tmp", `unknown driver ""`},
		{"file without dir", "driver: file", "file.dir is required"},
		{"redis without address", "driver: redis", "redis.url or redis.addrs is required"},
		{"postgres without dsn", "driver: postgres", "postgres.dsn is required"},
		{"sqlite bad table", "driver: sqlite\nsqlite:\n  dsn: x.db\n  table: drop;table", `invalid sqlite.table "drop;table"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			require.Error(t, err)
			assert.True(t, errors.IsValidation(err), "expected ValidationError, got %v", err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseMalformed(t *testing.T) {
	_, err := Parse([]byte("driver: [file"))
	require.Error(t, err)
	assert.False(t, errors.IsValidation(err))
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locker.yaml")
	require.NoError(t, os.WriteFile(path, []byte("driver: memory\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.Driver)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func open(t *testing.T, cfg *Config) lock.Store {
	t.Helper()

	s, closer, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, closer.Close())
	})
	return s
}

func roundTrip(t *testing.T, s lock.Store) {
	t.Helper()
	ctx := context.Background()

	l, err := lock.New("Config Lock", "payload")
	require.NoError(t, err)
	require.NoError(t, s.Acquire(ctx, l))

	got, err := s.Get(ctx, "config-lock")
	require.NoError(t, err)
	assert.Equal(t, l.ID(), got.ID())
}

func TestOpenMemory(t *testing.T) {
	s := open(t, &Config{Driver: DriverMemory})
	assert.IsType(t, &inmem.Store{}, s)
	roundTrip(t, s)
}

func TestOpenFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "locks")
	s := open(t, &Config{Driver: DriverFile, File: FileOptions{Dir: dir}})
	assert.IsType(t, &file.Store{}, s)
	roundTrip(t, s)

	_, err := os.Stat(filepath.Join(dir, "config-lock.lock"))
	assert.NoError(t, err)
}

func TestOpenFileNotADirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "regular")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	_, _, err := Open(context.Background(), &Config{Driver: DriverFile, File: FileOptions{Dir: path}})
	assert.True(t, errors.IsInvalidConfiguration(err), "expected InvalidConfigurationError, got %v", err)
}

func TestOpenSQLite(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "locks.db")
	s := open(t, &Config{Driver: DriverSQLite, SQLite: DatabaseOptions{DSN: dsn, TableName: "locks"}})
	assert.IsType(t, &relational.Store{}, s)
	roundTrip(t, s)
}

func TestOpenRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	t.Run("addrs", func(t *testing.T) {
		s := open(t, &Config{Driver: DriverRedis, Redis: RedisOptions{Addrs: []string{mr.Addr()}, Prefix: "addrs:"}})
		assert.IsType(t, &lockredis.Store{}, s)
		roundTrip(t, s)
	})

	t.Run("url", func(t *testing.T) {
		s := open(t, &Config{Driver: DriverRedis, Redis: RedisOptions{URL: "redis://" + mr.Addr() + "/0", Prefix: "url:"}})
		roundTrip(t, s)
	})

	assert.True(t, mr.Exists("addrs:lockerstore"))
	assert.True(t, mr.Exists("url:lockerstore"))
}

func TestOpenUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, _, err := Open(ctx, &Config{Driver: DriverRedis, Redis: RedisOptions{Addrs: []string{addr}}})
	assert.True(t, errors.IsInvalidConfiguration(err), "redis: %v", err)

	_, _, err = Open(ctx, &Config{Driver: DriverPostgres, Postgres: DatabaseOptions{DSN: "postgres://locker@" + addr + "/locker?connect_timeout=1"}})
	assert.True(t, errors.IsInvalidConfiguration(err), "postgres: %v", err)
}

func TestOpenInvalidConfig(t *testing.T) {
	_, _, err := Open(context.Background(), &Config{Driver: "zookeeper"})
	assert.True(t, errors.IsValidation(err))
}
