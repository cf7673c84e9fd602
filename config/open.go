package config

import (
	"context"
	"database/sql"
	"io"

	"github.com/enverbisevac/locker/errors"
	"github.com/enverbisevac/locker/lock"
	"github.com/enverbisevac/locker/lock/file"
	"github.com/enverbisevac/locker/lock/inmem"
	lockredis "github.com/enverbisevac/locker/lock/redis"
	"github.com/enverbisevac/locker/lock/relational"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	_ "modernc.org/sqlite"
)

type closerFunc func() error

func (f closerFunc) Close() error {
	return f()
}

var nopCloser = closerFunc(func() error { return nil })

// Open constructs the store selected by cfg. The returned closer releases
// the connections opened for it and must be called once the store is no
// longer used.
func Open(ctx context.Context, cfg *Config) (lock.Store, io.Closer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	switch cfg.Driver {
	case DriverFile:
		return openFile(cfg.File)
	case DriverRedis:
		return openRedis(ctx, cfg.Redis)
	case DriverPostgres:
		return openPostgres(ctx, cfg.Postgres)
	case DriverSQLite:
		return openSQLite(ctx, cfg.SQLite)
	default:
		return inmem.New(), nopCloser, nil
	}
}

func openFile(opts FileOptions) (lock.Store, io.Closer, error) {
	var options []file.Option
	if opts.LockTimeout > 0 {
		options = append(options, file.WithLockTimeout(opts.LockTimeout))
	}
	if opts.RetryDelay > 0 {
		options = append(options, file.WithRetryDelay(opts.RetryDelay))
	}

	s, err := file.New(opts.Dir, options...)
	if err != nil {
		return nil, nil, err
	}
	return s, nopCloser, nil
}

func openRedis(ctx context.Context, opts RedisOptions) (lock.Store, io.Closer, error) {
	var client redis.UniversalClient
	if opts.URL != "" {
		options, err := redis.ParseURL(opts.URL)
		if err != nil {
			return nil, nil, errors.InvalidConfiguration(err, "invalid redis url")
		}
		client = redis.NewClient(options)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    opts.Addrs,
			Username: opts.Username,
			Password: opts.Password,
			DB:       opts.DB,
		})
	}

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, errors.InvalidConfiguration(err, "cannot reach redis")
	}

	s, err := lockredis.New(client,
		lockredis.WithTable(opts.Table),
		lockredis.WithPrefix(opts.Prefix),
		lockredis.WithOperationTimeout(opts.OperationTimeout),
	)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return s, client, nil
}

func openPostgres(ctx context.Context, opts DatabaseOptions) (lock.Store, io.Closer, error) {
	pool, err := pgxpool.New(ctx, opts.DSN)
	if err != nil {
		return nil, nil, errors.InvalidConfiguration(err, "invalid postgres dsn")
	}
	closer := closerFunc(func() error {
		pool.Close()
		return nil
	})

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, errors.InvalidConfiguration(err, "cannot reach postgres")
	}

	s, err := relational.New(pool, relational.WithTableName(opts.TableName))
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return s, closer, nil
}

func openSQLite(ctx context.Context, opts DatabaseOptions) (lock.Store, io.Closer, error) {
	db, err := sql.Open("sqlite", opts.DSN)
	if err != nil {
		return nil, nil, errors.InvalidConfiguration(err, "invalid sqlite dsn")
	}
	// one writer at a time, concurrent connections fail with SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, errors.InvalidConfiguration(err, "cannot open sqlite database")
	}

	s, err := relational.NewStdLib(db,
		relational.WithDialect(relational.SQLite),
		relational.WithTableName(opts.TableName),
	)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return s, db, nil
}
