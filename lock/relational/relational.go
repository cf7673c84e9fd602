// Package relational implements lock.Store on a SQL table, either on
// PostgreSQL through pgx or on any database/sql driver with a matching
// Dialect.
package relational

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/enverbisevac/locker/errors"
	"github.com/enverbisevac/locker/lock"
	"github.com/enverbisevac/locker/slug"
	"github.com/enverbisevac/locker/validator"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var DefaultTableName = "lockerstore"

var _ lock.Store = (*Store)(nil)

// Store implements lock.Store using one row per lock.
type Store struct {
	config Config
	pool   *pgxpool.Pool
	db     *sql.DB

	mu       sync.Mutex
	migrated bool
}

// New creates a PostgreSQL store using pgxpool.
func New(pool *pgxpool.Pool, options ...Option) (*Store, error) {
	if pool == nil {
		return nil, errors.InvalidConfiguration(nil, "pgx pool is required")
	}

	config, err := newConfig(options...)
	if err != nil {
		return nil, err
	}
	config.Dialect = Postgres

	return &Store{
		config: config,
		pool:   pool,
	}, nil
}

// NewStdLib creates a store using database/sql. The dialect defaults to
// Postgres.
func NewStdLib(db *sql.DB, options ...Option) (*Store, error) {
	if db == nil {
		return nil, errors.InvalidConfiguration(nil, "database handle is required")
	}

	config, err := newConfig(options...)
	if err != nil {
		return nil, err
	}

	return &Store{
		config: config,
		db:     db,
	}, nil
}

func newConfig(options ...Option) (Config, error) {
	config := Config{
		TableName: DefaultTableName,
		Dialect:   Postgres,
	}
	for _, opt := range options {
		opt.Apply(&config)
	}

	if !validator.IsIdentifier(config.TableName) {
		return config, errors.InvalidConfiguration(nil, "invalid table name %q", config.TableName)
	}
	return config, nil
}

// Dialect returns the SQL dialect of the store.
func (s *Store) Dialect() Dialect {
	return s.config.Dialect
}

// Migrate creates the lock table and its index when they are missing.
// Other methods migrate on first use, so calling it is optional.
func (s *Store) Migrate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.migrated {
		return nil
	}

	q := s.querier()
	for _, stmt := range s.config.Dialect.CreateTable(s.config.TableName) {
		if _, err := q.exec(ctx, stmt); err != nil {
			return fmt.Errorf("relational: migrate: %w", err)
		}
	}
	s.migrated = true
	return nil
}

func (s *Store) querier() querier {
	if s.pool != nil {
		return pgxQuerier{conn: s.pool}
	}
	return sqlQuerier{conn: s.db}
}

func (s *Store) begin(ctx context.Context) (tx, error) {
	if s.pool != nil {
		t, err := s.pool.Begin(ctx)
		if err != nil {
			return nil, err
		}
		return pgxTx{pgxQuerier: pgxQuerier{conn: t}, tx: t}, nil
	}

	if stmt := s.config.Dialect.Begin(); stmt != "" {
		return beginConn(ctx, s.db, stmt)
	}

	t, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return sqlTx{sqlQuerier: sqlQuerier{conn: t}, tx: t}, nil
}

// withTx runs fn in a transaction, committing when fn succeeds and rolling
// back otherwise. Collisions with other writers surface as LockingFailure.
func (s *Store) withTx(ctx context.Context, op string, fn func(q querier) error) error {
	if err := s.Migrate(ctx); err != nil {
		return err
	}

	t, err := s.begin(ctx)
	if err != nil {
		return s.conflict(op, fmt.Errorf("relational: %s: begin tx: %w", op, err))
	}

	if err := fn(t); err != nil {
		_ = t.rollback(ctx)
		return s.conflict(op, err)
	}

	if err := t.commit(ctx); err != nil {
		return s.conflict(op, fmt.Errorf("relational: %s: commit: %w", op, err))
	}
	return nil
}

// conflict turns err into a LockingFailure when the database reported a
// lock held by another writer.
func (s *Store) conflict(op string, err error) error {
	if s.config.Dialect.IsLockConflict(err) {
		return errors.LockingFailure(err, "%s failed, record is locked by another writer", op)
	}
	return err
}

func (s *Store) bind(query string, n int) string {
	args := make([]any, n)
	for i := range args {
		args[i] = s.config.Dialect.Placeholder(i + 1)
	}
	return fmt.Sprintf(query, args...)
}

const columns = `id, lock_key, canonical_key, payload, created_at, modified_at`

func (s *Store) Acquire(ctx context.Context, l *lock.Lock) error {
	key := l.CanonicalKey()
	query := s.bind(fmt.Sprintf(
		`INSERT INTO %s (%s) VALUES (%%s, %%s, %%s, %%s, %%s, %%s)`,
		s.config.TableName, columns,
	), 6)

	return s.withTx(ctx, "acquire", func(q querier) error {
		_, err := q.exec(ctx, query,
			l.ID().String(), l.Key(), key, []byte(l.Payload()), l.CreatedAt(), l.ModifiedAt(),
		)
		if err != nil {
			if s.config.Dialect.IsUniqueViolation(err) {
				return errors.AlreadyExists("lock ${%q} already exists", key)
			}
			return fmt.Errorf("relational: acquire %q: %w", key, err)
		}
		return nil
	})
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	if err := s.Migrate(ctx); err != nil {
		return false, err
	}

	query := s.bind(fmt.Sprintf(
		`SELECT COUNT(*) FROM %s WHERE canonical_key = %%s`,
		s.config.TableName,
	), 1)

	var n int64
	if err := s.querier().queryRow(ctx, query, slug.Make(key)).Scan(&n); err != nil {
		return false, s.conflict("exists", fmt.Errorf("relational: exists: %w", err))
	}
	return n > 0, nil
}

func (s *Store) Get(ctx context.Context, key string) (*lock.Lock, error) {
	if err := s.Migrate(ctx); err != nil {
		return nil, err
	}
	l, err := s.get(ctx, s.querier(), slug.Make(key), "")
	if err != nil {
		return nil, s.conflict("get", err)
	}
	return l, nil
}

func (s *Store) get(ctx context.Context, q querier, key, suffix string) (*lock.Lock, error) {
	query := s.bind(fmt.Sprintf(
		`SELECT %s FROM %s WHERE canonical_key = %%s`,
		columns, s.config.TableName,
	), 1) + suffix

	l, err := scanLock(q.queryRow(ctx, query, key))
	if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFound("lock ${%q} not found", key)
	}
	if err != nil {
		return nil, fmt.Errorf("relational: get %q: %w", key, err)
	}
	return l, nil
}

// Update reads, modifies and rewrites the row in one transaction. Postgres
// holds the row lock until commit, so concurrent updates serialize.
func (s *Store) Update(ctx context.Context, key string, payload any) error {
	key = slug.Make(key)
	query := s.bind(fmt.Sprintf(
		`UPDATE %s SET payload = %%s, modified_at = %%s WHERE canonical_key = %%s AND id = %%s`,
		s.config.TableName,
	), 4)

	return s.withTx(ctx, "update", func(q querier) error {
		l, err := s.get(ctx, q, key, s.config.Dialect.LockClause())
		if err != nil {
			return err
		}
		if err := l.Update(payload); err != nil {
			return err
		}

		n, err := q.exec(ctx, query, []byte(l.Payload()), l.ModifiedAt(), key, l.ID().String())
		if err != nil {
			return fmt.Errorf("relational: update %q: %w", key, err)
		}
		if n == 0 {
			return errors.NotFound("lock ${%q} not found", key)
		}
		return nil
	})
}

func (s *Store) Delete(ctx context.Context, key string) error {
	key = slug.Make(key)
	query := s.bind(fmt.Sprintf(
		`DELETE FROM %s WHERE canonical_key = %%s`,
		s.config.TableName,
	), 1)

	return s.withTx(ctx, "delete", func(q querier) error {
		n, err := q.exec(ctx, query, key)
		if err != nil {
			return fmt.Errorf("relational: delete %q: %w", key, err)
		}
		if n == 0 {
			return errors.NotFound("lock ${%q} not found", key)
		}
		return nil
	})
}

func (s *Store) Clear(ctx context.Context) error {
	query := fmt.Sprintf(`DELETE FROM %s`, s.config.TableName)

	return s.withTx(ctx, "clear", func(q querier) error {
		if _, err := q.exec(ctx, query); err != nil {
			return fmt.Errorf("relational: clear: %w", err)
		}
		return nil
	})
}

// List returns the records ordered by creation time.
func (s *Store) List(ctx context.Context) ([]*lock.Lock, error) {
	if err := s.Migrate(ctx); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(
		`SELECT %s FROM %s ORDER BY created_at, canonical_key`,
		columns, s.config.TableName,
	)

	r, err := s.querier().query(ctx, query)
	if err != nil {
		return nil, s.conflict("list", fmt.Errorf("relational: list: %w", err))
	}

	var locks []*lock.Lock
	err = scanRows(r, func(row row) error {
		l, err := scanLock(row)
		if err != nil {
			return err
		}
		locks = append(locks, l)
		return nil
	})
	if err != nil {
		return nil, s.conflict("list", fmt.Errorf("relational: list: %w", err))
	}
	return locks, nil
}

func scanLock(r row) (*lock.Lock, error) {
	var (
		id, key, canonical    string
		payload               []byte
		createdAt, modifiedAt time.Time
	)
	if err := r.Scan(&id, &key, &canonical, &payload, &createdAt, &modifiedAt); err != nil {
		return nil, err
	}

	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid lock id %q: %w", id, err)
	}
	return lock.Restore(uid, key, payload, createdAt, modifiedAt), nil
}
