package relational

import (
	"context"
	"database/sql"

	"github.com/enverbisevac/locker/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// row represents an object that can be scanned into a destination.
type row interface {
	Scan(dest ...any) error
}

// rows represents a database result set that can be iterated over.
type rows interface {
	Close() error
	Err() error
	Next() bool
	Scan(dest ...any) error
}

// querier runs statements on a pool, a database handle or a transaction
// of either driver.
type querier interface {
	exec(ctx context.Context, query string, args ...any) (int64, error)
	query(ctx context.Context, query string, args ...any) (rows, error)
	queryRow(ctx context.Context, query string, args ...any) row
}

// tx is a querier that has to be committed or rolled back.
type tx interface {
	querier
	commit(ctx context.Context) error
	rollback(ctx context.Context) error
}

// pgxConn is implemented by *pgxpool.Pool and pgx.Tx.
type pgxConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type pgxQuerier struct {
	conn pgxConn
}

func (q pgxQuerier) exec(ctx context.Context, query string, args ...any) (int64, error) {
	tag, err := q.conn.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (q pgxQuerier) query(ctx context.Context, query string, args ...any) (rows, error) {
	r, err := q.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgxRows{r}, nil
}

func (q pgxQuerier) queryRow(ctx context.Context, query string, args ...any) row {
	return q.conn.QueryRow(ctx, query, args...)
}

type pgxTx struct {
	pgxQuerier
	tx pgx.Tx
}

func (t pgxTx) commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t pgxTx) rollback(ctx context.Context) error {
	return t.tx.Rollback(ctx)
}

// pgxRows adapts pgx.Rows, whose Close reports nothing.
type pgxRows struct {
	pgx.Rows
}

func (r pgxRows) Close() error {
	r.Rows.Close()
	return nil
}

// sqlConn is implemented by *sql.DB, *sql.Conn and *sql.Tx.
type sqlConn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type sqlQuerier struct {
	conn sqlConn
}

func (q sqlQuerier) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := q.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q sqlQuerier) query(ctx context.Context, query string, args ...any) (rows, error) {
	return q.conn.QueryContext(ctx, query, args...)
}

func (q sqlQuerier) queryRow(ctx context.Context, query string, args ...any) row {
	return q.conn.QueryRowContext(ctx, query, args...)
}

type sqlTx struct {
	sqlQuerier
	tx *sql.Tx
}

func (t sqlTx) commit(context.Context) error {
	return t.tx.Commit()
}

func (t sqlTx) rollback(context.Context) error {
	return t.tx.Rollback()
}

// connTx is a transaction opened with an explicit statement on a
// dedicated connection.
type connTx struct {
	sqlQuerier
	conn *sql.Conn
}

func beginConn(ctx context.Context, db *sql.DB, stmt string) (connTx, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return connTx{}, err
	}
	if _, err := conn.ExecContext(ctx, stmt); err != nil {
		_ = conn.Close()
		return connTx{}, err
	}
	return connTx{sqlQuerier: sqlQuerier{conn: conn}, conn: conn}, nil
}

func (t connTx) commit(ctx context.Context) error {
	if _, err := t.conn.ExecContext(ctx, "COMMIT"); err != nil {
		_ = t.rollback(ctx)
		return err
	}
	return t.conn.Close()
}

// rollback runs even when ctx is done, the connection must not return to
// the pool inside a transaction.
func (t connTx) rollback(ctx context.Context) error {
	_, err := t.conn.ExecContext(context.WithoutCancel(ctx), "ROLLBACK")
	return errors.Join(err, t.conn.Close())
}

// scanRows iterates over r and applies scanFunc to each row. The rows are
// closed in every case.
func scanRows(r rows, scanFunc func(row row) error) (err error) {
	defer func() {
		if cerr := r.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	for r.Next() {
		if err := scanFunc(r); err != nil {
			return err
		}
	}
	return r.Err()
}
