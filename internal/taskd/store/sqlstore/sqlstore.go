// Package sqlstore holds the SQL shared by the sqlite and postgres drivers.
// Queries are written with '?' placeholders and rebound per dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/aussiebroadwan/taskd/internal/taskd/store"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Dialect captures what differs between drivers.
type Dialect struct {
	// Numbered rewrites '?' into $1, $2, ... for postgres.
	Numbered bool

	// IsUniqueViolation reports whether err is a unique constraint failure.
	IsUniqueViolation func(error) bool
}

func (d Dialect) rebind(q string) string {
	if !d.Numbered {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// DB implements everything in store.Store except ApplyMigrations, which
// each driver provides with its own migration tool.
type DB struct {
	db *sql.DB
	d  Dialect
	repos
}

func New(db *sql.DB, d Dialect) *DB {
	return &DB{db: db, d: d, repos: repos{q: querier{db: db, d: d}}}
}

// SQL exposes the underlying pool for migrations.
func (s *DB) SQL() *sql.DB { return s.db }

func (s *DB) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *DB) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// WithTx executes fn within a transaction, automatically handling commit/rollback.
func (s *DB) WithTx(ctx context.Context, fn func(tx store.Repos) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	// Ensure rollback is called if we panic or return early with error
	defer func() {
		_ = tx.Rollback() // safe to call even after commit
	}()

	if err := fn(repos{q: querier{db: tx, d: s.d}}); err != nil {
		return err
	}
	return tx.Commit()
}

type repos struct {
	q querier
}

func (r repos) Accounts() store.Accounts               { return accountsRepo(r) }
func (r repos) RefreshSessions() store.RefreshSessions { return sessionsRepo(r) }
func (r repos) Tasks() store.Tasks                     { return tasksRepo(r) }
func (r repos) Tags() store.Tags                       { return tagsRepo(r) }

// querier rebinds every statement and maps driver errors onto the store
// sentinels.
type querier struct {
	db DBTX
	d  Dialect
}

func (q querier) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	res, err := q.db.ExecContext(ctx, q.d.rebind(query), args...)
	return res, q.mapErr(err)
}

func (q querier) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	rows, err := q.db.QueryContext(ctx, q.d.rebind(query), args...)
	return rows, q.mapErr(err)
}

func (q querier) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return q.db.QueryRowContext(ctx, q.d.rebind(query), args...)
}

func (q querier) mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return store.ErrNotFound
	case q.d.IsUniqueViolation != nil && q.d.IsUniqueViolation(err):
		return store.ErrAlreadyExists
	default:
		return err
	}
}

// affected turns a zero-row update or delete into ErrNotFound.
func affected(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
