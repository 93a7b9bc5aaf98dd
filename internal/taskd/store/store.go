package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/taskd/internal/taskd/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite,
// postgres) implement it and expose sub-repositories. The Tx handed to
// WithTx has no WithTx of its own, so transactions cannot nest.
type Store interface {
	Repos

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed.
	WithTx(ctx context.Context, fn func(tx Repos) error) error

	ApplyMigrations(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// Repos groups the sub-repositories available both inside and outside a
// transaction.
type Repos interface {
	Accounts() Accounts
	RefreshSessions() RefreshSessions
	Tasks() Tasks
	Tags() Tags
}

type Accounts interface {
	// CreateAccount inserts a and returns it with its generated id and
	// timestamps. ErrAlreadyExists on duplicate email.
	CreateAccount(ctx context.Context, a domain.Account) (domain.Account, error)

	GetAccountByEmail(ctx context.Context, email string) (domain.Account, error)
	GetAccountByID(ctx context.Context, id int64) (domain.Account, error)
	ListAccounts(ctx context.Context) ([]domain.Account, error)

	// UpdateAccount writes username, password hash and role.
	UpdateAccount(ctx context.Context, a domain.Account) (domain.Account, error)

	// DeleteAccount cascades to the refresh session and tasks (per schema).
	DeleteAccount(ctx context.Context, id int64) error
}

type RefreshSessions interface {
	// UpsertRefreshSession replaces the account's single ledger row.
	UpsertRefreshSession(ctx context.Context, s domain.RefreshSession) error
	GetRefreshSession(ctx context.Context, accountID int64) (domain.RefreshSession, error)

	// DeleteRefreshSession is idempotent; a missing row is not an error.
	DeleteRefreshSession(ctx context.Context, accountID int64) error

	// DeleteExpiredRefreshSessions is housekeeping; returns rows removed.
	DeleteExpiredRefreshSessions(ctx context.Context, now time.Time) (int64, error)
}

type Tasks interface {
	CreateTask(ctx context.Context, t domain.Task) (domain.Task, error)

	// ListTasks returns one page and the total match count.
	ListTasks(ctx context.Context, f domain.TaskFilter) ([]domain.Task, int, error)

	// GetTask is scoped to the owner; another account's task is ErrNotFound.
	GetTask(ctx context.Context, accountID, id int64) (domain.Task, error)
	UpdateTask(ctx context.Context, t domain.Task) (domain.Task, error)
	DeleteTask(ctx context.Context, accountID, id int64) error
}

type Tags interface {
	// UpsertTag returns the tag with name, creating it if needed.
	UpsertTag(ctx context.Context, name string) (domain.Tag, error)

	// AttachTag links a tag to a task; linking twice is a no-op.
	AttachTag(ctx context.Context, taskID, tagID int64) error
}
