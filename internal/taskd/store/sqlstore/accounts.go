package sqlstore

import (
	"context"
	"time"

	"github.com/aussiebroadwan/taskd/internal/taskd/domain"
)

type accountsRepo repos

const accountColumns = `id, email, username, password_hash, role, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (domain.Account, error) {
	var a domain.Account
	var role string
	err := row.Scan(&a.ID, &a.Email, &a.Username, &a.PasswordHash, &role, &a.CreatedAt, &a.UpdatedAt)
	a.Role = domain.Role(role)
	return a, err
}

func (r accountsRepo) CreateAccount(ctx context.Context, a domain.Account) (domain.Account, error) {
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now

	err := r.q.queryRow(ctx,
		`INSERT INTO accounts (email, username, password_hash, role, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 RETURNING id`,
		a.Email, a.Username, a.PasswordHash, string(a.Role), now, now,
	).Scan(&a.ID)
	if err != nil {
		return domain.Account{}, r.q.mapErr(err)
	}
	return a, nil
}

func (r accountsRepo) GetAccountByEmail(ctx context.Context, email string) (domain.Account, error) {
	a, err := scanAccount(r.q.queryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE email = ?`, email))
	return a, r.q.mapErr(err)
}

func (r accountsRepo) GetAccountByID(ctx context.Context, id int64) (domain.Account, error) {
	a, err := scanAccount(r.q.queryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id))
	return a, r.q.mapErr(err)
}

func (r accountsRepo) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	rows, err := r.q.query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r accountsRepo) UpdateAccount(ctx context.Context, a domain.Account) (domain.Account, error) {
	a.UpdatedAt = time.Now().UTC()
	err := affected(r.q.exec(ctx,
		`UPDATE accounts SET username = ?, password_hash = ?, role = ?, updated_at = ? WHERE id = ?`,
		a.Username, a.PasswordHash, string(a.Role), a.UpdatedAt, a.ID,
	))
	if err != nil {
		return domain.Account{}, err
	}
	return r.GetAccountByID(ctx, a.ID)
}

func (r accountsRepo) DeleteAccount(ctx context.Context, id int64) error {
	return affected(r.q.exec(ctx, `DELETE FROM accounts WHERE id = ?`, id))
}
