package sqlstore

import (
	"context"
	"time"

	"github.com/aussiebroadwan/taskd/internal/taskd/domain"
)

type sessionsRepo repos

// UpsertRefreshSession relies on the unique account_id: the newest token
// always replaces the previous one.
func (r sessionsRepo) UpsertRefreshSession(ctx context.Context, s domain.RefreshSession) error {
	now := time.Now().UTC()
	_, err := r.q.exec(ctx,
		`INSERT INTO refresh_sessions (account_id, token_hash, expires_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (account_id) DO UPDATE SET
		   token_hash = excluded.token_hash,
		   expires_at = excluded.expires_at,
		   updated_at = excluded.updated_at`,
		s.AccountID, s.TokenHash, s.ExpiresAt.UTC(), now, now,
	)
	return err
}

func (r sessionsRepo) GetRefreshSession(ctx context.Context, accountID int64) (domain.RefreshSession, error) {
	var s domain.RefreshSession
	err := r.q.queryRow(ctx,
		`SELECT account_id, token_hash, expires_at, created_at, updated_at
		 FROM refresh_sessions WHERE account_id = ?`, accountID,
	).Scan(&s.AccountID, &s.TokenHash, &s.ExpiresAt, &s.CreatedAt, &s.UpdatedAt)
	return s, r.q.mapErr(err)
}

func (r sessionsRepo) DeleteRefreshSession(ctx context.Context, accountID int64) error {
	_, err := r.q.exec(ctx, `DELETE FROM refresh_sessions WHERE account_id = ?`, accountID)
	return err
}

func (r sessionsRepo) DeleteExpiredRefreshSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.q.exec(ctx, `DELETE FROM refresh_sessions WHERE expires_at <= ?`, now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
