package service

import (
	"context"
	"errors"
	"strings"

	"github.com/aussiebroadwan/taskd/internal/taskd/cache"
	"github.com/aussiebroadwan/taskd/internal/taskd/domain"
	"github.com/aussiebroadwan/taskd/internal/taskd/store"
	"github.com/aussiebroadwan/taskd/pkg/cryptox"
	"github.com/aussiebroadwan/taskd/pkg/slogx"
)

type UpdateAccountInput struct {
	Username *string `json:"username,omitempty" validate:"omitnil,min=3,max=64"`
	Password *string `json:"password,omitempty" validate:"omitnil,min=8,max=128"`
}

type AccountService struct {
	Store  store.Store
	Hasher *cryptox.Hasher
	Cache  *cache.QueryCache
}

func (s *AccountService) Me(ctx context.Context, id int64) (domain.Account, error) {
	account, err := s.Store.Accounts().GetAccountByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Account{}, notFound("account not found")
	}
	if err != nil {
		return domain.Account{}, storageErr("get account", err)
	}
	return account, nil
}

// List returns every account. Callers must already hold the ADMIN role.
func (s *AccountService) List(ctx context.Context) ([]domain.Account, error) {
	accounts, err := s.Store.Accounts().ListAccounts(ctx)
	if err != nil {
		return nil, storageErr("list accounts", err)
	}
	return accounts, nil
}

// UpdateProfile changes the username and/or password. A new password ends
// the current refresh session so other devices must sign in again.
func (s *AccountService) UpdateProfile(ctx context.Context, id int64, in UpdateAccountInput) (domain.Account, error) {
	if in.Username != nil {
		u := strings.TrimSpace(*in.Username)
		in.Username = &u
	}
	if err := Validate(in); err != nil {
		return domain.Account{}, err
	}

	var updated domain.Account
	err := s.Store.WithTx(ctx, func(tx store.Repos) error {
		account, err := tx.Accounts().GetAccountByID(ctx, id)
		if err != nil {
			return err
		}
		if in.Username != nil {
			account.Username = *in.Username
		}
		if in.Password != nil {
			hash, err := s.Hasher.Hash(*in.Password)
			if err != nil {
				return err
			}
			account.PasswordHash = hash
			if err := tx.RefreshSessions().DeleteRefreshSession(ctx, id); err != nil {
				return err
			}
		}
		updated, err = tx.Accounts().UpdateAccount(ctx, account)
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return domain.Account{}, notFound("account not found")
	}
	if err != nil {
		return domain.Account{}, storageErr("update account", err)
	}
	return updated, nil
}

// Delete removes an account with its session and tasks. An admin cannot
// delete itself.
func (s *AccountService) Delete(ctx context.Context, actorID, id int64) error {
	if actorID == id {
		return forbidden("cannot delete own account")
	}

	err := s.Store.Accounts().DeleteAccount(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return notFound("account not found")
	}
	if err != nil {
		return storageErr("delete account", err)
	}

	slogx.FromContext(ctx).Info("account deleted", "account_id", id, "by", actorID)
	if s.Cache != nil {
		if err := s.Cache.Invalidate(ctx, id); err != nil {
			slogx.FromContext(ctx).Error("query cache invalidation failed", "account_id", id, "err", err)
		}
	}
	return nil
}

// SetRole changes the role of the account registered under email. It backs
// the operator CLI, the only way an ADMIN comes to exist. Tokens already
// issued keep their old role claim until the next refresh.
func (s *AccountService) SetRole(ctx context.Context, email string, role domain.Role) (domain.Account, error) {
	if !role.Valid() {
		return domain.Account{}, &Error{
			Kind:   KindInvalid,
			Reason: "validation failed",
			Fields: map[string]string{"role": "role must be one of USER, ADMIN"},
		}
	}

	var updated domain.Account
	err := s.Store.WithTx(ctx, func(tx store.Repos) error {
		account, err := tx.Accounts().GetAccountByEmail(ctx, normalizeEmail(email))
		if err != nil {
			return err
		}
		account.Role = role
		updated, err = tx.Accounts().UpdateAccount(ctx, account)
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return domain.Account{}, notFound("account not found")
	}
	if err != nil {
		return domain.Account{}, storageErr("set role", err)
	}

	slogx.FromContext(ctx).Info("account role changed", "account_id", updated.ID, "role", updated.Role)
	return updated, nil
}
