package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/aussiebroadwan/taskd/internal/taskd/domain"
	"github.com/aussiebroadwan/taskd/internal/taskd/store"
	"github.com/aussiebroadwan/taskd/pkg/cryptox"
	"github.com/aussiebroadwan/taskd/pkg/jwtx"
	"github.com/aussiebroadwan/taskd/pkg/slogx"
)

// invalidCredentials is the single message for every sign-in failure.
const invalidCredentials = "invalid credentials"

type SignUpInput struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type SignInInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// TokenRevoker blacklists access tokens until their natural expiry.
type TokenRevoker interface {
	Revoke(ctx context.Context, token string, ttl time.Duration) error
}

// SessionService composes password checks, token issuance and the refresh
// ledger into the sign-up, sign-in, refresh and sign-out flows.
type SessionService struct {
	Store       store.Store
	Codec       *jwtx.Codec
	Hasher      *cryptox.Hasher
	Revocations TokenRevoker

	Now func() time.Time

	// dummyHash is verified against when the email is unknown so both
	// sign-in failure paths cost one argon2 run.
	dummyHash string
}

func NewSessionService(st store.Store, codec *jwtx.Codec, hasher *cryptox.Hasher, revs TokenRevoker) (*SessionService, error) {
	dummy, err := hasher.Hash("taskd-dummy-password")
	if err != nil {
		return nil, err
	}
	return &SessionService{
		Store:       st,
		Codec:       codec,
		Hasher:      hasher,
		Revocations: revs,
		Now:         time.Now,
		dummyHash:   dummy,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignUp creates a USER account and signs it in.
func (s *SessionService) SignUp(ctx context.Context, in SignUpInput) (domain.AuthResult, error) {
	in.Email = normalizeEmail(in.Email)
	in.Username = strings.TrimSpace(in.Username)
	if err := Validate(in); err != nil {
		return domain.AuthResult{}, err
	}

	_, err := s.Store.Accounts().GetAccountByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return domain.AuthResult{}, conflict("account already exists")
	case !errors.Is(err, store.ErrNotFound):
		return domain.AuthResult{}, storageErr("lookup account", err)
	}

	hash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		return domain.AuthResult{}, err
	}

	account, err := s.Store.Accounts().CreateAccount(ctx, domain.Account{
		Email:        in.Email,
		Username:     in.Username,
		PasswordHash: hash,
		Role:         domain.RoleUser,
	})
	if errors.Is(err, store.ErrAlreadyExists) {
		// Lost a race with a concurrent sign-up for the same email.
		return domain.AuthResult{}, conflict("account already exists")
	}
	if err != nil {
		return domain.AuthResult{}, storageErr("create account", err)
	}

	slogx.FromContext(ctx).Info("account created", "account_id", account.ID)
	return s.issue(ctx, account)
}

// SignIn verifies credentials. Unknown email and wrong password are
// indistinguishable to the caller, in message and in timing.
func (s *SessionService) SignIn(ctx context.Context, in SignInInput) (domain.AuthResult, error) {
	in.Email = normalizeEmail(in.Email)
	if err := Validate(in); err != nil {
		return domain.AuthResult{}, err
	}

	account, err := s.Store.Accounts().GetAccountByEmail(ctx, in.Email)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return domain.AuthResult{}, storageErr("lookup account", err)
		}
		_ = s.Hasher.Verify(in.Password, s.dummyHash)
		return domain.AuthResult{}, unauthorized(invalidCredentials, nil)
	}

	if err := s.Hasher.Verify(in.Password, account.PasswordHash); err != nil {
		if !errors.Is(err, cryptox.ErrMismatch) {
			slogx.FromContext(ctx).Error("stored password hash unreadable", "account_id", account.ID, "err", err)
		}
		return domain.AuthResult{}, unauthorized(invalidCredentials, nil)
	}

	return s.issue(ctx, account)
}

// Refresh rotates the refresh token. Only the most recently issued token
// matches the ledger; presenting an older one revokes the whole session.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (domain.AuthResult, error) {
	log := slogx.FromContext(ctx)

	claims, err := s.Codec.VerifyRefresh(refreshToken)
	if err != nil {
		if errors.Is(err, jwtx.ErrExpired) {
			return domain.AuthResult{}, unauthorized(ReasonRefreshExpired, err)
		}
		return domain.AuthResult{}, unauthorized(ReasonRefreshInvalid, err)
	}
	accountID, _ := claims.AccountID() // verified by the codec

	account, err := s.Store.Accounts().GetAccountByID(ctx, accountID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.AuthResult{}, unauthorized(ReasonRefreshInvalid, err)
	}
	if err != nil {
		return domain.AuthResult{}, storageErr("lookup account", err)
	}

	session, err := s.Store.RefreshSessions().GetRefreshSession(ctx, accountID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.AuthResult{}, unauthorized(ReasonRefreshInvalid, err)
	}
	if err != nil {
		return domain.AuthResult{}, storageErr("lookup refresh session", err)
	}

	if err := s.Hasher.Verify(refreshToken, session.TokenHash); err != nil {
		log.Warn("superseded refresh token presented, revoking session", "account_id", accountID)
		if derr := s.Store.RefreshSessions().DeleteRefreshSession(ctx, accountID); derr != nil {
			return domain.AuthResult{}, storageErr("delete refresh session", derr)
		}
		return domain.AuthResult{}, unauthorized(ReasonRefreshInvalid, err)
	}

	if session.Expired(s.Now()) {
		return domain.AuthResult{}, unauthorized(ReasonRefreshExpired, nil)
	}

	return s.issue(ctx, account)
}

// SignOut ends the session behind refreshToken. When the caller also
// presents its access token for the same account, that token is blacklisted
// for the rest of its lifetime; a failed blacklist write is logged and does
// not fail the sign-out.
func (s *SessionService) SignOut(ctx context.Context, refreshToken, accessToken string) error {
	log := slogx.FromContext(ctx)

	claims, err := s.Codec.VerifyRefresh(refreshToken)
	if err != nil {
		return unauthorized(ReasonRefreshInvalid, err)
	}
	accountID, _ := claims.AccountID()

	if err := s.Store.RefreshSessions().DeleteRefreshSession(ctx, accountID); err != nil {
		return storageErr("delete refresh session", err)
	}

	if accessToken == "" || s.Revocations == nil {
		return nil
	}
	access, err := s.Codec.VerifyAccess(accessToken)
	if err != nil || access.Subject != claims.Subject {
		log.Debug("access token not blacklisted on sign-out", "err", err)
		return nil
	}
	if err := s.Revocations.Revoke(ctx, accessToken, access.ExpiresIn(s.Now())); err != nil {
		log.Error("security: failed to blacklist access token on sign-out",
			"account_id", accountID, "jti", access.ID, "err", err)
	}
	return nil
}

// VerifyAccess checks an access token and that its account still exists.
// Token failures are returned as jwtx errors for the HTTP guard.
func (s *SessionService) VerifyAccess(ctx context.Context, token string) (jwtx.Claims, error) {
	claims, err := s.Codec.VerifyAccess(token)
	if err != nil {
		return jwtx.Claims{}, err
	}
	accountID, _ := claims.AccountID()

	if _, err := s.Store.Accounts().GetAccountByID(ctx, accountID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return jwtx.Claims{}, jwtx.ErrInvalidClaim
		}
		return jwtx.Claims{}, storageErr("lookup account", err)
	}
	return claims, nil
}

// issue signs a fresh pair and overwrites the account's ledger row. The
// upsert is last-writer-wins, so two concurrent rotations leave exactly one
// usable refresh token.
func (s *SessionService) issue(ctx context.Context, account domain.Account) (domain.AuthResult, error) {
	id := jwtx.Identity{AccountID: account.ID, Email: account.Email, Role: string(account.Role)}

	access, _, err := s.Codec.Issue(id, jwtx.TypeAccess)
	if err != nil {
		return domain.AuthResult{}, err
	}
	refresh, refreshClaims, err := s.Codec.Issue(id, jwtx.TypeRefresh)
	if err != nil {
		return domain.AuthResult{}, err
	}

	hash, err := s.Hasher.Hash(refresh)
	if err != nil {
		return domain.AuthResult{}, err
	}

	expiresAt := refreshClaims.ExpiresAt.Time
	if err := s.Store.RefreshSessions().UpsertRefreshSession(ctx, domain.RefreshSession{
		AccountID: account.ID,
		TokenHash: hash,
		ExpiresAt: expiresAt,
	}); err != nil {
		return domain.AuthResult{}, storageErr("upsert refresh session", err)
	}

	return domain.AuthResult{
		AccessToken:      access,
		RefreshToken:     refresh,
		RefreshExpiresAt: expiresAt,
		Account:          account,
	}, nil
}
