package httpx

import (
	"context"
	"errors"
	"net/http"
	"slices"

	"github.com/aussiebroadwan/taskd/pkg/jwtx"
	"github.com/aussiebroadwan/taskd/pkg/slogx"
)

// Reasons carried in the message of 401/403 responses.
const (
	ReasonTokenEmpty       = "TOKEN_EMPTY"
	ReasonTokenBlacklisted = "TOKEN_BLACKLISTED"
	ReasonTokenInvalid     = "TOKEN_INVALID"
	ReasonTokenExpired     = "TOKEN_EXPIRED"
	ReasonUnauthorized     = "UNAUTHORIZED"
	ReasonForbidden        = "FORBIDDEN"
)

// RouteConfig declares how a route is protected. An empty AllowedRoles
// means any authenticated caller.
type RouteConfig struct {
	Public       bool
	AllowedRoles []string
}

// AccessVerifier fully verifies an access token. Errors wrapping
// jwtx.ErrInvalid are client errors; anything else is treated as an
// internal failure.
type AccessVerifier interface {
	VerifyAccess(ctx context.Context, token string) (jwtx.Claims, error)
}

// RevocationChecker answers whether a token has been blacklisted.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// Guard is the per-request authentication gate: revocation check, then
// verification, then role check.
type Guard struct {
	verifier    AccessVerifier
	revocations RevocationChecker

	// failOpen lets requests through when the revocation lookup errors.
	failOpen bool
}

func NewGuard(v AccessVerifier, rc RevocationChecker, failOpen bool) *Guard {
	return &Guard{verifier: v, revocations: rc, failOpen: failOpen}
}

// Route returns the middleware enforcing cfg.
func (g *Guard) Route(cfg RouteConfig) Middleware {
	return func(next http.Handler) http.Handler {
		if cfg.Public {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			token := BearerToken(r)
			if token == "" {
				writeUnauthorized(w, r, ReasonTokenEmpty)
				return
			}

			revoked, err := g.revocations.IsRevoked(ctx, token)
			switch {
			case err != nil && !g.failOpen:
				log.Error("security: revocation check unavailable, denying request",
					"err", err, "path", r.URL.Path)
				writeUnauthorized(w, r, ReasonUnauthorized)
				return
			case err != nil:
				log.Error("security: revocation check unavailable, allowing request",
					"err", err, "path", r.URL.Path)
			case revoked:
				writeUnauthorized(w, r, ReasonTokenBlacklisted)
				return
			}

			claims, err := g.verifier.VerifyAccess(ctx, token)
			switch {
			case errors.Is(err, jwtx.ErrExpired):
				writeUnauthorized(w, r, ReasonTokenExpired)
				return
			case errors.Is(err, jwtx.ErrInvalid):
				log.Debug("access token rejected", "err", err)
				writeUnauthorized(w, r, ReasonTokenInvalid)
				return
			case err != nil:
				log.Error("access token verification failed", "err", err)
				WriteError(w, r, http.StatusInternalServerError, "internal server error")
				return
			}

			if len(cfg.AllowedRoles) > 0 && !slices.Contains(cfg.AllowedRoles, claims.Role) {
				WriteError(w, r, http.StatusForbidden, ReasonForbidden)
				return
			}

			ctx = slogx.With(contextWithAuth(ctx, token, claims), "account_id", claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RFC 6750 challenge plus the structured body.
func writeUnauthorized(w http.ResponseWriter, r *http.Request, reason string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+reason+`"`)
	WriteError(w, r, http.StatusUnauthorized, reason)
}
