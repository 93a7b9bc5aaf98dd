package httpx

import (
	"context"

	"github.com/aussiebroadwan/taskd/pkg/jwtx"
)

type ctxKey string

const (
	ctxKeyClaims ctxKey = "claims"
	ctxKeyToken  ctxKey = "access_token"
)

func contextWithAuth(ctx context.Context, token string, c jwtx.Claims) context.Context {
	ctx = context.WithValue(ctx, ctxKeyClaims, c)
	ctx = context.WithValue(ctx, ctxKeyToken, token)
	return ctx
}

// ClaimsFromContext returns the verified claims the Guard attached.
func ClaimsFromContext(ctx context.Context) (jwtx.Claims, bool) {
	c, ok := ctx.Value(ctxKeyClaims).(jwtx.Claims)
	return c, ok
}

// AccountIDFromContext returns the caller's account id, or false on public
// routes.
func AccountIDFromContext(ctx context.Context) (int64, bool) {
	c, ok := ClaimsFromContext(ctx)
	if !ok {
		return 0, false
	}
	id, err := c.AccountID()
	return id, err == nil
}

// AccessTokenFromContext returns the raw bearer token that passed the Guard.
func AccessTokenFromContext(ctx context.Context) string {
	s, _ := ctx.Value(ctxKeyToken).(string)
	return s
}
