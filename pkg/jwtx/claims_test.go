package jwtx_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/taskd/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestValidateIssuer(t *testing.T) {
	c := &jwtx.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer: "taskd",
		},
	}

	t.Run("matching issuer", func(t *testing.T) {
		require.NoError(t, c.ValidateIssuer("taskd"))
	})

	t.Run("empty expected issuer", func(t *testing.T) {
		require.NoError(t, c.ValidateIssuer(""))
	})

	t.Run("mismatched issuer", func(t *testing.T) {
		err := c.ValidateIssuer("other")
		require.ErrorIs(t, err, jwtx.ErrIssuer)
		require.ErrorIs(t, err, jwtx.ErrInvalid)
	})
}

func TestAccountIDAndExpiresIn(t *testing.T) {
	now := time.Now().UTC()
	c := jwtx.NewClaims(jwtx.Identity{AccountID: 42, Email: "a@x.com", Role: "USER"}, jwtx.TypeAccess, "taskd", time.Minute, now)

	id, err := c.AccountID()
	require.NoError(t, err)
	require.Equal(t, int64(42), id)
	require.NotEmpty(t, c.ID)
	require.Equal(t, time.Minute, c.ExpiresIn(now))
	require.Zero(t, c.ExpiresIn(now.Add(time.Hour)))

	c.Subject = "nope"
	_, err = c.AccountID()
	require.ErrorIs(t, err, jwtx.ErrInvalidClaim)
}
