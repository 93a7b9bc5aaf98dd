package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/aussiebroadwan/taskd/pkg/httpx"
	"github.com/aussiebroadwan/taskd/pkg/taskdsdk"
	"github.com/stretchr/testify/require"
)

func TestSignUp_SetsRefreshCookie(t *testing.T) {
	ts := newTestServer(t, false)

	resp := do(t, http.MethodPost, ts.URL+"/auth/sign-up", "",
		`{"username":"ada","email":"ada@example.com","password":"correct horse"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))

	var body taskdsdk.AuthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body.AccessToken)
	require.Equal(t, taskdsdk.User{ID: body.User.ID, Username: "ada", Email: "ada@example.com", Role: "USER"}, body.User)

	cookie := refreshCookie(t, resp)
	require.True(t, cookie.HttpOnly)
	require.Equal(t, "/auth", cookie.Path)
	require.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	require.Positive(t, cookie.MaxAge)
}

func TestSignUp_Errors(t *testing.T) {
	ts := newTestServer(t, false)
	signUp(t, ts, "taken@example.com")

	resp := do(t, http.MethodPost, ts.URL+"/auth/sign-up", "",
		`{"username":"x","email":"nope","password":"short"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body httpx.ErrorBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, http.StatusBadRequest, body.StatusCode)
	require.Equal(t, "/auth/sign-up", body.Path)
	require.NotEmpty(t, body.Timestamp)
	require.Contains(t, body.Errors, "username")
	require.Contains(t, body.Errors, "email")
	require.Contains(t, body.Errors, "password")

	resp = do(t, http.MethodPost, ts.URL+"/auth/sign-up", "",
		`{"username":"again","email":"taken@example.com","password":"correct horse"}`)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = do(t, http.MethodPost, ts.URL+"/auth/sign-up", "", `{"username":`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSignIn(t *testing.T) {
	ctx := context.Background()
	ts := newTestServer(t, false)
	signUp(t, ts, "ada@example.com")

	c := taskdsdk.NewClient(ts.URL)
	_, err := c.SignIn(ctx, taskdsdk.SignInRequest{Email: "ada@example.com", Password: "wrong password"})
	require.True(t, taskdsdk.IsStatus(err, http.StatusUnauthorized))
	require.True(t, taskdsdk.HasReason(err, "invalid credentials"))

	s, err := c.SignIn(ctx, taskdsdk.SignInRequest{Email: "ada@example.com", Password: "correct horse"})
	require.NoError(t, err)
	require.Equal(t, "ada@example.com", s.User().Email)
}

func TestRefresh_RotatesCookie(t *testing.T) {
	ctx := context.Background()
	ts := newTestServer(t, false)
	c, s := signUp(t, ts, "ada@example.com")

	before := s.AccessToken()
	require.NoError(t, s.Refresh(ctx))
	require.NotEqual(t, before, s.AccessToken())

	// The rotated cookie in the jar is enough to rebuild a session.
	resumed, err := c.Resume(ctx)
	require.NoError(t, err)
	require.Equal(t, s.User().ID, resumed.User().ID)
}

func TestRefresh_WithoutCookie(t *testing.T) {
	ts := newTestServer(t, false)

	resp := do(t, http.MethodPost, ts.URL+"/auth/refresh", "", "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	var body httpx.ErrorBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, taskdsdk.ReasonRefreshInvalid, body.Message)
}

func TestRefresh_ReplayedCookieRevokesSession(t *testing.T) {
	ctx := context.Background()
	ts := newTestServer(t, false)
	_, s := signUp(t, ts, "ada@example.com")

	// Capture the first refresh token, then rotate it away.
	resp := do(t, http.MethodPost, ts.URL+"/auth/sign-in", "",
		`{"email":"ada@example.com","password":"correct horse"}`)
	stale := refreshCookie(t, resp)

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/auth/refresh", nil)
	require.NoError(t, err)
	req.AddCookie(stale)
	first, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = first.Body.Close()
	require.Equal(t, http.StatusOK, first.StatusCode)

	req, err = http.NewRequest(http.MethodPost, ts.URL+"/auth/refresh", nil)
	require.NoError(t, err)
	req.AddCookie(stale)
	replay, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = replay.Body.Close()
	require.Equal(t, http.StatusUnauthorized, replay.StatusCode)

	// The replay revoked the account's only session, including the SDK's.
	err = s.Refresh(ctx)
	require.True(t, taskdsdk.HasReason(err, taskdsdk.ReasonRefreshInvalid))
}

func TestSignOut_BlacklistsAccessToken(t *testing.T) {
	ctx := context.Background()
	ts := newTestServer(t, false)
	_, s := signUp(t, ts, "ada@example.com")
	token := s.AccessToken()

	_, err := s.Me(ctx)
	require.NoError(t, err)

	require.NoError(t, s.SignOut(ctx))

	resp := do(t, http.MethodGet, ts.URL+"/accounts/me", token, "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	var body httpx.ErrorBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, httpx.ReasonTokenBlacklisted, body.Message)

	err = s.Refresh(ctx)
	require.True(t, taskdsdk.IsStatus(err, http.StatusUnauthorized))
}

func refreshCookie(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == httpx.RefreshCookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", httpx.RefreshCookieName)
	return nil
}

func TestSignOut_Response(t *testing.T) {
	ts := newTestServer(t, false)
	signUp(t, ts, "ada@example.com")

	resp := do(t, http.MethodPost, ts.URL+"/auth/sign-in", "",
		`{"email":"ada@example.com","password":"correct horse"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cookie := refreshCookie(t, resp)

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/auth/sign-out", nil)
	require.NoError(t, err)
	req.AddCookie(cookie)
	out, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer out.Body.Close()
	require.Equal(t, http.StatusOK, out.StatusCode)

	var body taskdsdk.SignOutResponse
	require.NoError(t, json.NewDecoder(out.Body).Decode(&body))
	require.Equal(t, taskdsdk.SignOutResponse{Message: "success", Action: "clear_tokens"}, body)
	require.Negative(t, refreshCookie(t, out).MaxAge)

	// Without a cookie the sign-out is rejected but the cookie is still cleared.
	resp = do(t, http.MethodDelete, ts.URL+"/auth/sign-out", "", "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Negative(t, refreshCookie(t, resp).MaxAge)
}
