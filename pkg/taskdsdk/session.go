package taskdsdk

import (
	"context"
	"net/http"
	"sync"
)

// Session is a signed-in caller. It is safe for concurrent use.
type Session struct {
	client *Client

	mu          sync.RWMutex
	accessToken string
	user        User

	// refreshMu serializes rotations; the server revokes the whole session
	// when a refresh cookie is presented twice.
	refreshMu sync.Mutex
}

func newSession(c *Client, auth AuthResponse) *Session {
	return &Session{client: c, accessToken: auth.AccessToken, user: auth.User}
}

func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

func (s *Session) User() User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// Refresh rotates the refresh cookie and replaces the access token.
// Concurrent calls collapse into a single rotation.
func (s *Session) Refresh(ctx context.Context) error {
	return s.refreshFrom(ctx, s.AccessToken())
}

// refreshFrom rotates only if the access token is still stale, i.e. no other
// caller refreshed while this one waited for the lock.
func (s *Session) refreshFrom(ctx context.Context, stale string) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()
	if s.AccessToken() != stale {
		return nil
	}

	var out AuthResponse
	if err := s.client.postJSON(ctx, "/auth/refresh", "", nil, &out, http.StatusOK); err != nil {
		return err
	}
	s.mu.Lock()
	s.accessToken = out.AccessToken
	s.user = out.User
	s.mu.Unlock()
	return nil
}

// SignOut ends the session server-side and blacklists the access token.
func (s *Session) SignOut(ctx context.Context) error {
	resp, err := s.client.doRequest(ctx, http.MethodDelete, "/auth/sign-out", s.AccessToken(), nil)
	if err != nil {
		return err
	}
	var out SignOutResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return err
	}

	s.mu.Lock()
	s.accessToken = ""
	s.mu.Unlock()
	return nil
}

// do runs an authenticated request, refreshing once on TOKEN_EXPIRED.
func (s *Session) do(ctx context.Context, method, path string, in, out any, expected int) error {
	token := s.AccessToken()
	resp, err := s.client.doRequest(ctx, method, path, token, in)
	if err != nil {
		return err
	}
	err = decodeJSON(resp, out, expected)
	if !HasReason(err, ReasonTokenExpired) {
		return err
	}

	if rerr := s.refreshFrom(ctx, token); rerr != nil {
		return rerr
	}
	resp, err = s.client.doRequest(ctx, method, path, s.AccessToken(), in)
	if err != nil {
		return err
	}
	return decodeJSON(resp, out, expected)
}
