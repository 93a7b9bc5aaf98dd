package taskdsdk

import (
	"context"
	"net/http"
	"strconv"
)

func (s *Session) Me(ctx context.Context) (*User, error) {
	var out User
	if err := s.do(ctx, http.MethodGet, "/accounts/me", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateMe changes the caller's profile. Changing the password ends the
// refresh session; sign in again afterwards.
func (s *Session) UpdateMe(ctx context.Context, req UpdateAccountRequest) (*User, error) {
	var out User
	if err := s.do(ctx, http.MethodPatch, "/accounts/me", req, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListAccounts requires the ADMIN role.
func (s *Session) ListAccounts(ctx context.Context) ([]User, error) {
	var out []User
	if err := s.do(ctx, http.MethodGet, "/accounts", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteAccount requires the ADMIN role.
func (s *Session) DeleteAccount(ctx context.Context, id int64) error {
	return s.do(ctx, http.MethodDelete, "/accounts/"+strconv.FormatInt(id, 10), nil, nil, http.StatusNoContent)
}
