package taskdsdk_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/taskd/pkg/taskdsdk"
	"github.com/stretchr/testify/require"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// fakeServer issues "old" on sign-in, answers TOKEN_EXPIRED for it and
// accepts "new" after a refresh.
func fakeServer(t *testing.T, refreshes *atomic.Int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/sign-in", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "refresh_token", Value: "r1", Path: "/auth"})
		writeJSON(w, http.StatusOK, taskdsdk.AuthResponse{AccessToken: "old", User: taskdsdk.User{ID: 1}})
	})
	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie("refresh_token")
		if err != nil || c.Value != "r1" {
			writeJSON(w, http.StatusUnauthorized, taskdsdk.APIError{StatusCode: 401, Message: taskdsdk.ReasonRefreshInvalid})
			return
		}
		refreshes.Add(1)
		writeJSON(w, http.StatusOK, taskdsdk.AuthResponse{AccessToken: "new", User: taskdsdk.User{ID: 1}})
	})
	mux.HandleFunc("GET /accounts/me", func(w http.ResponseWriter, r *http.Request) {
		switch r.Header.Get("Authorization") {
		case "Bearer new":
			writeJSON(w, http.StatusOK, taskdsdk.User{ID: 1, Email: "ada@example.com"})
		case "Bearer old":
			writeJSON(w, http.StatusUnauthorized, taskdsdk.APIError{StatusCode: 401, Message: taskdsdk.ReasonTokenExpired})
		default:
			writeJSON(w, http.StatusUnauthorized, taskdsdk.APIError{StatusCode: 401, Message: taskdsdk.ReasonTokenInvalid})
		}
	})
	mux.HandleFunc("GET /todo", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, taskdsdk.TaskPage{Page: 1, PageSize: 10, Items: []taskdsdk.Task{}})
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not json"))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestSession_RefreshesOnExpiredToken(t *testing.T) {
	ctx := context.Background()
	var refreshes atomic.Int32
	srv := fakeServer(t, &refreshes)

	s, err := taskdsdk.NewClient(srv.URL + "/").SignIn(ctx, taskdsdk.SignInRequest{Email: "ada@example.com", Password: "x"})
	require.NoError(t, err)
	require.Equal(t, "old", s.AccessToken())

	me, err := s.Me(ctx)
	require.NoError(t, err)
	require.Equal(t, "ada@example.com", me.Email)
	require.Equal(t, "new", s.AccessToken())
	require.EqualValues(t, 1, refreshes.Load())

	_, err = s.Me(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, refreshes.Load())
}

func TestSession_ListTasksQuery(t *testing.T) {
	var seen string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.URL.RawQuery
		writeJSON(w, http.StatusOK, taskdsdk.TaskPage{})
	}))
	t.Cleanup(srv.Close)

	c := taskdsdk.NewClient(srv.URL)
	s, err := c.Resume(context.Background())
	require.NoError(t, err)

	_, err = s.ListTasks(context.Background(), taskdsdk.ListTasksOptions{
		Tags: []string{"a", "b"}, Status: "DONE", Sort: "asc", Page: 2,
	})
	require.NoError(t, err)
	require.Equal(t, "page=2&sort=asc&status=DONE&tags=a%2Cb", seen)
}

func TestAPIError_Fallback(t *testing.T) {
	var refreshes atomic.Int32
	srv := fakeServer(t, &refreshes)

	_, err := taskdsdk.NewClient(srv.URL).Readyz(context.Background())
	require.True(t, taskdsdk.IsStatus(err, http.StatusServiceUnavailable))

	var apiErr *taskdsdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "/readyz", apiErr.Path)
	require.Equal(t, "taskd: 503 Service Unavailable", apiErr.Error())
}

// rotatingServer hands out a new refresh cookie on every refresh and, like
// taskd, revokes the session when a superseded cookie comes back. Sign-in
// returns an access token that is already expired.
func rotatingServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var (
		mu        sync.Mutex
		current   = 1
		revoked   bool
		refreshes atomic.Int32
	)
	issue := func(w http.ResponseWriter, n int, access string) {
		http.SetCookie(w, &http.Cookie{Name: "refresh_token", Value: fmt.Sprintf("r%d", n), Path: "/auth"})
		writeJSON(w, http.StatusOK, taskdsdk.AuthResponse{AccessToken: access, User: taskdsdk.User{ID: 1}})
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/sign-in", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		issue(w, current, "expired")
	})
	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(20 * time.Millisecond)
		mu.Lock()
		defer mu.Unlock()
		c, err := r.Cookie("refresh_token")
		if err != nil || revoked || c.Value != fmt.Sprintf("r%d", current) {
			revoked = true
			writeJSON(w, http.StatusUnauthorized, taskdsdk.APIError{StatusCode: 401, Message: taskdsdk.ReasonRefreshInvalid})
			return
		}
		current++
		refreshes.Add(1)
		issue(w, current, fmt.Sprintf("a%d", current))
	})
	mux.HandleFunc("GET /accounts/me", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		want := fmt.Sprintf("Bearer a%d", current)
		mu.Unlock()
		if r.Header.Get("Authorization") != want {
			writeJSON(w, http.StatusUnauthorized, taskdsdk.APIError{StatusCode: 401, Message: taskdsdk.ReasonTokenExpired})
			return
		}
		writeJSON(w, http.StatusOK, taskdsdk.User{ID: 1})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &refreshes
}

func TestSession_ConcurrentRefreshKeepsSession(t *testing.T) {
	ctx := context.Background()
	srv, refreshes := rotatingServer(t)

	s, err := taskdsdk.NewClient(srv.URL).SignIn(ctx, taskdsdk.SignInRequest{Email: "ada@example.com", Password: "x"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = s.Refresh(ctx)
		}()
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}
	require.GreaterOrEqual(t, refreshes.Load(), int32(1))

	require.NoError(t, s.Refresh(ctx), "the session must survive concurrent refreshes")
}

func TestSession_ConcurrentExpiryRefreshesOnce(t *testing.T) {
	ctx := context.Background()
	srv, refreshes := rotatingServer(t)

	s, err := taskdsdk.NewClient(srv.URL).SignIn(ctx, taskdsdk.SignInRequest{Email: "ada@example.com", Password: "x"})
	require.NoError(t, err)

	require.Equal(t, "expired", s.AccessToken())

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = s.Me(ctx)
		}()
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}
	require.EqualValues(t, 1, refreshes.Load())
}
