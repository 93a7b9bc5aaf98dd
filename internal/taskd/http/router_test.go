package http_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aussiebroadwan/taskd/internal/taskd/cache"
	"github.com/aussiebroadwan/taskd/internal/taskd/domain"
	httpapi "github.com/aussiebroadwan/taskd/internal/taskd/http"
	"github.com/aussiebroadwan/taskd/internal/taskd/service"
	"github.com/aussiebroadwan/taskd/internal/taskd/store/drivers/sqlite"
	"github.com/aussiebroadwan/taskd/pkg/cryptox"
	"github.com/aussiebroadwan/taskd/pkg/httpx"
	"github.com/aussiebroadwan/taskd/pkg/jwtx"
	"github.com/aussiebroadwan/taskd/pkg/slogx"
	"github.com/aussiebroadwan/taskd/pkg/taskdsdk"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	URL   string
	store *sqlite.Store
	mr    *miniredis.Miniredis
}

func newTestServer(t *testing.T, failOpen bool) *testServer {
	t.Helper()
	ctx := context.Background()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations(ctx))
	t.Cleanup(func() { _ = st.Close() })

	mr := miniredis.RunT(t)
	client := cache.NewClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "test")
	t.Cleanup(func() { _ = client.Close() })

	codec, err := jwtx.NewCodec(jwtx.Options{
		AccessSecret:  []byte("access-secret-access-secret-0001"),
		RefreshSecret: []byte("refresh-secret-refresh-secret-01"),
		Issuer:        "taskd-test",
	})
	require.NoError(t, err)
	hasher := cryptox.NewHasher("pepper", cryptox.Params{
		Memory: 1024, Iterations: 1, Parallelism: 1, KeyLength: 32, SaltLength: 16,
	})

	revs := cache.NewRevocations(client)
	queries := cache.NewQueryCache(client, time.Minute)
	sessions, err := service.NewSessionService(st, codec, hasher, revs)
	require.NoError(t, err)

	generous := httpx.RateLimitConfig{RequestsPerWindow: 10000, Window: time.Minute, Burst: 10000}
	router := httpapi.NewRouter(
		httpx.NewGuard(sessions, revs, failOpen),
		httpx.CookiePolicy{},
		httpapi.RateLimits{Auth: generous, API: generous},
		"test",
		st, client,
		slogx.Discard(),
	)
	router.SessionService = sessions
	router.TaskService = &service.TaskService{Store: st, Cache: queries}
	router.AccountService = &service.AccountService{Store: st, Hasher: hasher, Cache: queries}
	router.ApplyRoutes()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testServer{URL: srv.URL, store: st, mr: mr}
}

func signUp(t *testing.T, ts *testServer, email string) (*taskdsdk.Client, *taskdsdk.Session) {
	t.Helper()
	c := taskdsdk.NewClient(ts.URL)
	s, err := c.SignUp(context.Background(), taskdsdk.SignUpRequest{
		Username: "user", Email: email, Password: "correct horse",
	})
	require.NoError(t, err)
	return c, s
}

// promote turns an account into an admin and signs in again so the new
// role lands in the token.
func promote(t *testing.T, ts *testServer, c *taskdsdk.Client, email string) *taskdsdk.Session {
	t.Helper()
	ctx := context.Background()
	_, err := (&service.AccountService{Store: ts.store}).SetRole(ctx, email, domain.RoleAdmin)
	require.NoError(t, err)

	s, err := c.SignIn(ctx, taskdsdk.SignInRequest{Email: email, Password: "correct horse"})
	require.NoError(t, err)
	return s
}

func do(t *testing.T, method, url, token, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}
