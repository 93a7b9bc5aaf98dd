package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aussiebroadwan/taskd/internal/taskd/cache"
	"github.com/aussiebroadwan/taskd/internal/taskd/domain"
	"github.com/aussiebroadwan/taskd/internal/taskd/service"
	"github.com/aussiebroadwan/taskd/internal/taskd/store/drivers/sqlite"
	"github.com/aussiebroadwan/taskd/pkg/cryptox"
	"github.com/aussiebroadwan/taskd/pkg/jwtx"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// clock is a settable time source shared by the codec and the services.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	store    *sqlite.Store
	mr       *miniredis.Miniredis
	clock    *clock
	codec    *jwtx.Codec
	revs     *cache.Revocations
	queries  *cache.QueryCache
	sessions *service.SessionService
	tasks    *service.TaskService
	accounts *service.AccountService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations(ctx))
	t.Cleanup(func() { _ = st.Close() })

	mr := miniredis.RunT(t)
	client := cache.NewClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "test")
	t.Cleanup(func() { _ = client.Close() })

	clk := &clock{now: time.Now().UTC().Truncate(time.Second)}
	codec, err := jwtx.NewCodec(jwtx.Options{
		AccessSecret:  []byte("access-secret-access-secret-0001"),
		RefreshSecret: []byte("refresh-secret-refresh-secret-01"),
		Issuer:        "taskd-test",
		Now:           clk.Now,
	})
	require.NoError(t, err)

	hasher := cryptox.NewHasher("pepper", cryptox.Params{
		Memory: 1024, Iterations: 1, Parallelism: 1, KeyLength: 32, SaltLength: 16,
	})

	revs := cache.NewRevocations(client)
	queries := cache.NewQueryCache(client, time.Minute)

	sessions, err := service.NewSessionService(st, codec, hasher, revs)
	require.NoError(t, err)
	sessions.Now = clk.Now

	return &fixture{
		store:    st,
		mr:       mr,
		clock:    clk,
		codec:    codec,
		revs:     revs,
		queries:  queries,
		sessions: sessions,
		tasks:    &service.TaskService{Store: st, Cache: queries},
		accounts: &service.AccountService{Store: st, Hasher: hasher, Cache: queries},
	}
}

func (f *fixture) signUp(t *testing.T, email string) domain.AuthResult {
	t.Helper()
	res, err := f.sessions.SignUp(context.Background(), service.SignUpInput{
		Username: "user-" + email[:1],
		Email:    email,
		Password: "correct horse",
	})
	require.NoError(t, err)
	return res
}

func requireKind(t *testing.T, err error, kind service.Kind, reason string) {
	t.Helper()
	var se *service.Error
	require.True(t, errors.As(err, &se), "want *service.Error, got %v", err)
	require.Equal(t, kind, se.Kind)
	if reason != "" {
		require.Equal(t, reason, se.Reason)
	}
}
