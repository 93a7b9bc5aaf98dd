package cmd

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aussiebroadwan/taskd/internal/taskd/domain"
	"github.com/aussiebroadwan/taskd/internal/taskd/store/drivers/sqlite"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "from-env.db")
	t.Setenv("PORT", "7000")

	root := NewRootCmd()
	serve, _, err := root.Find([]string{"serve"})
	require.NoError(t, err)
	require.NoError(t, serve.ParseFlags([]string{"--db-url", "from-flag.db", "--port", "9000"}))

	cfg := loadConfig(serve)
	require.Equal(t, "from-flag.db", cfg.DatabaseURL)
	require.Equal(t, 9000, cfg.Port)
}

func TestLoadConfig_EnvWhenFlagsUnset(t *testing.T) {
	t.Setenv("DATABASE_URL", "from-env.db")
	t.Setenv("PORT", "7000")

	root := NewRootCmd()
	serve, _, err := root.Find([]string{"serve"})
	require.NoError(t, err)
	require.NoError(t, serve.ParseFlags(nil))

	cfg := loadConfig(serve)
	require.Equal(t, "from-env.db", cfg.DatabaseURL)
	require.Equal(t, 7000, cfg.Port)
}

func TestMigrateCmd(t *testing.T) {
	root := NewRootCmd()
	root.SetArgs([]string{"migrate", "--db-driver", "sqlite", "--db-url", t.TempDir() + "/taskd.db"})
	require.NoError(t, root.ExecuteContext(context.Background()))
}

func TestCacheClearCmd(t *testing.T) {
	mr := miniredis.RunT(t)
	require.NoError(t, mr.Set("taskd:todo:1:tags=~:status=all:sort=desc:page=1", "{}"))
	require.NoError(t, mr.Set("taskd:revoked:abc", "1"))

	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"cache", "clear", "--redis-url", fmt.Sprintf("redis://%s", mr.Addr())})
	require.NoError(t, root.ExecuteContext(context.Background()))

	require.Contains(t, out.String(), "removed 1 cached pages")
	require.False(t, mr.Exists("taskd:todo:1:tags=~:status=all:sort=desc:page=1"))
	require.True(t, mr.Exists("taskd:revoked:abc"))
}

func TestAccountsPromoteCmd(t *testing.T) {
	ctx := context.Background()
	dbPath := t.TempDir() + "/taskd.db"

	st, err := sqlite.NewStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations(ctx))
	_, err = st.Accounts().CreateAccount(ctx, domain.Account{
		Email:        "ops@example.com",
		Username:     "ops",
		PasswordHash: "unused",
		Role:         domain.RoleUser,
	})
	require.NoError(t, err)
	require.NoError(t, st.Close())

	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"accounts", "promote", "ops@example.com", "--db-driver", "sqlite", "--db-url", dbPath})
	require.NoError(t, root.ExecuteContext(ctx))
	require.Contains(t, out.String(), "is now ADMIN")

	st, err = sqlite.NewStore(dbPath)
	require.NoError(t, err)
	defer st.Close()
	account, err := st.Accounts().GetAccountByEmail(ctx, "ops@example.com")
	require.NoError(t, err)
	require.Equal(t, domain.RoleAdmin, account.Role)

	root = NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"accounts", "promote", "ghost@example.com", "--db-driver", "sqlite", "--db-url", dbPath})
	require.Error(t, root.ExecuteContext(ctx))
}
