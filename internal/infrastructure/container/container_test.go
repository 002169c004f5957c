package container

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/macromojo/macromojo/internal/application/journal"
	"github.com/macromojo/macromojo/internal/application/user"
	"github.com/macromojo/macromojo/internal/infrastructure/config"
	"github.com/macromojo/macromojo/pkg/healthcheck"
)

func sqliteConfig(t *testing.T, extra string) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "database:\n  driver: sqlite\n  sqlite_path: \":memory:\"\nlogging:\n  level: error\n" + extra
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	return cfg
}

func TestModule_ValidGraph(t *testing.T) {
	cfg := sqliteConfig(t, "ai:\n  enabled: false\n")

	err := fx.ValidateApp(New(cfg, Module))

	assert.NoError(t, err)
}

func TestCore_SignupAndJournal(t *testing.T) {
	// Arrange
	cfg := sqliteConfig(t, "auth:\n  bcrypt_cost: 4\n")
	var (
		users   *user.Service
		journ   *journal.Service
		checker *healthcheck.HealthCheck
	)
	app := fxtest.New(t, New(cfg, Core), fx.Populate(&users, &journ, &checker))
	app.RequireStart()
	defer app.RequireStop()
	ctx := context.Background()

	// Act
	_, err := users.Register(ctx, user.SignupCommand{Username: "alice", Password: "hungry123", Confirm: "hungry123"})
	require.NoError(t, err)
	targets, err := journ.Targets(ctx, "alice")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 2000, targets.Macros.Calories)
	assert.Equal(t, healthcheck.StatusHealthy, checker.Check(ctx).Status)
}
