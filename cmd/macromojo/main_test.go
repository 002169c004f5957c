package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macromojo/macromojo/internal/infrastructure/persistence/migrations"
)

func useConfig(t *testing.T, body string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	configPath = path
	t.Cleanup(func() { configPath = "" })
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestUserCreate_SQLite_ShouldPrintNewID(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "mojo.db")
	body := "database:\n  driver: sqlite\n  sqlite_path: " + dbPath + "\nauth:\n  bcrypt_cost: 4\nlogging:\n  level: error\n"
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(body), 0o600))
	t.Cleanup(func() { configPath = "" })

	out, err := run(t, "--config", cfgPath, "user", "create", "--username", "alice", "--password", "hungry123")
	require.NoError(t, err)
	assert.Contains(t, out, "created user alice (id 1)")

	_, err = run(t, "--config", cfgPath, "user", "create", "--username", "alice", "--password", "hungry123")
	assert.Error(t, err)
}

func TestMigrate_SQLite_ShouldRefuse(t *testing.T) {
	useConfig(t, "database:\n  driver: sqlite\n  sqlite_path: \":memory:\"\nlogging:\n  level: error\n")

	err := migrateUpCmd.RunE(migrateUpCmd, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres driver")
}

func TestPrintStatus(t *testing.T) {
	var out bytes.Buffer

	printStatus(&out, &migrations.MigrationStatus{
		Version: 1,
		Dirty:   true,
		Applied: []migrations.Migration{{Version: 1, Name: "create_users"}},
		Pending: []migrations.Migration{{Version: 2, Name: "create_meals"}},
	})

	assert.Equal(t, "version: 1 (dirty)\n  [x] 001 create_users\n  [ ] 002 create_meals\n", out.String())
}
