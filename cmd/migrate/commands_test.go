package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phenomboxing/storefront/pkg/config"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func sqliteEnv(t *testing.T) {
	t.Helper()
	t.Setenv(config.EnvAppEnv, config.AppEnvDev)
	t.Setenv(config.EnvPort, "0")
	t.Setenv(config.EnvUseSQLite, "true")
	t.Setenv(config.EnvDBDSN, "file:"+filepath.Join(t.TempDir(), "phenom.db"))
	t.Setenv(config.EnvCartBackend, config.CartBackendMemory)
	t.Setenv(config.EnvRedisURL, "")
}

func TestCreateAndValidate(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, "--dir", dir, "create", "Add order notes")
	require.NoError(t, err)
	assert.Contains(t, out, "_add_order_notes.sql")

	_, err = run(t, "--dir", dir, "validate")
	require.Error(t, err, "an unfilled scaffold has no statements")

	matches, _ := filepath.Glob(filepath.Join(dir, "*.sql"))
	require.Len(t, matches, 1)
	filled := "-- +goose Up\nALTER TABLE orders ADD COLUMN notes TEXT NOT NULL DEFAULT '';\n-- +goose Down\nALTER TABLE orders DROP COLUMN notes;\n"
	require.NoError(t, os.WriteFile(matches[0], []byte(filled), 0o644))

	out, err = run(t, "--dir", dir, "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "migrations ok")
}

func TestUpThenSeedOnSQLite(t *testing.T) {
	sqliteEnv(t)
	dir := filepath.Join("..", "..", "pkg", "migrate", "migrations")

	_, err := run(t, "--dir", dir, "up")
	require.NoError(t, err)

	out, err := run(t, "--dir", dir, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(out), "2026"), "version output %q", out)

	out, err = run(t, "seed", filepath.Join("..", "..", "internal", "catalog", "testdata", "catalog.seed.json"))
	require.NoError(t, err)
	assert.Contains(t, out, "seeded 3 categories and 4 products")

	_, err = run(t, "seed", "does-not-exist.json")
	require.Error(t, err)
}

func TestArgumentChecks(t *testing.T) {
	_, err := run(t, "to")
	require.Error(t, err)
	_, err = run(t, "create")
	require.Error(t, err)
}
