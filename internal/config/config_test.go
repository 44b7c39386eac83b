package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gpures.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoad_EmptyPathReturnsDefault(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_FullFile(t *testing.T) {
	cfg, err := Load("testdata/full.yaml")
	require.NoError(t, err)

	assert.Equal(t, Config{
		Database:       "/var/lib/gpures/gpures.db",
		Listen:         "127.0.0.1:9090",
		Catalog:        "/etc/gpures/cluster.cue",
		Policy:         "priority",
		MaxAttempts:    5,
		PastTolerance:  2*time.Minute + 30*time.Second,
		IdentityHeader: "X-Verified-User",
		LogLevel:       "debug",
		LogFormat:      "json",
	}, cfg)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "catalog: cluster.yaml\n"))
	require.NoError(t, err)

	want := Default()
	want.Catalog = "cluster.yaml"
	assert.Equal(t, want, cfg)
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_RejectsUnknownKeys(t *testing.T) {
	_, err := Load(writeConfig(t, "databse: typo.db\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "databse")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.Policy = "lottery"
	cfg.MaxAttempts = 0
	cfg.PastTolerance = -time.Second
	cfg.LogLevel = "loud"
	cfg.LogFormat = "xml"
	cfg.IdentityHeader = ""

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"policy", "max_attempts", "past_tolerance", "log_level", "log_format", "identity_header"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestSlogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"bogus": slog.LevelInfo,
	}
	for in, want := range tests {
		cfg := Default()
		cfg.LogLevel = in
		assert.Equal(t, want, cfg.SlogLevel(), in)
	}
}
