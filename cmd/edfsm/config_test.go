package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "edfsm.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), cfg)
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfig(t, `
name: gate-7
log_level: debug
unlock_timeout: 1500ms
redis:
  addr: localhost:6379
  db: 2
`)

	cfg, err := loadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "gate-7", cfg.Name)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 1500*time.Millisecond, cfg.UnlockTimeout)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, "edfsm:turnstile:", cfg.Redis.Prefix, "unset keys keep their default")
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
	}{
		{name: "missing file", path: func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.yaml") }},
		{name: "bad yaml", path: func(t *testing.T) string { return writeConfig(t, "name: [unterminated") }},
		{name: "non-positive timeout", path: func(t *testing.T) string { return writeConfig(t, "unlock_timeout: 0s") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadConfig(tt.path(t))
			assert.Error(t, err)
		})
	}
}
