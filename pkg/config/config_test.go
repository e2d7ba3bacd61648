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

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
address: broker:7000
request_timeout: 250ms
subscriptions_per_connection: 10
log_level: debug
`))
	require.NoError(t, err)

	assert.Equal(t, "broker:7000", cfg.Address)
	assert.Equal(t, 250*time.Millisecond, cfg.RequestTimeout)
	assert.Equal(t, 10, cfg.SubscriptionsPerConnection)
	assert.Equal(t, Default().AdmissionLimit, cfg.AdmissionLimit, "unset keys keep their defaults")

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	ec := cfg.EntryConfig()
	assert.Equal(t, 250*time.Millisecond, ec.RequestTimeout)
	assert.Equal(t, 10, ec.SubscriptionsPerConnection)
	assert.NotNil(t, ec.Clock)

	pc := cfg.PoolConfig()
	assert.NotNil(t, pc.Connect)
	assert.Equal(t, cfg.Connections, pc.MaxConnections)
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"malformed", "request_timeout: [1"},
		{"bad duration", "request_timeout: soon"},
		{"zero timeout", "request_timeout: 0s"},
		{"negative slots", "subscriptions_per_connection: -1"},
		{"zero admission", "admission_limit: 0"},
		{"zero connections", "connections: 0"},
		{"empty address", `address: ""`},
		{"bad level", "log_level: loud"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "submux.yaml")
	require.NoError(t, os.WriteFile(path, []byte("connections: 3\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Connections)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
