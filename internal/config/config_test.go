package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	// Ensure optional envs are unset for the duration of the test
	for _, k := range []string{"SIM_INITIAL_CASH", "SIM_TICK_INTERVAL", "SIM_SEED", "STORAGE_BACKEND", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	if cfg.Sim.InitialCash != 1000000 {
		t.Errorf("Expected InitialCash 1000000, got %f", cfg.Sim.InitialCash)
	}
	if cfg.Sim.TickInterval != 3*time.Second {
		t.Errorf("Expected TickInterval 3s, got %s", cfg.Sim.TickInterval)
	}
	if cfg.Storage.Backend != "file" {
		t.Errorf("Expected backend 'file', got '%s'", cfg.Storage.Backend)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Expected LogLevel 'info', got '%s'", cfg.Log.Level)
	}
	assert.Equal(t, "1000000.00", cfg.InitialCashDecimal().StringFixed(2))
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("SIM_INITIAL_CASH", "25000.5")
	t.Setenv("SIM_TICK_INTERVAL", "500ms")
	t.Setenv("SIM_SEED", "42")
	t.Setenv("STORAGE_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "redis:6380")
	t.Setenv("REDIS_PASSWORD", "supersecret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 25000.5, cfg.Sim.InitialCash)
	assert.Equal(t, 500*time.Millisecond, cfg.Sim.TickInterval)
	assert.Equal(t, int64(42), cfg.Sim.Seed)
	assert.Equal(t, "redis", cfg.Storage.Backend)
	assert.Equal(t, "redis:6380", cfg.Redis.Addr)

	for _, f := range cfg.LogFields() {
		if f.Key == "redis_password" {
			assert.Equal(t, "***cret", f.String)
		}
	}
}

func TestValidate(t *testing.T) {
	base := Config{
		Sim:     SimConfig{InitialCash: 1, TickInterval: time.Second},
		Storage: StorageConfig{Backend: "file"},
	}
	assert.NoError(t, base.Validate())

	bad := base
	bad.Sim.InitialCash = 0
	assert.Error(t, bad.Validate())

	bad = base
	bad.Sim.TickInterval = 0
	assert.Error(t, bad.Validate())

	bad = base
	bad.Storage.Backend = "s3"
	assert.Error(t, bad.Validate())
}
