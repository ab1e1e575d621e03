package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"driftbox/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Port)
	assert.Equal(t, 15*time.Minute, cfg.Server.WriteTimeout)
	assert.Equal(t, int64(5*1024*1024), cfg.Transfer.MinPartSize)
	assert.Equal(t, int64(100*1024*1024), cfg.Transfer.MaxPartSize)
	assert.Equal(t, int64(200), cfg.Transfer.TargetPartCount)
	assert.Equal(t, 3, cfg.Transfer.MaxPartAttempts)
	assert.Equal(t, 5*time.Minute, cfg.Transfer.PartTimeout)
	assert.Equal(t, time.Hour, cfg.Transfer.PresignExpiry)
}

func TestLoad_ReadTimeoutCoversPartBodies(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	// ReadTimeout bounds reading the whole request body, so it must outlast a
	// full part arriving over a slow uplink. Anything shorter than the client's
	// per-part timeout would kill every retry of a slow part at the same wall.
	assert.GreaterOrEqual(t, cfg.Server.ReadTimeout, cfg.Transfer.PartTimeout)
	// Headers alone stay on a short leash.
	assert.LessOrEqual(t, cfg.Server.ReadHeaderTimeout, 30*time.Second)
	assert.Greater(t, cfg.Server.ReadHeaderTimeout, time.Duration(0))
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("DRIFTBOX_SERVER_READ_TIMEOUT", "30m")
	t.Setenv("DRIFTBOX_TRANSFER_PART_CONCURRENCY", "8")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Minute, cfg.Server.ReadTimeout)
	assert.Equal(t, 8, cfg.Transfer.PartConcurrency)
}

func TestLoad_PlatformPortFallback(t *testing.T) {
	t.Setenv("PORT", "9090")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Port)
}
