package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/srgjo27/puja_booking/internal/platform/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "postgres", cfg.StorageDriver)
	assert.Equal(t, 6*time.Hour, cfg.Booking.RequestWindow)
	assert.Equal(t, int64(20), cfg.Rates.PlatformCommissionPercent)
	assert.Equal(t, int64(18), cfg.Rates.GSTPercent)
	assert.False(t, cfg.Booking.SweepEnabled)

	policy, err := cfg.Booking.RefundPolicy()
	require.NoError(t, err)
	assert.Equal(t, int64(90), policy.PercentFor(10))
	assert.Equal(t, int64(50), policy.PercentFor(5))
}

func TestLoad_DotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("STORAGE_DRIVER=memory\nRATE_PLATFORM_COMMISSION_PERCENT=15\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("STORAGE_DRIVER")
		os.Unsetenv("RATE_PLATFORM_COMMISSION_PERCENT")
	})

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.StorageDriver)

	sheet, err := config.NewStaticRates(cfg.Rates.Sheet()).Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(15), sheet.PlatformCommissionPercent)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"STORAGE_DRIVER":                   "mongo",
		"LOCK_DRIVER":                      "zookeeper",
		"LOG_FORMAT":                       "xml",
		"RATE_PLATFORM_COMMISSION_PERCENT": "120",
		"REFUND_TIERS":                     "3:50",
	}

	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
			assert.Error(t, err)
		})
	}
}
