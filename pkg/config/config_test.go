package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "test-none")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "/api", cfg.APIPrefix)
	assert.True(t, cfg.ResolveTx)
	assert.Equal(t, 30*time.Second, cfg.HospitalCacheTTL)
	assert.Equal(t, "gocache", cfg.Cache.Type)
	assert.Equal(t, "Duty Physician", cfg.DefaultStaffName)
	assert.Empty(t, cfg.BackupSchedule)
	assert.Equal(t, "mediroute-backups", cfg.Minio.Bucket)
	assert.True(t, cfg.SearchEnabled)
	assert.Empty(t, cfg.SearchIndexPath)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "test-none")
	t.Setenv("RESOLVE_TRANSACTIONAL", "false")
	t.Setenv("HOSPITAL_CACHE_TTL", "2m")
	t.Setenv("RATE_LIMIT_DISPATCH", "5-S")
	t.Setenv("MAIL_PORT", "2525")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.ResolveTx)
	assert.Equal(t, 2*time.Minute, cfg.HospitalCacheTTL)
	assert.Equal(t, "5-S", cfg.DispatchRateLimit)
	assert.Equal(t, int64(2525), cfg.Mail.Port)
}
