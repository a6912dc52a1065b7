package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/anhthoxay")

	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 3, cfg.EscrowMaxRetries)
	assert.Equal(t, 5*time.Minute, cfg.SettingsCacheTTL)
	assert.Equal(t, time.Duration(0), cfg.EscrowPendingTTL)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.False(t, cfg.Production())
	assert.Equal(t, "escrow-evidence", cfg.MinioBucket)
	assert.Equal(t, int64(10<<20), cfg.EvidenceMaxBytes)
	assert.Equal(t, 15*time.Minute, cfg.EvidenceURLTTL)

	p := cfg.DefaultPolicy()
	assert.Equal(t, int64(10), p.Percentage)
	assert.Equal(t, int64(1_000_000), p.MinAmount)
	assert.Nil(t, p.MaxAmount)
	assert.Equal(t, "VND", p.Currency)
}

func TestParseRequiresDSN(t *testing.T) {
	t.Setenv("DB_DSN", "")
	_, err := Parse()
	assert.Error(t, err)
}

func TestParseOverrides(t *testing.T) {
	t.Setenv("DB_DSN", "sqlite:file:cfg?mode=memory")
	t.Setenv("APP_ENV", "production")
	t.Setenv("ESCROW_DEFAULT_MAX_AMOUNT", "50000000")
	t.Setenv("ESCROW_PENDING_TTL", "72h")
	t.Setenv("CORS_ORIGINS", "https://anhthoxay.vn,https://admin.anhthoxay.vn")

	cfg, err := Parse()
	require.NoError(t, err)
	assert.True(t, cfg.Production())
	assert.Equal(t, 72*time.Hour, cfg.EscrowPendingTTL)
	require.NotNil(t, cfg.DefaultPolicy().MaxAmount)
	assert.Equal(t, int64(50_000_000), *cfg.DefaultPolicy().MaxAmount)
	assert.Len(t, cfg.CORSOrigins, 2)
}

func TestParseRejectsBadPolicy(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/anhthoxay")
	t.Setenv("ESCROW_DEFAULT_PERCENTAGE", "0")
	_, err := Parse()
	assert.Error(t, err)

	t.Setenv("ESCROW_DEFAULT_PERCENTAGE", "10")
	t.Setenv("ESCROW_MAX_RETRIES", "0")
	_, err = Parse()
	assert.Error(t, err)
}

func TestParseMinioNeedsCredentials(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/anhthoxay")
	t.Setenv("MINIO_ENDPOINT", "minio:9000")
	_, err := Parse()
	assert.Error(t, err)

	t.Setenv("MINIO_ACCESS_KEY", "minio")
	t.Setenv("MINIO_SECRET_KEY", "minio123")
	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, "minio:9000", cfg.MinioEndpoint)
}
