package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("JOB_MAX_RETRIES", "")

	cfg := LoadConfig()

	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, ":8000", cfg.GetServerAddress())
	assert.Equal(t, 15, cfg.Jobs.MaxRetries)
	assert.Equal(t, 10*time.Second, cfg.Jobs.SoftTimeLimit)
	assert.Equal(t, 15*time.Second, cfg.Jobs.HardTimeLimit)
	assert.Equal(t, "sessionid", cfg.Session.CookieName)
	assert.Same(t, cfg, Get())
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("CLINIC_CODE_BLACKLIST", "123456, 654321 ,")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("API_TOKENS", "rapidpro:abc:registrations.add_referrallink;ops:def:")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("PORT", "not-a-number")
	t.Setenv("TRUST_PROXY", "true")

	cfg := LoadConfig()

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, []string{"123456", "654321"}, cfg.ClinicCodeBlacklist)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Len(t, cfg.API.Tokens, 2)
	assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.True(t, cfg.Server.TrustProxy)
}
