package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("VERIFY_TIMEOUT", "750ms")

	cfg, err := Load("does-not-exist.env")
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 750*time.Millisecond, cfg.VerifyTimeout)
	assert.Equal(t, 5*time.Second, cfg.StoreTimeout)
	assert.Equal(t, "usd", cfg.Currency)
}

func TestLoadRejectsDefaultSecretInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "change-me")

	_, err := Load("does-not-exist.env")
	assert.Error(t, err)
}

func TestOriginsAndMeiliHost(t *testing.T) {
	cfg := &Config{AllowedOrigins: "http://a.test, http://b.test,", MeiliSearchHost: "meili"}
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Origins())
	assert.Equal(t, "http://meili:7700", cfg.MeiliHost())
}
