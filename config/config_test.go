package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assethub/config"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "MONGO_URI", "DB_NAME", "JWT_SECRET", "JWT_EXPIRE",
		"LOG_LEVEL", "SWEEP_SCHEDULE", "SWEEP_AGE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	config.LoadConfig()

	assert.Equal(t, "8080", config.Port)
	assert.Equal(t, "mongodb://localhost:27017", config.MongoURI)
	assert.Equal(t, "assethub", config.DatabaseName)
	assert.NotEmpty(t, config.JWTKey)
	assert.Equal(t, 24*time.Hour, config.JWTExpiration)
	assert.Equal(t, "info", config.LogLevel)
	assert.Equal(t, "@every 10m", config.SweepSchedule)
	assert.Equal(t, 15*time.Minute, config.SweepAge)
}

func TestLoadConfig_FromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("DB_NAME", "assethub_test")
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("JWT_EXPIRE", "30m")
	t.Setenv("SWEEP_AGE", "1h")

	config.LoadConfig()

	assert.Equal(t, "9090", config.Port)
	assert.Equal(t, "assethub_test", config.DatabaseName)
	assert.Equal(t, []byte("env-secret"), config.JWTKey)
	assert.Equal(t, 30*time.Minute, config.JWTExpiration)
	assert.Equal(t, time.Hour, config.SweepAge)
}

func TestLoadConfig_SevenDayExpireShorthand(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_EXPIRE", "7d")

	config.LoadConfig()

	require.Equal(t, 7*24*time.Hour, config.JWTExpiration)
}

func TestLoadConfig_BadDurationsFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_EXPIRE", "soon")
	t.Setenv("SWEEP_AGE", "whenever")

	config.LoadConfig()

	assert.Equal(t, 24*time.Hour, config.JWTExpiration)
	assert.Equal(t, 15*time.Minute, config.SweepAge)
}
