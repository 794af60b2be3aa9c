package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func baseEnv() map[string]string {
	return map[string]string{
		"HR_API_JWT_SECRET": "0123456789abcdef0123",
		"HR_API_STORAGE":    "memory",
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, cfg.loadFromEnv(lookupFrom(baseEnv())))
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "HR Assistant API", cfg.APIName)
	assert.Equal(t, "3007", cfg.ServerPort)
	assert.Equal(t, StorageMemory, cfg.SessionStore())
	assert.False(t, cfg.RedisEnabled())
	assert.Equal(t, 15*time.Minute, cfg.SessionTTL())
	assert.Equal(t, 24*time.Hour, cfg.AuthTTL())
	assert.Equal(t, 90*24*time.Hour, cfg.MetricsRetention())
	assert.Zero(t, cfg.RememberMeIdle())
	assert.True(t, cfg.SecureCookies())
}

func TestLoadFromEnv_RequiresJWTSecret(t *testing.T) {
	env := baseEnv()
	delete(env, "HR_API_JWT_SECRET")

	err := (&Config{}).loadFromEnv(lookupFrom(env))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HR_API_JWT_SECRET")
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	env := baseEnv()
	env["HR_API_SESSION_TTL"] = "30m"
	env["HR_API_REMEMBER_ME_IDLE_DAYS"] = "45"
	env["HR_API_METRICS_RETENTION_DAYS"] = "oops"
	env["HR_API_COOKIE_SECURE"] = "false"

	cfg := &Config{}
	require.NoError(t, cfg.loadFromEnv(lookupFrom(env)))
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL())
	assert.Equal(t, 45*24*time.Hour, cfg.RememberMeIdle())
	assert.Equal(t, 90*24*time.Hour, cfg.MetricsRetention())
	assert.False(t, cfg.SecureCookies())
}

func TestValidate(t *testing.T) {
	cases := map[string]struct {
		env     map[string]string
		wantErr string
	}{
		"postgres needs dsn": {map[string]string{"HR_API_STORAGE": "postgres"}, "HR_API_PG_DSN"},
		"unknown storage":    {map[string]string{"HR_API_STORAGE": "mongo"}, "HR_API_STORAGE"},
		"unknown session":    {map[string]string{"HR_API_SESSION_BACKEND": "etcd"}, "HR_API_SESSION_BACKEND"},
		"redis needs host":   {map[string]string{"HR_API_SESSION_BACKEND": "redis"}, "HR_API_REDIS_HOST"},
		"short secret":       {map[string]string{"HR_API_JWT_SECRET": "short"}, "HR_API_JWT_SECRET"},
		"bad ttl":            {map[string]string{"HR_API_SESSION_TTL": "soon"}, "HR_API_SESSION_TTL"},
		"redis sessions":     {map[string]string{"HR_API_SESSION_BACKEND": "redis", "HR_API_REDIS_HOST": "localhost"}, ""},
		"postgres with dsn":  {map[string]string{"HR_API_STORAGE": "postgres", "HR_API_PG_DSN": "host=localhost"}, ""},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			env := baseEnv()
			for k, v := range tc.env {
				env[k] = v
			}
			cfg := &Config{}
			require.NoError(t, cfg.loadFromEnv(lookupFrom(env)))

			err := cfg.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestString_MasksSecrets(t *testing.T) {
	env := baseEnv()
	env["HR_API_PG_DSN"] = "host=db password=hunter2"
	cfg := &Config{}
	require.NoError(t, cfg.loadFromEnv(lookupFrom(env)))

	out := cfg.String()
	assert.NotContains(t, out, "hunter2")
	assert.NotContains(t, out, "0123456789abcdef0123")
	assert.True(t, strings.Contains(out, "APIName:  HR Assistant API"))
}
