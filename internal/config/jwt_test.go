package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJWTConfig_DefaultValues(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret-key-0123456789")
	t.Setenv("JWT_EXPIRATION_HOURS", "")

	cfg, err := NewJWTConfig()
	require.NoError(t, err)
	assert.Equal(t, "test-secret-key-0123456789", cfg.Secret)
	assert.Equal(t, 12, cfg.ExpirationHours, "should use default expiration of 12 hours")
	assert.Equal(t, 12*time.Hour, cfg.Expiration())
	assert.False(t, cfg.Ephemeral)
}

func TestNewJWTConfig_GeneratesSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("JWT_EXPIRATION_HOURS", "")

	a, err := NewJWTConfig()
	require.NoError(t, err)
	b, err := NewJWTConfig()
	require.NoError(t, err)

	assert.True(t, a.Ephemeral)
	assert.Len(t, a.Secret, 64)
	assert.NotEqual(t, a.Secret, b.Secret)
}

func TestNewJWTConfig_Invalid(t *testing.T) {
	tests := []struct {
		name       string
		secret     string
		expiration string
		wantErr    string
	}{
		{name: "non-numeric expiration", secret: "test-secret-key-0123456789", expiration: "soon", wantErr: "invalid JWT_EXPIRATION_HOURS"},
		{name: "zero expiration", secret: "test-secret-key-0123456789", expiration: "0", wantErr: "at least 1 hour"},
		{name: "short secret", secret: "short", expiration: "1", wantErr: "at least 16 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", tt.secret)
			t.Setenv("JWT_EXPIRATION_HOURS", tt.expiration)

			cfg, err := NewJWTConfig()
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
