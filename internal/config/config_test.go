package config_test

import (
	"testing"
	"time"

	"storefront/internal/config"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.AppPort)
	assert.Equal(t, config.DriverMemory, cfg.StoreDriver)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 4, cfg.HomeCategoryLimit)
	assert.Empty(t, cfg.RabbitMQURL)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("STORE_DRIVER", "SQLite")
	t.Setenv("HOME_CATEGORY_LIMIT", "6")
	t.Setenv("TOKEN_TTL", "90m")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, config.DriverSQLite, cfg.StoreDriver)
	assert.Equal(t, 6, cfg.HomeCategoryLimit)
	assert.Equal(t, 90*time.Minute, cfg.TokenTTL)
}

func TestFromViper_Rejects(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  any
		want string
	}{
		{"unknown driver", "STORE_DRIVER", "redis", `unknown STORE_DRIVER "redis"`},
		{"empty secret", "JWT_SECRET", "", "JWT_SECRET must not be empty"},
		{"no workers", "WORKER_POOL_SIZE", 0, "WORKER_POOL_SIZE must be positive, got 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			config.SetDefaults(v)
			v.Set(tt.key, tt.val)
			_, err := config.FromViper(v)
			assert.EqualError(t, err, tt.want)
		})
	}
}
