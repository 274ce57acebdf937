// Package config gathers the storefront settings from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store drivers accepted by STORE_DRIVER.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverBolt     = "bolt"
)

type Config struct {
	AppPort           string
	StoreDriver       string
	DatabaseDSN       string
	MongoURI          string
	MongoDatabase     string
	BoltPath          string
	JWTSecret         string
	TokenTTL          time.Duration
	RabbitMQURL       string // empty disables the change feed
	ObjectDir         string
	ObjectBaseURL     string
	WorkerPoolSize    int
	HomeCategoryLimit int
	LogMode           string
	LogFile           string
	SeedCSVDir        string
}

// SetDefaults registers the default value of every setting on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("STORE_DRIVER", DriverMemory)
	v.SetDefault("DATABASE_DSN", "file:storefront.db?cache=shared")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DATABASE", "storefront")
	v.SetDefault("BOLT_PATH", "storefront.bolt")
	v.SetDefault("JWT_SECRET", "supersecretjwtkey")
	v.SetDefault("TOKEN_TTL", "24h")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("OBJECT_DIR", "objects")
	v.SetDefault("OBJECT_BASE_URL", "/objects")
	v.SetDefault("WORKER_POOL_SIZE", 64)
	v.SetDefault("HOME_CATEGORY_LIMIT", 4)
	v.SetDefault("LOG_MODE", "development")
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("SEED_CSV_DIR", "")
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	v.AutomaticEnv() // Load environment variables
	return FromViper(v)
}

// FromViper builds a Config from v and checks it.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		AppPort:           v.GetString("APP_PORT"),
		StoreDriver:       strings.ToLower(v.GetString("STORE_DRIVER")),
		DatabaseDSN:       v.GetString("DATABASE_DSN"),
		MongoURI:          v.GetString("MONGO_URI"),
		MongoDatabase:     v.GetString("MONGO_DATABASE"),
		BoltPath:          v.GetString("BOLT_PATH"),
		JWTSecret:         v.GetString("JWT_SECRET"),
		TokenTTL:          v.GetDuration("TOKEN_TTL"),
		RabbitMQURL:       v.GetString("RABBITMQ_URL"),
		ObjectDir:         v.GetString("OBJECT_DIR"),
		ObjectBaseURL:     v.GetString("OBJECT_BASE_URL"),
		WorkerPoolSize:    v.GetInt("WORKER_POOL_SIZE"),
		HomeCategoryLimit: v.GetInt("HOME_CATEGORY_LIMIT"),
		LogMode:           v.GetString("LOG_MODE"),
		LogFile:           v.GetString("LOG_FILE"),
		SeedCSVDir:        v.GetString("SEED_CSV_DIR"),
	}

	switch cfg.StoreDriver {
	case DriverMemory, DriverSQLite, DriverPostgres, DriverMongo, DriverBolt:
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET must not be empty")
	}
	if cfg.WorkerPoolSize <= 0 {
		return nil, fmt.Errorf("WORKER_POOL_SIZE must be positive, got %d", cfg.WorkerPoolSize)
	}
	if cfg.TokenTTL <= 0 {
		return nil, fmt.Errorf("TOKEN_TTL must be positive, got %s", cfg.TokenTTL)
	}
	return cfg, nil
}
