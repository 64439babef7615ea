package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the process settings. Values come from the environment, with an
// optional .env file in the working directory.
type Config struct {
	Port        string `mapstructure:"PORT"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	JWTSecret string `mapstructure:"JWT_SECRET"`
	JWKSURL   string `mapstructure:"JWKS_URL"`

	GatewaySandboxURL    string `mapstructure:"GATEWAY_SANDBOX_URL"`
	GatewayProductionURL string `mapstructure:"GATEWAY_PRODUCTION_URL"`
	HTTPTimeoutSeconds   int    `mapstructure:"HTTP_TIMEOUT_SECONDS"`

	SimulatorDelayMS        int    `mapstructure:"SIMULATOR_DELAY_MS"`
	SimulatorPaymentBaseURL string `mapstructure:"SIMULATOR_PAYMENT_BASE_URL"`

	InboundWebhookSecret  string `mapstructure:"INBOUND_WEBHOOK_SECRET"`
	WebhookLockTTLSeconds int    `mapstructure:"WEBHOOK_LOCK_TTL_SECONDS"`

	MinioEndpoint  string `mapstructure:"MINIO_ENDPOINT"`
	MinioAccessKey string `mapstructure:"MINIO_ACCESS_KEY"`
	MinioSecretKey string `mapstructure:"MINIO_SECRET_KEY"`
	MinioUseSSL    bool   `mapstructure:"MINIO_USE_SSL"`
	MinioBucket    string `mapstructure:"MINIO_BUCKET"`

	ReconcileIntervalMinutes int `mapstructure:"RECONCILE_INTERVAL_MINUTES"`
	ReconcileConcurrency     int `mapstructure:"RECONCILE_CONCURRENCY"`
	RateLimitPerMinute       int `mapstructure:"RATE_LIMIT_PER_MINUTE"`

	SwaggerEnabled bool `mapstructure:"SWAGGER_ENABLED"`
}

var keys = []string{
	"PORT", "DATABASE_URL",
	"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
	"JWT_SECRET", "JWKS_URL",
	"GATEWAY_SANDBOX_URL", "GATEWAY_PRODUCTION_URL", "HTTP_TIMEOUT_SECONDS",
	"SIMULATOR_DELAY_MS", "SIMULATOR_PAYMENT_BASE_URL",
	"INBOUND_WEBHOOK_SECRET", "WEBHOOK_LOCK_TTL_SECONDS",
	"MINIO_ENDPOINT", "MINIO_ACCESS_KEY", "MINIO_SECRET_KEY", "MINIO_USE_SSL", "MINIO_BUCKET",
	"RECONCILE_INTERVAL_MINUTES", "RECONCILE_CONCURRENCY", "RATE_LIMIT_PER_MINUTE",
	"SWAGGER_ENABLED",
}

// Load reads the configuration. path is where an optional .env file is looked
// up; a missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("PORT", "8080")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("GATEWAY_SANDBOX_URL", "https://sandbox.api.gateway.local")
	v.SetDefault("GATEWAY_PRODUCTION_URL", "https://api.gateway.local")
	v.SetDefault("HTTP_TIMEOUT_SECONDS", 8)
	v.SetDefault("SIMULATOR_DELAY_MS", 500)
	v.SetDefault("SIMULATOR_PAYMENT_BASE_URL", "https://pay.simulator.local")
	v.SetDefault("WEBHOOK_LOCK_TTL_SECONDS", 120)
	v.SetDefault("MINIO_BUCKET", "webhook-archive")
	v.SetDefault("MINIO_USE_SSL", false)
	v.SetDefault("RECONCILE_INTERVAL_MINUTES", 15)
	v.SetDefault("RECONCILE_CONCURRENCY", 5)
	v.SetDefault("RATE_LIMIT_PER_MINUTE", 120)
	v.SetDefault("SWAGGER_ENABLED", false)

	for _, key := range keys {
		_ = v.BindEnv(key)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	cfg.normalize()
	return cfg, cfg.validate()
}

func (c *Config) normalize() {
	c.DatabaseURL = strings.TrimSpace(c.DatabaseURL)
	c.JWKSURL = strings.TrimSpace(c.JWKSURL)
	c.GatewaySandboxURL = strings.TrimRight(strings.TrimSpace(c.GatewaySandboxURL), "/")
	c.GatewayProductionURL = strings.TrimRight(strings.TrimSpace(c.GatewayProductionURL), "/")
	if c.HTTPTimeoutSeconds <= 0 {
		c.HTTPTimeoutSeconds = 8
	}
	if c.SimulatorDelayMS < 0 {
		c.SimulatorDelayMS = 0
	}
	if c.WebhookLockTTLSeconds <= 0 {
		c.WebhookLockTTLSeconds = 120
	}
	if c.ReconcileConcurrency <= 0 {
		c.ReconcileConcurrency = 1
	}
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if c.JWTSecret == "" && c.JWKSURL == "" {
		return errors.New("one of JWT_SECRET or JWKS_URL is required")
	}
	return nil
}

func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

func (c *Config) SimulatorDelay() time.Duration {
	return time.Duration(c.SimulatorDelayMS) * time.Millisecond
}

func (c *Config) ReconcileInterval() time.Duration {
	return time.Duration(c.ReconcileIntervalMinutes) * time.Minute
}

// WebhookLockTTL bounds how long one delivery of an event id blocks others.
func (c *Config) WebhookLockTTL() time.Duration {
	return time.Duration(c.WebhookLockTTLSeconds) * time.Second
}

// MinioEnabled reports whether inbound webhooks should be archived.
func (c *Config) MinioEnabled() bool {
	return c.MinioEndpoint != ""
}
