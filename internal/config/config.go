// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the browser-facing HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// GRPCAddr is the address of the gRPC health endpoint (e.g. :9090). Empty disables it.
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// DatabaseURL is the control-plane Postgres DSN (memberships, organizations, connection settings).
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	// SupabaseURL is the control-plane base URL; the identity service lives at /auth/v1/user.
	SupabaseURL string `mapstructure:"SUPABASE_URL"`
	// SupabaseAnonKey is the control-plane public API key sent as the apikey header to the identity service.
	SupabaseAnonKey string `mapstructure:"SUPABASE_ANON_KEY"`
	// EncryptionSecret is the operator secret from which the 32-byte dedicated-key encryption key is derived.
	// Accepted as base64, hex, or raw text.
	EncryptionSecret string `mapstructure:"ORG_KEY_ENCRYPTION_SECRET"`

	// IdentityTimeout bounds the identity-service call (e.g. "5s").
	IdentityTimeout string `mapstructure:"IDENTITY_TIMEOUT"`
	// TenantTimeout bounds the outbound tenant dispatch (e.g. "15s").
	TenantTimeout string `mapstructure:"TENANT_TIMEOUT"`
	// TenantActionPath is the path on the tenant base URL that receives dispatched actions.
	TenantActionPath string `mapstructure:"TENANT_ACTION_PATH"`
	// ActionPolicyFile is an optional path to a Rego module overriding the default action policy.
	ActionPolicyFile string `mapstructure:"ACTION_POLICY_FILE"`

	// RateLimitRPS is the per-IP request rate on the proxy endpoint; 0 disables rate limiting.
	RateLimitRPS float64 `mapstructure:"RATE_LIMIT_RPS"`
	// RateLimitBurst is the per-IP burst size.
	RateLimitBurst int `mapstructure:"RATE_LIMIT_BURST"`
	// TrustedProxyCIDRs is a comma-separated list of proxy ranges allowed to set X-Forwarded-For.
	// Empty means the client IP is always the TCP peer address.
	TrustedProxyCIDRs string `mapstructure:"TRUSTED_PROXY_CIDRS"`

	// OTLPEndpoint is the OTLP collector endpoint (e.g. http://localhost:4317). Empty uses no-op providers.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces a plaintext connection to the collector even for https endpoints.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	// ServiceName is the OTel service.name resource attribute.
	ServiceName string `mapstructure:"OTEL_SERVICE_NAME"`

	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// Telemetry (optional). When Kafka brokers are set, the proxy emits events to Kafka.
	// TelemetryKafkaBrokers is a comma-separated list of Kafka broker addresses (e.g. "localhost:9092").
	TelemetryKafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// TelemetryKafkaTopic is the Kafka topic for proxy events.
	TelemetryKafkaTopic string `mapstructure:"TELEMETRY_KAFKA_TOPIC"`

	// Worker-only: Loki URL for the telemetry worker to push logs (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`
	// KafkaGroupID is the consumer group ID for the telemetry worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
// Fields only the broker server needs are checked by ValidateServer.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("GRPC_ADDR", "")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("SUPABASE_URL", "")
	v.SetDefault("SUPABASE_ANON_KEY", "")
	v.SetDefault("ORG_KEY_ENCRYPTION_SECRET", "")
	v.SetDefault("IDENTITY_TIMEOUT", "5s")
	v.SetDefault("TENANT_TIMEOUT", "15s")
	v.SetDefault("TENANT_ACTION_PATH", "/functions/v1/tenant-action")
	v.SetDefault("ACTION_POLICY_FILE", "")
	v.SetDefault("RATE_LIMIT_RPS", 10.0)
	v.SetDefault("RATE_LIMIT_BURST", 20)
	v.SetDefault("TRUSTED_PROXY_CIDRS", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("OTEL_SERVICE_NAME", "org-credential-broker")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("TELEMETRY_KAFKA_TOPIC", "broker-proxy-events")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("KAFKA_GROUP_ID", "broker-telemetry-worker")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if cfg.RateLimitRPS < 0 {
		return nil, errors.New("config: RATE_LIMIT_RPS must not be negative")
	}
	if cfg.RateLimitRPS > 0 && cfg.RateLimitBurst <= 0 {
		return nil, errors.New("config: RATE_LIMIT_BURST must be positive when rate limiting is enabled")
	}
	if !strings.HasPrefix(cfg.TenantActionPath, "/") {
		return nil, errors.New("config: TENANT_ACTION_PATH must start with /")
	}
	for _, cidr := range cfg.TrustedProxyCIDRList() {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			return nil, fmt.Errorf("config: TRUSTED_PROXY_CIDRS: %w", err)
		}
	}

	return &cfg, nil
}

// ValidateServer checks the fields the broker server cannot run without.
// The worker and migrate commands share Load but not these requirements.
func (c *Config) ValidateServer() error {
	if c.DatabaseURL == "" {
		return errors.New("config: DATABASE_URL must be set")
	}
	if c.SupabaseURL == "" {
		return errors.New("config: SUPABASE_URL must be set")
	}
	u, err := url.Parse(c.SupabaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("config: SUPABASE_URL must be an absolute URL")
	}
	if c.SupabaseAnonKey == "" {
		return errors.New("config: SUPABASE_ANON_KEY must be set")
	}
	if strings.TrimSpace(c.EncryptionSecret) == "" {
		return errors.New("config: ORG_KEY_ENCRYPTION_SECRET must be set")
	}
	return nil
}

// IdentityTimeoutDuration parses IdentityTimeout. Returns 5s if unset or invalid.
func (c *Config) IdentityTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.IdentityTimeout)
	if err != nil || d <= 0 {
		return 5 * time.Second
	}
	return d
}

// TenantTimeoutDuration parses TenantTimeout. Returns 15s if unset or invalid.
func (c *Config) TenantTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.TenantTimeout)
	if err != nil || d <= 0 {
		return 15 * time.Second
	}
	return d
}

// TelemetryKafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if event shipping is enabled (non-empty list) and to create the producer.
func (c *Config) TelemetryKafkaBrokersList() []string {
	if c == nil {
		return nil
	}
	return splitList(c.TelemetryKafkaBrokers)
}

// TrustedProxyCIDRList returns the configured trusted proxy ranges.
func (c *Config) TrustedProxyCIDRList() []string {
	if c == nil {
		return nil
	}
	return splitList(c.TrustedProxyCIDRs)
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
