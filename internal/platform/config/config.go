// Package config builds process configuration from environment variables so
// main stays lean. Facade selection is decided here once, at startup.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures all process-level configuration.
type Config struct {
	Addr           string
	RequestTimeout time.Duration
	JWTSigningKey  string
	SessionTTL     time.Duration
	AdminToken     string

	Backend BackendConfig
	Redis   RedisConfig
	Audit   AuditConfig
	Chain   ChainConfig
}

// BackendConfig selects and configures the remote backend client.
// When URL and AnonKey are both set the real client is used; otherwise the
// process runs against the in-memory mock store.
type BackendConfig struct {
	URL     string
	AnonKey string
	Timeout time.Duration
}

// UseRemote reports whether the remote backend client should be constructed.
func (b BackendConfig) UseRemote() bool {
	return b.URL != "" && b.AnonKey != ""
}

// RedisConfig configures the optional Redis-backed session cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// AuditConfig configures the audit pipeline sinks. Both are optional; with
// neither set, audit events are kept in memory.
type AuditConfig struct {
	PostgresDSN  string
	KafkaBrokers []string
	KafkaTopic   string
	BufferSize   int
}

// ChainConfig configures the identity-registry chain facade. RPCURL alone
// enables reads; PrivateKeyHex additionally enables writes.
type ChainConfig struct {
	RPCURL        string
	ContractAddr  string
	ChainID       int64
	PrivateKeyHex string
}

// FromEnv builds a Config from environment variables, applying development
// defaults where a value is unset.
func FromEnv() Config {
	return Config{
		Addr:           getEnv("LEGITID_ADDR", ":8080"),
		RequestTimeout: getEnvDuration("LEGITID_REQUEST_TIMEOUT", 30*time.Second),
		// Default is for development only and must be overridden in production.
		JWTSigningKey: getEnv("LEGITID_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		SessionTTL:    getEnvDuration("LEGITID_SESSION_TTL", 24*time.Hour),
		AdminToken:    os.Getenv("LEGITID_ADMIN_TOKEN"),
		Backend: BackendConfig{
			URL:     os.Getenv("LEGITID_BACKEND_URL"),
			AnonKey: os.Getenv("LEGITID_BACKEND_ANON_KEY"),
			Timeout: getEnvDuration("LEGITID_BACKEND_TIMEOUT", 10*time.Second),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("LEGITID_REDIS_URL"),
			PoolSize:     getEnvInt("LEGITID_REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvInt("LEGITID_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getEnvDuration("LEGITID_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvDuration("LEGITID_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvDuration("LEGITID_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Audit: AuditConfig{
			PostgresDSN:  os.Getenv("LEGITID_AUDIT_POSTGRES_DSN"),
			KafkaBrokers: getEnvList("LEGITID_KAFKA_BROKERS"),
			KafkaTopic:   getEnv("LEGITID_AUDIT_TOPIC", "legitid.audit.events"),
			BufferSize:   getEnvInt("LEGITID_AUDIT_BUFFER_SIZE", 1000),
		},
		Chain: ChainConfig{
			RPCURL:        os.Getenv("LEGITID_CHAIN_RPC_URL"),
			ContractAddr:  os.Getenv("LEGITID_CHAIN_CONTRACT"),
			ChainID:       int64(getEnvInt("LEGITID_CHAIN_ID", 11155111)),
			PrivateKeyHex: os.Getenv("LEGITID_CHAIN_PRIVATE_KEY"),
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
