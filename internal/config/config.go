// Package config loads process configuration from the environment, with an
// optional local .env file layered underneath it for development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/vortex-fintech/payments-ledger/pkg/netutil"
	validatorutil "github.com/vortex-fintech/payments-ledger/pkg/validatorutil"
)

// Config mirrors the enumerated option table: one field per knob, typed and
// defaulted, validated once at startup so the process fails fast instead of
// surfacing a misconfiguration on the first request.
type Config struct {
	RPCPort     string `validate:"required,numeric"`
	MetricsPort string `validate:"required,numeric"`
	MetricsHost string `validate:"required"`

	StorageURL string `validate:"required"`
	KVURL      string `validate:"required"`

	BrokerAddrs []string `validate:"required,min=1"`
	TopicPrefix string   `validate:"required"`

	OutboxBatchSize    int           `validate:"required,min=1"`
	OutboxPollInterval time.Duration `validate:"required"`
	OutboxMaxRetries   int           `validate:"required,min=1"`
	OutboxBaseDelay    time.Duration `validate:"required"`
	OutboxMaxDelay     time.Duration `validate:"required"`

	RateLimitPerWindow int           `validate:"required,min=1"`
	RateLimitWindow    time.Duration `validate:"required"`

	IdempotencyTTL time.Duration `validate:"required"`
	ShutdownGrace  time.Duration `validate:"required"`

	// OutboxEmbedded runs the outbox worker loop inside cmd/paymentsvc
	// instead of requiring the standalone cmd/outboxworker process. Useful
	// for single-process deployments; independent scaling of the RPC and
	// delivery failure domains needs it false and the worker run separately.
	OutboxEmbedded bool
}

// envPrefix namespaces every variable this service reads, so the process can
// share a .env file with sibling services without collisions.
const envPrefix = "PAYMENTS_"

// Load reads a .env file when present (silently skipped otherwise — the
// production environment is expected to set real env vars), then fills a
// Config from the environment with typed defaults, and validates it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("config: loading .env: %w", err)
	}

	cfg := &Config{
		RPCPort:     getenv("RPC_PORT", "8080"),
		MetricsPort: getenv("METRICS_PORT", "9090"),
		MetricsHost: getenv("METRICS_HOST", "127.0.0.1"),

		StorageURL: getenv("STORAGE_URL", ""),
		KVURL:      getenv("KV_URL", ""),

		BrokerAddrs: getenvList("BROKER_ADDRS", []string{"127.0.0.1:9092"}),
		TopicPrefix: getenv("TOPIC_PREFIX", "payments"),

		OutboxBatchSize:    getenvInt("OUTBOX_BATCH_SIZE", 100),
		OutboxPollInterval: getenvDuration("OUTBOX_POLL_INTERVAL", 2*time.Second),
		OutboxMaxRetries:   getenvInt("OUTBOX_MAX_RETRIES", 5),
		OutboxBaseDelay:    getenvDuration("OUTBOX_BASE_DELAY", 500*time.Millisecond),
		OutboxMaxDelay:     getenvDuration("OUTBOX_MAX_DELAY", 30*time.Second),

		RateLimitPerWindow: getenvInt("RATE_LIMIT_PER_WINDOW", 100),
		RateLimitWindow:    getenvDuration("RATE_LIMIT_WINDOW", time.Minute),

		IdempotencyTTL: getenvDuration("IDEMPOTENCY_TTL", 24*time.Hour),
		ShutdownGrace:  getenvDuration("SHUTDOWN_GRACE", 15*time.Second),

		OutboxEmbedded: getenvBool("OUTBOX_EMBEDDED", true),
	}

	// Guard against operators setting a poll interval or shutdown grace too
	// tight to do anything useful, without rejecting the process outright.
	cfg.OutboxPollInterval = netutil.SanitizeTimeout(cfg.OutboxPollInterval, 100*time.Millisecond, 2*time.Second)
	cfg.ShutdownGrace = netutil.SanitizeTimeout(cfg.ShutdownGrace, time.Second, 15*time.Second)

	if errs := validatorutil.Validate(cfg); errs != nil {
		return nil, fmt.Errorf("config: invalid configuration: %v", errs)
	}

	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(envPrefix + key); strings.TrimSpace(v) != "" {
		return v
	}
	return def
}

func getenvList(key string, def []string) []string {
	v := os.Getenv(envPrefix + key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

func getenvInt(key string, def int) int {
	v := os.Getenv(envPrefix + key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getenvBool(key string, def bool) bool {
	v := os.Getenv(envPrefix + key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(envPrefix + key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
