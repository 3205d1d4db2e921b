// Package config loads ledger-engine configuration with viper/godotenv:
// defaults via viper.SetDefault, env override via viper.AutomaticEnv.
package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// StripeMode selects which merchant-id field the gateway adapter reads.
type StripeMode string

const (
	StripeModeLive StripeMode = "live"
	StripeModeTest StripeMode = "test"
)

// Config holds every setting the ledger engine's wiring layer needs.
type Config struct {
	DatabaseURL string
	Port        string

	// IsolationOverrides is not read by any workflow: each workflow's
	// isolation level is a fixed constant. Production wiring leaves this
	// empty.
	IsolationOverrides map[string]string

	StripeMode         StripeMode
	StripeAPIKey       string
	StripeBaseURL      string
	ClientMerchantID   string
	SandboxMerchantID  string
	GatewayMinChargeCents     int64
	GatewayMicroThresholdCents int64
	TestIdempotency     string

	RedisAddr string
	LockTTL   time.Duration

	KafkaBrokers     []string
	OutboxTopic      string
	ReconcileInterval time.Duration
	ReconcileBatchSize int
	OutboxMaxRetries   int
}

// LoadConfig reads environment variables (and a .env file if present)
// into a Config, logging a warning rather than failing when an optional
// value is missing.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("STRIPE_MODE", "test")
	viper.SetDefault("STRIPE_API_KEY", "")
	viper.SetDefault("STRIPE_BASE_URL", "https://api.stripe.com/v1")
	viper.SetDefault("STRIPE_CLIENT_ID", "")
	viper.SetDefault("STRIPE_SANDBOX_ID", "")
	viper.SetDefault("GATEWAY_MIN_CHARGE_CENTS", 50)
	viper.SetDefault("GATEWAY_MICRO_THRESHOLD_CENTS", 500)
	viper.SetDefault("TEST_IDEMPOTENCY", "local-dev")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("LOCK_TTL", "30s")
	viper.SetDefault("KAFKA_BROKERS", "localhost:9092")
	viper.SetDefault("OUTBOX_TOPIC", "ledger.gateway-calls")
	viper.SetDefault("RECONCILE_INTERVAL", "5s")
	viper.SetDefault("RECONCILE_BATCH_SIZE", 100)
	viper.SetDefault("OUTBOX_MAX_RETRIES", 5)

	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}

	cfg.Port = viper.GetString("PORT")

	mode := StripeMode(viper.GetString("STRIPE_MODE"))
	if mode != StripeModeLive && mode != StripeModeTest {
		log.Printf("Warning: invalid STRIPE_MODE %q, defaulting to %q\n", mode, StripeModeTest)
		mode = StripeModeTest
	}
	cfg.StripeMode = mode
	cfg.StripeAPIKey = viper.GetString("STRIPE_API_KEY")
	if cfg.StripeAPIKey == "" {
		log.Println("Warning: STRIPE_API_KEY not set. Gateway calls will fail.")
	}
	cfg.StripeBaseURL = viper.GetString("STRIPE_BASE_URL")
	cfg.ClientMerchantID = viper.GetString("STRIPE_CLIENT_ID")
	cfg.SandboxMerchantID = viper.GetString("STRIPE_SANDBOX_ID")
	cfg.GatewayMinChargeCents = viper.GetInt64("GATEWAY_MIN_CHARGE_CENTS")
	cfg.GatewayMicroThresholdCents = viper.GetInt64("GATEWAY_MICRO_THRESHOLD_CENTS")
	cfg.TestIdempotency = viper.GetString("TEST_IDEMPOTENCY")

	cfg.RedisAddr = viper.GetString("REDIS_ADDR")
	lockTTL, err := time.ParseDuration(viper.GetString("LOCK_TTL"))
	if err != nil {
		lockTTL = 30 * time.Second
		log.Printf("Warning: invalid LOCK_TTL, defaulting to %s\n", lockTTL)
	}
	cfg.LockTTL = lockTTL

	cfg.KafkaBrokers = viper.GetStringSlice("KAFKA_BROKERS")
	if len(cfg.KafkaBrokers) == 1 {
		cfg.KafkaBrokers = splitCommas(cfg.KafkaBrokers[0])
	}
	cfg.OutboxTopic = viper.GetString("OUTBOX_TOPIC")

	reconcileInterval, err := time.ParseDuration(viper.GetString("RECONCILE_INTERVAL"))
	if err != nil {
		reconcileInterval = 5 * time.Second
		log.Printf("Warning: invalid RECONCILE_INTERVAL, defaulting to %s\n", reconcileInterval)
	}
	cfg.ReconcileInterval = reconcileInterval
	cfg.ReconcileBatchSize = viper.GetInt("RECONCILE_BATCH_SIZE")
	cfg.OutboxMaxRetries = viper.GetInt("OUTBOX_MAX_RETRIES")

	return cfg, nil
}

// MerchantID selects ClientMerchantID or SandboxMerchantID according to
// StripeMode, mirroring §8's STRIPE_MODE env-var contract.
func (c *Config) MerchantID() string {
	if c.StripeMode == StripeModeLive {
		return c.ClientMerchantID
	}
	return c.SandboxMerchantID
}

func splitCommas(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}
