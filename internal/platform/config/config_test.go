package config_test

import (
	"os"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marwanAmeen/beeline-server/internal/platform/config"
)

// resetViper clears global viper state between tests, since LoadConfig
// reads and writes the package-level viper instance.
func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
}

func TestLoadConfigDefaults(t *testing.T) {
	resetViper(t)
	os.Clearenv()

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, config.StripeModeTest, cfg.StripeMode)
	assert.Equal(t, int64(50), cfg.GatewayMinChargeCents)
	assert.Equal(t, int64(500), cfg.GatewayMicroThresholdCents)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 5, cfg.OutboxMaxRetries)
}

func TestLoadConfigInvalidStripeModeFallsBackToTest(t *testing.T) {
	resetViper(t)
	os.Clearenv()
	os.Setenv("STRIPE_MODE", "bogus")
	defer os.Unsetenv("STRIPE_MODE")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, config.StripeModeTest, cfg.StripeMode)
}

func TestLoadConfigKafkaBrokersFromCommaList(t *testing.T) {
	resetViper(t)
	os.Clearenv()
	os.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	defer os.Unsetenv("KAFKA_BROKERS")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
}

func TestMerchantIDSelectsByStripeMode(t *testing.T) {
	cfg := &config.Config{
		StripeMode:        config.StripeModeLive,
		ClientMerchantID:  "client-id",
		SandboxMerchantID: "sandbox-id",
	}
	assert.Equal(t, "client-id", cfg.MerchantID())

	cfg.StripeMode = config.StripeModeTest
	assert.Equal(t, "sandbox-id", cfg.MerchantID())
}
