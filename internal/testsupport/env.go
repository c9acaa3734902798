package testsupport

import (
	"fmt"
	"os"
	"strings"
	"testing"

	"vetml/internal/adapters/config"
)

// LoadRedisConfigFromEnv reads Redis settings for integration tests.
// The test is skipped when REDIS_HOST is not set.
func LoadRedisConfigFromEnv(t *testing.T) config.RedisConfig {
	t.Helper()
	requireEnv(t, "REDIS_HOST")

	return config.RedisConfig{
		Host:      os.Getenv("REDIS_HOST"),
		Port:      intValue("REDIS_PORT", 6379),
		Password:  os.Getenv("REDIS_PASSWORD"),
		DB:        intValue("REDIS_DB", 15),
		KeyPrefix: valueWithDefault("REDIS_KEY_PREFIX", "test:report:"),
	}
}

// LoadKafkaConfigFromEnv reads Kafka settings for integration tests.
// The test is skipped when KAFKA_BROKERS is not set.
func LoadKafkaConfigFromEnv(t *testing.T) config.KafkaConfig {
	t.Helper()
	requireEnv(t, "KAFKA_BROKERS")

	return config.KafkaConfig{
		Brokers:          strings.Split(os.Getenv("KAFKA_BROKERS"), ","),
		GroupID:          valueWithDefault("KAFKA_GROUP_ID", "vetml-test"),
		PredictionsTopic: valueWithDefault("KAFKA_PREDICTIONS_TOPIC", "test.predictions.generated"),
	}
}

func requireEnv(t *testing.T, keys ...string) {
	t.Helper()

	missing := make([]string, 0)
	for _, key := range keys {
		if os.Getenv(key) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		t.Skipf("integration environment missing, set %v to run", missing)
	}
}

func valueWithDefault(key string, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func intValue(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var parsed int
		if _, err := fmt.Sscanf(val, "%d", &parsed); err == nil {
			return parsed
		}
	}
	return fallback
}
