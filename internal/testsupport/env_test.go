package testsupport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadRedisConfigFromEnv(t *testing.T) {
	t.Setenv("REDIS_HOST", "redis")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("REDIS_DB", "2")

	cfg := LoadRedisConfigFromEnv(t)
	assert.Equal(t, "redis:6380", cfg.Addr())
	assert.Equal(t, 2, cfg.DB)
	assert.Equal(t, "test:report:", cfg.KeyPrefix)
}

func TestLoadKafkaConfigFromEnv(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg := LoadKafkaConfigFromEnv(t)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Brokers)
	assert.Equal(t, "vetml-test", cfg.GroupID)
}

func TestIntValueFallback(t *testing.T) {
	t.Setenv("SOME_INT", "not-a-number")
	assert.Equal(t, 7, intValue("SOME_INT", 7))
}
