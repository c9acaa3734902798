package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vetml/internal/domain/diagnosis"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8765, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, []string{"models", "species_models"}, cfg.Models.Dirs)
	assert.Equal(t, diagnosis.DefaultSupportedSpecies, cfg.Models.Species())
	assert.Equal(t, 5, cfg.Models.TopN)
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.Kafka.Enabled())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("MODELS_SUPPORTED_SPECIES", "Dog, guinea pig,dog")
	t.Setenv("MODELS_TOP_N", "3")
	t.Setenv("REDIS_HOST", "localhost")
	t.Setenv("KAFKA_BROKERS", "a:9092,b:9092")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []diagnosis.Species{"dog", "guinea_pig"}, cfg.Models.Species())
	assert.Equal(t, 3, cfg.Models.TopN)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
}

func TestValidate(t *testing.T) {
	t.Setenv("MODELS_TOP_N", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MODELS_TOP_N")
}
