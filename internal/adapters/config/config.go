package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"vetml/internal/domain/diagnosis"
	"vetml/pkg/errors"
)

type Config struct {
	App           AppConfig
	Server        ServerConfig
	Models        ModelsConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	ErrorTracking ErrorTrackingConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"vetml"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool   `envconfig:"DEBUG" default:"false"`
}

// ServerConfig covers the websocket and HTTP surface
type ServerConfig struct {
	Host           string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port           int           `envconfig:"SERVER_PORT" default:"8765"`
	WebSocketPath  string        `envconfig:"SERVER_WS_PATH" default:"/ws"`
	RequestTimeout time.Duration `envconfig:"SERVER_REQUEST_TIMEOUT" default:"5s"`
	ReadLimit      int64         `envconfig:"SERVER_READ_LIMIT" default:"1048576"`
	MessageRate    float64       `envconfig:"SERVER_MESSAGE_RATE" default:"20"`
	MessageBurst   int           `envconfig:"SERVER_MESSAGE_BURST" default:"40"`
	PingInterval   time.Duration `envconfig:"SERVER_PING_INTERVAL" default:"30s"`
	WriteTimeout   time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"10s"`
}

func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ModelsConfig locates per-species artifacts.
// Dirs are candidate base directories tried in order.
type ModelsConfig struct {
	Dirs             []string      `envconfig:"MODELS_DIRS" default:"models,species_models"`
	SupportedSpecies []string      `envconfig:"MODELS_SUPPORTED_SPECIES" default:"dog,cat,chicken,fish,hamster,rabbit,snake,turtle"`
	TopN             int           `envconfig:"MODELS_TOP_N" default:"5"`
	HotReload        bool          `envconfig:"MODELS_HOT_RELOAD" default:"false"`
	ReloadInterval   time.Duration `envconfig:"MODELS_RELOAD_INTERVAL" default:"10s"`
	ONNXLibraryPath  string        `envconfig:"ONNXRUNTIME_LIB"`
	ReportTTL        time.Duration `envconfig:"MODELS_REPORT_TTL" default:"24h"`
}

// Species returns the supported list in normalized form, keeping order
func (c ModelsConfig) Species() []diagnosis.Species {
	out := make([]diagnosis.Species, 0, len(c.SupportedSpecies))
	seen := make(map[diagnosis.Species]bool, len(c.SupportedSpecies))
	for _, raw := range c.SupportedSpecies {
		s := diagnosis.NormalizeSpecies(raw)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// RedisConfig is optional; an empty host keeps reports in memory
type RedisConfig struct {
	Host      string `envconfig:"REDIS_HOST"`
	Port      int    `envconfig:"REDIS_PORT" default:"6379"`
	Password  string `envconfig:"REDIS_PASSWORD"`
	DB        int    `envconfig:"REDIS_DB" default:"0"`
	KeyPrefix string `envconfig:"REDIS_KEY_PREFIX" default:"vetml:report:"`
}

func (c RedisConfig) Enabled() bool {
	return strings.TrimSpace(c.Host) != ""
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// KafkaConfig is optional; no brokers disables event publishing
type KafkaConfig struct {
	Brokers           []string      `envconfig:"KAFKA_BROKERS"`
	GroupID           string        `envconfig:"KAFKA_GROUP_ID" default:"vetml"`
	PredictionsTopic  string        `envconfig:"KAFKA_PREDICTIONS_TOPIC" default:"predictions.generated"`
	ModelUpdatesTopic string        `envconfig:"KAFKA_MODEL_UPDATES_TOPIC" default:"models.published"`
	PublishTimeout    time.Duration `envconfig:"KAFKA_PUBLISH_TIMEOUT" default:"5s"`
	PublishRetries    uint64        `envconfig:"KAFKA_PUBLISH_RETRIES" default:"3"`
}

func (c KafkaConfig) Enabled() bool {
	return len(c.Brokers) > 0
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"false"`
	Provider    string `envconfig:"ERROR_TRACKING_PROVIDER" default:"sentry"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// Load reads configuration from environment variables.
// It first tries to load .env file (useful for local development).
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks cross-field constraints envconfig cannot express
func (c *Config) Validate() error {
	if len(c.Models.Dirs) == 0 {
		return errors.NewValidationError("MODELS_DIRS", "at least one directory required", c.Models.Dirs)
	}
	if len(c.Models.Species()) == 0 {
		return errors.NewValidationError("MODELS_SUPPORTED_SPECIES", "at least one species required", c.Models.SupportedSpecies)
	}
	if c.Models.TopN <= 0 {
		return errors.NewValidationError("MODELS_TOP_N", "must be positive", c.Models.TopN)
	}
	if c.Server.RequestTimeout <= 0 {
		return errors.NewValidationError("SERVER_REQUEST_TIMEOUT", "must be positive", c.Server.RequestTimeout)
	}
	return nil
}
