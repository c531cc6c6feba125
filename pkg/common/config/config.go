package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "DCIS"

type Config struct {
	LogLevel string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=trace debug info warn warning error fatal panic"`
	DataDir  string `envconfig:"DATA_DIR" default:"data" validate:"required"`

	Sources SourcesConfig `envconfig:"SOURCE"`

	PlotsEnabled bool   `envconfig:"PLOTS_ENABLED" default:"true"`
	MetricsFile  string `envconfig:"METRICS_FILE"`

	Postgres PostgresConfig `envconfig:"POSTGRES"`
	Redis    RedisConfig    `envconfig:"REDIS"`
	Kafka    KafkaConfig    `envconfig:"KAFKA"`
}

// SourcesConfig points at the three upstream HTAN metadata exports.
type SourcesConfig struct {
	DemographicsURL  string        `envconfig:"DEMOGRAPHICS_URL" default:"https://d13ch66cwesneh.cloudfront.net/metadata/syn39263164.csv" validate:"required,url"`
	DiagnosticsURL   string        `envconfig:"DIAGNOSTICS_URL" default:"https://d13ch66cwesneh.cloudfront.net/metadata/syn39263335.csv" validate:"required,url"`
	MolecularTestURL string        `envconfig:"MOLECULAR_TEST_URL" default:"https://d13ch66cwesneh.cloudfront.net/metadata/syn39266384.csv" validate:"required,url"`
	HTTPTimeout      time.Duration `envconfig:"HTTP_TIMEOUT" default:"60s" validate:"gt=0"`
	MaxResponseBytes int64         `envconfig:"MAX_RESPONSE_BYTES" default:"67108864" validate:"gt=0"`
}

type PostgresConfig struct {
	Enabled  bool   `envconfig:"ENABLED" default:"false"`
	Host     string `envconfig:"HOST" default:"localhost" validate:"required_if=Enabled true"`
	Port     string `envconfig:"PORT" default:"5432"`
	User     string `envconfig:"USER" default:"synaptica"`
	Password string `envconfig:"PASSWORD" default:"synaptica123"`
	DB       string `envconfig:"DB" default:"synaptica"`
	SSLMode  string `envconfig:"SSLMODE" default:"disable" validate:"oneof=disable allow prefer require verify-ca verify-full"`
}

type RedisConfig struct {
	Enabled   bool          `envconfig:"ENABLED" default:"false"`
	Host      string        `envconfig:"HOST" default:"localhost"`
	Port      string        `envconfig:"PORT" default:"6379"`
	Password  string        `envconfig:"PASSWORD"`
	DB        int           `envconfig:"DB" default:"0" validate:"min=0"`
	KeyPrefix string        `envconfig:"KEY_PREFIX" default:"features"`
	CacheTTL  time.Duration `envconfig:"CACHE_TTL" default:"24h" validate:"gte=0"`
}

type KafkaConfig struct {
	Enabled bool     `envconfig:"ENABLED" default:"false"`
	Brokers []string `envconfig:"BROKERS" default:"localhost:9092" validate:"required_if=Enabled true"`
	Topic   string   `envconfig:"TOPIC" default:"dcis-pipeline-runs" validate:"required_if=Enabled true"`
}

// Load reads DCIS_* environment variables over the defaults and validates the
// result.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		p.Host, p.User, p.Password, p.DB, p.Port, p.SSLMode,
	)
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}
