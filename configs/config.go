package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	PublisherModeLive = "live"
	PublisherModeFake = "fake"
)

type R2 struct {
	AccountID  string `env:"R2_ACCOUNT_ID"`
	AccessKey  string `env:"R2_ACCESS_KEY"`
	SecretKey  string `env:"R2_SECRET_KEY"`
	BucketName string `env:"R2_BUCKET_NAME"`
	PublicURL  string `env:"R2_PUBLIC_URL"`
}

func (r R2) Enabled() bool {
	return r.AccountID != "" && r.AccessKey != "" && r.SecretKey != "" && r.BucketName != ""
}

type Facebook struct {
	GraphURL    string `env:"FACEBOOK_GRAPH_URL" env-default:"https://graph.facebook.com/v21.0"`
	PageID      string `env:"FACEBOOK_PAGE_ID"`
	AccessToken string `env:"FACEBOOK_ACCESS_TOKEN"`
}

type Instagram struct {
	GraphURL    string `env:"INSTAGRAM_GRAPH_URL" env-default:"https://graph.instagram.com/v21.0"`
	AccountID   string `env:"INSTAGRAM_ACCOUNT_ID"`
	AccessToken string `env:"INSTAGRAM_ACCESS_TOKEN"`
}

type Config struct {
	ServerAddress string `env:"SERVER_ADDRESS" env-default:":3000"`
	FrontendURL   string `env:"FRONTEND_URL" env-default:"http://localhost:5173"`
	PostgresURI   string `env:"POSTGRES_URI" env-required:"true"`
	AutoMigrate   bool   `env:"AUTO_MIGRATE" env-default:"false"`

	RedisURI          string        `env:"REDIS_URI" env-default:"localhost:6379"`
	RedisPassword     string        `env:"REDIS_PASSWORD"`
	RedisDB           int           `env:"REDIS_DB" env-default:"0"`
	PublishedCacheTTL time.Duration `env:"PUBLISHED_CACHE_TTL" env-default:"24h"`

	SchedInterval  time.Duration `env:"SCHED_INTERVAL" env-default:"1m"`
	SchedBatchSize int           `env:"SCHED_BATCH_SIZE" env-default:"10"`
	PublishTimeout time.Duration `env:"PUBLISH_TIMEOUT" env-default:"30s"`
	PublisherMode  string        `env:"PUBLISHER_MODE" env-default:"live"`
	ImageBaseURL   string        `env:"IMAGE_BASE_URL" env-default:"http://localhost:3000/product/photo/"`

	Facebook  Facebook
	Instagram Instagram
	R2        R2

	SecretKey string `env:"SECRET_KEY" env-required:"true"`
}

// LoadConfig reads the configuration from the environment. Call
// godotenv.Load first to pick up a local .env file.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.SchedInterval <= 0 {
		errs = append(errs, errors.New("SCHED_INTERVAL must be positive"))
	}
	if c.SchedBatchSize <= 0 {
		errs = append(errs, errors.New("SCHED_BATCH_SIZE must be positive"))
	}
	if c.PublishTimeout <= 0 {
		errs = append(errs, errors.New("PUBLISH_TIMEOUT must be positive"))
	}
	if c.PublisherMode != PublisherModeLive && c.PublisherMode != PublisherModeFake {
		errs = append(errs, fmt.Errorf("PUBLISHER_MODE must be %q or %q, got %q", PublisherModeLive, PublisherModeFake, c.PublisherMode))
	}
	return errors.Join(errs...)
}

// CronSpec is the robfig/cron schedule of the dispatch job.
func (c *Config) CronSpec() string {
	return "@every " + c.SchedInterval.String()
}
