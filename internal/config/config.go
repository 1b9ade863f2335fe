package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// ----------------------------
	// SMTP
	// ----------------------------
	SMTPHost     string `envconfig:"SMTP_HOST" default:"localhost"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"1025"`
	SMTPUser     string `envconfig:"SMTP_USER" default:""`
	SMTPPassword string `envconfig:"SMTP_PASSWORD" default:""`
	SMTPFrom     string `envconfig:"SMTP_FROM" default:"noreply@mailcast.local"`

	// ----------------------------
	// Workers
	// ----------------------------
	WorkerCount   int `envconfig:"WORKER_COUNT" default:"5"`
	RateLimit     int `envconfig:"RATE_LIMIT" default:"10"`
	RetryAttempts int `envconfig:"RETRY_ATTEMPTS" default:"3"`

	// ----------------------------
	// Scheduler
	// ----------------------------
	SchedulerTimezone string        `envconfig:"SCHEDULER_TIMEZONE" default:"UTC"`
	ReconcileInterval time.Duration `envconfig:"RECONCILE_INTERVAL" default:"1m"`
	FiringQueueSize   int           `envconfig:"FIRING_QUEUE_SIZE" default:"100"`

	// ----------------------------
	// SMTP circuit breaker
	// ----------------------------
	BreakerMaxFailures uint32        `envconfig:"BREAKER_MAX_FAILURES" default:"5"`
	BreakerTimeout     time.Duration `envconfig:"BREAKER_TIMEOUT" default:"30s"`

	// ----------------------------
	// HTTP API
	// ----------------------------
	APIPort string `envconfig:"API_PORT" default:"8080"`

	// ----------------------------
	// Metrics
	// ----------------------------
	MetricsPort string `envconfig:"METRICS_PORT" default:"9090"`

	// ----------------------------
	// Database
	// ----------------------------
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	var cfg Config
	err := envconfig.Process("", &cfg)
	return &cfg, err
}

// Location resolves SchedulerTimezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.SchedulerTimezone)
}
