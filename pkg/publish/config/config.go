// Package config loads the service configuration from the environment and
// builds the publish components from it.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/tendant/summary-publish/pkg/publish"
	"github.com/tendant/summary-publish/pkg/publish/notify/telegram"
	fsstorage "github.com/tendant/summary-publish/pkg/publish/storage/fs"
	gcsstorage "github.com/tendant/summary-publish/pkg/publish/storage/gcs"
	memorystorage "github.com/tendant/summary-publish/pkg/publish/storage/memory"
	s3storage "github.com/tendant/summary-publish/pkg/publish/storage/s3"
)

// Storage types accepted in STORAGE_TYPE
const (
	StorageS3     = "s3"
	StorageGCS    = "gcs"
	StorageFS     = "fs"
	StorageMemory = "memory"
)

// Config represents the service configuration
type Config struct {
	Environment string `env:"ENVIRONMENT" env-default:"development" env-description:"Runtime environment"`

	Log     LogConfig
	Publish PublishConfig
	Storage StorageConfig
	Notify  NotifyConfig

	MetricsEnabled bool `env:"METRICS_ENABLED" env-default:"true" env-description:"Expose /metrics"`
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL" env-default:"info" env-description:"debug, info, warn or error"`
	Format string `env:"LOG_FORMAT" env-default:"text" env-description:"text or json"`
}

type PublishConfig struct {
	APIKey       string `env:"PUBLISH_API_KEY" env-description:"Shared secret expected in X-API-Key"`
	Path         string `env:"PUBLISH_PATH" env-default:"/publish" env-description:"Mount path of the publish endpoint"`
	MaxBodyBytes int64  `env:"PUBLISH_MAX_BODY_BYTES" env-default:"10485760" env-description:"Request body limit in bytes"`
	CDNBaseURL   string `env:"CDN_BASE_URL" env-default:"https://cdn.etopodtema.com" env-description:"Public base URL of the bucket"`
}

type StorageConfig struct {
	Type             string `env:"STORAGE_TYPE" env-default:"s3" env-description:"s3, gcs, fs or memory"`
	Bucket           string `env:"STORAGE_BUCKET" env-default:"podtema-cdn"`
	Region           string `env:"STORAGE_REGION" env-default:"ru-central1"`
	Endpoint         string `env:"STORAGE_ENDPOINT" env-default:"https://storage.yandexcloud.net"`
	AccessKeyID      string `env:"STORAGE_ACCESS_KEY_ID"`
	SecretAccessKey  string `env:"STORAGE_SECRET_ACCESS_KEY"`
	UsePathStyle     bool   `env:"STORAGE_USE_PATH_STYLE" env-default:"true"`
	ConditionalWrite bool   `env:"STORAGE_CONDITIONAL_WRITE" env-default:"false" env-description:"Let the store reject a second write to the same key"`
	MaxAttempts      int    `env:"STORAGE_MAX_ATTEMPTS" env-default:"0" env-description:"S3 retry attempts, 0 keeps the SDK default"`
	BaseDir          string `env:"STORAGE_BASE_DIR" env-default:"./data" env-description:"Root directory for the fs backend"`
}

type NotifyConfig struct {
	BotToken string        `env:"NOTIFY_BOT_TOKEN" env-description:"Telegram bot token, empty disables alerts"`
	ChatID   string        `env:"NOTIFY_CHAT_ID" env-default:"234524401"`
	APIURL   string        `env:"NOTIFY_API_URL" env-default:"https://api.telegram.org"`
	Timeout  time.Duration `env:"NOTIFY_TIMEOUT" env-default:"10s"`
}

// Load reads the configuration from the environment and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Storage.Type {
	case StorageS3, StorageGCS:
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage bucket is required for storage type %q", c.Storage.Type)
		}
	case StorageFS:
		if c.Storage.BaseDir == "" {
			return errors.New("storage base directory is required for storage type \"fs\"")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("unsupported storage type %q (use s3, gcs, fs or memory)", c.Storage.Type)
	}

	u, err := url.Parse(c.Publish.CDNBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid CDN base URL %q", c.Publish.CDNBaseURL)
	}

	if c.Publish.Path == "" || c.Publish.Path[0] != '/' {
		return fmt.Errorf("publish path must start with '/': %q", c.Publish.Path)
	}
	if c.Publish.MaxBodyBytes < 0 {
		return errors.New("publish max body bytes must not be negative")
	}

	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("unsupported log format %q (use text or json)", c.Log.Format)
	}

	return nil
}

// BuildStore creates the object store selected by STORAGE_TYPE. The GCS
// backend holds a client the caller should Close.
func (c *Config) BuildStore(ctx context.Context) (publish.ObjectStore, error) {
	switch c.Storage.Type {
	case StorageS3:
		store, err := s3storage.New(ctx, s3storage.Config{
			Region:           c.Storage.Region,
			Bucket:           c.Storage.Bucket,
			AccessKeyID:      c.Storage.AccessKeyID,
			SecretAccessKey:  c.Storage.SecretAccessKey,
			Endpoint:         c.Storage.Endpoint,
			UsePathStyle:     c.Storage.UsePathStyle,
			ConditionalWrite: c.Storage.ConditionalWrite,
			MaxAttempts:      c.Storage.MaxAttempts,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 backend: %w", err)
		}
		return store, nil
	case StorageGCS:
		store, err := gcsstorage.New(ctx, gcsstorage.Config{
			Bucket:           c.Storage.Bucket,
			ConditionalWrite: c.Storage.ConditionalWrite,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create GCS backend: %w", err)
		}
		return store, nil
	case StorageFS:
		store, err := fsstorage.New(fsstorage.Config{
			BaseDir:          c.Storage.BaseDir,
			ConditionalWrite: c.Storage.ConditionalWrite,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create filesystem backend: %w", err)
		}
		return store, nil
	case StorageMemory:
		var opts []memorystorage.Option
		if c.Storage.ConditionalWrite {
			opts = append(opts, memorystorage.WithConditionalWrite())
		}
		return memorystorage.New(opts...), nil
	default:
		return nil, fmt.Errorf("unsupported storage type %q", c.Storage.Type)
	}
}

// BuildNotifier returns the Telegram notifier, or a logging no-op when no bot
// token is configured.
func (c *Config) BuildNotifier(logger *slog.Logger) (publish.Notifier, error) {
	if c.Notify.BotToken == "" {
		return publish.NewNoopNotifier(logger), nil
	}
	notifier, err := telegram.New(telegram.Config{
		BotToken: c.Notify.BotToken,
		ChatID:   c.Notify.ChatID,
		APIURL:   c.Notify.APIURL,
		Timeout:  c.Notify.Timeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram notifier: %w", err)
	}
	return notifier, nil
}

// BuildPublisher wires a Publisher around store
func (c *Config) BuildPublisher(store publish.ObjectStore, logger *slog.Logger) (*publish.Publisher, error) {
	return publish.New(
		publish.WithObjectStore(store),
		publish.WithCDNBaseURL(c.Publish.CDNBaseURL),
		publish.WithLogger(logger),
	)
}
