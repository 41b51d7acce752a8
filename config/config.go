package config

import (
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	AWSRegion     string `env:"AWS_REGION,required"`
	SourceBucket  string `env:"MARCHIVE_SOURCE_BUCKET,required"`
	ArchiveBucket string `env:"MARCHIVE_ARCHIVE_BUCKET,required"`

	RecordDBPath string `env:"MARCHIVE_DB_PATH" envDefault:"./data/records"`

	ListPageSize     int           `env:"MARCHIVE_LIST_PAGE_SIZE" envDefault:"500"`
	DownloadPoolSize int           `env:"MARCHIVE_DOWNLOAD_POOL_SIZE" envDefault:"32"`
	IngestInterval   time.Duration `env:"MARCHIVE_INGEST_INTERVAL" envDefault:"5s"`

	S3Timeout time.Duration `env:"MARCHIVE_S3_TIMEOUT" envDefault:"30s"`
	S3Retries int           `env:"MARCHIVE_S3_RETRIES" envDefault:"3"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Attempt to load .env file for local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
