package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Lendflow Lendflow       `yaml:"lendflow"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Reader   ReaderConfig   `yaml:"reader"`
	Facts    FactsConfig    `yaml:"facts"`
	Storage  StorageConfig  `yaml:"storage"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type Lendflow struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type PipelineConfig struct {
	MaxWorkers int           `yaml:"max_workers"`
	RunTimeout time.Duration `yaml:"run_timeout"`
}

type ReaderConfig struct {
	InboxDir string      `yaml:"inbox_dir"`
	Retry    RetryConfig `yaml:"retry"`
}

type RetryConfig struct {
	MaxAttempts       int           `yaml:"max_attempts"`
	BaseDelay         time.Duration `yaml:"base_delay"`
	MaxDelay          time.Duration `yaml:"max_delay"`
	BackoffMultiplier int           `yaml:"backoff_multiplier"`
}

// Late-correction policies for facts that re-arrive under an already loaded
// natural key.
const (
	LatePolicyNewestBatchWins = "newest_batch_wins"
	LatePolicyFirstBatchWins  = "first_batch_wins"
)

// Date-basis choices for merchant_sk resolution.
const (
	DateBasisEvent = "event"
	DateBasisBatch = "batch"
)

type FactsConfig struct {
	LatePolicy              string            `yaml:"late_policy"`
	DateBasis               map[string]string `yaml:"date_basis"`
	DelinquencyDPDThreshold int               `yaml:"delinquency_dpd_threshold"`
}

// DateBasisFor returns the configured merchant_sk date basis for an entity,
// defaulting to the transaction's own event date.
func (f FactsConfig) DateBasisFor(entity string) string {
	if basis, ok := f.DateBasis[entity]; ok && basis != "" {
		return basis
	}
	return DateBasisEvent
}

type StorageConfig struct {
	S3 S3Config `yaml:"s3"`
}

type S3Config struct {
	Enabled          bool    `yaml:"enabled"`
	Bucket           string  `yaml:"bucket"`
	Region           string  `yaml:"region"`
	Endpoint         string  `yaml:"endpoint"`
	PathStyle        bool    `yaml:"path_style"`
	UploadsPerSecond float64 `yaml:"uploads_per_second"`
	AccessKeyID      string  `yaml:"access_key_id"`
	SecretAccessKey  string  `yaml:"secret_access_key"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
}

// DefaultConfigPath is the conventional configuration location; environment
// specific variants (config.production.yml) are picked up automatically when
// the default path is used.
const DefaultConfigPath = "config/config.yml"

func LoadConfig(path string) (*Config, error) {
	path = resolveEnvSpecificPath(path, DefaultConfigPath)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Config{
		Pipeline: PipelineConfig{
			MaxWorkers: 4,
			RunTimeout: 10 * time.Minute,
		},
		Facts: FactsConfig{
			LatePolicy: LatePolicyNewestBatchWins,
		},
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Override S3 settings from environment variables if available
	if config.Storage.S3.Enabled {
		if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
			config.Storage.S3.AccessKeyID = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
			config.Storage.S3.SecretAccessKey = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_REGION"); v != "" {
			config.Storage.S3.Region = strings.TrimSpace(v)
		}
		if v := os.Getenv("S3_BUCKET"); v != "" {
			config.Storage.S3.Bucket = strings.TrimSpace(v)
		}
	}

	config.Storage.S3.Bucket = strings.TrimSpace(config.Storage.S3.Bucket)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Lendflow.Name == "" {
		return fmt.Errorf("lendflow.name is required")
	}

	if cfg.Lendflow.Version == "" {
		return fmt.Errorf("lendflow.version is required")
	}

	if cfg.Pipeline.MaxWorkers <= 0 {
		return fmt.Errorf("pipeline.max_workers must be greater than 0")
	}
	if cfg.Pipeline.RunTimeout <= 0 {
		return fmt.Errorf("pipeline.run_timeout must be greater than 0")
	}

	switch cfg.Facts.LatePolicy {
	case LatePolicyNewestBatchWins, LatePolicyFirstBatchWins:
	default:
		return fmt.Errorf("facts.late_policy '%s' is invalid", cfg.Facts.LatePolicy)
	}

	for entity, basis := range cfg.Facts.DateBasis {
		if basis != DateBasisEvent && basis != DateBasisBatch {
			return fmt.Errorf("facts.date_basis.%s '%s' is invalid", entity, basis)
		}
	}

	if cfg.Facts.DelinquencyDPDThreshold < 0 {
		return fmt.Errorf("facts.delinquency_dpd_threshold must not be negative")
	}

	if cfg.Reader.Retry.MaxAttempts < 0 {
		return fmt.Errorf("reader.retry.max_attempts must not be negative")
	}

	if cfg.Storage.S3.Enabled {
		if cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required when S3 is enabled")
		}
		if cfg.Storage.S3.Region == "" {
			return fmt.Errorf("storage.s3.region is required when S3 is enabled")
		}
		if cfg.Storage.S3.AccessKeyID == "" || cfg.Storage.S3.SecretAccessKey == "" {
			return fmt.Errorf("storage.s3.access_key_id and storage.s3.secret_access_key are required when S3 is enabled")
		}
		if !isValidS3Bucket(cfg.Storage.S3.Bucket) {
			return fmt.Errorf("storage.s3.bucket '%s' is invalid", cfg.Storage.S3.Bucket)
		}
	}

	return nil
}

var s3BucketRegexp = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

func isValidS3Bucket(name string) bool {
	if len(name) < 3 || len(name) > 63 {
		return false
	}
	if strings.Contains(name, "..") || strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return false
	}
	return s3BucketRegexp.MatchString(name)
}
