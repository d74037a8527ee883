package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete pipeline configuration
type Config struct {
	Source     SourceConfig     `mapstructure:"source"`
	Features   FeaturesConfig   `mapstructure:"features"`
	Training   TrainingConfig   `mapstructure:"training"`
	Evaluation EvaluationConfig `mapstructure:"evaluation"`
	Artifacts  ArtifactsConfig  `mapstructure:"artifacts"`
	Registry   RegistryConfig   `mapstructure:"registry"`
	Telegram   TelegramConfig   `mapstructure:"telegram"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// SourceConfig locates the raw trip record extracts
type SourceConfig struct {
	TrainPath string `mapstructure:"train_path"`
	EvalPath  string `mapstructure:"eval_path"`
	Limit     int    `mapstructure:"limit"`
}

// FeaturesConfig controls target derivation in the feature builder
type FeaturesConfig struct {
	Target           string  `mapstructure:"target"`
	HighTipThreshold float64 `mapstructure:"high_tip_threshold"`
	MaxTipFraction   float64 `mapstructure:"max_tip_fraction"`
}

// TrainingConfig selects and tunes the estimator to fit
type TrainingConfig struct {
	Estimator    string  `mapstructure:"estimator"`
	LearningRate float64 `mapstructure:"learning_rate"`
	Iterations   int     `mapstructure:"iterations"`
}

// EvaluationConfig selects the hold-out metric
type EvaluationConfig struct {
	Metric string `mapstructure:"metric"`
}

// ArtifactsConfig holds model persistence configuration
type ArtifactsConfig struct {
	Path string `mapstructure:"path"`
}

// RegistryConfig holds the run ledger configuration
type RegistryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DBPath  string `mapstructure:"db_path"`
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables
func Load(path string) (*Config, error) {
	v := viper.New()

	// Set config file
	v.SetConfigFile(path)

	// Set defaults
	setDefaults(v)

	// Enable environment variable override
	v.SetEnvPrefix("TIPCAST")
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Source defaults
	v.SetDefault("source.limit", 0)

	// Feature defaults
	v.SetDefault("features.target", "tip_fraction")
	v.SetDefault("features.high_tip_threshold", 0.2)
	v.SetDefault("features.max_tip_fraction", 0.0)

	// Training defaults
	v.SetDefault("training.estimator", "linear_regression")
	v.SetDefault("training.learning_rate", 0.0)
	v.SetDefault("training.iterations", 0)

	// Evaluation defaults
	v.SetDefault("evaluation.metric", "root_mean_squared_error")

	// Artifact defaults
	v.SetDefault("artifacts.path", "./data/model.json")

	// Registry defaults
	v.SetDefault("registry.enabled", true)
	v.SetDefault("registry.db_path", "./data/runs.db")

	// Telegram defaults
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	// Validate Source config
	if c.Source.Limit < 0 {
		return fmt.Errorf("source.limit must not be negative")
	}

	// Validate Features config
	if c.Features.Target != "tip_fraction" && c.Features.Target != "high_tip" {
		return fmt.Errorf("features.target must be one of: tip_fraction, high_tip")
	}
	if c.Features.HighTipThreshold <= 0.0 || c.Features.HighTipThreshold >= 1.0 {
		return fmt.Errorf("features.high_tip_threshold must be between 0.0 and 1.0 exclusive")
	}
	if c.Features.MaxTipFraction < 0.0 {
		return fmt.Errorf("features.max_tip_fraction must not be negative")
	}

	// Validate Training config
	if c.Training.Estimator == "" {
		return fmt.Errorf("training.estimator is required")
	}
	if c.Training.LearningRate < 0.0 {
		return fmt.Errorf("training.learning_rate must not be negative")
	}
	if c.Training.Iterations < 0 {
		return fmt.Errorf("training.iterations must not be negative")
	}

	// Validate Evaluation config
	if c.Evaluation.Metric == "" {
		return fmt.Errorf("evaluation.metric is required")
	}

	// Validate Artifacts config
	if c.Artifacts.Path == "" {
		return fmt.Errorf("artifacts.path is required")
	}

	// Validate Registry config
	if c.Registry.Enabled && c.Registry.DBPath == "" {
		return fmt.Errorf("registry.db_path is required when the registry is enabled")
	}

	// Validate Telegram config
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	// Validate Logging config
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}
