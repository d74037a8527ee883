package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadAndValidate(t *testing.T) {
	// Create temp config file
	content := `
source:
  train_path: "./data/trips_2019_01.csv"
  eval_path: "./data/trips_2019_02.csv"
  limit: 50000

features:
  target: "high_tip"
  high_tip_threshold: 0.2
  max_tip_fraction: 1.0

training:
  estimator: "logistic_regression"
  learning_rate: 0.1
  iterations: 1000

evaluation:
  metric: "roc_auc_score"

artifacts:
  path: "./data/model.json"

registry:
  enabled: true
  db_path: "./data/runs.db"

telegram:
  bot_token: "test_token"
  chat_id: "test_chat_id"
  enabled: true
  max_retries: 5
  retry_delay_base: 2s

logging:
  level: "info"
  format: "text"
`
	tmpfile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(tmpfile.Name())

	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}

	// Test Load
	cfg, err := Load(tmpfile.Name())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Verify values
	if cfg.Source.TrainPath != "./data/trips_2019_01.csv" {
		t.Errorf("Unexpected train path: %s", cfg.Source.TrainPath)
	}
	if cfg.Source.Limit != 50000 {
		t.Errorf("Unexpected source limit: %d", cfg.Source.Limit)
	}
	if cfg.Features.Target != "high_tip" {
		t.Errorf("Unexpected target: %s", cfg.Features.Target)
	}
	if cfg.Training.Estimator != "logistic_regression" {
		t.Errorf("Unexpected estimator: %s", cfg.Training.Estimator)
	}
	if cfg.Evaluation.Metric != "roc_auc_score" {
		t.Errorf("Unexpected metric: %s", cfg.Evaluation.Metric)
	}
	if cfg.Telegram.RetryDelayBase != 2*time.Second {
		t.Errorf("Unexpected retry delay: %v", cfg.Telegram.RetryDelayBase)
	}

	// Test Validate
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	content := `
source:
  train_path: "./data/trips.csv"
`
	tmpfile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(tmpfile.Name())

	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpfile.Name())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Features.Target != "tip_fraction" {
		t.Errorf("Default target = %s, want tip_fraction", cfg.Features.Target)
	}
	if cfg.Features.HighTipThreshold != 0.2 {
		t.Errorf("Default threshold = %v, want 0.2", cfg.Features.HighTipThreshold)
	}
	if cfg.Training.Estimator != "linear_regression" {
		t.Errorf("Default estimator = %s, want linear_regression", cfg.Training.Estimator)
	}
	if cfg.Evaluation.Metric != "root_mean_squared_error" {
		t.Errorf("Default metric = %s, want root_mean_squared_error", cfg.Evaluation.Metric)
	}
	if !cfg.Registry.Enabled {
		t.Error("Registry should be enabled by default")
	}
	if cfg.Telegram.Enabled {
		t.Error("Telegram should be disabled by default")
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate failed on defaults: %v", err)
	}
}

func TestValidateErrors(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Source: SourceConfig{
				TrainPath: "./data/trips.csv",
			},
			Features: FeaturesConfig{
				Target:           "tip_fraction",
				HighTipThreshold: 0.2,
			},
			Training: TrainingConfig{
				Estimator: "linear_regression",
			},
			Evaluation: EvaluationConfig{
				Metric: "root_mean_squared_error",
			},
			Artifacts: ArtifactsConfig{
				Path: "./data/model.json",
			},
			Registry: RegistryConfig{
				Enabled: true,
				DBPath:  "./data/runs.db",
			},
			Logging: LoggingConfig{
				Level:  "info",
				Format: "text",
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "unknown target",
			mutate:  func(c *Config) { c.Features.Target = "tip_total" },
			wantErr: true,
		},
		{
			name:    "threshold out of range",
			mutate:  func(c *Config) { c.Features.HighTipThreshold = 1.5 },
			wantErr: true,
		},
		{
			name:    "negative tip cap",
			mutate:  func(c *Config) { c.Features.MaxTipFraction = -1 },
			wantErr: true,
		},
		{
			name:    "missing estimator",
			mutate:  func(c *Config) { c.Training.Estimator = "" },
			wantErr: true,
		},
		{
			name:    "missing metric",
			mutate:  func(c *Config) { c.Evaluation.Metric = "" },
			wantErr: true,
		},
		{
			name:    "missing artifact path",
			mutate:  func(c *Config) { c.Artifacts.Path = "" },
			wantErr: true,
		},
		{
			name:    "registry enabled without db path",
			mutate:  func(c *Config) { c.Registry.DBPath = "" },
			wantErr: true,
		},
		{
			name:    "missing telegram token when enabled",
			mutate:  func(c *Config) { c.Telegram.Enabled = true; c.Telegram.ChatID = "42" },
			wantErr: true,
		},
		{
			name:    "negative source limit",
			mutate:  func(c *Config) { c.Source.Limit = -1 },
			wantErr: true,
		},
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
