package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/tripworks/tipcast/internal/config"
	"github.com/tripworks/tipcast/internal/estimator"
	"github.com/tripworks/tipcast/internal/features"
	"github.com/tripworks/tipcast/internal/logger"
	"github.com/tripworks/tipcast/internal/notify"
	"github.com/tripworks/tipcast/internal/registry"
	"github.com/tripworks/tipcast/internal/source"
	"github.com/tripworks/tipcast/internal/storage"
	"github.com/tripworks/tipcast/internal/training"
)

var configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize logger
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Configuration loaded from %s", *configPath)

	command := flag.Arg(0)
	if command == "" {
		command = "train"
	}

	// Set up context with cancellation on shutdown signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, cancelling run...")
		cancel()
	}()

	notifier := newNotifier(cfg)

	var runErr error
	switch command {
	case "train":
		runErr = runTraining(ctx, cfg, notifier)
	case "evaluate":
		runErr = runEvaluation(ctx, cfg, notifier)
	case "predict":
		runErr = runPrediction(ctx, cfg, flag.Arg(1))
	case "runs":
		runErr = printRuns(cfg)
	default:
		logger.Fatal("Unknown command %q (want train, evaluate, predict, or runs)", command)
	}

	if runErr != nil {
		if notifier != nil {
			if err := notifier.SendError(runErr); err != nil {
				logger.Warn("Failed to send failure notification: %v", err)
			}
		}
		logger.Fatal("%s failed: %v", command, runErr)
	}
}

// runTraining fetches the training extract, builds features, fits the
// configured estimator, and persists the resulting artifact.
func runTraining(ctx context.Context, cfg *config.Config, notifier *notify.Client) error {
	start := time.Now()
	logger.Info("Starting training run")

	if cfg.Source.TrainPath == "" {
		return fmt.Errorf("source.train_path is required for training")
	}
	builder, err := newBuilder(cfg)
	if err != nil {
		return err
	}
	factory, err := newFactory(cfg)
	if err != nil {
		return err
	}

	raw, err := source.NewCSV(cfg.Source.TrainPath, cfg.Source.Limit).Fetch(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch training records: %w", err)
	}
	logger.Info("Fetched %d raw records from %s", len(raw.Rows), cfg.Source.TrainPath)

	batch, err := builder.Build(raw, true)
	if err != nil {
		return fmt.Errorf("failed to build features: %w", err)
	}
	logger.Info("Prepared %d feature rows (%d dropped)", len(batch.Rows), len(raw.Rows)-len(batch.Rows))

	artifact, err := training.Fit(batch, builder.Target(), factory)
	if err != nil {
		return err
	}
	logger.Info("Fitted %s on %d rows in %v", artifact.EstimatorKind, artifact.RowCount, artifact.FitDuration)

	if err := storage.Save(artifact, cfg.Artifacts.Path); err != nil {
		return fmt.Errorf("failed to save artifact: %w", err)
	}
	logger.Info("Saved artifact %s to %s", artifact.ID, cfg.Artifacts.Path)

	recordRun(cfg, &registry.Run{
		ID:            artifact.ID,
		Kind:          registry.KindTraining,
		EstimatorKind: artifact.EstimatorKind,
		Target:        artifact.TargetColumn,
		RowCount:      artifact.RowCount,
		Duration:      artifact.FitDuration,
		ArtifactPath:  cfg.Artifacts.Path,
	})

	if notifier != nil {
		if err := notifier.SendTrainingReport(artifact, cfg.Artifacts.Path); err != nil {
			logger.Warn("Failed to send training report: %v", err)
		}
	}

	logger.Info("Training run completed in %v", time.Since(start))
	return nil
}

// runEvaluation loads the persisted artifact and scores it on the hold-out
// extract with the configured metric.
func runEvaluation(ctx context.Context, cfg *config.Config, notifier *notify.Client) error {
	start := time.Now()
	logger.Info("Starting evaluation run")

	if cfg.Source.EvalPath == "" {
		return fmt.Errorf("source.eval_path is required for evaluation")
	}
	if cfg.Source.EvalPath == cfg.Source.TrainPath {
		logger.Warn("Evaluation input equals training input; hold-out scores need a later, disjoint period")
	}
	metric, err := training.ParseMetric(cfg.Evaluation.Metric)
	if err != nil {
		return err
	}
	builder, err := newBuilder(cfg)
	if err != nil {
		return err
	}

	artifact, err := storage.Load(cfg.Artifacts.Path)
	if err != nil {
		return fmt.Errorf("failed to load artifact: %w", err)
	}
	logger.Info("Loaded artifact %s (%s, trained %s)", artifact.ID, artifact.EstimatorKind,
		artifact.TrainedAt.Format(time.RFC3339))
	if builder.Target() != artifact.TargetColumn {
		logger.Warn("Configured target %s differs from artifact target %s", builder.Target(), artifact.TargetColumn)
	}

	raw, err := source.NewCSV(cfg.Source.EvalPath, cfg.Source.Limit).Fetch(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch evaluation records: %w", err)
	}
	batch, err := builder.Build(raw, true)
	if err != nil {
		return fmt.Errorf("failed to build features: %w", err)
	}
	logger.Info("Prepared %d hold-out rows (%d dropped)", len(batch.Rows), len(raw.Rows)-len(batch.Rows))

	evaluation, err := training.Evaluate(artifact, batch, metric)
	if err != nil {
		return err
	}
	logger.Info("%s = %.6f over %d rows", evaluation.Metric, evaluation.Value, evaluation.RowCount)

	recordRun(cfg, &registry.Run{
		ID:            uuid.New().String(),
		Kind:          registry.KindEvaluation,
		EstimatorKind: artifact.EstimatorKind,
		Target:        artifact.TargetColumn,
		Metric:        string(evaluation.Metric),
		MetricValue:   evaluation.Value,
		RowCount:      evaluation.RowCount,
		Duration:      time.Since(start),
		ArtifactPath:  cfg.Artifacts.Path,
	})

	if notifier != nil {
		if err := notifier.SendEvaluationReport(artifact, evaluation); err != nil {
			logger.Warn("Failed to send evaluation report: %v", err)
		}
	}

	logger.Info("Evaluation run completed in %v", time.Since(start))
	return nil
}

// runPrediction scores an arbitrary extract with the persisted artifact and
// writes one prediction per row to stdout as CSV.
func runPrediction(ctx context.Context, cfg *config.Config, inputPath string) error {
	if inputPath == "" {
		return fmt.Errorf("predict requires an input file: tipcast predict <trips.csv>")
	}

	builder, err := newBuilder(cfg)
	if err != nil {
		return err
	}
	artifact, err := storage.Load(cfg.Artifacts.Path)
	if err != nil {
		return fmt.Errorf("failed to load artifact: %w", err)
	}

	raw, err := source.NewCSV(inputPath, cfg.Source.Limit).Fetch(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch records: %w", err)
	}
	batch, err := builder.Build(raw, false)
	if err != nil {
		return fmt.Errorf("failed to build features: %w", err)
	}
	logger.Info("Prepared %d feature rows (%d dropped)", len(batch.Rows), len(raw.Rows)-len(batch.Rows))

	predictions, err := training.Predict(artifact, batch)
	if err != nil {
		return err
	}

	w := csv.NewWriter(os.Stdout)
	if err := w.Write([]string{"prediction"}); err != nil {
		return fmt.Errorf("failed to write predictions: %w", err)
	}
	for _, p := range predictions {
		if err := w.Write([]string{strconv.FormatFloat(p, 'g', -1, 64)}); err != nil {
			return fmt.Errorf("failed to write predictions: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush predictions: %w", err)
	}

	logger.Info("Predicted %d rows from %s", len(predictions), inputPath)
	return nil
}

// printRuns lists the most recent ledger entries.
func printRuns(cfg *config.Config) error {
	if !cfg.Registry.Enabled {
		return fmt.Errorf("run registry is disabled (registry.enabled: false)")
	}
	reg, err := registry.Open(cfg.Registry.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open run registry: %w", err)
	}
	defer func() {
		if err := reg.Close(); err != nil {
			logger.Warn("Failed to close run registry: %v", err)
		}
	}()

	runs, err := reg.Recent(20)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No recorded runs.")
		return nil
	}

	fmt.Printf("%-36s  %-10s  %-19s  %-12s  %-35s  %-8s  %s\n",
		"ID", "KIND", "ESTIMATOR", "TARGET", "METRIC", "ROWS", "CREATED")
	for _, run := range runs {
		metric := "-"
		if run.Metric != "" {
			metric = fmt.Sprintf("%s=%.6f", run.Metric, run.MetricValue)
		}
		fmt.Printf("%-36s  %-10s  %-19s  %-12s  %-35s  %-8d  %s\n",
			run.ID, run.Kind, run.EstimatorKind, run.Target, metric, run.RowCount,
			run.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	}
	return nil
}

func newBuilder(cfg *config.Config) (*features.Builder, error) {
	return features.New(features.Config{
		Target:           cfg.Features.Target,
		HighTipThreshold: cfg.Features.HighTipThreshold,
		MaxTipFraction:   cfg.Features.MaxTipFraction,
	})
}

// newFactory resolves the configured estimator kind and applies configured
// hyperparameters to each instance it produces.
func newFactory(cfg *config.Config) (estimator.Factory, error) {
	base, err := estimator.FactoryFor(cfg.Training.Estimator)
	if err != nil {
		return nil, err
	}
	return func() estimator.Estimator {
		e := base()
		if lr, ok := e.(*estimator.LogisticRegression); ok {
			if cfg.Training.LearningRate > 0 {
				lr.LearningRate = cfg.Training.LearningRate
			}
			if cfg.Training.Iterations > 0 {
				lr.Iterations = cfg.Training.Iterations
			}
		}
		return e
	}, nil
}

// newNotifier builds the Telegram client when notifications are enabled.
// Notification failures never fail a run, so setup problems only warn.
func newNotifier(cfg *config.Config) *notify.Client {
	if !cfg.Telegram.Enabled {
		return nil
	}
	client, err := notify.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID,
		cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase)
	if err != nil {
		logger.Warn("Failed to initialize Telegram client: %v", err)
		return nil
	}
	return client
}

// recordRun appends a run to the ledger when the registry is enabled.
// Ledger problems are logged, not fatal: the pipeline result outranks it.
func recordRun(cfg *config.Config, run *registry.Run) {
	if !cfg.Registry.Enabled {
		return
	}
	reg, err := registry.Open(cfg.Registry.DBPath)
	if err != nil {
		logger.Warn("Failed to open run registry: %v", err)
		return
	}
	defer func() {
		if err := reg.Close(); err != nil {
			logger.Warn("Failed to close run registry: %v", err)
		}
	}()
	if err := reg.Record(run); err != nil {
		logger.Warn("Failed to record run: %v", err)
	}
}
