// =============================================================================
// auditflow entry point
// =============================================================================
// Submits a batch of website URLs through the target site's audit form and
// records the resulting report URL per input.
//
// Usage:
//
//	auditflow run                         # process the configured input table
//	auditflow run --config config.yaml    # with a config file
//	auditflow run --input urls.csv --output reports.csv
//	auditflow steps                       # print the resolved step plan
//	auditflow version                     # show version info
// =============================================================================
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/auditflow/annotate"
	"github.com/BaSui01/auditflow/batch"
	"github.com/BaSui01/auditflow/browser"
	"github.com/BaSui01/auditflow/config"
	"github.com/BaSui01/auditflow/internal/metrics"
	"github.com/BaSui01/auditflow/internal/table"
	"github.com/BaSui01/auditflow/sequence"
)

// Version information, injected at build time.
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runBatch(os.Args[2:])
	case "steps":
		runSteps(os.Args[2:])
	case "version":
		printVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// =============================================================================
// run command
// =============================================================================

func runBatch(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	inputPath := fs.String("input", "", "Input table path (.csv or .xlsx), overrides config")
	outputPath := fs.String("output", "", "Output table path (.csv or .xlsx), overrides config")
	fs.Parse(args)

	cfg := loadConfig(*configPath)
	if *inputPath != "" {
		cfg.Batch.InputPath = *inputPath
	}
	if *outputPath != "" {
		cfg.Batch.OutputPath = *outputPath
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Log)
	defer logger.Sync()

	logger.Info("Starting auditflow",
		zap.String("version", Version),
		zap.String("target", cfg.Target.URL),
		zap.String("input", cfg.Batch.InputPath),
		zap.String("output", cfg.Batch.OutputPath))

	inputs, err := table.ReadURLs(cfg.Batch.InputPath)
	if err != nil {
		logger.Fatal("Failed to read input table", zap.Error(err))
	}

	collector := metrics.NewCollector("auditflow", prometheus.NewRegistry(), logger)

	runner := batch.NewRunner(
		formSpec(cfg),
		cfg.Batch.ItemDelay.Std(),
		sessionFactory(cfg, logger),
		batch.WithAnnotator(annotate.New(annotatorConfig(cfg), logger)),
		batch.WithMetrics(collector),
		batch.WithLogger(logger),
	)

	report, err := runner.Run(context.Background(), inputs)
	if err != nil {
		logger.Fatal("Batch failed", zap.Error(err))
	}

	if err := table.WriteRows(cfg.Batch.OutputPath, report.Rows()); err != nil {
		logger.Fatal("Failed to write output table", zap.Error(err))
	}

	summary := report.Summary()
	fmt.Println(summary.String())
	for _, u := range summary.FailedInputs {
		logger.Info("failed input", zap.String("url", u))
	}
	collector.LogValues()
}

// =============================================================================
// steps command
// =============================================================================

// runSteps prints the resolved step plan so selectors and timings can be
// revalidated against the live target site.
func runSteps(args []string) {
	fs := flag.NewFlagSet("steps", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	fs.Parse(args)

	cfg := loadConfig(*configPath)
	plan := sequence.BuildPlan(formSpec(cfg))

	for i, step := range plan.Steps {
		optional := ""
		if step.Optional {
			optional = " (optional)"
		}
		fmt.Printf("%d. %-14s %-8s %q timeout=%s%s\n",
			i+1, step.Name, step.Action, step.Selector, step.Timeout, optional)
	}
}

// =============================================================================
// wiring helpers
// =============================================================================

func loadConfig(path string) *config.Config {
	loader := config.NewLoader()
	if path != "" {
		loader = loader.WithConfigPath(path)
	}
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func formSpec(cfg *config.Config) sequence.FormSpec {
	return sequence.FormSpec{
		TargetURL:    cfg.Target.URL,
		Identity:     cfg.Target.Identity,
		URLInput:     cfg.Target.Selectors.URLInput,
		SubmitButton: cfg.Target.Selectors.SubmitButton,
		EmailInput:   cfg.Target.Selectors.EmailInput,
		FinalSubmit:  cfg.Target.Selectors.FinalSubmit,
		PopupDismiss: cfg.Target.Selectors.PopupDismiss,
		NavSettle:    cfg.Target.NavSettle.Std(),
		StepTimeout:  cfg.Target.StepTimeout.Std(),
		PopupTimeout: cfg.Target.PopupTimeout.Std(),
		PopupSettle:  cfg.Target.PopupSettle.Std(),
	}
}

func sessionFactory(cfg *config.Config, logger *zap.Logger) batch.SessionFactory {
	browserCfg := browser.Config{
		Headless:       cfg.Browser.Headless,
		ViewportWidth:  cfg.Browser.ViewportWidth,
		ViewportHeight: cfg.Browser.ViewportHeight,
		UserAgent:      cfg.Browser.UserAgent,
		ProxyURL:       cfg.Browser.ProxyURL,
		NavTimeout:     cfg.Browser.NavTimeout.Std(),
	}
	return func(ctx context.Context) (browser.Driver, error) {
		return browser.NewSession(browserCfg, logger)
	}
}

func annotatorConfig(cfg *config.Config) annotate.Config {
	return annotate.Config{
		APIKey:  cfg.Annotator.APIKey,
		BaseURL: cfg.Annotator.BaseURL,
		Model:   cfg.Annotator.Model,
		Timeout: cfg.Annotator.Timeout.Std(),
	}
}

// =============================================================================
// logging
// =============================================================================

func initLogger(cfg config.LogConfig) *zap.Logger {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	if cfg.Format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	outputPaths := cfg.OutputPaths
	if len(outputPaths) == 0 {
		outputPaths = []string{"stdout"}
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      cfg.Format == "console",
		Encoding:         cfg.Format,
		EncoderConfig:    encoderConfig,
		OutputPaths:      outputPaths,
		ErrorOutputPaths: []string{"stderr"},
	}

	if cfg.Format != "console" {
		zapConfig.Encoding = "json"
	}

	logger, err := zapConfig.Build(
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	if err != nil {
		logger, _ = zap.NewProduction()
	}

	return logger
}

// =============================================================================
// version / usage
// =============================================================================

func printVersion() {
	fmt.Printf("auditflow %s (built %s, commit %s)\n", Version, BuildTime, GitCommit)
}

func printUsage() {
	fmt.Println(`auditflow - batch website audit submission

Usage:
  auditflow run [--config FILE] [--input FILE] [--output FILE]
  auditflow steps [--config FILE]
  auditflow version
  auditflow help`)
}
