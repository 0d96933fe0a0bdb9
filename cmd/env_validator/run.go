package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/env-validator/internal/config"
	"github.com/jonathan/env-validator/internal/db"
	"github.com/jonathan/env-validator/internal/mapi"
	"github.com/jonathan/env-validator/internal/observability"
	"github.com/jonathan/env-validator/internal/pipeline"
)

// dbConnectTimeout bounds the optional run history connection.
const dbConnectTimeout = 5 * time.Second

type runFlags struct {
	configPath         string
	environmentID      string
	apiKey             string
	baseURL            string
	exportFilename     string
	pollIntervalMs     int
	maxPollAttempts    int
	pollTimeoutSeconds int
	httpTimeoutSeconds int
	requestsPerSecond  float64
	databaseURL        string
	verifyExport       bool
	verbose            bool
	logJSON            bool
}

func newRunCommand() *cobra.Command {
	f := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run an environment validation and export the issues",
		Long: `Starts an environment validation, polls it until it finishes, fetches every
validation issue and writes them to <export-filename>.csv and <export-filename>.json.

Configuration is read from a JSON file (--config), then from the environment
(KONTENT_ENVIRONMENT_ID, KONTENT_MANAGEMENT_API_KEY, KONTENT_MANAGEMENT_BASE_URL,
EXPORT_FILENAME, DATABASE_URL, also loaded from .env). Flags override both.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runValidationCmd(cmd, f)
		},
	}

	bindRunFlags(cmd, f)

	return cmd
}

func bindRunFlags(cmd *cobra.Command, f *runFlags) {
	// Config file flag (processed first)
	cmd.Flags().StringVar(&f.configPath, "config", "", "Path to config.json file (values can be overridden by other flags)")

	cmd.Flags().StringVarP(&f.environmentID, "environment-id", "e", "", "Environment ID (defaults to KONTENT_ENVIRONMENT_ID)")
	cmd.Flags().StringVar(&f.apiKey, "api-key", "", "Management API key (defaults to KONTENT_MANAGEMENT_API_KEY)")
	cmd.Flags().StringVar(&f.baseURL, "base-url", "", "Management API base URL")
	cmd.Flags().StringVarP(&f.exportFilename, "export-filename", "o", "", "Base name of the export files (default \"validation-result\")")
	cmd.Flags().IntVar(&f.pollIntervalMs, "poll-interval-ms", 0, "Delay between status checks in milliseconds (default 3000)")
	cmd.Flags().IntVar(&f.maxPollAttempts, "max-poll-attempts", 0, "Give up after this many status checks (0 = no limit)")
	cmd.Flags().IntVar(&f.pollTimeoutSeconds, "poll-timeout", 0, "Give up polling after this many seconds (0 = no limit)")
	cmd.Flags().IntVar(&f.httpTimeoutSeconds, "http-timeout", 0, "Per-request timeout in seconds (default 30)")
	cmd.Flags().Float64Var(&f.requestsPerSecond, "requests-per-second", 0, "Client-side request rate, 0 disables pacing (default 10)")
	cmd.Flags().StringVar(&f.databaseURL, "db-url", "", "PostgreSQL URL for run history (optional, defaults to DATABASE_URL)")
	cmd.Flags().BoolVar(&f.verifyExport, "verify-export", false, "Check the JSON export against the export schema")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "Print debug logs and an issue summary")
	cmd.Flags().BoolVar(&f.logJSON, "log-json", false, "Write diagnostic logs as JSON")
}

// resolveConfig merges config file, environment and explicitly set flags, in that order.
func resolveConfig(cmd *cobra.Command, f *runFlags) (config.Config, error) {
	var cfg config.Config
	if f.configPath != "" {
		loadedCfg, err := config.LoadConfig(f.configPath)
		if err != nil {
			return cfg, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = *loadedCfg
	}

	cfg.ApplyEnv(nil)

	// Only override if the flag was explicitly set
	flags := cmd.Flags()
	if flags.Changed("environment-id") {
		cfg.EnvironmentID = f.environmentID
	}
	if flags.Changed("api-key") {
		cfg.APIKey = f.apiKey
	}
	if flags.Changed("base-url") {
		cfg.BaseURL = f.baseURL
	}
	if flags.Changed("export-filename") {
		cfg.ExportFilename = f.exportFilename
	}
	if flags.Changed("poll-interval-ms") {
		cfg.PollIntervalMs = f.pollIntervalMs
	}
	if flags.Changed("max-poll-attempts") {
		cfg.MaxPollAttempts = f.maxPollAttempts
	}
	if flags.Changed("poll-timeout") {
		cfg.PollTimeoutSeconds = f.pollTimeoutSeconds
	}
	if flags.Changed("http-timeout") {
		cfg.HTTPTimeoutSeconds = f.httpTimeoutSeconds
	}
	if flags.Changed("requests-per-second") {
		cfg.RequestsPerSecond = f.requestsPerSecond
	}
	if flags.Changed("db-url") {
		cfg.DatabaseURL = f.databaseURL
	}
	if flags.Changed("verify-export") {
		cfg.VerifyExport = f.verifyExport
	}
	if flags.Changed("verbose") {
		cfg.Verbose = f.verbose
	}
	if flags.Changed("log-json") {
		cfg.LogJSON = f.logJSON
	}

	cfg = cfg.MergeWithDefaults(config.Defaults())
	// An explicit 0 turns pacing off instead of falling back to the default
	if flags.Changed("requests-per-second") {
		cfg.RequestsPerSecond = f.requestsPerSecond
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func runValidationCmd(cmd *cobra.Command, f *runFlags) error {
	ctx := cmd.Context()

	cfg, err := resolveConfig(cmd, f)
	if err != nil {
		return err
	}

	logger, err := observability.NewLogger(cfg.Verbose, cfg.LogJSON)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Debug("resolved configuration", zap.Any("config", cfg.Redacted()))

	client := mapi.NewClient(cfg.APIKey, cfg.EnvironmentID).
		WithBaseURL(cfg.BaseURL).
		WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout()}).
		WithRateLimit(cfg.RequestsPerSecond).
		WithLogger(logger)

	opts := pipeline.RunOptions{
		Client:          client,
		ExportFilename:  cfg.ExportFilename,
		PollInterval:    cfg.PollInterval(),
		MaxPollAttempts: cfg.MaxPollAttempts,
		PollTimeout:     cfg.PollTimeout(),
		VerifyExport:    cfg.VerifyExport,
		Verbose:         cfg.Verbose,
		Out:             cmd.OutOrStdout(),
		Logger:          logger,
	}

	// Run history is optional; a database problem never blocks the validation
	if cfg.DatabaseURL != "" {
		database, err := connectStore(ctx, cfg.DatabaseURL)
		if err != nil {
			observability.NewPrinter(cmd.OutOrStdout()).Warning("run history disabled: %v", err)
		} else {
			defer database.Close()
			opts.Store = database
		}
	}

	summary, err := pipeline.RunValidation(ctx, opts)
	if err != nil {
		observability.NewPrinter(cmd.OutOrStdout()).Failed(err)
		return &reportedError{err: err}
	}

	logger.Info("validation run complete",
		zap.String("run_id", summary.RunID.String()),
		zap.String("task_id", summary.TaskID),
		zap.Int("items", summary.ItemCount),
		zap.Int("records", summary.RecordCount))
	return nil
}

func connectStore(ctx context.Context, databaseURL string) (*db.DB, error) {
	ctx, cancel := context.WithTimeout(ctx, dbConnectTimeout)
	defer cancel()

	database, err := db.Connect(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := database.EnsureSchema(ctx); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}

// reportedError marks an error that has already been shown to the user.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }

func (e *reportedError) Unwrap() error { return e.err }
