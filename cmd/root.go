package cmd

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/huangsam/injuryscope/internal/contract"
	"github.com/huangsam/injuryscope/internal/iocache"
	"github.com/huangsam/injuryscope/internal/logging"
	"github.com/huangsam/injuryscope/schema"
)

// All linker flags will be set by goreleaser infra at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCtx is the root context for all operations. Execute replaces it with
// one that is canceled on SIGINT or SIGTERM.
var rootCtx = context.Background()

// cfg will hold the validated, final configuration.
var cfg = &contract.Config{}

// input holds the raw, unvalidated configuration from all sources (file, env, flags).
// Viper will unmarshal into this struct.
var input = &contract.ConfigRawInput{}

// storeManager is the global persistence manager instance.
var storeManager contract.StoreManager

// rootCmd is the command-line entrypoint for all other commands.
var rootCmd = &cobra.Command{
	Use:   "injuryscope",
	Short: "Collect, enrich and validate MLS player injury data.",
	Long: `Injuryscope turns scraped MLS injury histories into an analysis-ready dataset.

Each injury is matched to the fixture it happened in, joined to the stadium of
that fixture, and annotated with the player's output before and after it. The
result is then checked against published recovery-time benchmarks.`,
	Version:            version,
	SilenceErrors:      true,
	SilenceUsage:       true,
	DisableSuggestions: true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	setConfigFile()

	// Set environment variable prefix
	viper.SetEnvPrefix("INJURYSCOPE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // Read in environment variables that match

	// Set defaults in Viper
	viper.SetDefault("output", string(schema.TextOut))
	viper.SetDefault("precision", contract.DefaultPrecision)
	viper.SetDefault("color", "yes")
	viper.SetDefault("log-level", "info")
	viper.SetDefault("log-format", "console")
	viper.SetDefault("window-days", contract.DefaultWindowDays)
	viper.SetDefault("fixture-min-gap-days", contract.DefaultMinGapDays)
	viper.SetDefault("fixture-max-gap-days", contract.DefaultMaxGapDays)
	viper.SetDefault("season-fallback", true)
	viper.SetDefault("benchmark-tolerance-pct", contract.DefaultTolerancePct)
	viper.SetDefault("base-url", contract.DefaultBaseURL)
	viper.SetDefault("fetch-delay", contract.DefaultFetchDelay)
	viper.SetDefault("fetch-timeout", contract.DefaultFetchTimeout)
	viper.SetDefault("resume", true)
	viper.SetDefault("checkpoint-every", contract.DefaultCheckpointEvery)
	viper.SetDefault("checkpoint-file", contract.DefaultCheckpointFile)
	viper.SetDefault("enriched-file", contract.DefaultEnrichedFile)
	viper.SetDefault("cache-backend", string(schema.SQLiteBackend))
	viper.SetDefault("cache-db-connect", "")
	viper.SetDefault("progress-backend", string(schema.SQLiteBackend))
	viper.SetDefault("progress-db-connect", "")
	viper.SetDefault("run-backend", "")
	viper.SetDefault("run-db-connect", "")
}

// setConfigFile points viper at --config or the default search path.
func setConfigFile() {
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
		return
	}
	viper.SetConfigName(".injuryscope") // Name of config file (without extension)
	viper.SetConfigType("yaml")         // We'll use YAML format
	viper.AddConfigPath(".")            // Look in the current directory
	viper.AddConfigPath("$HOME")        // Look in the home directory
}

// sharedSetup unmarshals config and runs validation.
func sharedSetup(ctx context.Context, _ *cobra.Command, _ []string) error {
	// 1. Read config file. This merges defaults, file, env, and flags.
	if err := loadConfigFile(); err != nil {
		return err
	}

	// 2. Unmarshal all resolved values from Viper into our raw input struct.
	if err := viper.Unmarshal(input); err != nil {
		return contract.FatalConfig(err, "unable to unmarshal config")
	}

	// 3. Run all validation and complex parsing.
	// This function populates the global 'cfg' from 'input'.
	if err := contract.ProcessAndValidate(cfg, input); err != nil {
		return err
	}

	// 4. Swap the default logger for the configured one
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return contract.FatalConfig(err, "failed to build logger")
	}
	logging.SetDefault(logger)

	// 5. Initialize persistence layer with validated config
	if err := iocache.InitStores(ctx, iocache.StoreOptions{
		CacheBackend:    cfg.CacheBackend,
		CacheConnStr:    cfg.CacheDBConnect,
		ProgressBackend: cfg.ProgressBackend,
		ProgressConnStr: cfg.ProgressDBConnect,
		RunBackend:      cfg.RunBackend,
		RunConnStr:      cfg.RunDBConnect,
	}); err != nil {
		return errors.Wrap(err, "failed to initialize persistence")
	}

	return nil
}

// sharedSetupWrapper wraps sharedSetup to provide context for Cobra's PreRunE.
func sharedSetupWrapper(cmd *cobra.Command, args []string) error {
	return sharedSetup(rootCtx, cmd, args)
}

// loadConfigFile handles config file loading logic common to all setup functions.
func loadConfigFile() error {
	setConfigFile()

	// Load config file if present
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return contract.FatalConfig(err, "error reading config file")
		}
	}

	return nil
}

// storeSetup loads the backend and connection string of one store kind
// without the full shared setup.
func storeSetup(backendKey, connectKey string) (schema.DatabaseBackend, string, error) {
	if err := loadConfigFile(); err != nil {
		return "", "", err
	}

	backend := schema.NoneBackend
	if s := viper.GetString(backendKey); s != "" {
		backend = schema.DatabaseBackend(strings.ToLower(s))
	}
	connStr := viper.GetString(connectKey)

	// Basic validation for database backends
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return "", "", err
	}
	return backend, connStr, nil
}

// sqliteFile returns the SQLite file behind connStr, or fallback.
func sqliteFile(connStr, fallback string) string {
	if connStr == "" {
		return fallback
	}
	return connStr
}

// exitFatal closes the stores before exiting; os.Exit skips deferred calls.
func exitFatal(msg string, err error) {
	iocache.CloseStores()
	_ = logging.Default().Sync()
	contract.LogFatal(msg, err)
}

// Execute runs the root command.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	rootCtx = ctx
	return rootCmd.ExecuteContext(ctx)
}

// SetStoreManager sets the global store manager.
func SetStoreManager(mgr contract.StoreManager) {
	storeManager = mgr
}
