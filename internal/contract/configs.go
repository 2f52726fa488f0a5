package contract

import (
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/huangsam/injuryscope/schema"
)

// Default values for configuration.
const (
	DefaultWindowDays      = 30
	DefaultMinGapDays      = 0
	DefaultMaxGapDays      = 7
	DefaultTolerancePct    = 20.0
	DefaultFetchDelay      = 3 * time.Second
	DefaultFetchTimeout    = 10 * time.Second
	DefaultCheckpointEvery = 10
	DefaultPrecision       = 1
	DefaultBaseURL         = "https://www.transfermarkt.us"
	DefaultEnrichedFile    = "mls_injuries_enriched.csv"
	DefaultInjuriesFile    = "mls_player_injuries.csv"
	DefaultCheckpointFile  = "injuryscope_checkpoint.json"
)

// DateTimeFormat is the default date time representation.
var DateTimeFormat = time.RFC3339

// seasonPattern matches a four digit season start year.
var seasonPattern = regexp.MustCompile(`^\d{4}$`)

// Config holds the runtime configuration for a batch.
// This struct is the "final, validated" config.
type Config struct {
	InjuriesPath   string
	VenuesPath     string
	BenchmarksPath string
	TeamIDsPath    string
	EnrichedPath   string
	UpdatePath     string
	Seasons        []string

	WindowDays     int
	MinGapDays     int
	MaxGapDays     int
	SeasonFallback bool
	TolerancePct   float64

	BaseURL      string
	FetchDelay   time.Duration
	FetchTimeout time.Duration

	Resume          bool
	CheckpointEvery int
	CheckpointFile  string

	Output      schema.OutputMode
	OutputFile  string
	ParquetFile string
	MetricsFile string
	Precision   int
	Width       int // Terminal width override (0 = auto-detect)
	UseColors   bool

	LogLevel  string
	LogFormat string

	CacheBackend   schema.DatabaseBackend
	CacheDBConnect string // Please use env var as this is plaintext

	ProgressBackend   schema.DatabaseBackend
	ProgressDBConnect string // Please use env var as this is plaintext

	RunBackend   schema.DatabaseBackend
	RunDBConnect string // Please use env var as this is plaintext
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// --- Fields from rootCmd.PersistentFlags() ---
	Output            string `mapstructure:"output"`
	OutputFile        string `mapstructure:"output-file"`
	Precision         int    `mapstructure:"precision"`
	Width             int    `mapstructure:"width"`
	Color             string `mapstructure:"color"`
	LogLevel          string `mapstructure:"log-level"`
	LogFormat         string `mapstructure:"log-format"`
	MetricsFile       string `mapstructure:"metrics-file"`
	CacheBackend      string `mapstructure:"cache-backend"`
	CacheDBConnect    string `mapstructure:"cache-db-connect"`
	ProgressBackend   string `mapstructure:"progress-backend"`
	ProgressDBConnect string `mapstructure:"progress-db-connect"`
	RunBackend        string `mapstructure:"run-backend"`
	RunDBConnect      string `mapstructure:"run-db-connect"`

	// --- Reference files ---
	Injuries   string `mapstructure:"injuries"`
	Venues     string `mapstructure:"venues"`
	Benchmarks string `mapstructure:"benchmarks"`
	TeamIDs    string `mapstructure:"team-ids"`
	Enriched   string `mapstructure:"enriched-file"`
	Update     string `mapstructure:"update"`

	// --- Fields from enrichCmd.Flags() ---
	WindowDays     int    `mapstructure:"window-days"`
	MinGapDays     int    `mapstructure:"fixture-min-gap-days"`
	MaxGapDays     int    `mapstructure:"fixture-max-gap-days"`
	SeasonFallback bool   `mapstructure:"season-fallback"`
	ParquetFile    string `mapstructure:"parquet-file"`

	// --- Fields shared by enrichCmd and collectCmd ---
	BaseURL         string        `mapstructure:"base-url"`
	FetchDelay      time.Duration `mapstructure:"fetch-delay"`
	FetchTimeout    time.Duration `mapstructure:"fetch-timeout"`
	Resume          bool          `mapstructure:"resume"`
	CheckpointEvery int           `mapstructure:"checkpoint-every"`
	CheckpointFile  string        `mapstructure:"checkpoint-file"`

	// --- Fields from collectCmd.Flags() ---
	Seasons string `mapstructure:"seasons"`

	// --- Fields from validateCmd.Flags() ---
	TolerancePct float64 `mapstructure:"benchmark-tolerance-pct"`
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct. Every error it returns is FatalConfig.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := validatePolicies(cfg, input); err != nil {
		return err
	}
	if err := validateFetchInputs(cfg, input); err != nil {
		return err
	}
	if err := processSeasons(cfg, input); err != nil {
		return err
	}
	if err := validateBackendConfigs(cfg, input); err != nil {
		return err
	}
	return nil
}

// RequireFile checks that a reference file was configured and exists.
// A missing reference file is FatalConfig: nothing downstream can proceed.
func RequireFile(flag, path string) error {
	if strings.TrimSpace(path) == "" {
		return FatalConfigf("--%s is required", flag)
	}
	info, err := os.Stat(path)
	if err != nil {
		return FatalConfig(err, "reference file for --%s not readable", flag)
	}
	if info.IsDir() {
		return FatalConfigf("reference file for --%s is a directory: %s", flag, path)
	}
	return nil
}

// ValidateDatabaseConnectionString validates the format of connection strings
// for MySQL, PostgreSQL and Redis backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return FatalConfigf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return FatalConfigf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return FatalConfigf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return FatalConfigf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return FatalConfigf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return FatalConfigf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	case schema.RedisBackend:
		if !strings.HasPrefix(connStr, "redis://") && !strings.HasPrefix(connStr, "rediss://") {
			return FatalConfigf("Redis connection string must be a redis:// or rediss:// URL")
		}
	}
	return nil
}

// validateSimpleInputs processes and validates output and logging fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	// --- 0. Transfer simple non-validated fields from input -> cfg ---
	cfg.InjuriesPath = input.Injuries
	cfg.VenuesPath = input.Venues
	cfg.BenchmarksPath = input.Benchmarks
	cfg.TeamIDsPath = input.TeamIDs
	cfg.EnrichedPath = input.Enriched
	cfg.UpdatePath = input.Update
	cfg.OutputFile = input.OutputFile
	cfg.ParquetFile = input.ParquetFile
	cfg.MetricsFile = input.MetricsFile
	cfg.Width = input.Width

	// Parse color flag
	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return FatalConfig(err, "invalid --color value")
	}
	cfg.UseColors = colors

	// --- 1. Precision and Output Validation ---
	if input.Precision < 0 || input.Precision > 4 {
		return FatalConfigf("precision must be between 0 and 4 (received %d)", input.Precision)
	}
	cfg.Precision = input.Precision

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return FatalConfigf("invalid output format '%s'. must be text, csv, json, parquet", input.Output)
	}
	if input.Width < 0 {
		return FatalConfigf("width cannot be negative (received %d)", input.Width)
	}

	// --- 2. Logging Validation ---
	cfg.LogLevel = strings.ToLower(input.LogLevel)
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return FatalConfigf("invalid log level '%s'. must be debug, info, warn, error", input.LogLevel)
	}
	cfg.LogFormat = strings.ToLower(input.LogFormat)
	switch cfg.LogFormat {
	case "console", "json":
	default:
		return FatalConfigf("invalid log format '%s'. must be console, json", input.LogFormat)
	}

	return nil
}

// validatePolicies validates the matching and comparison policies.
func validatePolicies(cfg *Config, input *ConfigRawInput) error {
	if input.WindowDays <= 0 {
		return FatalConfigf("window-days must be greater than 0 (received %d)", input.WindowDays)
	}
	cfg.WindowDays = input.WindowDays

	if input.MinGapDays < 0 {
		return FatalConfigf("fixture-min-gap-days cannot be negative (received %d)", input.MinGapDays)
	}
	if input.MaxGapDays < input.MinGapDays {
		return FatalConfigf("fixture-max-gap-days (%d) must not be less than fixture-min-gap-days (%d)", input.MaxGapDays, input.MinGapDays)
	}
	cfg.MinGapDays = input.MinGapDays
	cfg.MaxGapDays = input.MaxGapDays
	cfg.SeasonFallback = input.SeasonFallback

	if input.TolerancePct <= 0 {
		return FatalConfigf("benchmark-tolerance-pct must be greater than 0 (received %g)", input.TolerancePct)
	}
	cfg.TolerancePct = input.TolerancePct

	return nil
}

// validateFetchInputs validates pacing, resume and checkpoint settings.
func validateFetchInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(input.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if !strings.HasPrefix(cfg.BaseURL, "http://") && !strings.HasPrefix(cfg.BaseURL, "https://") {
		return FatalConfigf("base-url must be an http(s) URL (received %q)", input.BaseURL)
	}

	if input.FetchDelay < 0 {
		return FatalConfigf("fetch-delay cannot be negative (received %s)", input.FetchDelay)
	}
	cfg.FetchDelay = input.FetchDelay

	if input.FetchTimeout <= 0 {
		return FatalConfigf("fetch-timeout must be greater than 0 (received %s)", input.FetchTimeout)
	}
	cfg.FetchTimeout = input.FetchTimeout

	if input.CheckpointEvery <= 0 {
		return FatalConfigf("checkpoint-every must be greater than 0 (received %d)", input.CheckpointEvery)
	}
	cfg.CheckpointEvery = input.CheckpointEvery
	cfg.CheckpointFile = input.CheckpointFile
	cfg.Resume = input.Resume

	return nil
}

// processSeasons parses the comma-separated season list used by collection.
func processSeasons(cfg *Config, input *ConfigRawInput) error {
	cfg.Seasons = nil
	seen := make(map[string]struct{})
	for p := range strings.SplitSeq(input.Seasons, ",") {
		season := strings.TrimSpace(p)
		if season == "" {
			continue
		}
		if !seasonPattern.MatchString(season) {
			return FatalConfigf("invalid season '%s'. must be a four digit year", season)
		}
		if _, ok := seen[season]; ok {
			continue
		}
		seen[season] = struct{}{}
		cfg.Seasons = append(cfg.Seasons, season)
	}
	return nil
}

// validateBackendConfigs validates cache, progress and run backend configurations.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	// --- Cache Backend Validation ---
	cfg.CacheBackend = schema.DatabaseBackend(strings.ToLower(input.CacheBackend))
	if _, ok := schema.ValidDatabaseBackends[cfg.CacheBackend]; !ok {
		return FatalConfigf("invalid cache backend '%s'. must be sqlite, mysql, postgresql, none", input.CacheBackend)
	}
	cfg.CacheDBConnect = input.CacheDBConnect
	if err := ValidateDatabaseConnectionString(cfg.CacheBackend, cfg.CacheDBConnect); err != nil {
		return err
	}

	// --- Progress Backend Validation ---
	cfg.ProgressBackend = schema.DatabaseBackend(strings.ToLower(input.ProgressBackend))
	if _, ok := schema.ValidProgressBackends[cfg.ProgressBackend]; !ok {
		return FatalConfigf("invalid progress backend '%s'. must be sqlite, mysql, postgresql, redis, none", input.ProgressBackend)
	}
	cfg.ProgressDBConnect = input.ProgressDBConnect
	if err := ValidateDatabaseConnectionString(cfg.ProgressBackend, cfg.ProgressDBConnect); err != nil {
		return err
	}

	// --- Run Backend Validation ---
	cfg.RunBackend = schema.DatabaseBackend(strings.ToLower(input.RunBackend))
	if cfg.RunBackend != "" {
		if _, ok := schema.ValidDatabaseBackends[cfg.RunBackend]; !ok {
			return FatalConfigf("invalid run backend '%s'. must be sqlite, mysql, postgresql, none", input.RunBackend)
		}
		cfg.RunDBConnect = input.RunDBConnect
		if err := ValidateDatabaseConnectionString(cfg.RunBackend, cfg.RunDBConnect); err != nil {
			return err
		}
	}

	// SQLite stores must not share a file; each store owns its schema.
	paths := map[string]string{}
	for name, pair := range map[string][2]string{
		"cache":    {string(cfg.CacheBackend), sqlitePath(cfg.CacheDBConnect, GetCacheDBFilePath())},
		"progress": {string(cfg.ProgressBackend), sqlitePath(cfg.ProgressDBConnect, GetProgressDBFilePath())},
		"run":      {string(cfg.RunBackend), sqlitePath(cfg.RunDBConnect, GetRunDBFilePath())},
	} {
		if schema.DatabaseBackend(pair[0]) != schema.SQLiteBackend || pair[1] == ":memory:" {
			continue
		}
		if other, ok := paths[pair[1]]; ok {
			return FatalConfigf("%s and %s stores must use different SQLite database files. Both resolve to %q", other, name, pair[1])
		}
		paths[pair[1]] = name
	}

	return nil
}

// sqlitePath returns connStr or the default path when it is empty.
func sqlitePath(connStr, fallback string) string {
	if connStr == "" {
		return fallback
	}
	return connStr
}
