// Package config provides YAML and environment based configuration for incrkit.
package config

import (
	"errors"
	"slices"
	"time"
)

// Config is the top-level configuration struct for incrkit.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	Interner      InternerConfig      `mapstructure:"interner"`
	Telemetry     TelemetryConfig     `mapstructure:"telemetry"`
	Report        ReportConfig        `mapstructure:"report"`
	Workload      WorkloadConfig      `mapstructure:"workload"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// InternerConfig holds sequence interning knobs.
type InternerConfig struct {
	// Caching enables deduplication. When false every lookup allocates.
	Caching bool `mapstructure:"caching"`
}

// TelemetryConfig holds ring buffer and counter settings.
type TelemetryConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	CallCounts bool `mapstructure:"call_counts"`
}

// ReportConfig holds diagnostics rendering settings.
type ReportConfig struct {
	NamesFile string `mapstructure:"names_file"`
	Format    string `mapstructure:"format"`
}

// WorkloadConfig holds the concurrent driver settings for `incrkit run`.
type WorkloadConfig struct {
	Workers    int `mapstructure:"workers"`
	Iterations int `mapstructure:"iterations"`
	Window     int `mapstructure:"window"`
	// PruneEvery triggers an explicit prune pass after this many iterations.
	// Zero disables periodic pruning.
	PruneEvery int `mapstructure:"prune_every"`
}

// ObservabilityConfig holds logging, OTLP export and diagnostics endpoint settings.
type ObservabilityConfig struct {
	OTLPEndpoint    string `mapstructure:"otlp_endpoint"`
	OTLPHeaders     string `mapstructure:"otlp_headers"`
	OTLPInsecure    bool   `mapstructure:"otlp_insecure"`
	LogLevel        string `mapstructure:"log_level"`
	LogJSON         bool   `mapstructure:"log_json"`
	DiagnosticsAddr string `mapstructure:"diagnostics_addr"`
	Environment     string `mapstructure:"environment"`
	// ExportInterval is the OTLP metric push period, e.g. "15s".
	ExportInterval time.Duration `mapstructure:"export_interval"`
}

// Report formats.
const (
	FormatText  = "text"
	FormatTable = "table"
	FormatPlot  = "plot"
)

// Formats lists every accepted report format.
var Formats = []string{FormatText, FormatTable, FormatPlot}

var logLevels = []string{"debug", "info", "warn", "error"}

// Sentinel errors for configuration validation.
var (
	// ErrInvalidWorkers indicates the workers value is negative.
	ErrInvalidWorkers = errors.New("workload.workers must be non-negative")
	// ErrInvalidIterations indicates the iterations value is negative.
	ErrInvalidIterations = errors.New("workload.iterations must be non-negative")
	// ErrInvalidWindow indicates the window value is negative.
	ErrInvalidWindow = errors.New("workload.window must be non-negative")
	// ErrInvalidPruneEvery indicates the prune interval is negative.
	ErrInvalidPruneEvery = errors.New("workload.prune_every must be non-negative")
	// ErrInvalidFormat indicates an unknown report format.
	ErrInvalidFormat = errors.New("report.format must be one of text, table, plot")
	// ErrInvalidLogLevel indicates an unknown log level.
	ErrInvalidLogLevel = errors.New("observability.log_level must be one of debug, info, warn, error")
)

// Validate checks Config invariants and returns the first error found.
func (c *Config) Validate() error {
	workloadErr := c.validateWorkload()
	if workloadErr != nil {
		return workloadErr
	}

	if !slices.Contains(Formats, c.Report.Format) {
		return ErrInvalidFormat
	}

	if !slices.Contains(logLevels, c.Observability.LogLevel) {
		return ErrInvalidLogLevel
	}

	return nil
}

func (c *Config) validateWorkload() error {
	if c.Workload.Workers < 0 {
		return ErrInvalidWorkers
	}

	if c.Workload.Iterations < 0 {
		return ErrInvalidIterations
	}

	if c.Workload.Window < 0 {
		return ErrInvalidWindow
	}

	if c.Workload.PruneEvery < 0 {
		return ErrInvalidPruneEvery
	}

	return nil
}
