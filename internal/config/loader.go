package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config file lookup and environment binding.
const (
	configName = ".incrkit"
	configType = "yaml"
	envPrefix  = "INCRKIT"
)

// defaults lists every key with its default. Keys absent here are not bound
// to INCRKIT_ environment variables by viper's Unmarshal.
var defaults = map[string]any{
	"interner.caching": DefaultInternerCaching,

	"telemetry.enabled":     DefaultTelemetryEnabled,
	"telemetry.call_counts": DefaultTelemetryCallCounts,

	"report.names_file": DefaultReportNamesFile,
	"report.format":     DefaultReportFormat,

	"workload.workers":     DefaultWorkloadWorkers,
	"workload.iterations":  DefaultWorkloadIterations,
	"workload.window":      DefaultWorkloadWindow,
	"workload.prune_every": DefaultWorkloadPruneEvery,

	"observability.otlp_endpoint":    DefaultObservabilityOTLPEndpoint,
	"observability.otlp_headers":     DefaultObservabilityOTLPHeaders,
	"observability.otlp_insecure":    DefaultObservabilityOTLPInsecure,
	"observability.log_level":        DefaultObservabilityLogLevel,
	"observability.log_json":         DefaultObservabilityLogJSON,
	"observability.diagnostics_addr": DefaultObservabilityDiagnosticsAddr,
	"observability.environment":      DefaultObservabilityEnvironment,
	"observability.export_interval":  DefaultObservabilityExportInterval,
}

// LoadConfig merges defaults, the config file and INCRKIT_ environment
// variables, then validates the result. An explicit configPath must exist;
// otherwise .incrkit.yaml is looked up in CWD and $HOME and may be absent.
func LoadConfig(configPath string) (*Config, error) {
	v := newViper(configPath)

	err := v.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config

	err = v.Unmarshal(&cfg)
	if err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.normalize()

	err = cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func newViper(configPath string) *viper.Viper {
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigType(configType)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)

		return v
	}

	v.SetConfigName(configName)
	v.AddConfigPath(".")

	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
	}

	return v
}

// normalize lowercases the enumerated string settings.
func (c *Config) normalize() {
	c.Report.Format = strings.ToLower(c.Report.Format)
	c.Observability.LogLevel = strings.ToLower(c.Observability.LogLevel)
}
