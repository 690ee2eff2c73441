package commands

import (
	"fmt"

	"github.com/Sumatoshi-tech/incrkit/internal/config"
	"github.com/Sumatoshi-tech/incrkit/internal/observability"
	"github.com/Sumatoshi-tech/incrkit/pkg/version"
)

// observabilityConfig maps the loaded application config onto the
// observability package settings for the given launch mode.
func observabilityConfig(cfg *config.Config, mode observability.AppMode) (observability.Config, error) {
	obs := observability.DefaultConfig()
	obs.ServiceVersion = version.Version
	obs.Mode = mode
	obs.Environment = cfg.Observability.Environment
	obs.OTLPEndpoint = cfg.Observability.OTLPEndpoint
	obs.OTLPHeaders = observability.ParseOTLPHeaders(cfg.Observability.OTLPHeaders)
	obs.OTLPInsecure = cfg.Observability.OTLPInsecure
	obs.LogJSON = cfg.Observability.LogJSON
	obs.ExportInterval = cfg.Observability.ExportInterval

	level, err := observability.ParseLogLevel(cfg.Observability.LogLevel)
	if err != nil {
		return observability.Config{}, fmt.Errorf("observability config: %w", err)
	}

	obs.LogLevel = level

	return obs, nil
}
