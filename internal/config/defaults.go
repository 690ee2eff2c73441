package config

// Interner defaults.
const (
	DefaultInternerCaching = true
)

// Telemetry defaults.
const (
	DefaultTelemetryEnabled    = true
	DefaultTelemetryCallCounts = true
)

// Report defaults.
const (
	DefaultReportNamesFile = ""
	DefaultReportFormat    = FormatText
)

// Workload defaults.
const (
	DefaultWorkloadWorkers    = 8
	DefaultWorkloadIterations = 100
	DefaultWorkloadWindow     = 64
	DefaultWorkloadPruneEvery = 25
)

// Observability defaults.
const (
	DefaultObservabilityOTLPEndpoint    = ""
	DefaultObservabilityOTLPHeaders     = ""
	DefaultObservabilityOTLPInsecure    = false
	DefaultObservabilityLogLevel        = "info"
	DefaultObservabilityLogJSON         = false
	DefaultObservabilityDiagnosticsAddr = ""
	DefaultObservabilityEnvironment     = ""
	DefaultObservabilityExportInterval  = "0s"
)
