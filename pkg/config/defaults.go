package config

// Server defaults.
const (
	DefaultHost         = "0.0.0.0"
	DefaultPort         = 8080
	DefaultReadTimeout  = "30s"
	DefaultWriteTimeout = "120s"
	DefaultIdleTimeout  = "60s"
)

// Upstream defaults.
const (
	DefaultLastFMBaseURL  = "https://ws.audioscrobbler.com/2.0/"
	DefaultLastFMTimeout  = "30s"
	DefaultBackendTimeout = "120s"
	DefaultFetchWorkers   = 8
)

// Chart defaults.
const (
	DefaultChartKind      = "artist"
	DefaultChartTimeframe = "last-6-months"
	DefaultChartTop       = 20
)

// Cache defaults.
const (
	DefaultCacheEnabled    = true
	DefaultCacheMaxEntries = 4096
)

// Logging defaults.
const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// Telemetry defaults.
const (
	DefaultSampleRatio = 1.0
	DefaultEnvironment = "development"
)
