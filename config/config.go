// Package config loads the Pacer configuration from TOML files and
// PACER_-prefixed environment variables.
package config

// Config represents the core Pacer configuration
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Server    ServerConfig    `mapstructure:"server"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Executors ExecutorsConfig `mapstructure:"executors"`
	Log       LogConfig       `mapstructure:"log"`
}

// DatabaseConfig configures the SQLite database
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// ServerConfig configures the Pacer HTTP server
type ServerConfig struct {
	Port int `mapstructure:"port"` // 0 = DefaultServerPort
}

// DefaultServerPort is the port the HTTP trigger surface listens on
const DefaultServerPort = 8640

// SchedulerConfig configures the orchestrator.
//
// BatchLimit bounds how many due schedules one pass pulls per family.
// Workers bounds concurrent executions within a family (a worker pool,
// not unbounded fan-out). JobTimeoutSeconds bounds a single executor
// invocation; on expiry the job is marked failed and the pass continues.
type SchedulerConfig struct {
	BatchLimit        int     `mapstructure:"batch_limit"`         // Due schedules per family per pass (default: 50)
	Workers           int     `mapstructure:"workers"`             // Concurrent executions per family (default: 4)
	JobTimeoutSeconds int     `mapstructure:"job_timeout_seconds"` // Per-job executor timeout (default: 300)
	RatePerSecond     float64 `mapstructure:"rate_per_second"`     // Executor dispatch rate limit, 0 = unlimited
}

// ExecutorsConfig configures the downstream execution engines.
// Each family's engine is invoked over HTTP; the orchestrator core only
// depends on the executor contracts, not on these endpoints.
type ExecutorsConfig struct {
	WorkflowURL    string `mapstructure:"workflow_url"`
	NotebookURL    string `mapstructure:"notebook_url"`
	SyncURL        string `mapstructure:"sync_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"` // HTTP client timeout (default: 300)
}

// LogConfig configures logging output
type LogConfig struct {
	JSON bool `mapstructure:"json"`
}
