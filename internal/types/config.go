package types

type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// RunMode selects what the binary does once dependencies are wired
type RunMode string

const (
	// ModeAPI serves the webhook and cron endpoints
	ModeAPI RunMode = "api"
	// ModeSync runs a single charge sync and exits
	ModeSync RunMode = "sync"
)
