// Package logger is the logging port the pipeline packages are handed,
// so tests can swap in NullLogger and the CLI can pick a verbosity.
package logger

type LogLevel int

const (
	LogDebug LogLevel = iota
	LogInfo
	LogError
)

var logLevelPrefix = map[LogLevel]string{
	LogDebug: "DEBUG",
	LogInfo:  "INFO",
	LogError: "ERROR",
}

type ILogger interface {
	Printf(level LogLevel, format string, a ...interface{})
	Debugf(format string, a ...interface{})
	Infof(format string, a ...interface{})
	Errorf(format string, a ...interface{})
}

// FromVerbosity maps the usual -v flag onto a level: 0 is info, more is debug.
func FromVerbosity(v int) LogLevel {
	if v > 0 {
		return LogDebug
	}
	return LogInfo
}
