package logging

// LogLevel controls logger verbosity
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Field is a structured logging key/value pair
type Field struct {
	Key   string
	Value interface{}
}

// F creates a logging field
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Logger is the logging interface used across the tool
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	WithTraceID(traceID string) Logger
	SetLevel(level LogLevel)
	Close() error
}

// NoOpLogger discards all log output
type NoOpLogger struct{}

// NewNoOpLogger creates a logger that discards everything
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

func (l *NoOpLogger) Debug(msg string, fields ...Field)  {}
func (l *NoOpLogger) Info(msg string, fields ...Field)   {}
func (l *NoOpLogger) Warn(msg string, fields ...Field)   {}
func (l *NoOpLogger) Error(msg string, fields ...Field)  {}
func (l *NoOpLogger) WithTraceID(traceID string) Logger  { return l }
func (l *NoOpLogger) SetLevel(level LogLevel)            {}
func (l *NoOpLogger) Close() error                       { return nil }

// LogConfig contains logger construction options
type LogConfig struct {
	Level           LogLevel
	EnableConsole   bool
	EnableColor     bool
	EnableTimestamp bool
	RedactSensitive bool
}

// DefaultLogConfig returns the default logging configuration
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:           INFO,
		EnableConsole:   true,
		EnableColor:     true,
		EnableTimestamp: true,
		RedactSensitive: true,
	}
}

// NewLogger creates a logger from config. A config with console output
// disabled yields a no-op logger.
func NewLogger(config LogConfig) (Logger, error) {
	if !config.EnableConsole {
		return NewNoOpLogger(), nil
	}
	return NewConsoleLogger(ConsoleLoggerConfig{
		Level:            config.Level,
		ColorEnabled:     config.EnableColor,
		TimestampEnabled: config.EnableTimestamp,
		RedactSensitive:  config.RedactSensitive,
	}), nil
}
