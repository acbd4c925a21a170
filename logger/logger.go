package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps a zerolog logger carrying component fields
type Logger struct {
	logger zerolog.Logger
}

var (
	// Default is the process-wide logger, set by Init
	Default *Logger

	// baseLevel is the level chosen at Init, restored by SetDebug(false)
	baseLevel = zerolog.InfoLevel
)

// Init initializes the logger writing to stdout
func Init() {
	InitWithWriter(os.Stdout)
}

// InitWithWriter initializes the logger with a console writer on out
func InitWithWriter(out io.Writer) {
	level := getLogLevel()

	zerolog.TimeFieldFormat = time.RFC3339
	baseLevel = level
	zerolog.SetGlobalLevel(level)

	output := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
	}

	Default = &Logger{logger: zerolog.New(output).With().Timestamp().Logger()}

	Default.Debug().
		Str("level", level.String()).
		Msg("Logger initialized")
}

// getLogLevel reads LOG_LEVEL, falling back to DEBUG_MODE outside production
func getLogLevel() zerolog.Level {
	levelStr := os.Getenv("LOG_LEVEL")
	if levelStr == "" {
		// debug output is opt-in
		if os.Getenv("DEBUG_MODE") == "true" && os.Getenv("SALES_ENVIRONMENT") != "production" {
			return zerolog.DebugLevel
		}
		return zerolog.InfoLevel
	}

	level, err := zerolog.ParseLevel(levelStr)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

// SetDebug switches the global level to debug, or back to the Init level
// (at least info) when disabled
func SetDebug(enabled bool) {
	if enabled {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		return
	}
	if baseLevel < zerolog.InfoLevel {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		return
	}
	zerolog.SetGlobalLevel(baseLevel)
}

// WithField creates a new logger with a single field
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{logger: l.logger.With().Interface(key, value).Logger()}
}

// Debug returns a debug event
func (l *Logger) Debug() *zerolog.Event {
	return l.logger.Debug()
}

// Info returns an info event
func (l *Logger) Info() *zerolog.Event {
	return l.logger.Info()
}

// Warn returns a warn event
func (l *Logger) Warn() *zerolog.Event {
	return l.logger.Warn()
}

// Error returns an error event
func (l *Logger) Error() *zerolog.Event {
	return l.logger.Error()
}

// Info logs a formatted info message on the default logger
func Info(format string, v ...interface{}) {
	if Default == nil {
		Init()
	}
	Default.Info().Msgf(format, v...)
}

// LogError logs err for a component with a formatted message
func LogError(component string, err error, format string, v ...interface{}) {
	if Default == nil {
		Init()
	}
	Default.Error().
		Str("component", component).
		Err(err).
		Msg(fmt.Sprintf(format, v...))
}

func forComponent(name string) *Logger {
	if Default == nil {
		Init()
	}
	return Default.WithField("component", name)
}

// ForExtractor creates a logger for the item extractor
func ForExtractor() *Logger { return forComponent("extractor") }

// ForFetcher creates a logger for the storefront client
func ForFetcher() *Logger { return forComponent("fetcher") }

// ForWorker creates a logger for the batch worker
func ForWorker() *Logger { return forComponent("worker") }

// ForReporter creates a logger for the reporter
func ForReporter() *Logger { return forComponent("reporter") }

// ForPublisher creates a logger for the sale publisher
func ForPublisher() *Logger { return forComponent("publisher") }

// ForCache creates a logger for the lookup cache
func ForCache() *Logger { return forComponent("cache") }
