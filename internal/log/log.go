package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// switchWriter forwards writes to the output Init selects. Every logger
// derived from Logger shares it, so component loggers created at package
// init (before Init runs) still write to the configured output.
type switchWriter struct{ w io.Writer }

func (s *switchWriter) Write(p []byte) (int, error) { return s.w.Write(p) }

var output = &switchWriter{w: io.Discard}

// Logger is the global logger instance.
var Logger = zerolog.New(output).With().Timestamp().Logger()

// Level represents a log severity threshold.
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Config holds logging configuration.
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
}

// Init sets the global level and output. Call it once at process start;
// loggers already derived from Logger pick up the new output as well.
func Init(cfg Config) {
	var level zerolog.Level
	switch cfg.Level {
	case DebugLevel:
		level = zerolog.DebugLevel
	case InfoLevel:
		level = zerolog.InfoLevel
	case WarnLevel:
		level = zerolog.WarnLevel
	case ErrorLevel:
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	if cfg.JSONOutput {
		output.w = out
	} else {
		output.w = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		}
	}
}

// WithComponent returns a child logger tagged with the given component name.
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// WithWorld returns a child logger tagged with the (event, user) pair.
func WithWorld(event, user string) zerolog.Logger {
	return Logger.With().Str("event", event).Str("user", user).Logger()
}

// WithRequestID returns a child logger tagged with an HTTP request ID.
func WithRequestID(id string) zerolog.Logger {
	return Logger.With().Str("request_id", id).Logger()
}
