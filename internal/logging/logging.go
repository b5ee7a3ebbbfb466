// Package logging configures Logrus for the heredity binaries: UTC
// timestamps with subsecond precision, text or JSON output, and a level taken
// from configuration.
package logging

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

const timestampFormat = "2006-01-02 15:04:05.000000 MST"

// Options control logger setup. The zero value logs text at info level to
// the standard logger's current output.
type Options struct {
	// Level is a logrus level name such as "debug" or "warn". Empty means info.
	Level string

	// Format is "text" or "json". Empty means text.
	Format string

	// Output overrides where log lines are written
	Output io.Writer

	// If not nil, this logger is configured instead of logrus.StandardLogger()
	Logger *logrus.Logger
}

// Configure sets up the logger. It's safe to call more than once.
func Configure(opts Options) (*logrus.Logger, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	level := logrus.InfoLevel
	if opts.Level != "" {
		parsed, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = parsed
	}

	switch opts.Format {
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:             true,
			TimestampFormat:           timestampFormat,
			EnvironmentOverrideColors: true,
		})
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: timestampFormat})
	default:
		return nil, fmt.Errorf("invalid log format %q", opts.Format)
	}

	if opts.Output != nil {
		logger.SetOutput(opts.Output)
	}
	logger.SetLevel(level)
	logger.ReplaceHooks(make(logrus.LevelHooks))
	logger.AddHook(utcHook{})
	return logger, nil
}

// utcHook converts every entry's timestamp to UTC
type utcHook struct{}

func (utcHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (utcHook) Fire(entry *logrus.Entry) error {
	entry.Time = entry.Time.UTC()
	return nil
}
