package logger

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Store log fields in context.
type contextLoggerKey struct{}

var stdEntry = logrus.NewEntry(logrus.StandardLogger())

// Setup configures the standard logger. Unknown levels fall back to info.
func Setup(level, format string, out io.Writer) {
	if out == nil {
		out = os.Stderr
	}
	logrus.SetOutput(out)
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
	if strings.EqualFold(format, "json") {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

// WithFields creates a new logger with merged fields if
// there is already a logger in context.
func WithFields(ctx context.Context, fields logrus.Fields) context.Context {
	return context.WithValue(ctx, contextLoggerKey{}, GetLogger(ctx).WithFields(fields))
}

// WithLogger returns a new context with the provided logger.
func WithLogger(ctx context.Context, logger *logrus.Entry) context.Context {
	return context.WithValue(ctx, contextLoggerKey{}, logger)
}

// GetLogger retrieves the current logger from the context. If no logger is
// available, the standard logger is returned.
func GetLogger(ctx context.Context) *logrus.Entry {
	if ctx == nil {
		return stdEntry
	}
	logger, ok := ctx.Value(contextLoggerKey{}).(*logrus.Entry)
	if !ok || logger == nil {
		return stdEntry
	}
	return logger
}

// Fields return fields from logger in context.
func Fields(ctx context.Context) logrus.Fields {
	return GetLogger(ctx).Data
}
