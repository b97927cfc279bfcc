// Package logging sets up structured logging for the prescription builder:
// a console handler, a rotating JSON file and a request logging middleware.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/giygas/prescription-builder/config"
)

// LoggingService owns the process logger and the file it writes to.
type LoggingService struct {
	Logger *slog.Logger
	file   io.Closer
}

var DefaultLoggingService *LoggingService

// Options selects where and how verbosely to log.
type Options struct {
	Dir            string
	Env            config.Environment
	Level          string
	RetentionWeeks int
	MaxFileSize    int64
	Verbose        bool
}

// InitLogger installs the process-wide logger. An empty Dir logs to the console only.
func InitLogger(opts Options) {
	consoleLevel := GetConsoleLogLevel(opts.Env, opts.Level, opts.Verbose)
	console := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: consoleLevel})

	svc := &LoggingService{}
	handlers := []slog.Handler{console}

	if opts.Dir != "" {
		rl, err := OpenRotatingLogger(opts.Dir, opts.RetentionWeeks, opts.MaxFileSize)
		if err != nil {
			slog.New(console).Error("File logging disabled", "dir", opts.Dir, "error", err)
		} else {
			handlers = append(handlers, slog.NewJSONHandler(rl, &slog.HandlerOptions{Level: GetFileLogLevel()}))
			svc.file = rl
		}
	}

	svc.Logger = slog.New(&fanoutHandler{handlers: handlers})
	DefaultLoggingService = svc
	slog.SetDefault(svc.Logger)
}

// Close flushes and closes the log file, if any.
func Close() error {
	if DefaultLoggingService == nil || DefaultLoggingService.file == nil {
		return nil
	}
	return DefaultLoggingService.file.Close()
}

// Logger returns the process logger, falling back to slog's default.
func Logger() *slog.Logger {
	if DefaultLoggingService == nil || DefaultLoggingService.Logger == nil {
		return slog.Default()
	}
	return DefaultLoggingService.Logger
}

// parseLogLevel maps a LOG_LEVEL value to a slog level; unknown values mean info.
func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// GetConsoleLogLevel picks the console level. Tests stay quiet unless verbose.
func GetConsoleLogLevel(env config.Environment, level string, verbose bool) slog.Level {
	if env == config.EnvTest {
		if verbose {
			return slog.LevelInfo
		}
		return slog.LevelError
	}
	if level != "" {
		return parseLogLevel(level)
	}
	switch env {
	case config.EnvProduction, config.EnvStaging:
		return slog.LevelWarn
	}
	return slog.LevelInfo
}

// GetFileLogLevel is always debug: the file is the full record.
func GetFileLogLevel() slog.Level {
	return slog.LevelDebug
}

func Info(msg string, args ...any)  { Logger().Info(msg, args...) }
func Warn(msg string, args ...any)  { Logger().Warn(msg, args...) }
func Error(msg string, args ...any) { Logger().Error(msg, args...) }
func Debug(msg string, args ...any) { Logger().Debug(msg, args...) }
