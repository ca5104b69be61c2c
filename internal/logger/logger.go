package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

var Logger *slog.Logger

func init() {
	Logger = slog.New(slog.NewTextHandler(openLogFile(), &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// openLogFile returns the session log file. The terminal belongs to the
// form, so stderr is only used when the logs directory is not writable.
func openLogFile() io.Writer {
	if err := os.MkdirAll("logs", 0755); err != nil {
		return os.Stderr
	}

	logFile, err := os.OpenFile(filepath.Join("logs", "lademeter.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return os.Stderr
	}
	return logFile
}

func Info(msg string, args ...any) {
	Logger.Info(msg, args...)
}

func Error(msg string, args ...any) {
	Logger.Error(msg, args...)
}

func Debug(msg string, args ...any) {
	Logger.Debug(msg, args...)
}

func Warn(msg string, args ...any) {
	Logger.Warn(msg, args...)
}
