package config

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is the process-wide structured logger.
var Logger = slog.Default()

// InitLogger installs the default slog logger. debug forces the debug level
// and adds source locations.
func InitLogger(level, format string, debug bool) *slog.Logger {
	return initLogger(os.Stderr, level, format, debug)
}

func initLogger(w io.Writer, level, format string, debug bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level), ReplaceAttr: replaceTimeAttr}
	if debug {
		opts.Level = slog.LevelDebug
		opts.AddSource = true
	}
	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	Logger = slog.New(handler)
	slog.SetDefault(Logger)
	return Logger
}

// ParseLevel maps a level name to slog.Level; unknown names fall back to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func replaceTimeAttr(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey && len(groups) == 0 {
		return slog.String(slog.TimeKey, a.Value.Time().Local().Format("2006-01-02 15:04:05"))
	}
	return a
}
