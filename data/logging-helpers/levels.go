package logginghelpers

import (
	"fmt"
	"log/slog"
	"strings"
)

const (
	// Level Debug -4
	LevelReportIO slog.Level = -2
	// Level Info 0
	// Level Warn 4
	// Level Error 8
	LevelBrokenProcess slog.Level = 12
)

// ParseLevel accepts the slog names plus "io" and "broken" for the custom levels
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "io", "report_io":
		return LevelReportIO, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	case "broken", "broken_process":
		return LevelBrokenProcess, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// ReplaceLevelNames gives the custom levels readable names in handler output
func ReplaceLevelNames(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey {
		return a
	}
	level, ok := a.Value.Any().(slog.Level)
	if !ok {
		return a
	}
	switch level {
	case LevelReportIO:
		a.Value = slog.StringValue("IO")
	case LevelBrokenProcess:
		a.Value = slog.StringValue("BROKEN")
	}
	return a
}
