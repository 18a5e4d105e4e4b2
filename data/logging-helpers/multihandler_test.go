package logginghelpers

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

type failingHandler struct {
	slog.Handler
	err error
}

func (f failingHandler) Handle(context.Context, slog.Record) error { return f.err }

func TestMultiHandlerFansOut(t *testing.T) {
	var console, file bytes.Buffer
	logger := NewLogger(slog.LevelInfo, &console, &file)

	logger.Info("calendar synced", "subject", "student-1")
	logger.Debug("hidden")

	if !strings.Contains(console.String(), "calendar synced") {
		t.Errorf("console missing record: %q", console.String())
	}
	if !strings.Contains(file.String(), `"subject":"student-1"`) {
		t.Errorf("json file missing record: %q", file.String())
	}
	if strings.Contains(console.String(), "hidden") || strings.Contains(file.String(), "hidden") {
		t.Error("debug record should have been filtered")
	}
}

func TestMultiHandlerRespectsEachLevel(t *testing.T) {
	var quiet, loud bytes.Buffer
	h := NewMultiHandler(
		slog.NewTextHandler(&quiet, &slog.HandlerOptions{Level: slog.LevelError}),
		slog.NewTextHandler(&loud, &slog.HandlerOptions{Level: LevelReportIO}),
	)
	logger := slog.New(h)
	logger.Log(context.Background(), LevelReportIO, "GET /calendars")

	if quiet.Len() != 0 {
		t.Errorf("error level handler should not see io records: %q", quiet.String())
	}
	if !strings.Contains(loud.String(), "GET /calendars") {
		t.Errorf("io level handler missing record: %q", loud.String())
	}
}

func TestMultiHandlerJoinsErrors(t *testing.T) {
	var buf bytes.Buffer
	base := slog.NewTextHandler(&buf, nil)
	errA := errors.New("a")
	errB := errors.New("b")
	h := NewMultiHandler(failingHandler{base, errA}, base, failingHandler{base, errB})

	err := h.Handle(context.Background(), slog.NewRecord(time.Time{}, slog.LevelInfo, "msg", 0))
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Errorf("expected both errors joined, got %v", err)
	}
	if !strings.Contains(buf.String(), "msg") {
		t.Error("healthy handler should still receive the record")
	}
}

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		in   string
		want slog.Level
		err  bool
	}{
		{"", slog.LevelInfo, false},
		{"DEBUG", slog.LevelDebug, false},
		{"io", LevelReportIO, false},
		{"broken", LevelBrokenProcess, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tc := range testCases {
		got, err := ParseLevel(tc.in)
		if (err != nil) != tc.err {
			t.Errorf("ParseLevel(%q) err = %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestReplaceLevelNames(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LevelReportIO, &buf, nil)
	logger.Log(context.Background(), LevelReportIO, "request")
	logger.Log(context.Background(), LevelBrokenProcess, "halted")
	out := buf.String()
	if !strings.Contains(out, "level=IO") || !strings.Contains(out, "level=BROKEN") {
		t.Errorf("custom level names missing: %q", out)
	}
}
