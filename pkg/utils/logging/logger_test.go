package logging_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/m-mizutani/chatmem/pkg/utils/logging"
	"github.com/m-mizutani/gt"
)

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		input string
		level slog.Level
		ok    bool
	}{
		{"debug", slog.LevelDebug, true},
		{"INFO", slog.LevelInfo, true},
		{"", slog.LevelInfo, true},
		{"warn", slog.LevelWarn, true},
		{"warning", slog.LevelWarn, true},
		{" error ", slog.LevelError, true},
		{"verbose", slog.LevelInfo, false},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			level, ok := logging.ParseLevel(tc.input)
			gt.Equal(t, level, tc.level)
			gt.Equal(t, ok, tc.ok)
		})
	}
}

func TestNewFiltersByLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := logging.New("warn", buf)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	output := buf.String()
	gt.S(t, output).NotContains("debug message")
	gt.S(t, output).NotContains("info message")
	gt.S(t, output).Contains("warn message")
	gt.S(t, output).Contains("error message")
}

func TestNewWarnsOnUnknownLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := logging.New("chatty", buf)

	logger.Info("still logging")
	gt.S(t, buf.String()).Contains("unknown log level")
	gt.S(t, buf.String()).Contains("still logging")
}

func TestWithAndFrom(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := logging.New("debug", buf).With("component", "test")
	ctx := logging.With(context.Background(), logger)

	retrieved := logging.From(ctx)
	gt.Equal(t, retrieved, logger)

	retrieved.Debug("context message")
	gt.S(t, buf.String()).Contains("context message")
	gt.S(t, buf.String()).Contains("component")
}

func TestFromFallsBackToDefault(t *testing.T) {
	original := logging.Default()
	defer logging.SetDefault(original)

	buf := &bytes.Buffer{}
	custom := logging.New("info", buf)
	logging.SetDefault(custom)

	gt.Equal(t, logging.From(context.Background()), custom)
	logging.From(context.Background()).Info("default message")
	gt.S(t, buf.String()).Contains("default message")
}
