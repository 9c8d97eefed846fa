package logger_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftwire/newsletter-api/internal/config"
	"github.com/draftwire/newsletter-api/internal/platform/logger"
)

func TestSetup(t *testing.T) {
	tests := []struct {
		name     string
		logLevel string
	}{
		{name: "debug level", logLevel: "debug"},
		{name: "info level", logLevel: "info"},
		{name: "warn level", logLevel: "warn"},
		{name: "error level", logLevel: "error"},
		{name: "mixed case", logLevel: "INFO"},
		{name: "invalid level falls back to info", logLevel: "verbose"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := logger.Setup(config.ServerConfig{
				Port:     8080,
				LogLevel: tt.logLevel,
			})

			require.NoError(t, err)
			require.NotNil(t, log)
			assert.Same(t, log, slog.Default(), "Setup should install the logger as default")
		})
	}
}

func TestFromContext(t *testing.T) {
	t.Run("returns stored logger", func(t *testing.T) {
		stored := slog.New(slog.NewTextHandler(io.Discard, nil))
		ctx := logger.WithLogger(context.Background(), stored)

		got := logger.FromContext(ctx)

		assert.Same(t, stored, got)
	})

	t.Run("falls back to default when unset", func(t *testing.T) {
		got := logger.FromContext(context.Background())

		require.NotNil(t, got)
		assert.Same(t, slog.Default(), got)
	})
}
