package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/isdmx/graphbox/config"
)

func TestLoggerNew(t *testing.T) {
	t.Run("ValidDevelopmentMode", func(t *testing.T) {
		log, err := New("development", "debug")
		require.NoError(t, err)
		assert.NotNil(t, log)
		_ = log.Sync()
	})

	t.Run("ValidProductionMode", func(t *testing.T) {
		log, err := New("production", "info")
		require.NoError(t, err)
		assert.NotNil(t, log)
		_ = log.Sync()
	})

	t.Run("InvalidMode", func(t *testing.T) {
		_, err := New("invalid_mode", "info")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid logging mode")
	})

	t.Run("InvalidLevel", func(t *testing.T) {
		_, err := New("production", "invalid_level")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid logging level")
	})

	t.Run("ValidLevels", func(t *testing.T) {
		for _, level := range []string{"debug", "info", "warn", "error", "dpanic", "panic", "fatal"} {
			t.Run(level, func(t *testing.T) {
				log, err := New("production", level)
				require.NoError(t, err)
				assert.NotNil(t, log)
			})
		}
	})
}

func TestLoggerNewFromConfig(t *testing.T) {
	t.Run("ValidConfig", func(t *testing.T) {
		cfg := &config.Config{Logging: config.LoggingConfig{Mode: "development", Level: "debug"}}
		log, err := NewFromConfig(cfg)
		require.NoError(t, err)
		assert.NotNil(t, log)
	})

	t.Run("InvalidConfig", func(t *testing.T) {
		cfg := &config.Config{Logging: config.LoggingConfig{Mode: "invalid_mode", Level: "info"}}
		_, err := NewFromConfig(cfg)
		assert.Error(t, err)
	})
}

func TestComponent(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	Component(zap.New(core), "sandbox").Info("hello")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "sandbox", logs.All()[0].LoggerName)

	assert.NotNil(t, Component(nil, "x"))
}
