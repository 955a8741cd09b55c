package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "0.0.0.0:8080", cfg.Address())
	assert.Equal(t, "json", cfg.Protocol)
	assert.Equal(t, 10*time.Second, cfg.HandshakeTimeout)
}

func TestParseConfig(t *testing.T) {
	t.Run("full document", func(t *testing.T) {
		data := []byte(`
host: 127.0.0.1
port: 9000
handshake_timeout: 2s
read_timeout: 1m
write_timeout: 500ms
max_message_size: 65536
protocol: chat
log_level: debug
static_dir: ./public
`)

		cfg, err := ParseConfig(data)
		require.NoError(t, err)

		assert.Equal(t, Config{
			Host:             "127.0.0.1",
			Port:             9000,
			HandshakeTimeout: 2 * time.Second,
			ReadTimeout:      time.Minute,
			WriteTimeout:     500 * time.Millisecond,
			MaxMessageSize:   65536,
			Protocol:         "chat",
			LogLevel:         "debug",
			StaticDir:        "./public",
		}, cfg)
		assert.Equal(t, "127.0.0.1:9000", cfg.Address())
	})

	t.Run("partial document keeps defaults", func(t *testing.T) {
		cfg, err := ParseConfig([]byte("port: 3000\n"))
		require.NoError(t, err)

		expected := DefaultConfig()
		expected.Port = 3000
		assert.Equal(t, expected, cfg)
	})

	t.Run("empty document", func(t *testing.T) {
		cfg, err := ParseConfig(nil)
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("ipv6 host", func(t *testing.T) {
		cfg, err := ParseConfig([]byte("host: \"::1\"\n"))
		require.NoError(t, err)
		assert.Equal(t, "[::1]:8080", cfg.Address())
	})
}

func TestParseConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		err  error
	}{
		{"Port zero", "port: 0", ErrInvalidPort},
		{"Port too large", "port: 70000", ErrInvalidPort},
		{"Negative timeout", "read_timeout: -1s", ErrInvalidTimeout},
		{"Empty protocol", "protocol: \"\"", ErrInvalidProtocol},
		{"Unknown level", "log_level: loud", ErrInvalidLogLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.data))
			assert.ErrorIs(t, err, tt.err)
		})
	}

	t.Run("unknown field", func(t *testing.T) {
		_, err := ParseConfig([]byte("listen: 1.2.3.4\n"))
		assert.ErrorContains(t, err, "field listen not found")
	})

	t.Run("bad duration", func(t *testing.T) {
		_, err := ParseConfig([]byte("read_timeout: soon\n"))
		assert.ErrorContains(t, err, "config: decode")
	})
}

func TestLoadConfig(t *testing.T) {
	t.Run("reads file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("port: 8081\nlog_level: warn\n"), 0o600))

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, 8081, cfg.Port)
		assert.Equal(t, "warn", cfg.LogLevel)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestConfigLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zapcore.Level
	}{
		{"", zapcore.InfoLevel},
		{"debug", zapcore.DebugLevel},
		{"WARN", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		level, err := Config{LogLevel: tt.level}.Level()
		require.NoError(t, err, tt.level)
		assert.Equal(t, tt.expected, level, tt.level)
	}
}

func TestConfigNewLogger(t *testing.T) {
	logger, err := Config{LogLevel: "warn"}.NewLogger()
	require.NoError(t, err)

	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))

	_, err = Config{LogLevel: "nope"}.NewLogger()
	assert.ErrorIs(t, err, ErrInvalidLogLevel)
}
