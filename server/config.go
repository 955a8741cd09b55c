package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Configuration errors.
var (
	ErrInvalidPort     = errors.New("config: port must be between 1 and 65535")
	ErrInvalidTimeout  = errors.New("config: timeouts must not be negative")
	ErrInvalidProtocol = errors.New("config: protocol must not be empty")
	ErrInvalidLogLevel = errors.New("config: invalid log level")
)

// Config is the YAML configuration of a server process.
type Config struct {
	// Host is the interface to bind. Defaults to "0.0.0.0".
	Host string `yaml:"host"`

	// Port is the TCP port to bind. Defaults to 8080.
	Port int `yaml:"port"`

	// HandshakeTimeout bounds reading the request and completing the
	// handshake. Zero disables it.
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`

	// ReadTimeout is the longest an open WebSocket waits for the next
	// frame. Zero disables it.
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout bounds each frame write. Zero disables it.
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// MaxMessageSize is the largest accepted frame payload in bytes. Zero
	// selects the WebSocket default; a negative value disables the limit.
	MaxMessageSize int64 `yaml:"max_message_size"`

	// Protocol is the subprotocol negotiated with clients. Defaults to "json".
	Protocol string `yaml:"protocol"`

	// LogLevel is a zap level name such as "debug" or "info".
	LogLevel string `yaml:"log_level"`

	// StaticDir, when set, is served for every path without a route.
	StaticDir string `yaml:"static_dir"`
}

// DefaultConfig returns the configuration used for fields a file leaves
// unset.
func DefaultConfig() Config {
	return Config{
		Host:             "0.0.0.0",
		Port:             8080,
		HandshakeTimeout: 10 * time.Second,
		Protocol:         "json",
		LogLevel:         "info",
	}
}

// ParseConfig decodes YAML data on top of DefaultConfig. Unknown keys are
// rejected. The result is validated.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// LoadConfig reads and parses the YAML file at path.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	return ParseConfig(data)
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, c.Port)
	}

	if c.HandshakeTimeout < 0 || c.ReadTimeout < 0 || c.WriteTimeout < 0 {
		return ErrInvalidTimeout
	}

	if c.Protocol == "" {
		return ErrInvalidProtocol
	}

	if _, err := c.Level(); err != nil {
		return err
	}

	return nil
}

// Address returns the host:port listen address.
func (c Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Level parses LogLevel. An empty value is info.
func (c Config) Level() (zapcore.Level, error) {
	if c.LogLevel == "" {
		return zapcore.InfoLevel, nil
	}

	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return level, fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.LogLevel)
	}

	return level, nil
}

// NewLogger builds a production JSON logger at the configured level.
func (c Config) NewLogger() (*zap.Logger, error) {
	level, err := c.Level()
	if err != nil {
		return nil, err
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.EncoderConfig.TimeKey = "time"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return zcfg.Build()
}
