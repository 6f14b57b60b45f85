// Package config loads printfdf settings from a YAML file.
//
// The file is named by the --config flag or the PRINTFDF_CONFIG environment
// variable. Without either, Default is used. Command line flags are applied
// by the caller after loading, so the precedence is defaults, then file, then
// flags.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"printfdf/pkg/codec"
	"printfdf/pkg/printfdf"
)

// EnvVar names the environment variable holding the config file path.
const EnvVar = "PRINTFDF_CONFIG"

// Config is the complete printfdf configuration.
type Config struct {
	Decoder DecoderConfig `yaml:"decoder"`
	Serve   ServeConfig   `yaml:"serve"`
	Log     LogConfig     `yaml:"log"`
}

// DecoderConfig configures decoding.
type DecoderConfig struct {
	// Marker is the escape byte introducing a directive. Default: 0xA5
	Marker int `yaml:"marker"`

	// Errors names the error handler: strict, replace or ignore.
	Errors string `yaml:"errors"`

	// MaxPending bounds the bytes an incremental decoder holds back while
	// waiting for the rest of a directive. Default: 4096
	MaxPending int `yaml:"max_pending"`
}

// ServeConfig configures the HTTP viewer.
type ServeConfig struct {
	// Listen is the listen address. ${VAR} and ${VAR:-default} are expanded.
	Listen string `yaml:"listen"`

	// History is the number of decoded chunks replayed to new websocket
	// clients and shown on the index page.
	History int `yaml:"history"`

	// AllowedOrigins lists extra websocket origins besides the request host.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error. Default: info
	Level string `yaml:"level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Decoder: DecoderConfig{
			Marker:     int(printfdf.DefaultMarker),
			Errors:     "strict",
			MaxPending: printfdf.DefaultMaxPending,
		},
		Serve: ServeConfig{
			Listen:  "localhost:8765",
			History: 200,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load loads the file at path, or the file named by PRINTFDF_CONFIG when path
// is empty. With neither, it returns Default.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvVar)
	}
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile merges the YAML file at path over Default.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.Serve.Listen = expandVars(cfg.Serve.Listen)
	return cfg, nil
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} from the environment.
func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Decoder.Marker < 0x80 || c.Decoder.Marker > 0xFF {
		errs = append(errs, fmt.Errorf("decoder.marker must be in 0x80..0xFF, got %#x", c.Decoder.Marker))
	}
	if _, err := codec.Default.LookupErrorHandler(c.Decoder.Errors); err != nil {
		errs = append(errs, fmt.Errorf("decoder.errors must be one of: %v", codec.Default.ErrorHandlerNames()))
	}
	if c.Decoder.MaxPending <= 0 {
		errs = append(errs, fmt.Errorf("decoder.max_pending must be positive"))
	}
	if c.Serve.Listen == "" {
		errs = append(errs, fmt.Errorf("serve.listen is required"))
	}
	if c.Serve.History < 0 {
		errs = append(errs, fmt.Errorf("serve.history must not be negative"))
	}
	if _, err := c.LogLevel(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// LogLevel parses Log.Level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// NewDecoder builds the decoder described by c.Decoder.
func (c *Config) NewDecoder() (*printfdf.Decoder, error) {
	h, err := codec.Default.LookupErrorHandler(c.Decoder.Errors)
	if err != nil {
		return nil, err
	}
	return printfdf.NewDecoder(
		printfdf.WithMarker(byte(c.Decoder.Marker)),
		printfdf.WithErrorHandler(h),
		printfdf.WithMaxPending(c.Decoder.MaxPending),
	)
}
