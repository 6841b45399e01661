// Package config loads fsmctl settings from the environment and optional .env files.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Output selects what fsmctl prints after replaying events.
type Output string

const (
	OutputState Output = "state"
	OutputDOT   Output = "dot"
	OutputJSON  Output = "json"
	OutputYAML  Output = "yaml"
)

var (
	// ErrParsingConfig wraps failures of the environment parser.
	ErrParsingConfig = errors.New("config: failed to parse environment")
	// ErrInvalidValue is returned when a setting is outside of its allowed values.
	ErrInvalidValue = errors.New("config: invalid value")
)

// Config holds the fsmctl settings.
type Config struct {
	Definition string `env:"FSM_DEFINITION,required"`
	Strict     bool   `env:"FSM_STRICT" envDefault:"false"`
	LogLevel   string `env:"FSM_LOG_LEVEL" envDefault:"info"`
	LogFormat  string `env:"FSM_LOG_FORMAT" envDefault:"text"`
	Output     Output `env:"FSM_OUTPUT" envDefault:"state"`
}

// Load reads the given env files (or ./.env when none are given and it
// exists) and parses the environment into a Config.
// Variables already set in the environment take precedence over files.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil {
		if len(files) > 0 || !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load env files: %w", err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Join(ErrParsingConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) validate() error {
	switch c.Output {
	case OutputState, OutputDOT, OutputJSON, OutputYAML:
	default:
		return fmt.Errorf("%w: FSM_OUTPUT=%q", ErrInvalidValue, c.Output)
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: FSM_LOG_FORMAT=%q", ErrInvalidValue, c.LogFormat)
	}

	if _, err := c.level(); err != nil {
		return err
	}

	return nil
}

func (c Config) level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("%w: FSM_LOG_LEVEL=%q", ErrInvalidValue, c.LogLevel)
	}

	return level, nil
}

// Logger builds a text or JSON slog logger writing to w.
func (c Config) Logger(w io.Writer) *slog.Logger {
	level, err := c.level()
	if err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}

	return slog.New(slog.NewTextHandler(w, opts))
}
