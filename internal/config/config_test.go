package config_test

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enetx/tablefsm/internal/config"
)

func unsetAll(t *testing.T) {
	t.Helper()

	for _, key := range []string{"FSM_DEFINITION", "FSM_STRICT", "FSM_LOG_LEVEL", "FSM_LOG_FORMAT", "FSM_OUTPUT"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	unsetAll(t)
	t.Setenv("FSM_DEFINITION", "machine.yaml")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "machine.yaml", cfg.Definition)
	assert.False(t, cfg.Strict)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, config.OutputState, cfg.Output)
}

func TestLoad_RequiresDefinition(t *testing.T) {
	unsetAll(t)

	_, err := config.Load()
	assert.ErrorIs(t, err, config.ErrParsingConfig)
}

func TestLoad_EnvFile(t *testing.T) {
	unsetAll(t)

	cfg, err := config.Load("testdata/.env.test")
	require.NoError(t, err)

	assert.Equal(t, "definitions/turnstile.yaml", cfg.Definition)
	assert.True(t, cfg.Strict)
	assert.Equal(t, config.OutputDOT, cfg.Output)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	unsetAll(t)
	t.Setenv("FSM_OUTPUT", "json")

	cfg, err := config.Load("testdata/.env.test")
	require.NoError(t, err)
	assert.Equal(t, config.OutputJSON, cfg.Output)
}

func TestLoad_MissingFile(t *testing.T) {
	unsetAll(t)

	_, err := config.Load("testdata/missing.env")
	assert.Error(t, err)
}

func TestLoad_InvalidValues(t *testing.T) {
	for key, value := range map[string]string{
		"FSM_OUTPUT":     "xml",
		"FSM_LOG_FORMAT": "logfmt",
		"FSM_LOG_LEVEL":  "verbose",
	} {
		t.Run(key, func(t *testing.T) {
			unsetAll(t)
			t.Setenv("FSM_DEFINITION", "machine.yaml")
			t.Setenv(key, value)

			_, err := config.Load()
			assert.ErrorIs(t, err, config.ErrInvalidValue)
		})
	}
}

func TestConfig_Logger(t *testing.T) {
	var buf bytes.Buffer

	cfg := config.Config{LogLevel: "debug", LogFormat: "json"}
	cfg.Logger(&buf).Debug("hello", "k", "v")

	assert.Contains(t, buf.String(), `"msg":"hello"`)
	assert.Contains(t, buf.String(), `"k":"v"`)
}
