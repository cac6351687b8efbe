package wflcfg

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, uint64(60), cfg.TimeoutSeconds)
	assert.False(t, cfg.LoggingEnabled)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.DebugReportEnabled)
	assert.Equal(t, uint64(1_000_000), cfg.MaxLoopIterations)
}

func TestLoadOverridesDefaults(t *testing.T) {
	src := `
# a comment line
timeout_seconds = 30
logging_enabled = true
log_level = debug

max_loop_iterations = 500
`
	cfg, err := Load(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, uint64(30), cfg.TimeoutSeconds)
	assert.True(t, cfg.LoggingEnabled)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, uint64(500), cfg.MaxLoopIterations)
	assert.True(t, cfg.DebugReportEnabled, "unset keys must keep their default")
}

func TestLoadPatternCachePath(t *testing.T) {
	cfg, err := Load(strings.NewReader("pattern_cache_path = /tmp/wfl-patterns.cbor"))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/wfl-patterns.cbor", cfg.PatternCachePath)
}

func TestLoadUnknownKeyErrors(t *testing.T) {
	_, err := Load(strings.NewReader("bogus_key = 1"))
	assert.ErrorContains(t, err, "unknown config key")
}

func TestLoadMalformedLineErrors(t *testing.T) {
	_, err := Load(strings.NewReader("not_a_key_value_pair"))
	assert.ErrorContains(t, err, "expected `key = value`")
}

func TestLoadInvalidBoolErrors(t *testing.T) {
	_, err := Load(strings.NewReader("logging_enabled = maybe"))
	assert.ErrorContains(t, err, "logging_enabled")
}

func TestLoadInvalidUintErrors(t *testing.T) {
	_, err := Load(strings.NewReader("timeout_seconds = -1"))
	assert.ErrorContains(t, err, "timeout_seconds")
}
