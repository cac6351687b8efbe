// Package wflcfg is the interpreter's runtime configuration contract: the
// handful of knobs a host or a `.wflcfg` file can set (timeout, loop budget,
// logging, debug reports), plus a minimal `key = value` reader for the demo
// CLI and tests. Defaults are a small set of named constants, not a
// generic settings bag.
package wflcfg

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Config is the full set of interpreter knobs a host can set.
type Config struct {
	TimeoutSeconds     uint64
	LoggingEnabled     bool
	LogLevel           string
	DebugReportEnabled bool
	MaxLoopIterations  uint64
	// PatternCachePath, if set, is where the host persists the compiled
	// pattern cache between runs (empty disables persistence).
	PatternCachePath string
}

// Default returns the interpreter's out-of-the-box configuration.
func Default() Config {
	return Config{
		TimeoutSeconds:     60,
		LoggingEnabled:     false,
		LogLevel:           "info",
		DebugReportEnabled: true,
		MaxLoopIterations:  1_000_000,
		PatternCachePath:   "",
	}
}

// Load reads a `key = value` configuration file (blank lines and `#`
// comments ignored), applying recognized keys on top of Default(). Unknown
// keys are reported as an error rather than silently ignored, since a typo
// in a config key should surface immediately rather than run with defaults.
func Load(r io.Reader) (Config, error) {
	cfg := Default()
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			return cfg, fmt.Errorf("wflcfg: line %d: expected `key = value`, got %q", lineNo, line)
		}
		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)
		if err := cfg.set(key, val); err != nil {
			return cfg, fmt.Errorf("wflcfg: line %d: %w", lineNo, err)
		}
	}
	if err := sc.Err(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) set(key, val string) error {
	switch key {
	case "timeout_seconds":
		n, err := strconv.ParseUint(val, 10, 64)
		if err != nil {
			return fmt.Errorf("timeout_seconds: %w", err)
		}
		c.TimeoutSeconds = n
	case "logging_enabled":
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("logging_enabled: %w", err)
		}
		c.LoggingEnabled = b
	case "log_level":
		c.LogLevel = val
	case "debug_report_enabled":
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("debug_report_enabled: %w", err)
		}
		c.DebugReportEnabled = b
	case "max_loop_iterations":
		n, err := strconv.ParseUint(val, 10, 64)
		if err != nil {
			return fmt.Errorf("max_loop_iterations: %w", err)
		}
		c.MaxLoopIterations = n
	case "pattern_cache_path":
		c.PatternCachePath = val
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	return nil
}
