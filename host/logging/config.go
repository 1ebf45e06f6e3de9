// Package logging configures the diagnostic logger shared by every package.
// Operator-facing output goes through host/console instead.
package logging

import (
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
)

const (
	EnvLogLevel     = "SOLENS_LOG_LEVEL"
	EnvLogTimestamp = "SOLENS_LOG_TIMESTAMP"
	EnvLogNoColor   = "SOLENS_LOG_NOCOLOR"
)

type Profile int

const (
	ProfileRuntime Profile = iota
	ProfileVerbose
	ProfileTest
)

// Config is the resolved diagnostic logger configuration
type Config struct {
	Level     log.Level
	Timestamp bool
	NoColor   bool
	Output    io.Writer
}

var configureOnce sync.Once

func ConfigureRuntime(verbose bool) {
	if verbose {
		Configure(ProfileVerbose)
		return
	}
	Configure(ProfileRuntime)
}

func ConfigureTests() {
	Configure(ProfileTest)
}

func Configure(profile Profile) {
	configureOnce.Do(func() {
		cfg := defaultConfig(profile)
		applyEnvOverrides(&cfg)
		apply(cfg)
	})
}

func defaultConfig(profile Profile) Config {
	cfg := Config{Output: os.Stderr}
	switch profile {
	case ProfileTest:
		cfg.Level = log.DebugLevel
		cfg.Timestamp = false
	case ProfileVerbose:
		cfg.Level = log.DebugLevel
		cfg.Timestamp = true
	default:
		// the console prints everything the operator needs
		cfg.Level = log.WarnLevel
		cfg.Timestamp = true
	}
	return cfg
}

func apply(cfg Config) {
	log.SetOutput(cfg.Output)
	log.SetLevel(cfg.Level)
	log.SetFormatter(&log.TextFormatter{
		DisableTimestamp: !cfg.Timestamp,
		FullTimestamp:    cfg.Timestamp,
		DisableColors:    cfg.NoColor,
	})
}

func applyEnvOverrides(cfg *Config) {
	if lvl, ok := parseLevel(os.Getenv(EnvLogLevel)); ok {
		cfg.Level = lvl
	}
	if v, ok := parseBool(os.Getenv(EnvLogTimestamp)); ok {
		cfg.Timestamp = v
	}
	if v, ok := parseBool(os.Getenv(EnvLogNoColor)); ok {
		cfg.NoColor = v
	}
}

func parseLevel(raw string) (log.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return log.InfoLevel, false
	case "trace":
		return log.TraceLevel, true
	case "debug":
		return log.DebugLevel, true
	case "info":
		return log.InfoLevel, true
	case "warn", "warning":
		return log.WarnLevel, true
	case "error":
		return log.ErrorLevel, true
	case "disabled", "disable", "off", "none":
		return log.PanicLevel, true
	default:
		return log.InfoLevel, false
	}
}

func parseBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
