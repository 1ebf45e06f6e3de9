package logging

import (
	"testing"

	log "github.com/sirupsen/logrus"
)

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		raw   string
		level log.Level
		ok    bool
	}{
		{"", log.InfoLevel, false},
		{"debug", log.DebugLevel, true},
		{" WARNING ", log.WarnLevel, true},
		{"error", log.ErrorLevel, true},
		{"off", log.PanicLevel, true},
		{"loud", log.InfoLevel, false},
	}

	for _, tc := range testCases {
		level, ok := parseLevel(tc.raw)
		if level != tc.level || ok != tc.ok {
			t.Errorf("parseLevel(%q): expected (%v, %v), got (%v, %v)", tc.raw, tc.level, tc.ok, level, ok)
		}
	}
}

func TestParseBool(t *testing.T) {
	if v, ok := parseBool("true"); !v || !ok {
		t.Errorf("Expected (true, true), got (%v, %v)", v, ok)
	}
	if _, ok := parseBool("maybe"); ok {
		t.Error("Expected invalid bool to be ignored")
	}
	if _, ok := parseBool(""); ok {
		t.Error("Expected empty value to be ignored")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogTimestamp, "false")
	t.Setenv(EnvLogNoColor, "1")

	cfg := defaultConfig(ProfileRuntime)
	applyEnvOverrides(&cfg)

	if cfg.Level != log.ErrorLevel {
		t.Errorf("Expected error level, got %v", cfg.Level)
	}
	if cfg.Timestamp {
		t.Error("Expected timestamps disabled")
	}
	if !cfg.NoColor {
		t.Error("Expected colors disabled")
	}
}

func TestDefaultProfiles(t *testing.T) {
	if defaultConfig(ProfileRuntime).Level != log.WarnLevel {
		t.Error("Expected runtime profile at warn level")
	}
	if defaultConfig(ProfileVerbose).Level != log.DebugLevel {
		t.Error("Expected verbose profile at debug level")
	}
	if defaultConfig(ProfileTest).Timestamp {
		t.Error("Expected test profile without timestamps")
	}
}
