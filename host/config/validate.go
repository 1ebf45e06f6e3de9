package config

import (
	"fmt"

	"solens/protocol"
)

// Validate checks configuration correctness.
// It MUST NOT mutate configuration.
// The serial device may be empty: it is then chosen interactively.
func Validate(cfg Config) error {
	if cfg.Serial.Baud <= 0 {
		return fmt.Errorf("serial.baud must be positive, got %d", cfg.Serial.Baud)
	}
	if cfg.Serial.ReadTimeout <= 0 {
		return fmt.Errorf("serial.read_timeout must be positive, got %v", cfg.Serial.ReadTimeout)
	}

	if cfg.Protocol.FrameTimeout <= 0 {
		return fmt.Errorf("protocol.frame_timeout must be positive, got %v", cfg.Protocol.FrameTimeout)
	}
	if cfg.Protocol.FieldDelay < 0 || cfg.Protocol.FrameDelay < 0 {
		return fmt.Errorf("protocol delays cannot be negative")
	}
	if cfg.Protocol.IdleTick <= 0 || cfg.Protocol.IdleTick > cfg.Protocol.FrameTimeout {
		return fmt.Errorf("protocol.idle_tick must be in (0, frame_timeout], got %v", cfg.Protocol.IdleTick)
	}
	if cfg.Protocol.MaxDataLen == 0 || cfg.Protocol.MaxDataLen > protocol.DefaultMaxDataLen {
		return fmt.Errorf("protocol.max_data_len must be in [1, %d], got %d", protocol.DefaultMaxDataLen, cfg.Protocol.MaxDataLen)
	}

	if cfg.Probe.Enabled && cfg.Probe.Command == "" {
		return fmt.Errorf("probe.command is required when the probe is enabled")
	}
	if cfg.Debugger.Command == "" {
		return fmt.Errorf("debugger.command is required")
	}
	if cfg.Debugger.BinDir == "" {
		return fmt.Errorf("debugger.bin_dir is required")
	}

	return nil
}
