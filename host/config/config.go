// Package config holds the console's settings: defaults, file loading and validation.
package config

import (
	"time"

	"solens/host/serial"
	"solens/protocol"
)

type Config struct {
	Serial   SerialConfig
	Protocol ProtocolConfig
	Probe    ProbeConfig
	Debugger DebuggerConfig
}

// ---- SERIAL ----

type SerialConfig struct {
	Device      string
	Baud        int
	ReadTimeout time.Duration
}

// ---- PROTOCOL ----

type ProtocolConfig struct {
	FrameTimeout time.Duration
	FieldDelay   time.Duration
	FrameDelay   time.Duration
	IdleTick     time.Duration // how often a stalled frame is checked while no bytes arrive
	MaxDataLen   uint32
}

// ---- EXTERNAL TOOLS ----

type ProbeConfig struct {
	Enabled bool
	Command string
	Args    []string
}

type DebuggerConfig struct {
	Terminal []string // wrapper the debugger runs in, e.g. gnome-terminal --
	Command  string
	BinDir   string
	GDBInit  string
}

// Default returns the settings used with the reference board
func Default() Config {
	pacing := protocol.DefaultPacing()
	return Config{
		Serial: SerialConfig{
			Baud:        serial.DefaultBaud,
			ReadTimeout: 100 * time.Millisecond,
		},
		Protocol: ProtocolConfig{
			FrameTimeout: protocol.DefaultFrameTimeout,
			FieldDelay:   pacing.FieldDelay,
			FrameDelay:   pacing.FrameDelay,
			IdleTick:     100 * time.Millisecond,
			MaxDataLen:   protocol.DefaultMaxDataLen,
		},
		Probe: ProbeConfig{
			Enabled: true,
			Command: "st-util",
		},
		Debugger: DebuggerConfig{
			Terminal: []string{"gnome-terminal", "--"},
			Command:  "arm-none-eabi-gdb",
			BinDir:   "bin",
			GDBInit:  "config/.gdbinit",
		},
	}
}

// SerialPortConfig converts to the serial package's config
func (c Config) SerialPortConfig() *serial.Config {
	return &serial.Config{
		Device:      c.Serial.Device,
		Baud:        c.Serial.Baud,
		ReadTimeout: c.Serial.ReadTimeout,
	}
}

// Pacing returns the command settling delays
func (c Config) Pacing() protocol.Pacing {
	return protocol.Pacing{
		FieldDelay: c.Protocol.FieldDelay,
		FrameDelay: c.Protocol.FrameDelay,
	}
}
