package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// fileConfig mirrors the on-disk layout. Pointers mark keys that were set.
type fileConfig struct {
	Serial   *fileSerial   `toml:"serial" yaml:"serial"`
	Protocol *fileProtocol `toml:"protocol" yaml:"protocol"`
	Probe    *fileProbe    `toml:"probe" yaml:"probe"`
	Debugger *fileDebugger `toml:"debugger" yaml:"debugger"`
}

type fileSerial struct {
	Device      *string `toml:"device" yaml:"device"`
	Baud        *int    `toml:"baud" yaml:"baud"`
	ReadTimeout *string `toml:"read_timeout" yaml:"read_timeout"`
}

type fileProtocol struct {
	FrameTimeout *string `toml:"frame_timeout" yaml:"frame_timeout"`
	FieldDelay   *string `toml:"field_delay" yaml:"field_delay"`
	FrameDelay   *string `toml:"frame_delay" yaml:"frame_delay"`
	IdleTick     *string `toml:"idle_tick" yaml:"idle_tick"`
	MaxDataLen   *uint32 `toml:"max_data_len" yaml:"max_data_len"`
}

type fileProbe struct {
	Enabled *bool    `toml:"enabled" yaml:"enabled"`
	Command *string  `toml:"command" yaml:"command"`
	Args    []string `toml:"args" yaml:"args"`
}

type fileDebugger struct {
	Terminal []string `toml:"terminal" yaml:"terminal"`
	Command  *string  `toml:"command" yaml:"command"`
	BinDir   *string  `toml:"bin_dir" yaml:"bin_dir"`
	GDBInit  *string  `toml:"gdbinit" yaml:"gdbinit"`
}

// Load reads a TOML or YAML file (chosen by extension) over the defaults
func Load(path string) (Config, error) {
	var raw fileConfig

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		meta, err := toml.DecodeFile(path, &raw)
		if err != nil {
			return Config{}, fmt.Errorf("load config: %w", err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return Config{}, fmt.Errorf("load config: unknown key %q", undecoded[0].String())
		}

	case ".yaml", ".yml":
		f, err := os.Open(path)
		if err != nil {
			return Config{}, fmt.Errorf("load config: %w", err)
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		dec.KnownFields(true)
		if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("load config: %w", err)
		}

	default:
		return Config{}, fmt.Errorf("load config: unsupported file type %q", filepath.Ext(path))
	}

	cfg := Default()
	if err := raw.apply(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (raw fileConfig) apply(cfg *Config) error {
	if s := raw.Serial; s != nil {
		if s.Device != nil {
			cfg.Serial.Device = strings.TrimSpace(*s.Device)
		}
		if s.Baud != nil {
			cfg.Serial.Baud = *s.Baud
		}
		if err := setDuration(&cfg.Serial.ReadTimeout, "serial.read_timeout", s.ReadTimeout); err != nil {
			return err
		}
	}

	if p := raw.Protocol; p != nil {
		durations := []struct {
			dst  *time.Duration
			name string
			raw  *string
		}{
			{&cfg.Protocol.FrameTimeout, "protocol.frame_timeout", p.FrameTimeout},
			{&cfg.Protocol.FieldDelay, "protocol.field_delay", p.FieldDelay},
			{&cfg.Protocol.FrameDelay, "protocol.frame_delay", p.FrameDelay},
			{&cfg.Protocol.IdleTick, "protocol.idle_tick", p.IdleTick},
		}
		for _, d := range durations {
			if err := setDuration(d.dst, d.name, d.raw); err != nil {
				return err
			}
		}
		if p.MaxDataLen != nil {
			cfg.Protocol.MaxDataLen = *p.MaxDataLen
		}
	}

	if p := raw.Probe; p != nil {
		if p.Enabled != nil {
			cfg.Probe.Enabled = *p.Enabled
		}
		if p.Command != nil {
			cfg.Probe.Command = strings.TrimSpace(*p.Command)
		}
		if p.Args != nil {
			cfg.Probe.Args = p.Args
		}
	}

	if d := raw.Debugger; d != nil {
		if d.Terminal != nil {
			cfg.Debugger.Terminal = d.Terminal
		}
		if d.Command != nil {
			cfg.Debugger.Command = strings.TrimSpace(*d.Command)
		}
		if d.BinDir != nil {
			cfg.Debugger.BinDir = strings.TrimSpace(*d.BinDir)
		}
		if d.GDBInit != nil {
			cfg.Debugger.GDBInit = strings.TrimSpace(*d.GDBInit)
		}
	}

	return nil
}

func setDuration(dst *time.Duration, name string, raw *string) error {
	if raw == nil {
		return nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(*raw))
	if err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	*dst = d
	return nil
}
