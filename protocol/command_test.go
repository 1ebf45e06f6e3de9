package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func TestEncodeCommandLayout(t *testing.T) {
	frame, err := EncodeCommand(ModuleCmd, 1, []byte{0xAA, 0xBB, 0xCC})
	if err != nil {
		t.Fatalf("EncodeCommand failed: %v", err)
	}

	expected := []byte{0x01, 0x01, 0x03, 0x00, 0xAA, 0xBB, 0xCC}
	if !bytes.Equal(frame, expected) {
		t.Errorf("Expected %v, got %v", expected, frame)
	}
}

func TestEncodeCommandRoundTrip(t *testing.T) {
	for _, m := range Modules() {
		for fnIdx := range m.Functions() {
			for n := 0; n <= MaxPayload; n++ {
				payload := make([]byte, n)
				for i := range payload {
					payload[i] = byte(i + 1)
				}

				encoded, err := EncodeCommand(m.ID, FunctionID(fnIdx), payload)
				if err != nil {
					t.Errorf("%s fn %d len %d: encode failed: %v", m.Name, fnIdx, n, err)
					continue
				}

				if len(encoded) != CommandHeaderSize+n {
					t.Errorf("%s fn %d len %d: expected %d bytes, got %d", m.Name, fnIdx, n, CommandHeaderSize+n, len(encoded))
				}
				if ModuleID(encoded[CommandPositionMod]) != m.ID {
					t.Errorf("%s fn %d len %d: module byte %d", m.Name, fnIdx, n, encoded[0])
				}
				if FunctionID(encoded[CommandPositionFn]) != FunctionID(fnIdx) {
					t.Errorf("%s fn %d len %d: function byte %d", m.Name, fnIdx, n, encoded[1])
				}
				if got := binary.LittleEndian.Uint16(encoded[CommandPositionLen:]); int(got) != n {
					t.Errorf("%s fn %d len %d: length field %d", m.Name, fnIdx, n, got)
				}

				decoded, err := DecodeCommand(encoded)
				if err != nil {
					t.Errorf("%s fn %d len %d: decode failed: %v", m.Name, fnIdx, n, err)
					continue
				}
				if !bytes.Equal(decoded.Payload, payload) {
					t.Errorf("%s fn %d len %d: payload mismatch %v", m.Name, fnIdx, n, decoded.Payload)
				}
			}
		}
	}
}

func TestEncodeCommandRejects(t *testing.T) {
	testCases := []struct {
		name     string
		module   ModuleID
		function FunctionID
		payload  []byte
		err      error
	}{
		{"unknown module", 9, 0, nil, ErrUnknownModule},
		{"unknown function", ModuleLog, 5, nil, ErrUnknownFunction},
		{"payload too large", ModuleLog, 0, make([]byte, MaxPayload+1), ErrPayloadTooLarge},
	}

	for _, tc := range testCases {
		frame, err := EncodeCommand(tc.module, tc.function, tc.payload)
		if !errors.Is(err, tc.err) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.err, err)
		}
		if frame != nil {
			t.Errorf("%s: expected no output, got %v", tc.name, frame)
		}
	}
}

func TestNewNamedCommand(t *testing.T) {
	f, err := NewNamedCommand("log", "INIT", nil)
	if err != nil {
		t.Fatalf("NewNamedCommand failed: %v", err)
	}
	if f.Module != ModuleLog || f.Function != 0 || len(f.Payload) != 0 {
		t.Errorf("Unexpected frame: %+v", f)
	}
	if f.String() != "LOG.init len=0" {
		t.Errorf("Unexpected String(): %s", f.String())
	}

	if _, err := NewNamedCommand("cmd", "format_disk", nil); !errors.Is(err, ErrUnknownFunction) {
		t.Errorf("Expected ErrUnknownFunction, got %v", err)
	}
}

func TestCommandFields(t *testing.T) {
	f, _ := NewCommand(ModuleCmd, 0, nil)
	fields := f.Fields()
	if len(fields) != 3 {
		t.Fatalf("Expected 3 fields for an empty payload, got %d", len(fields))
	}

	f, _ = NewCommand(ModuleCmd, 0, []byte{1, 2})
	fields = f.Fields()
	if len(fields) != 4 {
		t.Fatalf("Expected 4 fields, got %d", len(fields))
	}
	if !bytes.Equal(fields[2], []byte{2, 0}) {
		t.Errorf("Expected little-endian length field, got %v", fields[2])
	}
}

func TestDecodeCommandErrors(t *testing.T) {
	if _, err := DecodeCommand([]byte{0, 0, 0}); !errors.Is(err, ErrShortFrame) {
		t.Errorf("Expected ErrShortFrame, got %v", err)
	}
	if _, err := DecodeCommand([]byte{0, 0, 2, 0, 1}); !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("Expected ErrLengthMismatch, got %v", err)
	}
}

func TestPayloadFromUint(t *testing.T) {
	testCases := []struct {
		value    uint64
		width    int
		expected []byte
	}{
		{0, 0, []byte{}},
		{0x1234, 2, []byte{0x34, 0x12}},
		{0x1234, 1, []byte{0x34}},
		{0x0102030405060708, 8, []byte{8, 7, 6, 5, 4, 3, 2, 1}},
		{1, 4, []byte{1, 0, 0, 0}},
	}

	for _, tc := range testCases {
		got, err := PayloadFromUint(tc.value, tc.width)
		if err != nil {
			t.Errorf("PayloadFromUint(%#x, %d) failed: %v", tc.value, tc.width, err)
			continue
		}
		if !bytes.Equal(got, tc.expected) {
			t.Errorf("PayloadFromUint(%#x, %d): expected %v, got %v", tc.value, tc.width, tc.expected, got)
		}
	}

	if _, err := PayloadFromUint(1, 9); !errors.Is(err, ErrPayloadTooLarge) {
		t.Errorf("Expected ErrPayloadTooLarge for width 9, got %v", err)
	}
}
