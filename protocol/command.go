package protocol

import (
	"encoding/binary"
	"fmt"
)

// CommandFrame is one host -> firmware command
type CommandFrame struct {
	Module   ModuleID
	Function FunctionID
	Payload  []byte
}

// NewCommand validates a command against the registry. Nothing that fails
// here may reach the transport.
func NewCommand(module ModuleID, function FunctionID, payload []byte) (CommandFrame, error) {
	m, err := LookupModule(module)
	if err != nil {
		return CommandFrame{}, err
	}
	if _, ok := m.FunctionName(function); !ok {
		return CommandFrame{}, fmt.Errorf("%w: %s has no function id %d", ErrUnknownFunction, m.Name, function)
	}
	if len(payload) > MaxPayload {
		return CommandFrame{}, fmt.Errorf("%w: %d bytes (max %d)", ErrPayloadTooLarge, len(payload), MaxPayload)
	}

	p := make([]byte, len(payload))
	copy(p, payload)
	return CommandFrame{Module: module, Function: function, Payload: p}, nil
}

// NewNamedCommand resolves module and function names before validating
func NewNamedCommand(module, function string, payload []byte) (CommandFrame, error) {
	m, err := LookupModuleName(module)
	if err != nil {
		return CommandFrame{}, err
	}
	fn, err := m.Function(function)
	if err != nil {
		return CommandFrame{}, err
	}
	return NewCommand(m.ID, fn, payload)
}

// EncodeCommand validates and encodes a command frame
func EncodeCommand(module ModuleID, function FunctionID, payload []byte) ([]byte, error) {
	f, err := NewCommand(module, function, payload)
	if err != nil {
		return nil, err
	}
	return f.MarshalBinary()
}

// Fields returns the wire fields in transmission order:
// module, function, payload length (LE), payload
func (f CommandFrame) Fields() [][]byte {
	length := make([]byte, 2)
	binary.LittleEndian.PutUint16(length, uint16(len(f.Payload)))

	fields := [][]byte{
		{byte(f.Module)},
		{byte(f.Function)},
		length,
	}
	if len(f.Payload) > 0 {
		fields = append(fields, f.Payload)
	}
	return fields
}

// MarshalBinary returns the complete frame
func (f CommandFrame) MarshalBinary() ([]byte, error) {
	if len(f.Payload) > MaxPayload {
		return nil, ErrPayloadTooLarge
	}
	buf := make([]byte, 0, CommandHeaderSize+len(f.Payload))
	for _, field := range f.Fields() {
		buf = append(buf, field...)
	}
	return buf, nil
}

// String renders the frame with registry names where known
func (f CommandFrame) String() string {
	m, err := LookupModule(f.Module)
	if err != nil {
		return fmt.Sprintf("module=%d fn=%d len=%d", f.Module, f.Function, len(f.Payload))
	}
	name, ok := m.FunctionName(f.Function)
	if !ok {
		name = fmt.Sprintf("%d", f.Function)
	}
	return fmt.Sprintf("%s.%s len=%d", m.Name, name, len(f.Payload))
}

// DecodeCommand parses a complete command frame, the way the firmware's
// command receiver does
func DecodeCommand(b []byte) (CommandFrame, error) {
	if len(b) < CommandHeaderSize {
		return CommandFrame{}, fmt.Errorf("%w: %d bytes", ErrShortFrame, len(b))
	}

	n := int(binary.LittleEndian.Uint16(b[CommandPositionLen:]))
	if len(b)-CommandHeaderSize != n {
		return CommandFrame{}, fmt.Errorf("%w: header says %d, got %d", ErrLengthMismatch, n, len(b)-CommandHeaderSize)
	}

	payload := make([]byte, n)
	copy(payload, b[CommandHeaderSize:])

	return CommandFrame{
		Module:   ModuleID(b[CommandPositionMod]),
		Function: FunctionID(b[CommandPositionFn]),
		Payload:  payload,
	}, nil
}

// PayloadFromUint truncates v to an n-byte little-endian argument
func PayloadFromUint(v uint64, n int) ([]byte, error) {
	if n < 0 || n > MaxPayload {
		return nil, fmt.Errorf("%w: width %d (max %d)", ErrPayloadTooLarge, n, MaxPayload)
	}
	var full [8]byte
	binary.LittleEndian.PutUint64(full[:], v)
	out := make([]byte, n)
	copy(out, full[:n])
	return out, nil
}
