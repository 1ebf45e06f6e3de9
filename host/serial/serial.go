package serial

import (
	"io"
	"time"
)

// Port represents a serial port interface
// This abstraction allows for different implementations:
// - Native serial (using github.com/tarm/serial)
// - Mock serial (for testing)
type Port interface {
	io.ReadWriteCloser

	// Flush flushes any buffered data
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyUSB0", "COM3")
	Device string

	// Baud rate of the target's debug UART
	Baud int

	// Read timeout. The transport's reader releases the transmit guard
	// between reads, so this must not be zero.
	ReadTimeout time.Duration
}

// DefaultBaud is the reference firmware's UART rate
const DefaultBaud = 115200

// DefaultConfig returns a default configuration for the target's debug UART
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        DefaultBaud,
		ReadTimeout: 100 * time.Millisecond,
	}
}
