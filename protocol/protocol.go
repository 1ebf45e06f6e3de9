// Package protocol implements the solens host <-> firmware serial protocol
package protocol

import "time"

// Version represents the host protocol version
const Version = "0.2.0"

// Command frame constants (host -> firmware)
const (
	CommandHeaderSize  = 4 // module(1) + function(1) + payload length(2)
	CommandPositionMod = 0
	CommandPositionFn  = 1
	CommandPositionLen = 2
	MaxPayload         = 8 // payload is a truncated fixed-width integer
)

// Log frame constants (firmware -> host)
const (
	LogHeaderSize     = 3 // module(1) + status(1) + tag length(1)
	LogDataLenSize    = 4
	LogPositionMod    = 0
	LogPositionStatus = 1
	LogPositionTagLen = 2
	LogMinFrameSize   = LogHeaderSize + LogDataLenSize

	// DefaultMaxDataLen mirrors the firmware's LOG_MAXDATASIZE
	DefaultMaxDataLen = 16 * 1024 * 1024
)

// DefaultFrameTimeout is the stall limit for a partially received log frame
const DefaultFrameTimeout = 1 * time.Second

// Pacing holds the settling delays used while writing a command frame.
// Slow receivers need a pause between fields and after the frame.
type Pacing struct {
	FieldDelay time.Duration
	FrameDelay time.Duration
}

// DefaultPacing returns the pacing used with the reference firmware
func DefaultPacing() Pacing {
	return Pacing{
		FieldDelay: 2 * time.Millisecond,
		FrameDelay: 20 * time.Millisecond,
	}
}
