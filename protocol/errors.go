package protocol

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrUnknownModule   = errors.New("protocol: unknown module")
	ErrUnknownFunction = errors.New("protocol: unknown function")
	ErrPayloadTooLarge = errors.New("protocol: payload too large")
	ErrShortFrame      = errors.New("protocol: short frame")
	ErrLengthMismatch  = errors.New("protocol: payload length mismatch")
	ErrDataTooLarge    = errors.New("protocol: data length exceeds limit")
	ErrFrameTimeout    = errors.New("protocol: frame timeout")
)

// MalformedFrameError reports a completed log frame that could not be resolved.
// The frame is dropped and the decoder keeps going.
type MalformedFrameError struct {
	Module ModuleID
	Status StatusCode
	Tag    string
	Err    error
}

func (e *MalformedFrameError) Error() string {
	if errors.Is(e.Err, ErrUnknownModule) {
		return fmt.Sprintf("malformed frame: unknown module id %d (status %d, tag %q); "+
			"the firmware message may be missing its '\\0' terminator", e.Module, e.Status, e.Tag)
	}
	return fmt.Sprintf("malformed frame: module id %d: %v", e.Module, e.Err)
}

func (e *MalformedFrameError) Unwrap() error {
	return e.Err
}

// FrameTimeoutError reports a partial frame discarded after a stall.
type FrameTimeoutError struct {
	Received int
	Expected int
	Elapsed  time.Duration
}

func (e *FrameTimeoutError) Error() string {
	return fmt.Sprintf("frame timeout: discarded %d/%d bytes after %v", e.Received, e.Expected, e.Elapsed.Round(time.Millisecond))
}

func (e *FrameTimeoutError) Unwrap() error {
	return ErrFrameTimeout
}
