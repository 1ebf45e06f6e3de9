package protocol

import (
	"encoding/binary"
	"fmt"
	"time"
)

// State is the decoder's position within the current log frame
type State uint8

const (
	StateAwaitHeader State = iota
	StateAwaitTag
	StateAwaitDataLen
	StateAwaitData
)

func (s State) String() string {
	switch s {
	case StateAwaitHeader:
		return "AWAIT_HEADER"
	case StateAwaitTag:
		return "AWAIT_TAG"
	case StateAwaitDataLen:
		return "AWAIT_DATALEN"
	case StateAwaitData:
		return "AWAIT_DATA"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// LogRecord is a resolved log frame
type LogRecord struct {
	Module      ModuleID
	ModuleName  string
	Status      StatusCode
	StatusLabel string
	Band        Band
	Tag         string
	Data        []byte
}

func (r LogRecord) String() string {
	s := fmt.Sprintf("[%s] %s", r.ModuleName, r.StatusLabel)
	if r.Tag != "" {
		s += ": " + r.Tag
	}
	if len(r.Data) > 0 {
		s += fmt.Sprintf(" (%d data bytes)", len(r.Data))
	}
	return s
}

// Decoder incrementally assembles log frames one byte at a time.
// The total frame length is discovered as tag_length and data_length arrive.
// There is no start-of-frame marker: the only recovery from lost framing is
// the stall timeout checked by Expire.
type Decoder struct {
	state    State
	buf      []byte
	expected int
	tagLen   int
	dataLen  uint32
	started  time.Time

	timeout    time.Duration
	maxDataLen uint32
	now        func() time.Time
}

// DecoderOption configures a Decoder
type DecoderOption func(*Decoder)

// WithFrameTimeout sets the stall limit measured from a frame's first byte
func WithFrameTimeout(d time.Duration) DecoderOption {
	return func(dec *Decoder) {
		if d > 0 {
			dec.timeout = d
		}
	}
}

// WithMaxDataLen caps the data_length a frame may announce
func WithMaxDataLen(n uint32) DecoderOption {
	return func(dec *Decoder) {
		if n > 0 {
			dec.maxDataLen = n
		}
	}
}

// WithClock replaces time.Now for the first-byte timestamp
func WithClock(now func() time.Time) DecoderOption {
	return func(dec *Decoder) {
		if now != nil {
			dec.now = now
		}
	}
}

// NewDecoder creates an idle decoder
func NewDecoder(opts ...DecoderOption) *Decoder {
	d := &Decoder{
		timeout:    DefaultFrameTimeout,
		maxDataLen: DefaultMaxDataLen,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.Reset()
	return d
}

// Reset discards any partial frame
func (d *Decoder) Reset() {
	d.state = StateAwaitHeader
	d.buf = d.buf[:0]
	d.expected = LogHeaderSize
	d.tagLen = 0
	d.dataLen = 0
	d.started = time.Time{}
}

// State returns the current state
func (d *Decoder) State() State {
	return d.state
}

// Pending returns the number of bytes buffered for the current frame
func (d *Decoder) Pending() int {
	return len(d.buf)
}

// Expected returns the frame length known so far
func (d *Decoder) Expected() int {
	return d.expected
}

// Idle reports whether no frame is in progress
func (d *Decoder) Idle() bool {
	return len(d.buf) == 0
}

// Timeout returns the configured stall limit
func (d *Decoder) Timeout() time.Duration {
	return d.timeout
}

// Expire drops a partial frame that has stalled past the timeout.
// It is a no-op while idle, so repeated calls after a reset do nothing.
func (d *Decoder) Expire(now time.Time) error {
	if d.Idle() {
		return nil
	}
	elapsed := now.Sub(d.started)
	if elapsed <= d.timeout {
		return nil
	}
	err := &FrameTimeoutError{
		Received: len(d.buf),
		Expected: d.expected,
		Elapsed:  elapsed,
	}
	d.Reset()
	return err
}

// Feed advances the decoder by one byte. A record is returned when the byte
// completes a frame; an error is returned when the completed frame must be
// dropped. Either way the decoder is ready for the next frame.
func (d *Decoder) Feed(b byte) (*LogRecord, error) {
	if d.Idle() {
		d.started = d.now()
	}
	d.buf = append(d.buf, b)
	n := len(d.buf)

	switch d.state {
	case StateAwaitHeader:
		if n < LogHeaderSize {
			return nil, nil
		}
		d.tagLen = int(d.buf[LogPositionTagLen])
		d.expected = LogHeaderSize + d.tagLen
		if d.tagLen == 0 {
			d.state = StateAwaitDataLen
		} else {
			d.state = StateAwaitTag
		}

	case StateAwaitTag:
		if n < d.expected {
			return nil, nil
		}
		d.state = StateAwaitDataLen

	case StateAwaitDataLen:
		if n < d.expected+LogDataLenSize {
			return nil, nil
		}
		d.dataLen = binary.LittleEndian.Uint32(d.buf[d.expected:])
		if d.dataLen > d.maxDataLen {
			err := d.malformed(fmt.Errorf("%w: %d bytes (max %d)", ErrDataTooLarge, d.dataLen, d.maxDataLen))
			d.Reset()
			return nil, err
		}
		d.expected += LogDataLenSize + int(d.dataLen)
		if d.dataLen == 0 {
			return d.complete()
		}
		d.state = StateAwaitData

	case StateAwaitData:
		if n < d.expected {
			return nil, nil
		}
		return d.complete()
	}

	return nil, nil
}

// complete resolves the buffered frame and resets for the next one
func (d *Decoder) complete() (*LogRecord, error) {
	defer d.Reset()

	module := ModuleID(d.buf[LogPositionMod])
	status := StatusCode(d.buf[LogPositionStatus])

	m, err := LookupModule(module)
	if err != nil {
		return nil, d.malformed(err)
	}

	dataStart := LogHeaderSize + d.tagLen + LogDataLenSize
	data := make([]byte, d.dataLen)
	copy(data, d.buf[dataStart:])

	return &LogRecord{
		Module:      module,
		ModuleName:  m.Name,
		Status:      status,
		StatusLabel: m.StatusLabel(status),
		Band:        status.Band(),
		Tag:         d.tag(),
		Data:        data,
	}, nil
}

func (d *Decoder) tag() string {
	if len(d.buf) < LogHeaderSize+d.tagLen {
		return ""
	}
	return string(d.buf[LogHeaderSize : LogHeaderSize+d.tagLen])
}

func (d *Decoder) malformed(err error) error {
	return &MalformedFrameError{
		Module: ModuleID(d.buf[LogPositionMod]),
		Status: StatusCode(d.buf[LogPositionStatus]),
		Tag:    d.tag(),
		Err:    err,
	}
}

// EncodeLogFrame builds a firmware log frame. The host never sends these;
// it exists for emulators and tests.
func EncodeLogFrame(module ModuleID, status StatusCode, tag string, data []byte) ([]byte, error) {
	if len(tag) > 0xFF {
		return nil, fmt.Errorf("protocol: tag too long: %d bytes", len(tag))
	}
	buf := make([]byte, 0, LogMinFrameSize+len(tag)+len(data))
	buf = append(buf, byte(module), byte(status), byte(len(tag)))
	buf = append(buf, tag...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(data)))
	buf = append(buf, data...)
	return buf, nil
}
