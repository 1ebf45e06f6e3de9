package protocol

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/basilfx/go-utilities/taskrunner"
	log "github.com/sirupsen/logrus"
)

// RxChannelSize is the number of read chunks buffered between the reader
// task and the consumer
const RxChannelSize = 64

// readChunkSize is the maximum size of one port read
const readChunkSize = 256

// HostTransport carries the protocol over a byte stream from the host side.
// A background task reads the stream into an ordered channel; Send writes a
// command while holding the transmit guard, which the reader also takes
// around every read, so the two directions never overlap.
//
// The stream must return from Read periodically (a serial port with a read
// timeout) or the reader would hold the guard indefinitely.
type HostTransport struct {
	// Serial I/O
	port io.ReadWriteCloser

	pacing Pacing
	sleep  func(time.Duration)

	// Ordered inbound chunks and the first fatal read error
	rx   chan []byte
	errs chan error

	// Held for a whole command transmission and for each read
	txMutex sync.Mutex

	taskRunner *taskrunner.TaskRunner
	closeOnce  sync.Once
}

// TransportOption configures a HostTransport
type TransportOption func(*HostTransport)

// WithPacing sets the settling delays used by Send
func WithPacing(p Pacing) TransportOption {
	return func(t *HostTransport) {
		t.pacing = p
	}
}

// WithSleep replaces time.Sleep for the settling delays
func WithSleep(sleep func(time.Duration)) TransportOption {
	return func(t *HostTransport) {
		if sleep != nil {
			t.sleep = sleep
		}
	}
}

// NewHostTransport creates a host-side transport and starts its reader
func NewHostTransport(port io.ReadWriteCloser, opts ...TransportOption) *HostTransport {
	t := &HostTransport{
		port:       port,
		pacing:     DefaultPacing(),
		sleep:      time.Sleep,
		rx:         make(chan []byte, RxChannelSize),
		errs:       make(chan error, 1),
		taskRunner: taskrunner.New(),
	}
	for _, opt := range opts {
		opt(t)
	}

	t.taskRunner.RunWithCancel("HostTransport.Reader", t.readerTask)

	return t
}

// Bytes returns inbound data in arrival order
func (t *HostTransport) Bytes() <-chan []byte {
	return t.rx
}

// Errors delivers at most one fatal read error
func (t *HostTransport) Errors() <-chan error {
	return t.errs
}

// Send writes a validated command frame, pausing between fields and after
// the frame. Reads are suspended for the whole transmission.
func (t *HostTransport) Send(frame CommandFrame) error {
	if len(frame.Payload) > MaxPayload {
		return ErrPayloadTooLarge
	}

	t.txMutex.Lock()
	defer t.txMutex.Unlock()

	fields := frame.Fields()
	for i, field := range fields {
		if err := t.writeAll(field); err != nil {
			return fmt.Errorf("failed to write %s: %w", frame, err)
		}
		if i < len(fields)-1 && t.pacing.FieldDelay > 0 {
			t.sleep(t.pacing.FieldDelay)
		}
	}
	if t.pacing.FrameDelay > 0 {
		t.sleep(t.pacing.FrameDelay)
	}

	log.Debugf("Transport outgoing: %s", frame)

	return nil
}

func (t *HostTransport) writeAll(b []byte) error {
	n, err := t.port.Write(b)
	if err != nil {
		return err
	}
	if n != len(b) {
		return fmt.Errorf("incomplete write: %d/%d bytes", n, len(b))
	}
	return nil
}

func (t *HostTransport) readerTask(ctx context.Context) {
	buffer := make([]byte, readChunkSize)

	for {
		select {
		case <-ctx.Done():
			log.Debugf("Reader task stopped.")
			return
		default:
		}

		t.txMutex.Lock()
		n, err := t.port.Read(buffer)
		t.txMutex.Unlock()

		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buffer[:n])

			select {
			case t.rx <- chunk:
			case <-ctx.Done():
				return
			}
		}

		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			log.Errorf("Error while reading: %v", err)
			t.errs <- fmt.Errorf("transport read: %w", err)
			return
		}
	}
}

// Close stops the reader and closes the port
func (t *HostTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		t.taskRunner.Cancel()
		if t.port != nil {
			err = t.port.Close()
		}
		t.taskRunner.Wait()
	})
	return err
}
