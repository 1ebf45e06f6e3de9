package serial

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/acomagu/bufpipe"
)

// ErrPortClosed is returned by a closed MockPort
var ErrPortClosed = errors.New("serial: port closed")

// mockReadTimeout emulates the driver's read timeout
const mockReadTimeout = 2 * time.Millisecond

// MockPort is an in-memory Port. Bytes injected with Inject are returned by
// Read; bytes written by the host can be read back from Device().
// Read returns (0, nil) after a short timeout like a native port.
type MockPort struct {
	rx      chan []byte
	pending []byte

	devR *bufpipe.PipeReader
	devW *bufpipe.PipeWriter

	mu      sync.Mutex
	events  []string
	readErr error

	closed    chan struct{}
	closeOnce sync.Once
}

// NewMockPort creates an open mock port
func NewMockPort() *MockPort {
	r, w := bufpipe.New(nil)
	return &MockPort{
		rx:     make(chan []byte, 64),
		devR:   r,
		devW:   w,
		closed: make(chan struct{}),
	}
}

// Inject queues bytes as if the target had sent them
func (p *MockPort) Inject(b []byte) {
	chunk := make([]byte, len(b))
	copy(chunk, b)
	p.rx <- chunk
}

// Device returns the stream of bytes written by the host
func (p *MockPort) Device() io.Reader {
	return p.devR
}

// FailReads makes the next Read return err
func (p *MockPort) FailReads(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readErr = err
}

// Events returns the ordered history of port operations: "R" for each
// read that returned data, "W" for each write
func (p *MockPort) Events() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	copy(out, p.events)
	return out
}

func (p *MockPort) record(ev string) {
	p.mu.Lock()
	p.events = append(p.events, ev)
	p.mu.Unlock()
}

// Read implements io.Reader. Only one goroutine may read.
func (p *MockPort) Read(b []byte) (int, error) {
	p.mu.Lock()
	err := p.readErr
	p.readErr = nil
	p.mu.Unlock()
	if err != nil {
		return 0, err
	}

	if len(p.pending) == 0 {
		select {
		case chunk := <-p.rx:
			p.pending = chunk
		case <-p.closed:
			return 0, ErrPortClosed
		case <-time.After(mockReadTimeout):
			return 0, nil
		}
	}

	n := copy(b, p.pending)
	p.pending = p.pending[n:]
	p.record("R")
	return n, nil
}

// Write implements io.Writer
func (p *MockPort) Write(b []byte) (int, error) {
	select {
	case <-p.closed:
		return 0, ErrPortClosed
	default:
	}
	p.record("W")
	return p.devW.Write(b)
}

// Close closes both directions
func (p *MockPort) Close() error {
	p.closeOnce.Do(func() {
		close(p.closed)
		p.devW.Close()
	})
	return nil
}

// Flush implements Port
func (p *MockPort) Flush() error {
	return nil
}
