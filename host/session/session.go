// Package session ties the protocol, the serial transport, the external
// tools and the operator shell together into the console's main loop.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/twinj/uuid"

	"solens/host/config"
	"solens/host/console"
	"solens/host/probe"
	"solens/host/shell"
	"solens/protocol"
)

// ErrQuit ends Run without an error
var ErrQuit = errors.New("session: quit requested")

// maxDataDump is the largest record payload rendered inline
const maxDataDump = 32

// Transport is the byte link to the target
type Transport interface {
	Bytes() <-chan []byte
	Errors() <-chan error
	Send(frame protocol.CommandFrame) error
	Close() error
}

// Session is the state of one console run. Everything except the probe
// monitors is driven from the goroutine calling Run.
type Session struct {
	id  string
	cfg config.Config
	log *log.Entry

	transport Transport
	decoder   *protocol.Decoder
	sink      console.Sink
	shell     *shell.Dispatcher

	probe    *probe.Process
	debugger *probe.Process

	// Receives the first fatal tool error; read by Run
	fatal chan error

	cancel context.CancelCauseFunc
	now    func() time.Time
}

// Option configures a Session
type Option func(*Session)

// WithClock replaces time.Now for frame timeouts
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a session on an open transport. The session owns the
// transport from now on and closes it when Run returns.
func New(cfg config.Config, transport Transport, sink console.Sink, opts ...Option) *Session {
	s := &Session{
		id:        uuid.NewV4().String(),
		cfg:       cfg,
		transport: transport,
		sink:      sink,
		fatal:     make(chan error, 1),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.log = log.WithField("session", s.id)
	s.decoder = protocol.NewDecoder(
		protocol.WithFrameTimeout(cfg.Protocol.FrameTimeout),
		protocol.WithMaxDataLen(cfg.Protocol.MaxDataLen),
		protocol.WithClock(s.now),
	)
	s.probe = probe.NewProcess(probe.ProbeTool(cfg.Probe.Command, cfg.Probe.Args), sink, s.raiseFatal)
	s.shell = shell.NewDispatcher()
	s.registerCommands()

	return s
}

// ID returns the session identifier attached to diagnostics
func (s *Session) ID() string {
	return s.id
}

// Help returns the operator command listing
func (s *Session) Help() string {
	return s.shell.Help()
}

// raiseFatal is called from probe monitors; it never blocks
func (s *Session) raiseFatal(err error) {
	select {
	case s.fatal <- err:
	default:
	}
}

// Run is the main loop. It returns nil when the operator quits or lines is
// closed, the cancellation cause when ctx ends or a tool fails fatally, and
// the transport error when the link breaks. External tools are stopped and
// the transport closed before returning.
func (s *Session) Run(ctx context.Context, lines <-chan string) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	s.cancel = cancel
	defer s.shutdown()

	s.log.Debugf("Session started.")

	if s.cfg.Probe.Enabled {
		s.sink.Info("Creating STLINK-V2 connection.")
		if err := s.probe.Start(); err != nil {
			s.sink.Error(err.Error())
		}
	}

	s.sink.Info("Ready for commands. Type 'help' to view a list of commands.")

	ticker := time.NewTicker(s.cfg.Protocol.IdleTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return s.exitCause(ctx)

		case err := <-s.fatal:
			cancel(err)

		case chunk := <-s.transport.Bytes():
			s.expire()
			for _, b := range chunk {
				s.feed(b)
			}

		case err := <-s.transport.Errors():
			s.sink.Error(fmt.Sprintf("Serial link failed: %v", err))
			return err

		case line, ok := <-lines:
			if !ok {
				return nil
			}
			s.handleLine(line)

		case <-ticker.C:
			s.expire()
		}
	}
}

func (s *Session) exitCause(ctx context.Context) error {
	err := context.Cause(ctx)
	if errors.Is(err, ErrQuit) {
		return nil
	}
	return err
}

// expire resynchronizes the decoder when a partial frame has stalled
func (s *Session) expire() {
	err := s.decoder.Expire(s.now())
	if err != nil {
		s.log.Debugf("Frame expired: %v", err)
		s.sink.Warn(fmt.Sprintf("Dropped incomplete frame: %v", err))
	}
}

func (s *Session) feed(b byte) {
	record, err := s.decoder.Feed(b)
	if err != nil {
		s.log.Debugf("Malformed frame: %v", err)
		s.sink.Error(err.Error())
		return
	}
	if record != nil {
		s.report(record)
	}
}

// report sends a record to the sink at the severity of its band
func (s *Session) report(r *protocol.LogRecord) {
	msg := r.String()
	if len(r.Data) > 0 && len(r.Data) <= maxDataDump {
		msg += fmt.Sprintf(": % x", r.Data)
	}

	switch r.Band {
	case protocol.BandInfo:
		s.sink.Info(msg)
	case protocol.BandWarn:
		s.sink.Warn(msg)
	default:
		s.sink.Error(msg)
	}
}

func (s *Session) handleLine(line string) {
	err := s.shell.Dispatch(line)
	switch {
	case err == nil:
	case errors.Is(err, shell.ErrUnknownCommand):
		s.sink.Warn("Invalid command. Type 'help' to view a list of commands")
	case errors.Is(err, shell.ErrInvalidInput), errors.Is(err, shell.ErrUsage):
		s.sink.Warn(err.Error())
	default:
		s.sink.Error(err.Error())
	}
}

// shutdown stops the external tools and closes the link, best effort
func (s *Session) shutdown() {
	for _, p := range []*probe.Process{s.debugger, s.probe} {
		if p == nil {
			continue
		}
		if err := p.Kill(); err != nil {
			s.log.Warnf("Could not stop %s: %v", p.Name(), err)
		}
	}
	if err := s.transport.Close(); err != nil {
		s.log.Debugf("Transport close: %v", err)
	}
	s.log.Debugf("Session stopped.")
}
