// Package probe supervises the external tools the console drives: the
// debug-probe bridge and the source-level debugger.
package probe

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"solens/host/console"
)

var (
	ErrAlreadyRunning = errors.New("probe: process already running")
	ErrProbeBusy      = errors.New("probe: debug probe already in use")
	ErrProbeNotFound  = errors.New("probe: debug probe not found")
)

// waitDelay bounds how long Wait lingers on output held open by
// grandchildren after the tool itself exited
const waitDelay = time.Second

// FatalPattern marks tool output that makes the whole session unusable
type FatalPattern struct {
	Match string
	Hint  string
	Err   error
}

// Tool describes how to launch and monitor an external process
type Tool struct {
	Name    string
	Command string
	Args    []string
	Dir     string

	// Prefix is prepended to every reported output line
	Prefix string

	// Quiet discards the tool's output instead of reporting it
	Quiet bool

	Fatal []FatalPattern
}

// Process is a restartable external process whose output is reported to a sink
type Process struct {
	tool    Tool
	sink    console.Sink
	onFatal func(error)

	mu     sync.Mutex
	cmd    *exec.Cmd
	done   chan struct{}
	killed bool
}

// NewProcess creates a stopped process. onFatal is called, at most once per
// run, when the tool prints one of its fatal patterns.
func NewProcess(tool Tool, sink console.Sink, onFatal func(error)) *Process {
	return &Process{
		tool:    tool,
		sink:    sink,
		onFatal: onFatal,
	}
}

// Name returns the tool name
func (p *Process) Name() string {
	return p.tool.Name
}

// Start launches the tool
func (p *Process) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.runningLocked() {
		return fmt.Errorf("%w: %s", ErrAlreadyRunning, p.tool.Name)
	}

	cmd := exec.Command(p.tool.Command, p.tool.Args...)
	cmd.Dir = p.tool.Dir
	cmd.WaitDelay = waitDelay

	var out *io.PipeReader
	var in *io.PipeWriter
	if !p.tool.Quiet {
		out, in = io.Pipe()
		cmd.Stdout = in
		cmd.Stderr = in
	}

	if err := cmd.Start(); err != nil {
		if in != nil {
			in.Close()
		}
		return fmt.Errorf("failed to start %s: %w", p.tool.Name, err)
	}

	done := make(chan struct{})
	p.cmd = cmd
	p.done = done
	p.killed = false

	p.sink.Info(fmt.Sprintf("Starting %s process with pid %d.", p.tool.Name, cmd.Process.Pid))

	monitored := make(chan struct{})
	if out != nil {
		go func() {
			defer close(monitored)
			p.monitor(out)
		}()
	} else {
		close(monitored)
	}
	go p.wait(cmd, in, monitored, done)

	return nil
}

func (p *Process) wait(cmd *exec.Cmd, in *io.PipeWriter, monitored <-chan struct{}, done chan struct{}) {
	err := cmd.Wait()
	if in != nil {
		in.Close()
	}
	<-monitored

	p.mu.Lock()
	killed := p.killed && p.cmd == cmd
	p.mu.Unlock()

	log.Debugf("%s exited: %v", p.tool.Name, err)
	if !killed {
		if err != nil {
			p.sink.Warn(fmt.Sprintf("%s exited: %v", p.tool.Name, err))
		} else {
			p.sink.Info(fmt.Sprintf("%s exited.", p.tool.Name))
		}
	}

	close(done)
}

// monitor reports every output line and watches for fatal patterns
func (p *Process) monitor(r io.Reader) {
	fired := false
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		text := strings.TrimRight(scanner.Text(), "\r")
		if text == "" {
			continue
		}
		line := p.tool.Prefix + text

		switch {
		case strings.Contains(line, "ERROR"):
			p.sink.Error(line)
		case strings.Contains(line, "WARN"):
			p.sink.Warn(line)
		default:
			p.sink.Info(line)
		}

		if fired {
			continue
		}
		for _, fp := range p.tool.Fatal {
			if !strings.Contains(text, fp.Match) {
				continue
			}
			fired = true
			p.sink.Error(fp.Hint)
			if p.onFatal != nil {
				p.onFatal(fp.Err)
			}
			break
		}
	}
}

// Kill stops the process and waits for it to exit. Killing a stopped
// process is a no-op.
func (p *Process) Kill() error {
	p.mu.Lock()
	if !p.runningLocked() {
		p.mu.Unlock()
		return nil
	}
	p.killed = true
	cmd, done := p.cmd, p.done
	p.mu.Unlock()

	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("failed to kill %s: %w", p.tool.Name, err)
	}
	<-done
	return nil
}

// Restart kills the process if it is running and starts it again
func (p *Process) Restart() error {
	if err := p.Kill(); err != nil {
		return err
	}
	return p.Start()
}

// Running reports whether the process has been started and not exited
func (p *Process) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.runningLocked()
}

// Pid returns the pid of the current run, or 0
func (p *Process) Pid() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.runningLocked() {
		return 0
	}
	return p.cmd.Process.Pid
}

// Done is closed when the current run exits; nil if never started
func (p *Process) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

func (p *Process) runningLocked() bool {
	if p.cmd == nil || p.done == nil {
		return false
	}
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}
