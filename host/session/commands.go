package session

import (
	"errors"
	"fmt"
	"math/bits"
	"strconv"
	"strings"

	"solens/host/probe"
	"solens/host/serial"
	"solens/host/shell"
	"solens/protocol"
)

func (s *Session) registerCommands() {
	commands := []shell.Command{
		{Name: "help", Help: "display the help text", Handler: s.cmdHelp},
		{Name: "stlink restart", Aliases: []string{"stlink-restart"}, Help: "restart the STLINK connection", Handler: s.cmdStlinkRestart},
		{Name: "debug start", Aliases: []string{"debug-start"}, Help: "start a debug session", Handler: s.cmdDebugStart},
		{Name: "debug stop", Aliases: []string{"debug-stop"}, Help: "stop the debug session", Handler: s.cmdDebugStop},
		{Name: "debug restart", Aliases: []string{"debug-restart"}, Help: "restart the debug session", Handler: s.cmdDebugRestart},
		{Name: "log init", Help: "initialise the firmware log module", Handler: s.initCommand(protocol.ModuleLog)},
		{Name: "cmd init", Help: "initialise the firmware command module", Handler: s.initCommand(protocol.ModuleCmd)},
		{Name: "send", Usage: "<module> <function> [value [width]]", Help: "send a command to a firmware module", Handler: s.cmdSend},
		{Name: "modules", Help: "list firmware modules and their functions", Handler: s.cmdModules},
		{Name: "ports", Help: "list serial ports", Handler: s.cmdPorts},
		{Name: "quit", Aliases: []string{"exit"}, Help: "leave the console", Handler: s.cmdQuit},
	}
	for _, c := range commands {
		s.shell.Register(c)
	}
}

func (s *Session) cmdHelp([]string) error {
	s.sink.Info(s.shell.Help())
	return nil
}

func (s *Session) cmdStlinkRestart([]string) error {
	return s.probe.Restart()
}

func (s *Session) cmdDebugStart([]string) error {
	if s.debugger != nil && s.debugger.Running() {
		return fmt.Errorf("%w: %s", probe.ErrAlreadyRunning, s.debugger.Name())
	}

	elf, err := probe.FindFirmware(s.cfg.Debugger.BinDir)
	if err != nil {
		s.log.Debugf("Firmware lookup: %v", err)
		s.sink.Warn("Could not find a valid .elf file.\nTry rebuilding the binaries.")
		s.sink.Warn("Cancelling debug request.")
		return nil
	}

	d := s.cfg.Debugger
	s.debugger = probe.NewProcess(probe.DebuggerTool(d.Terminal, d.Command, elf, d.GDBInit), s.sink, nil)
	if err := s.debugger.Start(); err != nil {
		return err
	}
	s.sink.Info(fmt.Sprintf("Starting %s process using %s file.", d.Command, elf))
	return nil
}

func (s *Session) cmdDebugStop([]string) error {
	if s.debugger == nil || !s.debugger.Running() {
		s.sink.Warn("No debug session is running.")
		return nil
	}
	return s.debugger.Kill()
}

func (s *Session) cmdDebugRestart(args []string) error {
	if s.debugger != nil {
		if err := s.debugger.Kill(); err != nil {
			return err
		}
	}
	return s.cmdDebugStart(args)
}

// initCommand sends the zero-length init call to a module
func (s *Session) initCommand(module protocol.ModuleID) shell.Handler {
	return func([]string) error {
		m, err := protocol.LookupModule(module)
		if err != nil {
			return err
		}
		fn, err := m.Function("init")
		if err != nil {
			return err
		}
		frame, err := protocol.NewCommand(module, fn, nil)
		if err != nil {
			return err
		}
		return s.send(frame)
	}
}

func (s *Session) cmdSend(args []string) error {
	if len(args) < 2 || len(args) > 4 {
		return fmt.Errorf("%w: send <module> <function> [value [width]]", shell.ErrUsage)
	}

	payload, err := parsePayload(args[2:])
	if err != nil {
		return err
	}

	frame, err := protocol.NewNamedCommand(args[0], args[1], payload)
	if err != nil {
		return err
	}
	return s.send(frame)
}

func (s *Session) send(frame protocol.CommandFrame) error {
	if err := s.transport.Send(frame); err != nil {
		return err
	}
	s.log.Debugf("Sent %s", frame)
	s.sink.Info(fmt.Sprintf("Sent %s.", frame))
	return nil
}

// parsePayload turns the optional value and width words into a little-endian
// argument. Without a width the value takes as few bytes as it needs.
func parsePayload(words []string) ([]byte, error) {
	if len(words) == 0 {
		return nil, nil
	}

	value, err := strconv.ParseUint(words[0], 0, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad value %q", shell.ErrUsage, words[0])
	}

	width := (bits.Len64(value) + 7) / 8
	if width == 0 {
		width = 1
	}
	if len(words) > 1 {
		width, err = strconv.Atoi(words[1])
		if err != nil {
			return nil, fmt.Errorf("%w: bad width %q", shell.ErrUsage, words[1])
		}
	}

	return protocol.PayloadFromUint(value, width)
}

func (s *Session) cmdModules([]string) error {
	var b strings.Builder
	b.WriteString("Firmware modules:")
	for _, m := range protocol.Modules() {
		fmt.Fprintf(&b, "\n\t%d %s: %s", m.ID, m.Name, strings.Join(m.Functions(), ", "))
	}
	s.sink.Info(b.String())
	return nil
}

func (s *Session) cmdPorts([]string) error {
	ports, err := serial.ListPorts()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		s.sink.Warn("Could not find any serial ports.")
		return nil
	}
	s.sink.Info("Serial ports:\n\t" + strings.Join(ports, "\n\t"))
	return nil
}

func (s *Session) cmdQuit([]string) error {
	if s.cancel == nil {
		return errors.New("session: not running")
	}
	s.cancel(ErrQuit)
	return nil
}
