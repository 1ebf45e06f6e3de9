package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	log "github.com/sirupsen/logrus"

	"solens/host/config"
	"solens/host/console"
	"solens/host/logging"
	"solens/host/serial"
	"solens/host/session"
	"solens/protocol"
)

var (
	configPath = flag.String("config", "", "Configuration file (.toml, .yaml)")
	device     = flag.String("device", "", "Serial device path (prompted when empty)")
	baud       = flag.Int("baud", serial.DefaultBaud, "Baud rate")
	listOnly   = flag.Bool("list", false, "List serial ports and exit")
	noProbe    = flag.Bool("no-probe", false, "Do not start the st-util probe bridge")
	verbose    = flag.Bool("verbose", false, "Enable verbose output")
)

// operator is the part of the console used before the session starts
type operator interface {
	console.Sink
	Prompt(msg string)
}

func main() {
	flag.Parse()
	logging.ConfigureRuntime(*verbose)

	out := console.NewStdout()
	out.Banner(banner...)

	cfg, err := loadConfig()
	if err != nil {
		out.Error(err.Error())
		os.Exit(2)
	}

	if *listOnly {
		if err := printPorts(out); err != nil {
			out.Error(err.Error())
			os.Exit(1)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lines := readLines(os.Stdin)

	if cfg.Serial.Device == "" {
		ports, err := serial.ListPorts()
		if err != nil {
			out.Error(err.Error())
			os.Exit(1)
		}
		cfg.Serial.Device, err = selectPort(ctx, out, ports, lines)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				out.Error(err.Error())
			}
			os.Exit(1)
		}
	}

	port, err := serial.Open(cfg.SerialPortConfig())
	if err != nil {
		out.Error(fmt.Sprintf("Could not open %s: %v", cfg.Serial.Device, err))
		os.Exit(1)
	}
	out.Info(fmt.Sprintf("Serial port %s opened at %d Baud.", cfg.Serial.Device, cfg.Serial.Baud))

	transport := protocol.NewHostTransport(port, protocol.WithPacing(cfg.Pacing()))
	s := session.New(cfg, transport, out)
	log.Debugf("Session %s on %s (protocol %s)", s.ID(), cfg.Serial.Device, protocol.Version)

	err = s.Run(ctx, lines)
	switch {
	case err == nil, errors.Is(err, context.Canceled):
	default:
		out.Error(err.Error())
		os.Exit(1)
	}
}

// loadConfig applies the configuration file, then the flags
func loadConfig() (config.Config, error) {
	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "device":
			cfg.Serial.Device = *device
		case "baud":
			cfg.Serial.Baud = *baud
		case "no-probe":
			cfg.Probe.Enabled = !*noProbe
		}
	})

	return cfg, config.Validate(cfg)
}

func printPorts(out console.Sink) error {
	ports, err := serial.ListPorts()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		out.Warn("Could not find any serial ports.")
		return nil
	}
	for i, p := range ports {
		out.Info(fmt.Sprintf("%d: %s", i, p))
	}
	return nil
}

// readLines forwards trimmed input lines until r ends
func readLines(r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			lines <- strings.TrimSpace(scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			log.Warnf("Error reading input: %v", err)
		}
	}()
	return lines
}

// selectPort asks the operator to pick one of ports by index, asking again
// until the answer is valid
func selectPort(ctx context.Context, out operator, ports []string, lines <-chan string) (string, error) {
	if len(ports) == 0 {
		return "", errors.New("no serial ports found, check your permissions and try again")
	}

	out.Prompt("Please select a COM port.")
	for i, p := range ports {
		out.Prompt(fmt.Sprintf("%d: %s", i, p))
	}

	for {
		select {
		case <-ctx.Done():
			return "", context.Cause(ctx)
		case line, ok := <-lines:
			if !ok {
				return "", io.ErrUnexpectedEOF
			}
			i, err := strconv.Atoi(strings.TrimSpace(line))
			if err != nil || i < 0 || i >= len(ports) {
				out.Warn("Not a valid input. Try again.")
				continue
			}
			return ports[i], nil
		}
	}
}
