package probe

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNoFirmware is returned when the build directory holds no .elf image
var ErrNoFirmware = errors.New("probe: no .elf firmware image found")

// ProbePrefix tags every line the probe bridge prints
const ProbePrefix = "STLINK-V2: "

// ProbeTool describes the st-util probe bridge
func ProbeTool(command string, args []string) Tool {
	return Tool{
		Name:    "st-util",
		Command: command,
		Args:    args,
		Prefix:  ProbePrefix,
		Fatal: []FatalPattern{
			{
				Match: "Address already in use",
				Hint:  "Could not open STLINK-V2 connection. There seems to be an existing instance of st-util. Try killing the process.",
				Err:   ErrProbeBusy,
			},
			{
				Match: "Couldn't find any ST-Link",
				Hint:  "Could not open STLINK-V2 connection. Is the board plugged in?",
				Err:   ErrProbeNotFound,
			},
		},
	}
}

// DebuggerTool describes gdb running inside its own terminal window.
// An empty terminal runs gdb directly.
func DebuggerTool(terminal []string, command, elf, gdbinit string) Tool {
	args := []string{elf}
	if gdbinit != "" {
		args = append(args, "-x", gdbinit)
	}

	tool := Tool{
		Name:    filepath.Base(command),
		Command: command,
		Args:    args,
		Quiet:   true,
	}
	if len(terminal) > 0 {
		tool.Command = terminal[0]
		tool.Args = append(append(append([]string{}, terminal[1:]...), command), args...)
	}
	return tool
}

// FindFirmware returns the first .elf image in binDir, by name
func FindFirmware(binDir string) (string, error) {
	entries, err := os.ReadDir(binDir)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoFirmware, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(e.Name()), ".elf") {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return "", fmt.Errorf("%w in %s", ErrNoFirmware, binDir)
	}

	sort.Strings(names)
	return filepath.Join(binDir, names[0]), nil
}
