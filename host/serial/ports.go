package serial

import (
	"fmt"
	"sort"
	"strings"

	bugst "go.bug.st/serial"
)

// listPorts is replaced in tests
var listPorts = bugst.GetPortsList

// ListPorts returns the serial devices present on this host, sorted
func ListPorts() ([]string, error) {
	ports, err := listPorts()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}

	out := make([]string, 0, len(ports))
	seen := make(map[string]bool, len(ports))
	for _, p := range ports {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}
