// Package shell maps operator input lines to registered commands.
package shell

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/shlex"
)

var (
	ErrUnknownCommand = errors.New("shell: unknown command")
	ErrInvalidInput   = errors.New("shell: invalid input")
	ErrUsage          = errors.New("shell: bad arguments")
)

// Handler runs a command with the words that follow its name
type Handler func(args []string) error

// Command is one operator command. Names may span several words.
type Command struct {
	Name    string
	Usage   string
	Help    string
	Aliases []string
	Handler Handler
}

// Dispatcher resolves lines to commands, case-insensitively
type Dispatcher struct {
	commands []*Command
	byName   map[string]*Command
	maxWords int
}

// NewDispatcher creates an empty dispatcher
func NewDispatcher() *Dispatcher {
	return &Dispatcher{byName: make(map[string]*Command)}
}

// Register adds a command. Registering a name twice replaces the handler.
func (d *Dispatcher) Register(cmd Command) {
	c := &cmd
	c.Name = normalize(c.Name)

	if existing, ok := d.byName[c.Name]; ok {
		*existing = *c
		c = existing
	} else {
		d.commands = append(d.commands, c)
	}

	for _, name := range append([]string{c.Name}, c.Aliases...) {
		name = normalize(name)
		d.byName[name] = c
		if n := len(strings.Fields(name)); n > d.maxWords {
			d.maxWords = n
		}
	}
}

// Dispatch runs the command named by line. Empty lines do nothing.
func (d *Dispatcher) Dispatch(line string) error {
	words, err := shlex.Split(strings.ToLower(line))
	if err != nil {
		return fmt.Errorf("%w (%v)", ErrInvalidInput, err)
	}
	if len(words) == 0 {
		return nil
	}

	n := d.maxWords
	if n > len(words) {
		n = len(words)
	}
	for ; n > 0; n-- {
		cmd, ok := d.byName[strings.Join(words[:n], " ")]
		if !ok {
			continue
		}
		return cmd.Handler(words[n:])
	}

	return fmt.Errorf("%w: %q", ErrUnknownCommand, strings.Join(words, " "))
}

// Help renders the command list
func (d *Dispatcher) Help() string {
	cmds := make([]*Command, len(d.commands))
	copy(cmds, d.commands)
	sort.SliceStable(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })

	width := 0
	for _, c := range cmds {
		if w := len(usage(c)); w > width {
			width = w
		}
	}

	var b strings.Builder
	b.WriteString("The following commands are available:")
	for _, c := range cmds {
		fmt.Fprintf(&b, "\n\t%-*s  %s", width, usage(c), c.Help)
	}
	return b.String()
}

func usage(c *Command) string {
	if c.Usage == "" {
		return c.Name
	}
	return c.Name + " " + c.Usage
}

func normalize(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}
