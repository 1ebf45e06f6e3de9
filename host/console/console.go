// Package console renders operator-facing status, warning and error lines.
package console

import (
	"io"
	"os"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

// Sink receives formatted operator messages
type Sink interface {
	Info(msg string)
	Warn(msg string)
	Error(msg string)
}

// Console is a colored Sink backed by a dedicated logrus logger
type Console struct {
	logger *logrus.Logger
}

// New creates a console writing to out
func New(out io.Writer, color bool) *Console {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(logrus.InfoLevel)
	logger.SetFormatter(&lineFormatter{color: color})
	return &Console{logger: logger}
}

// NewStdout creates a console on stdout, colored when stdout is a terminal
func NewStdout() *Console {
	fd := os.Stdout.Fd()
	color := isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	return New(colorable.NewColorableStdout(), color)
}

// Info prints a status line
func (c *Console) Info(msg string) {
	c.logger.Info(msg)
}

// Warn prints a warning line
func (c *Console) Warn(msg string) {
	c.logger.Warn(msg)
}

// Error prints an error line
func (c *Console) Error(msg string) {
	c.logger.Error(msg)
}

// Prompt prints a line asking the operator for input
func (c *Console) Prompt(msg string) {
	c.logger.WithField(styleKey, stylePrompt).Info(msg)
}

// Banner prints the welcome banner
func (c *Console) Banner(lines ...string) {
	for _, line := range lines {
		c.logger.WithField(styleKey, styleBanner).Info(line)
	}
}
