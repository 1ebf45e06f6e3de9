package console

import (
	"github.com/sirupsen/logrus"
)

const styleKey = "style"

const (
	stylePrompt = "prompt"
	styleBanner = "banner"
)

// ANSI bright colors
const (
	colorRed     = "\x1b[31;1m"
	colorGreen   = "\x1b[32;1m"
	colorYellow  = "\x1b[33;1m"
	colorBlue    = "\x1b[34;1m"
	colorMagenta = "\x1b[35;1m"
	colorReset   = "\x1b[0m"
)

// lineFormatter writes the bare message, colored by level or style
type lineFormatter struct {
	color bool
}

func (f *lineFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	buf := make([]byte, 0, len(entry.Message)+16)
	if !f.color {
		buf = append(buf, entry.Message...)
		return append(buf, '\n'), nil
	}

	buf = append(buf, colorFor(entry)...)
	buf = append(buf, entry.Message...)
	buf = append(buf, colorReset...)
	return append(buf, '\n'), nil
}

func colorFor(entry *logrus.Entry) string {
	switch entry.Data[styleKey] {
	case stylePrompt:
		return colorGreen
	case styleBanner:
		return colorYellow
	}

	switch entry.Level {
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		return colorRed
	case logrus.WarnLevel:
		return colorMagenta
	default:
		return colorBlue
	}
}
