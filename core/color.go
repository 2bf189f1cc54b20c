package core

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/josephlewis42/cshell/core/config"
	"github.com/josephlewis42/cshell/core/vos"
)

func alwaysColor(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	c.EnableColor()
	return c
}

var (
	ColorBoldBlue  = alwaysColor(color.FgBlue, color.Bold)
	ColorBoldGreen = alwaysColor(color.FgGreen, color.Bold)
	ColorBoldRed   = alwaysColor(color.FgRed, color.Bold)
)

// ColorPrinter colors text depending on the configured mode and whether
// output goes to a terminal.
type ColorPrinter struct {
	mode   string
	stdout interface{}
}

// NewColorPrinter creates a printer for the given mode (always|auto|never).
// In auto mode colors are used when the stream is a terminal.
func NewColorPrinter(mode string, virtOS vos.VIO) *ColorPrinter {
	return &ColorPrinter{mode: mode, stdout: virtOS.Stdout()}
}

func (c *ColorPrinter) ShouldColor() bool {
	switch c.mode {
	case config.ColorNever:
		return false
	case config.ColorAlways:
		return true
	default:
		return vos.IsTerminal(c.stdout)
	}
}

func (c *ColorPrinter) Sprintf(color *color.Color, format string, a ...interface{}) string {
	if c.ShouldColor() {
		return color.Sprintf(format, a...)
	}
	return fmt.Sprintf(format, a...)
}
