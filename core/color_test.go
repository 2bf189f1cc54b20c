package core

import (
	"testing"

	"github.com/josephlewis42/cshell/core/config"
	"github.com/josephlewis42/cshell/core/vos/vostest"
	"github.com/stretchr/testify/assert"
)

func TestColorPrinter(t *testing.T) {
	virtOS := vostest.New("/", nil, "")

	cases := map[string]struct {
		mode      string
		wantColor bool
	}{
		"always":          {mode: config.ColorAlways, wantColor: true},
		"never":           {mode: config.ColorNever, wantColor: false},
		"auto not a tty":  {mode: config.ColorAuto, wantColor: false},
		"unknown is auto": {mode: "", wantColor: false},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			printer := NewColorPrinter(tc.mode, virtOS)

			assert.Equal(t, tc.wantColor, printer.ShouldColor())
			out := printer.Sprintf(ColorBoldRed, "%s!", "hello")
			if tc.wantColor {
				assert.Contains(t, out, "\x1b[")
				assert.Contains(t, out, "hello!")
			} else {
				assert.Equal(t, "hello!", out)
			}
		})
	}
}
