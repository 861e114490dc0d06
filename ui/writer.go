package ui

import (
	"fmt"
	"io"

	"github.com/acmurray/weatherstation"
)

// commandWriter turns UI interactions into firmware console commands.
type commandWriter struct {
	writer io.Writer
}

func (c *commandWriter) SetPeriod(seconds float64) {
	fmt.Fprintf(c.writer, "%c%02.0f\n", weatherstation.CmdSetPeriod, seconds)
}

func (c *commandWriter) Stream(on bool) {
	flag := '0'
	if on {
		flag = '1'
	}
	fmt.Fprintf(c.writer, "%c%c\n", weatherstation.CmdStream, flag)
}

func (c *commandWriter) ReadNow() {
	fmt.Fprintf(c.writer, "%c\n", weatherstation.CmdReadNow)
}
