package console

import (
	"io"
	"os"

	"github.com/smartsocks/sensorhub/pkg/output"
	"github.com/smartsocks/sensorhub/pkg/sensor"
)

// ConsoleOutput writes CSV report lines to a writer, stdout by default.
// Useful on the bench when no serial link is wired up.
type ConsoleOutput struct {
	w io.Writer
}

func NewConsole() output.Output { return &ConsoleOutput{w: os.Stdout} }

// NewConsoleWriter is NewConsole with an explicit destination, for tests.
func NewConsoleWriter(w io.Writer) output.Output { return &ConsoleOutput{w: w} }

func (c *ConsoleOutput) Name() string { return "console" }

func (c *ConsoleOutput) Publish(rep sensor.Report) error {
	_, err := c.w.Write(output.FormatCSV(rep))
	return err
}

func (c *ConsoleOutput) Close() error { return nil }
