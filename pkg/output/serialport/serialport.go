package serialport

import (
	"fmt"

	"github.com/smartsocks/sensorhub/pkg/config"
	"github.com/smartsocks/sensorhub/pkg/output"
	"github.com/smartsocks/sensorhub/pkg/sensor"
	"go.bug.st/serial"
)

// DefaultBaudRate leaves ample headroom for the CSV stream: a 6-channel line
// is at most ~40 bytes, 50 lines/s is 2000 bytes/s against ~11520 bytes/s.
const DefaultBaudRate = 115200

// SerialOutput streams one CSV line per report over a serial port for the
// offline calibration tooling.
type SerialOutput struct {
	port serial.Port
}

func NewSerial(cfg config.SerialConfig) (output.Output, error) {
	baud := cfg.Baud
	if baud == 0 {
		baud = DefaultBaudRate
	}
	port, err := serial.Open(cfg.Port, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", cfg.Port, err)
	}
	return &SerialOutput{port: port}, nil
}

func (s *SerialOutput) Name() string { return "serial" }

func (s *SerialOutput) Publish(rep sensor.Report) error {
	_, err := s.port.Write(output.FormatCSV(rep))
	if err != nil {
		return fmt.Errorf("serial write: %w", err)
	}
	return nil
}

func (s *SerialOutput) Close() error {
	if s.port != nil {
		return s.port.Close()
	}
	return nil
}
