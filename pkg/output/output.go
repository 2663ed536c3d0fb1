package output

import (
	"strconv"

	"github.com/smartsocks/sensorhub/pkg/sensor"
)

// Output is a sink for reports. Concrete implementations live in subpackages.
type Output interface {
	// Name identifies the output in logs and metrics (serial, console, mqtt).
	Name() string
	Publish(sensor.Report) error
	Close() error
}

// FormatCSV renders a report as one wire line:
//
//	<uptime_ms>,<v0>,<v1>,...,<vN-1>\n
//
// Column order is the channel table order. The calibration tooling parses
// this by position, so the format never changes without a version bump on
// both ends.
func FormatCSV(r sensor.Report) []byte {
	buf := make([]byte, 0, 12+6*len(r.Readings))
	buf = strconv.AppendUint(buf, uint64(r.UptimeMs), 10)
	for _, rd := range r.Readings {
		buf = append(buf, ',')
		buf = strconv.AppendInt(buf, int64(rd.Value), 10)
	}
	return append(buf, '\n')
}
