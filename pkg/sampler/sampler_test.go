package sampler

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/smartsocks/sensorhub/pkg/config"
	"github.com/smartsocks/sensorhub/pkg/output"
	"github.com/smartsocks/sensorhub/pkg/sensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingSensor returns fixed in-range values and counts acquisition passes.
type countingSensor struct {
	channels []config.ChannelConfig
	reads    int
}

func (c *countingSensor) Read() ([]sensor.Reading, error) {
	c.reads++
	out := make([]sensor.Reading, 0, len(c.channels))
	for i, ch := range c.channels {
		out = append(out, sensor.Reading{Name: ch.Name, Input: ch.Input, Value: 100*i + c.reads})
	}
	return out, nil
}

func (c *countingSensor) Close() error { return nil }

// captureOutput records every published report.
type captureOutput struct {
	reports []sensor.Report
}

func (c *captureOutput) Name() string { return "capture" }
func (c *captureOutput) Publish(rep sensor.Report) error {
	c.reports = append(c.reports, rep)
	return nil
}
func (c *captureOutput) Close() error { return nil }

func newTestReporter(t *testing.T) (*Reporter, *countingSensor, *captureOutput) {
	t.Helper()
	cfg := config.DefaultConfig()
	s := &countingSensor{channels: cfg.Channels}
	out := &captureOutput{}
	return New(s, []output.Output{out}, cfg, zerolog.Nop()), s, out
}

func TestMaybeEmitHonorsInterval(t *testing.T) {
	r, s, out := newTestReporter(t)

	fired, err := r.MaybeEmit(5)
	require.NoError(t, err)
	assert.False(t, fired, "5ms elapsed, interval is 20ms")
	assert.Zero(t, s.reads, "no acquisition before the interval elapses")

	fired, err = r.MaybeEmit(20)
	require.NoError(t, err)
	assert.True(t, fired)
	require.Len(t, out.reports, 1)
	assert.Equal(t, uint32(20), out.reports[0].UptimeMs)
	assert.Equal(t, 1, s.reads, "exactly one fresh pass per emission")

	// loop iterating faster than the interval emits nothing extra
	for now := uint32(21); now < 40; now++ {
		fired, err = r.MaybeEmit(now)
		require.NoError(t, err)
		assert.False(t, fired, "no second emission inside the same interval (now=%d)", now)
	}

	fired, err = r.MaybeEmit(40)
	require.NoError(t, err)
	assert.True(t, fired)
	assert.Len(t, out.reports, 2)
}

func TestMaybeEmitSurvivesClockWraparound(t *testing.T) {
	r, _, out := newTestReporter(t)
	r.lastEmit = ^uint32(0) - 5 // 6ms before the counter wraps

	fired, err := r.MaybeEmit(^uint32(0) - 1)
	require.NoError(t, err)
	assert.False(t, fired, "only 4ms elapsed")

	// now has wrapped past zero: 15 - (2^32-6) = 21ms elapsed in uint32 math
	fired, err = r.MaybeEmit(15)
	require.NoError(t, err)
	assert.True(t, fired, "wraparound must not stall the reporter")
	require.Len(t, out.reports, 1)
	assert.Equal(t, uint32(15), out.reports[0].UptimeMs)

	// and the next interval behaves normally
	fired, err = r.MaybeEmit(30)
	require.NoError(t, err)
	assert.False(t, fired)
	fired, err = r.MaybeEmit(35)
	require.NoError(t, err)
	assert.True(t, fired)
}

func TestFiftyHzEmitsFiftyLinesPerSecond(t *testing.T) {
	r, _, out := newTestReporter(t)

	// simulate 1000ms of loop iterations, clock advancing 1ms at a time
	for now := uint32(1); now <= 1000; now++ {
		_, err := r.MaybeEmit(now)
		require.NoError(t, err)
	}

	assert.Len(t, out.reports, 50, "50Hz over 1000ms")
	for i := 1; i < len(out.reports); i++ {
		prev, cur := out.reports[i-1].UptimeMs, out.reports[i].UptimeMs
		assert.LessOrEqual(t, prev, cur, "timestamps non-decreasing")
		assert.Equal(t, uint32(20), cur-prev, "20ms spacing")
	}
}

func TestEmittedCSVShape(t *testing.T) {
	cfg := config.DefaultConfig()
	s := &countingSensor{channels: cfg.Channels}
	out := &captureOutput{}
	r := New(s, []output.Output{out}, cfg, zerolog.Nop())

	fired, err := r.MaybeEmit(20)
	require.NoError(t, err)
	require.True(t, fired)

	line := string(output.FormatCSV(out.reports[0]))
	fields := strings.Split(strings.TrimSuffix(line, "\n"), ",")
	assert.Len(t, fields, 1+len(cfg.Channels))
	assert.Equal(t, "20", fields[0])
}

func TestSamplerAndAPIPathsReadIndependently(t *testing.T) {
	r, s, _ := newTestReporter(t)

	fired, err := r.MaybeEmit(20)
	require.NoError(t, err)
	require.True(t, fired)
	assert.Equal(t, 1, s.reads)

	// an API-style caller reads the sensor directly, mid-interval
	_, err = s.Read()
	require.NoError(t, err)
	assert.Equal(t, 2, s.reads, "each consumer samples fresh")

	// the sampler's next pass is unaffected by the interleaved read
	fired, err = r.MaybeEmit(40)
	require.NoError(t, err)
	assert.True(t, fired)
	assert.Equal(t, 3, s.reads)
}
