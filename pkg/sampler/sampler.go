// Package sampler drives the fixed-rate acquisition loop: every sample
// interval it reads all channels once and fans the report out to the
// configured outputs.
package sampler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/smartsocks/sensorhub/pkg/config"
	"github.com/smartsocks/sensorhub/pkg/metrics"
	"github.com/smartsocks/sensorhub/pkg/output"
	"github.com/smartsocks/sensorhub/pkg/sensor"
)

// Clock returns milliseconds since process start. It wraps at 2^32 ms
// (~49.7 days); the cadence check below stays correct across the wrap.
type Clock func() uint32

// UptimeClock returns a Clock anchored at the moment of the call.
func UptimeClock() Clock {
	start := time.Now()
	return func() uint32 {
		return uint32(time.Since(start).Milliseconds())
	}
}

// pollInterval is the pause between loop iterations. Short enough that the
// cadence jitter stays well under one sample interval, long enough to not
// spin a core.
const pollInterval = 200 * time.Microsecond

// Reporter emits one report per sample interval. It owns the last-emit
// timestamp; nothing else mutates it.
type Reporter struct {
	sensor     sensor.Sensor
	outputs    []output.Output
	intervalMs uint32
	lastEmit   uint32
	clock      Clock
	log        zerolog.Logger
}

func New(s sensor.Sensor, outs []output.Output, cfg config.Config, log zerolog.Logger) *Reporter {
	return &Reporter{
		sensor:     s,
		outputs:    outs,
		intervalMs: cfg.SampleIntervalMs(),
		clock:      UptimeClock(),
		log:        log,
	}
}

// MaybeEmit performs one acquisition pass and publishes it if the sample
// interval has elapsed since the last emission. The elapsed check is done in
// uint32 modular arithmetic so a clock wraparound cannot stall the reporter.
// Returns whether the interval had elapsed.
func (r *Reporter) MaybeEmit(now uint32) (bool, error) {
	if now-r.lastEmit < r.intervalMs {
		return false, nil
	}
	r.lastEmit = now

	readings, err := r.sensor.Read()
	if err != nil {
		metrics.AcquisitionErrors.Inc()
		return true, fmt.Errorf("acquisition: %w", err)
	}
	rep := sensor.Report{UptimeMs: now, Readings: readings}
	for _, o := range r.outputs {
		if err := o.Publish(rep); err != nil {
			metrics.PublishErrors.WithLabelValues(o.Name()).Inc()
			r.log.Warn().Err(err).Str("output", o.Name()).Msg("publish failed")
		}
	}
	metrics.ReportsEmitted.Inc()
	return true, nil
}

// Run loops until the context is cancelled. Acquisition errors are logged
// and counted, never fatal: the next interval retries from scratch.
func (r *Reporter) Run(ctx context.Context) error {
	r.log.Info().
		Uint32("interval_ms", r.intervalMs).
		Int("outputs", len(r.outputs)).
		Msg("sampler started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if _, err := r.MaybeEmit(r.clock()); err != nil {
			r.log.Warn().Err(err).Msg("report skipped")
		}
		time.Sleep(pollInterval)
	}
}
