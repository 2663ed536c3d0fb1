package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/smartsocks/sensorhub/pkg/config"
	"github.com/smartsocks/sensorhub/pkg/output"
	"github.com/smartsocks/sensorhub/pkg/output/console"
	"github.com/smartsocks/sensorhub/pkg/output/mqtt"
	"github.com/smartsocks/sensorhub/pkg/output/serialport"
	"github.com/smartsocks/sensorhub/pkg/sampler"
	"github.com/smartsocks/sensorhub/pkg/sensor"
	"github.com/smartsocks/sensorhub/pkg/web"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.LoadFromFlags()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	printBanner(logger, cfg)

	s, err := newSensor(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("sensor init failed")
	}
	defer s.Close()

	outs, err := initOutputs(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("output init failed")
	}
	defer func() {
		for _, o := range outs {
			if err := o.Close(); err != nil {
				logger.Warn().Err(err).Str("output", o.Name()).Msg("close failed")
			}
		}
	}()

	api := web.New(s, cfg, logger)
	go func() {
		if err := api.Start(cfg.HTTP.Listen); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rep := sampler.New(s, outs, cfg, logger)
	if err := rep.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("sampler stopped")
	}
	logger.Info().Msg("shutting down")
}

func newSensor(cfg config.Config) (sensor.Sensor, error) {
	switch cfg.SensorType {
	case "fake", "simulation":
		return sensor.NewFakeSensor(cfg)
	case "", "ads1115":
		return sensor.NewADS1115Sensor(cfg)
	default:
		return nil, fmt.Errorf("unknown sensor type %q", cfg.SensorType)
	}
}

func initOutputs(cfg config.Config) ([]output.Output, error) {
	outs := make([]output.Output, 0, len(cfg.Outputs))
	for _, oc := range cfg.Outputs {
		switch oc.Type {
		case "serial":
			o, err := serialport.NewSerial(*oc.Serial)
			if err != nil {
				return nil, err
			}
			outs = append(outs, o)
		case "console":
			outs = append(outs, console.NewConsole())
		case "mqtt":
			o, err := mqtt.NewMQTT(*oc.MQTT, cfg.Channels)
			if err != nil {
				return nil, err
			}
			outs = append(outs, o)
		default:
			return nil, fmt.Errorf("unknown output type %q", oc.Type)
		}
	}
	return outs, nil
}

func printBanner(logger zerolog.Logger, cfg config.Config) {
	logger.Info().
		Int("channels", len(cfg.Channels)).
		Int("sample_rate_hz", cfg.SampleRateHz).
		Int("resolution_bits", cfg.ResolutionBits).
		Msg("smart socks sensor hub")
	for _, ch := range cfg.Channels {
		logger.Info().
			Str("input", fmt.Sprintf("A%d", ch.Input)).
			Str("name", ch.Name).
			Msg("channel mapping")
	}
	logger.Info().
		Str("ssid", cfg.AccessPoint.SSID).
		Str("dashboard", cfg.HTTP.Listen).
		Msg("join the access point and open the dashboard")
}
