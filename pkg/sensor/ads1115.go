package sensor

import (
	"fmt"
	"sync"
	"time"

	"github.com/smartsocks/sensorhub/pkg/config"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

const (
	pointerConv   = 0x00
	pointerConfig = 0x01

	// inputsPerChip is how many single-ended inputs one ADS1115 exposes.
	// Inputs beyond the first four land on the next configured address.
	inputsPerChip = 4

	// conversionDelay covers one single-shot conversion at 860 SPS (~1.2ms)
	// with margin. Six channels fit inside the 20ms cadence at 50Hz.
	conversionDelay = 2 * time.Millisecond
)

// ADS1115Sensor reads the channel table from one or more ADS1115 chips over
// I2C, single-shot per input. A mutex serializes bus access because the
// sampler loop and the HTTP handlers read concurrently.
type ADS1115Sensor struct {
	mu       sync.Mutex
	bus      i2c.BusCloser
	devs     []*i2c.Dev
	channels []config.ChannelConfig
	shift    uint
}

func NewADS1115Sensor(cfg config.Config) (Sensor, error) {
	if cfg.ResolutionBits > 15 {
		return nil, fmt.Errorf("ads1115 supports at most 15-bit samples, got %d", cfg.ResolutionBits)
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}
	bus, err := i2creg.Open(cfg.I2C.Bus)
	if err != nil {
		return nil, fmt.Errorf("open i2c: %w", err)
	}
	devs := make([]*i2c.Dev, 0, len(cfg.I2C.Addresses))
	for _, addr := range cfg.I2C.Addresses {
		devs = append(devs, &i2c.Dev{Addr: uint16(addr), Bus: bus})
	}
	for _, ch := range cfg.Channels {
		if ch.Input/inputsPerChip >= len(devs) {
			bus.Close()
			return nil, fmt.Errorf("channel %q: input %d needs %d chips, %d configured",
				ch.Name, ch.Input, ch.Input/inputsPerChip+1, len(devs))
		}
	}
	return &ADS1115Sensor{
		bus:      bus,
		devs:     devs,
		channels: cfg.Channels,
		shift:    uint(15 - cfg.ResolutionBits),
	}, nil
}

func (s *ADS1115Sensor) Close() error {
	if s.bus != nil {
		return s.bus.Close()
	}
	return nil
}

func (s *ADS1115Sensor) Read() ([]Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Reading, 0, len(s.channels))
	for _, ch := range s.channels {
		dev := s.devs[ch.Input/inputsPerChip]
		msb, lsb, err := configWord(ch.Input % inputsPerChip)
		if err != nil {
			return nil, fmt.Errorf("channel %q: %w", ch.Name, err)
		}
		if err := dev.Tx([]byte{pointerConfig, msb, lsb}, nil); err != nil {
			return nil, fmt.Errorf("channel %q: write config: %w", ch.Name, err)
		}
		time.Sleep(conversionDelay)
		readBuf := make([]byte, 2)
		if err := dev.Tx([]byte{pointerConv}, readBuf); err != nil {
			return nil, fmt.Errorf("channel %q: read conv: %w", ch.Name, err)
		}
		raw := int16(readBuf[0])<<8 | int16(readBuf[1])
		out = append(out, Reading{Name: ch.Name, Input: ch.Input, Value: scaleRaw(raw, s.shift)})
	}
	return out, nil
}

// configWord builds the ADS1115 config register bytes for a single-shot
// single-ended conversion on the given mux input (0-3), PGA ±4.096V, 860 SPS.
func configWord(input int) (byte, byte, error) {
	if input < 0 || input > 3 {
		return 0, 0, fmt.Errorf("invalid mux input %d", input)
	}
	mux := byte(0x4 + input)
	var cfg uint16 = 0x8000 // OS = 1 (start single conversion)
	cfg |= uint16(mux) << 12
	cfg |= 0x1 << 9 // PGA ±4.096V
	cfg |= 1 << 8   // single-shot mode
	cfg |= 0x7 << 5 // 860 SPS
	// comparator disabled (bits 1:0 = 11)
	cfg |= 0x3
	return byte(cfg >> 8), byte(cfg & 0xFF), nil
}

// scaleRaw maps a raw conversion to the configured resolution. Negative
// readings (input below ground, possible with a floating sensor) clamp to 0.
func scaleRaw(raw int16, shift uint) int {
	if raw < 0 {
		return 0
	}
	return int(raw) >> shift
}
