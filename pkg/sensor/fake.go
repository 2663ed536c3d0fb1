package sensor

import (
	"math/rand"
	"sync"

	"github.com/smartsocks/sensorhub/pkg/config"
)

// FakeSensor returns random in-range samples. Used by the "fake" sensor type
// for development without hardware and by tests.
type FakeSensor struct {
	mu       sync.Mutex
	channels []config.ChannelConfig
	max      int
	rng      *rand.Rand
}

func NewFakeSensor(cfg config.Config) (Sensor, error) {
	return &FakeSensor{
		channels: cfg.Channels,
		max:      cfg.MaxValue(),
		rng:      rand.New(rand.NewSource(1)),
	}, nil
}

func (f *FakeSensor) Read() ([]Reading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Reading, 0, len(f.channels))
	for _, ch := range f.channels {
		out = append(out, Reading{Name: ch.Name, Input: ch.Input, Value: f.rng.Intn(f.max + 1)})
	}
	return out, nil
}

func (f *FakeSensor) Close() error { return nil }
