package experiment

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/san-kum/fanctl/internal/config"
	"github.com/san-kum/fanctl/internal/hw"
	"github.com/san-kum/fanctl/internal/hw/periphboard"
	"github.com/san-kum/fanctl/internal/hw/serialboard"
	"github.com/san-kum/fanctl/internal/hw/simboard"
)

// Backend is a board the loop can run on.
type Backend interface {
	hw.Board
	hw.Panel
	hw.Refresher
}

type Factory func(cfg *config.Config) (Backend, error)

type Registry struct {
	backends map[string]Factory
}

func NewRegistry() *Registry {
	r := &Registry{
		backends: make(map[string]Factory),
	}

	r.backends["sim"] = func(cfg *config.Config) (Backend, error) {
		b, err := simboard.New(simboard.Config{
			ClockHz:           cfg.Board.ClockHz,
			TicksPerIteration: cfg.Sim.TicksPerIteration,
			StartCounter:      cfg.Sim.StartCounter,
			Pins:              cfg.Board.Pins,
			MaxRPS:            cfg.Sim.MaxRPS,
			TimeConstant:      cfg.Sim.TimeConstant,
			Integrator:        cfg.Sim.Integrator,
			KeyHold:           cfg.Sim.KeyHold,
			EncoderHold:       cfg.Sim.EncoderHold,
			Switches:          cfg.Run.Switches,
		})
		if err != nil {
			return nil, err
		}
		return b, nil
	}
	r.backends["serial"] = func(cfg *config.Config) (Backend, error) {
		b, err := serialboard.Open(serialboard.Config{
			Device:      cfg.Serial.Device,
			Baud:        cfg.Serial.Baud,
			ReadTimeout: time.Duration(cfg.Serial.ReadTimeoutMs) * time.Millisecond,
			Pins:        cfg.Board.Pins,
		})
		if err != nil {
			return nil, err
		}
		return b, nil
	}
	r.backends["periph"] = func(cfg *config.Config) (Backend, error) {
		b, err := periphboard.Open(periphboard.Config{
			ClockHz:  cfg.Board.ClockHz,
			Pins:     cfg.Board.Pins,
			Tach:     cfg.Periph.Tach,
			Fan:      cfg.Periph.Fan,
			EncoderA: cfg.Periph.EncoderA,
			EncoderB: cfg.Periph.EncoderB,
			Keys:     cfg.Periph.Keys,
			Switches: cfg.Periph.Switches,
		})
		if err != nil {
			return nil, err
		}
		return b, nil
	}

	return r
}

// Register adds or replaces a backend.
func (r *Registry) Register(name string, f Factory) {
	r.backends[name] = f
}

// Open builds the backend named by cfg.Backend.
func (r *Registry) Open(cfg *config.Config) (Backend, error) {
	fn, ok := r.backends[cfg.Backend]
	if !ok {
		return nil, fmt.Errorf("unknown backend: %s", cfg.Backend)
	}
	b, err := fn(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening %s backend: %w", cfg.Backend, err)
	}
	return b, nil
}

func (r *Registry) ListBackends() []string {
	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close releases a backend that holds a device.
func Close(b Backend) error {
	if c, ok := b.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
