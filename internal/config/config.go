package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/fanctl/internal/automation"
	"github.com/san-kum/fanctl/internal/hw"
	"github.com/san-kum/fanctl/internal/panel"
)

const (
	DefaultBackend           = "sim"
	DefaultClockHz           = 50_000_000
	DefaultMaxRPS            = 42
	DefaultTicksPerIteration = 500
	DefaultTimeConstant      = 0.6
	DefaultKeyHold           = 50
	DefaultEncoderHold       = 20
	DefaultBaud              = 115200
	DefaultReadTimeoutMs     = 100
	DefaultDuration          = 10.0
	DefaultRecordEvery       = 1000
)

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Backend  string              `yaml:"backend"`
	Board    BoardConfig         `yaml:"board"`
	Sim      SimConfig           `yaml:"sim"`
	Serial   SerialConfig        `yaml:"serial"`
	Periph   PeriphConfig        `yaml:"periph"`
	Run      RunConfig           `yaml:"run"`
	Scenario automation.Scenario `yaml:"scenario,omitempty"`
}

type BoardConfig struct {
	ClockHz uint32    `yaml:"clock_hz"`
	MaxRPS  int       `yaml:"max_rps"`
	Pins    hw.PinMap `yaml:"pins"`
}

type SimConfig struct {
	TicksPerIteration uint32  `yaml:"ticks_per_iteration"`
	StartCounter      uint32  `yaml:"start_counter,omitempty"`
	TimeConstant      float64 `yaml:"time_constant"`
	MaxRPS            float64 `yaml:"max_rps"`
	Integrator        string  `yaml:"integrator"`
	KeyHold           int     `yaml:"key_hold"`
	EncoderHold       int     `yaml:"encoder_hold"`
}

type SerialConfig struct {
	Device        string `yaml:"device"`
	Baud          int    `yaml:"baud"`
	ReadTimeoutMs int    `yaml:"read_timeout_ms"`
}

// PeriphConfig names host GPIO lines, e.g. "GPIO17".
type PeriphConfig struct {
	Tach     string   `yaml:"tach"`
	Fan      string   `yaml:"fan"`
	EncoderA string   `yaml:"encoder_a"`
	EncoderB string   `yaml:"encoder_b"`
	Keys     []string `yaml:"keys,omitempty"`
	Switches []string `yaml:"switches,omitempty"`
}

type RunConfig struct {
	// Duration is in board seconds; 0 runs until cancelled.
	Duration    float64 `yaml:"duration"`
	RecordEvery int     `yaml:"record_every"`
	Switches    uint16  `yaml:"switches"`
}

func DefaultConfig() *Config {
	return &Config{
		Backend: DefaultBackend,
		Board: BoardConfig{
			ClockHz: DefaultClockHz,
			MaxRPS:  DefaultMaxRPS,
			Pins:    hw.DefaultPins(),
		},
		Sim: SimConfig{
			TicksPerIteration: DefaultTicksPerIteration,
			TimeConstant:      DefaultTimeConstant,
			MaxRPS:            DefaultMaxRPS,
			Integrator:        "rk4",
			KeyHold:           DefaultKeyHold,
			EncoderHold:       DefaultEncoderHold,
		},
		Serial: SerialConfig{
			Device:        "/dev/ttyUSB0",
			Baud:          DefaultBaud,
			ReadTimeoutMs: DefaultReadTimeoutMs,
		},
		Periph: PeriphConfig{
			Tach:     "GPIO17",
			Fan:      "GPIO18",
			EncoderA: "GPIO22",
			EncoderB: "GPIO23",
			Keys:     []string{"GPIO5", "GPIO6", "GPIO13", "GPIO19"},
		},
		Run: RunConfig{
			Duration:    DefaultDuration,
			RecordEvery: DefaultRecordEvery,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func maxFrequency() int {
	top := 0
	for _, f := range panel.Frequencies {
		top = max(top, f)
	}
	return top
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// Validate checks the parts of the config the selected backend uses.
func (c *Config) Validate() error {
	if c.Board.ClockHz == 0 {
		return invalid("board.clock_hz must be positive")
	}
	// Every selectable frequency needs a period of at least one tick.
	if top := maxFrequency(); c.Board.ClockHz < uint32(top) {
		return invalid("board.clock_hz %d below the %d Hz PWM setting", c.Board.ClockHz, top)
	}
	if c.Board.MaxRPS <= 0 {
		return invalid("board.max_rps must be positive, got %d", c.Board.MaxRPS)
	}
	if err := c.Board.Pins.Validate(); err != nil {
		return invalid("board.pins: %v", err)
	}
	if c.Run.Duration < 0 {
		return invalid("run.duration must not be negative")
	}
	if c.Run.RecordEvery < 0 {
		return invalid("run.record_every must not be negative")
	}
	if c.Run.Switches > 0x3FF {
		return invalid("run.switches %#x wider than 10 bits", c.Run.Switches)
	}
	if err := c.Scenario.Validate(); err != nil {
		return invalid("scenario: %v", err)
	}

	switch c.Backend {
	case "sim":
		if c.Sim.TicksPerIteration == 0 {
			return invalid("sim.ticks_per_iteration must be positive")
		}
		if c.Sim.TimeConstant <= 0 || c.Sim.MaxRPS <= 0 {
			return invalid("sim.time_constant and sim.max_rps must be positive")
		}
	case "serial":
		if c.Serial.Device == "" {
			return invalid("serial.device is required")
		}
		if c.Serial.Baud <= 0 {
			return invalid("serial.baud must be positive")
		}
	case "periph":
		if c.Periph.Tach == "" || c.Periph.Fan == "" || c.Periph.EncoderA == "" || c.Periph.EncoderB == "" {
			return invalid("periph: tach, fan, encoder_a and encoder_b are required")
		}
		if n := len(c.Periph.Keys); n != 0 && n != 4 {
			return invalid("periph.keys needs 4 lines, got %d", n)
		}
		if len(c.Periph.Switches) > 10 {
			return invalid("periph.switches has %d lines, at most 10", len(c.Periph.Switches))
		}
	default:
		return invalid("unknown backend %q", c.Backend)
	}
	return nil
}

// Iterations is how many loop iterations run.duration covers on the
// simulated board, 0 when the run is unbounded.
func (c *Config) Iterations() uint64 {
	if c.Run.Duration <= 0 || c.Sim.TicksPerIteration == 0 {
		return 0
	}
	return uint64(c.Run.Duration * float64(c.Board.ClockHz) / float64(c.Sim.TicksPerIteration))
}
