// Package simboard is a deterministic simulated controller board.
//
// The counter advances by a fixed number of ticks per loop iteration and a
// rotor model, driven by the fan pin, produces the tachometer signal. Mode
// keys, the rotary encoder and the switches are operated programmatically
// through [hw.Operator].
package simboard

import (
	"fmt"
	"sync"

	"github.com/san-kum/fanctl/internal/dynamo"
	"github.com/san-kum/fanctl/internal/hw"
	"github.com/san-kum/fanctl/internal/integrators"
	"github.com/san-kum/fanctl/internal/physics"
)

// Config describes the simulated board and its fan.
type Config struct {
	ClockHz uint32
	// TicksPerIteration is the counter time one loop iteration takes.
	TicksPerIteration uint32
	// StartCounter offsets the counter, e.g. to run across a wraparound.
	StartCounter uint32
	Pins         hw.PinMap

	MaxRPS       float64
	TimeConstant float64
	Integrator   string

	// KeyHold is how many iterations a pressed key stays down.
	KeyHold int
	// EncoderHold is how many iterations each encoder transition lasts.
	EncoderHold int
	Switches    uint16
}

func DefaultConfig() Config {
	return Config{
		ClockHz:           50_000_000,
		TicksPerIteration: 500,
		Pins:              hw.DefaultPins(),
		MaxRPS:            physics.DefaultFanMaxRPS,
		TimeConstant:      physics.DefaultFanTimeConstant,
		Integrator:        "rk4",
		KeyHold:           50,
		EncoderHold:       20,
	}
}

// gray is the quadrature sequence (A, B) for clockwise rotation.
var gray = [4][2]bool{{false, false}, {true, false}, {true, true}, {false, true}}

// Board is a simulated board. Operator methods are safe to call from other
// goroutines; the Board methods belong to the control loop.
type Board struct {
	cfg   Config
	rotor *physics.Fan
	integ dynamo.Integrator

	counter uint32
	gpio    uint32
	x       dynamo.State
	t       float64
	dt      float64
	steps   uint64
	err     error

	mu         sync.Mutex
	key        hw.Key
	keyLeft    int
	switches   uint16
	encIndex   int
	encPending int
	encLeft    int
}

// New returns a board with the rotor at rest.
func New(cfg Config) (*Board, error) {
	if cfg.ClockHz == 0 || cfg.TicksPerIteration == 0 {
		return nil, fmt.Errorf("simboard: clock %d Hz with %d ticks per iteration", cfg.ClockHz, cfg.TicksPerIteration)
	}
	if err := cfg.Pins.Validate(); err != nil {
		return nil, fmt.Errorf("simboard: %w", err)
	}
	integ, err := integrators.New(cfg.Integrator)
	if err != nil {
		return nil, fmt.Errorf("simboard: %w", err)
	}
	if cfg.KeyHold < 1 {
		cfg.KeyHold = 1
	}
	if cfg.EncoderHold < 1 {
		cfg.EncoderHold = 1
	}

	return &Board{
		cfg:      cfg,
		rotor:    physics.NewFan(cfg.MaxRPS, cfg.TimeConstant),
		integ:    integ,
		counter:  cfg.StartCounter,
		x:        dynamo.State{0, 0},
		dt:       float64(cfg.TicksPerIteration) / float64(cfg.ClockHz),
		key:      hw.KeyNone,
		switches: cfg.Switches,
	}, nil
}

func (b *Board) Counter() uint32 {
	return b.counter
}

func (b *Board) ReadPin(p hw.Pin) bool {
	switch p {
	case b.cfg.Pins.Tach:
		return b.rotor.TachLevel(b.x)
	case b.cfg.Pins.EncoderA, b.cfg.Pins.EncoderB:
		b.mu.Lock()
		ab := gray[b.encIndex]
		b.mu.Unlock()
		if p == b.cfg.Pins.EncoderA {
			return ab[0]
		}
		return ab[1]
	}
	return b.gpio&p.Mask() != 0
}

func (b *Board) WritePin(p hw.Pin, high bool) {
	if high {
		b.gpio |= p.Mask()
	} else {
		b.gpio &^= p.Mask()
	}
}

// Refresh reports a diverged plant.
func (b *Board) Refresh() error {
	return b.err
}

// Advance moves the board forward by one loop iteration: the counter ticks,
// the rotor integrates under the current fan pin level and held inputs
// count down.
func (b *Board) Advance() {
	b.counter += b.cfg.TicksPerIteration

	drive := 0.0
	if b.gpio&b.cfg.Pins.Fan.Mask() != 0 {
		drive = 1
	}
	next := b.integ.Step(b.rotor, b.x, dynamo.Control{drive}, b.t, b.dt)
	if !next.IsValid() && b.err == nil {
		b.err = &dynamo.SimulationError{Time: b.t, State: next, Wrapped: dynamo.ErrInvalidState}
	} else {
		b.x = next
	}
	b.t += b.dt
	b.steps++

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.keyLeft > 0 {
		b.keyLeft--
	}
	if b.encPending != 0 {
		b.encLeft--
		if b.encLeft <= 0 {
			if b.encPending > 0 {
				b.encIndex = (b.encIndex + 1) % 4
				b.encPending--
			} else {
				b.encIndex = (b.encIndex + 3) % 4
				b.encPending++
			}
			b.encLeft = b.cfg.EncoderHold
		}
	}
}

func (b *Board) Keys() hw.Key {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.keyLeft > 0 {
		return b.key
	}
	return hw.KeyNone
}

func (b *Board) Switches() uint16 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.switches
}

// Press holds a key down for KeyHold iterations.
func (b *Board) Press(k hw.Key) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.key = k
	b.keyLeft = b.cfg.KeyHold
}

// Turn queues encoder movement. One step is one change of phase A, which
// moves the duty cycle by one responsiveness step; negative steps turn
// counter-clockwise.
func (b *Board) Turn(steps int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.encPending == 0 {
		b.encLeft = b.cfg.EncoderHold
	}
	b.encPending += 2 * steps
}

func (b *Board) SetSwitches(sw uint16) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.switches = sw & 0x3FF
}

// Iterations is the number of Advance calls so far.
func (b *Board) Iterations() uint64 {
	return b.steps
}

// Elapsed is the simulated time in seconds.
func (b *Board) Elapsed() float64 {
	return b.t
}

// Speed is the true rotor speed in revolutions per second.
func (b *Board) Speed() float64 {
	return b.x[0]
}

// Rotor exposes the plant for parameter changes.
func (b *Board) Rotor() *physics.Fan {
	return b.rotor
}

// EncoderIdle reports whether all queued encoder movement has been emitted.
func (b *Board) EncoderIdle() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.encPending == 0
}

// IterationsFor converts simulated seconds into loop iterations.
func (b *Board) IterationsFor(seconds float64) uint64 {
	return uint64(seconds / b.dt)
}
