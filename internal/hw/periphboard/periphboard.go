// Package periphboard runs the controller on host GPIO lines through
// periph. The fan and tachometer connect to ordinary GPIOs; the 32-bit
// counter is derived from the monotonic clock.
package periphboard

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/san-kum/fanctl/internal/hw"
)

// Config names the host lines wired to each board signal.
type Config struct {
	ClockHz uint32
	Pins    hw.PinMap

	Tach     string
	Fan      string
	EncoderA string
	EncoderB string
	// Keys are the four mode keys, bit 0 first, active low. Empty reads
	// as no key held.
	Keys []string
	// Switches are SW0 upwards.
	Switches []string
}

// Board is not safe for concurrent use.
type Board struct {
	clockHz uint32
	fanPin  hw.Pin
	inputs  map[hw.Pin]gpio.PinIO
	fan     gpio.PinIO
	keys    []gpio.PinIO
	sw      []gpio.PinIO

	start time.Time
	now   func() time.Time

	counter  uint32
	keyWord  hw.Key
	switches uint16
	err      error
}

// Open initialises the host drivers and claims the configured lines.
func Open(cfg Config) (*Board, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periphboard: host init: %w", err)
	}
	return newBoard(cfg, func(name string) gpio.PinIO { return gpioreg.ByName(name) }, time.Now)
}

func newBoard(cfg Config, lookup func(string) gpio.PinIO, now func() time.Time) (*Board, error) {
	if cfg.ClockHz == 0 {
		return nil, fmt.Errorf("periphboard: zero clock")
	}
	if err := cfg.Pins.Validate(); err != nil {
		return nil, fmt.Errorf("periphboard: %w", err)
	}
	if n := len(cfg.Keys); n != 0 && n != 4 {
		return nil, fmt.Errorf("periphboard: need 4 key lines, got %d", n)
	}

	claim := func(name string) (gpio.PinIO, error) {
		p := lookup(name)
		if p == nil {
			return nil, fmt.Errorf("periphboard: no gpio line %q", name)
		}
		return p, nil
	}

	b := &Board{
		clockHz: cfg.ClockHz,
		fanPin:  cfg.Pins.Fan,
		inputs:  make(map[hw.Pin]gpio.PinIO),
		now:     now,
		keyWord: hw.KeyNone,
	}

	for pin, name := range map[hw.Pin]string{
		cfg.Pins.Tach:     cfg.Tach,
		cfg.Pins.EncoderA: cfg.EncoderA,
		cfg.Pins.EncoderB: cfg.EncoderB,
	} {
		p, err := claim(name)
		if err != nil {
			return nil, err
		}
		if err := p.In(gpio.PullDown, gpio.NoEdge); err != nil {
			return nil, fmt.Errorf("periphboard: %s as input: %w", name, err)
		}
		b.inputs[pin] = p
	}

	fan, err := claim(cfg.Fan)
	if err != nil {
		return nil, err
	}
	if err := fan.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("periphboard: %s as output: %w", cfg.Fan, err)
	}
	b.fan = fan

	for _, name := range cfg.Keys {
		p, err := claim(name)
		if err != nil {
			return nil, err
		}
		if err := p.In(gpio.PullUp, gpio.NoEdge); err != nil {
			return nil, fmt.Errorf("periphboard: key %s: %w", name, err)
		}
		b.keys = append(b.keys, p)
	}
	for _, name := range cfg.Switches {
		p, err := claim(name)
		if err != nil {
			return nil, err
		}
		if err := p.In(gpio.PullDown, gpio.NoEdge); err != nil {
			return nil, fmt.Errorf("periphboard: switch %s: %w", name, err)
		}
		b.sw = append(b.sw, p)
	}

	b.start = now()
	return b, nil
}

// Refresh latches the counter, keys and switches for this iteration.
func (b *Board) Refresh() error {
	if b.err != nil {
		return b.err
	}
	b.counter = ticks(b.now().Sub(b.start), b.clockHz)

	if len(b.keys) > 0 {
		var k hw.Key
		for i, p := range b.keys {
			if p.Read() == gpio.High {
				k |= 1 << i
			}
		}
		b.keyWord = k
	}

	var sw uint16
	for i, p := range b.sw {
		if p.Read() == gpio.High {
			sw |= 1 << i
		}
	}
	b.switches = sw
	return nil
}

// ticks converts elapsed time to counter ticks, wrapping at 32 bits.
func ticks(d time.Duration, clockHz uint32) uint32 {
	sec := uint64(d / time.Second)
	frac := uint64(d % time.Second)
	return uint32(sec*uint64(clockHz) + frac*uint64(clockHz)/uint64(time.Second))
}

func (b *Board) Counter() uint32 {
	return b.counter
}

func (b *Board) ReadPin(p hw.Pin) bool {
	if p == b.fanPin {
		return b.fan.Read() == gpio.High
	}
	if in, ok := b.inputs[p]; ok {
		return in.Read() == gpio.High
	}
	return false
}

func (b *Board) WritePin(p hw.Pin, high bool) {
	if p != b.fanPin || b.err != nil {
		return
	}
	if err := b.fan.Out(gpio.Level(high)); err != nil {
		b.err = fmt.Errorf("periphboard: drive fan: %w", err)
	}
}

func (b *Board) Keys() hw.Key {
	return b.keyWord
}

func (b *Board) Switches() uint16 {
	return b.switches
}

// Close leaves the fan off.
func (b *Board) Close() error {
	if err := b.fan.Out(gpio.Low); err != nil {
		return err
	}
	return b.fan.Halt()
}
