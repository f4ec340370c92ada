package simboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/fanctl/internal/hw"
)

func newBoard(t *testing.T, mutate func(*Config)) *Board {
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	b, err := New(cfg)
	require.NoError(t, err)
	return b
}

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TicksPerIteration = 0
	_, err := New(cfg)
	require.Error(t, err)

	cfg = DefaultConfig()
	cfg.Integrator = "leapfrog"
	_, err = New(cfg)
	require.Error(t, err)

	cfg = DefaultConfig()
	cfg.Pins.Fan = cfg.Pins.Tach
	_, err = New(cfg)
	require.Error(t, err)
}

func TestCounterWraps(t *testing.T) {
	b := newBoard(t, func(c *Config) { c.StartCounter = 0xFFFFFF00 })
	require.Equal(t, uint32(0xFFFFFF00), b.Counter())
	b.Advance()
	require.Equal(t, uint32(500-0x100), b.Counter())
}

func TestWritePinOnlyTouchesThatPin(t *testing.T) {
	b := newBoard(t, nil)
	b.WritePin(hw.PinFan, true)
	require.True(t, b.ReadPin(hw.PinFan))
	require.False(t, b.ReadPin(hw.Pin(5)))
	b.WritePin(hw.PinFan, false)
	require.False(t, b.ReadPin(hw.PinFan))
}

func TestFanSpinsUpWhenDriven(t *testing.T) {
	b := newBoard(t, nil)
	b.WritePin(hw.PinFan, true)
	for i := uint64(0); i < b.IterationsFor(4); i++ {
		b.Advance()
	}
	require.NoError(t, b.Refresh())
	assert.InDelta(t, 42.0, b.Speed(), 0.5)
	assert.InDelta(t, 4.0, b.Elapsed(), 1e-3)

	b.WritePin(hw.PinFan, false)
	for i := uint64(0); i < b.IterationsFor(4); i++ {
		b.Advance()
	}
	assert.Less(t, b.Speed(), 1.0)
}

func TestTachPulsesTwicePerRevolution(t *testing.T) {
	b := newBoard(t, nil)
	b.WritePin(hw.PinFan, true)
	for i := uint64(0); i < b.IterationsFor(5); i++ {
		b.Advance()
	}

	rising := 0
	prev := b.ReadPin(hw.PinTach)
	for i := uint64(0); i < b.IterationsFor(1); i++ {
		b.Advance()
		cur := b.ReadPin(hw.PinTach)
		if cur && !prev {
			rising++
		}
		prev = cur
	}
	assert.InDelta(t, 2*42, rising, 2)
}

func TestKeyHeldForKeyHold(t *testing.T) {
	b := newBoard(t, func(c *Config) { c.KeyHold = 3 })
	require.Equal(t, hw.KeyNone, b.Keys())

	b.Press(hw.KeyClosedLoop)
	for i := 0; i < 3; i++ {
		assert.Equal(t, hw.KeyClosedLoop, b.Keys(), "iteration %d", i)
		b.Advance()
	}
	assert.Equal(t, hw.KeyNone, b.Keys())
}

// aChanges counts phase A changes, split by direction the way a quadrature
// decoder sees them.
func aChanges(b *Board, iterations int) (up, down int) {
	prevA := b.ReadPin(hw.PinEncoderA)
	for i := 0; i < iterations; i++ {
		b.Advance()
		a, bb := b.ReadPin(hw.PinEncoderA), b.ReadPin(hw.PinEncoderB)
		if a != prevA {
			if a != bb {
				up++
			} else {
				down++
			}
		}
		prevA = a
	}
	return up, down
}

func TestTurnClockwise(t *testing.T) {
	b := newBoard(t, func(c *Config) { c.EncoderHold = 2 })
	b.Turn(3)
	up, down := aChanges(b, 40)
	assert.Equal(t, 3, up)
	assert.Equal(t, 0, down)
	assert.True(t, b.EncoderIdle())
}

func TestTurnCounterClockwise(t *testing.T) {
	b := newBoard(t, func(c *Config) { c.EncoderHold = 1 })
	b.Turn(-4)
	up, down := aChanges(b, 20)
	assert.Equal(t, 0, up)
	assert.Equal(t, 4, down)
}

func TestSwitchesMasked(t *testing.T) {
	b := newBoard(t, nil)
	b.SetSwitches(0xFFFF)
	assert.Equal(t, uint16(0x3FF), b.Switches())
}
