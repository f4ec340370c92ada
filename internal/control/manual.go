package control

import "github.com/san-kum/fanctl/internal/hw"

// QuadratureState remembers phase A from the previous sample.
type QuadratureState struct {
	PrevA bool
}

// Manual turns rotary encoder detents into duty-cycle steps. Each change of
// phase A moves the duty cycle by one step: up when A and B differ, down when
// they match.
type Manual struct {
	board hw.Board
	pinA  hw.Pin
	pinB  hw.Pin
	state QuadratureState
}

// NewManual reads the encoder on the given pins.
func NewManual(board hw.Board, pinA, pinB hw.Pin) *Manual {
	return &Manual{board: board, pinA: pinA, pinB: pinB}
}

// Step samples the encoder once and returns the adjusted duty cycle,
// clamped to [0, 100].
func (m *Manual) Step(duty, step int) int {
	a := m.board.ReadPin(m.pinA)
	b := m.board.ReadPin(m.pinB)

	if a != m.state.PrevA {
		if a != b {
			duty += step
		} else {
			duty -= step
		}
	}

	m.state.PrevA = a
	return clampPercent(duty)
}

// State returns the decoder memory.
func (m *Manual) State() QuadratureState {
	return m.state
}

// Reset forgets the previous phase A sample.
func (m *Manual) Reset() {
	m.state = QuadratureState{}
}

func clampPercent(v int) int {
	if v > 100 {
		return 100
	}
	if v < 0 {
		return 0
	}
	return v
}
