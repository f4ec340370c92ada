package fan

import "github.com/san-kum/fanctl/internal/hw"

// edgeFilter is a three-sample shift register over the tach pin. A rising
// edge counts once the pin has read high on two consecutive samples.
type edgeFilter struct {
	Prev       bool
	BeforePrev bool
}

// shift pushes cur into the register and reports whether the samples
// before it formed an edge.
func (f *edgeFilter) shift(cur bool) bool {
	edge := cur && f.Prev && f.Prev != f.BeforePrev
	f.BeforePrev, f.Prev = f.Prev, cur
	return edge
}

// TachometerState is the measurement window and the edges counted in it.
type TachometerState struct {
	Window          uint32
	Filter          edgeFilter
	HalfRevolutions int
}

// Tachometer counts half revolutions over half-second windows of counter
// time. With two pulses per revolution the count of a half-second window is
// the speed in revolutions per second.
type Tachometer struct {
	board       hw.Board
	pin         hw.Pin
	windowTicks uint32
	state       TachometerState
}

func NewTachometer(board hw.Board, pin hw.Pin, clockHz uint32) *Tachometer {
	return &Tachometer{board: board, pin: pin, windowTicks: clockHz / 2}
}

// Sample reads the tach pin once. When the counter has moved into a new
// window, the count of the closed window is returned and counting restarts;
// the boundary sample itself is not counted. Otherwise rps is returned
// unchanged.
func (t *Tachometer) Sample(rps int) int {
	window := t.board.Counter() / t.windowTicks
	edge := t.state.Filter.shift(t.board.ReadPin(t.pin))

	if window != t.state.Window {
		rps = t.state.HalfRevolutions
		t.state.HalfRevolutions = 0
		t.state.Window = window
	} else if edge {
		t.state.HalfRevolutions++
	}
	return rps
}

// State returns the current window and filter memory.
func (t *Tachometer) State() TachometerState {
	return t.state
}
