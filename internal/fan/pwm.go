package fan

import "github.com/san-kum/fanctl/internal/hw"

// Driver writes the fan drive pin. It never touches any other pin.
type Driver struct {
	board hw.Board
	pin   hw.Pin
}

func NewDriver(board hw.Board, pin hw.Pin) *Driver {
	return &Driver{board: board, pin: pin}
}

// Drive sets the pin high while phase < onTime and reports the state.
func (d *Driver) Drive(phase, onTime int) bool {
	on := phase < onTime
	d.board.WritePin(d.pin, on)
	return on
}

// Stop drives the pin low.
func (d *Driver) Stop() {
	d.board.WritePin(d.pin, false)
}
