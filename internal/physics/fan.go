package physics

import (
	"fmt"
	"math"

	"github.com/san-kum/fanctl/internal/dynamo"
)

const (
	DefaultFanMaxRPS       = 42.0
	DefaultFanTimeConstant = 0.6
	// PulsesPerRevolution of a standard PC fan tachometer.
	PulsesPerRevolution = 2
)

// Fan is a first-order rotor model of a brushless PC fan.
//
// State: [speed (rev/s), angle (rev)]. Control: [drive], where drive is the
// fraction of supply applied (the PWM pin level, 0 or 1). While driven the
// rotor spins up toward MaxRPS*drive; otherwise friction coasts it down
// with the same time constant.
type Fan struct {
	MaxRPS       float64
	TimeConstant float64
}

var (
	_ dynamo.System       = (*Fan)(nil)
	_ dynamo.Configurable = (*Fan)(nil)
)

func NewFan(maxRPS, timeConstant float64) *Fan {
	return &Fan{MaxRPS: maxRPS, TimeConstant: timeConstant}
}

func (f *Fan) StateDim() int   { return 2 }
func (f *Fan) ControlDim() int { return 1 }

func (f *Fan) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	drive := 0.0
	if len(u) > 0 {
		drive = math.Max(0, math.Min(1, u[0]))
	}
	speed := x[0]
	return dynamo.State{
		(f.MaxRPS*drive - speed) / f.TimeConstant,
		speed,
	}
}

// TachLevel is the open-collector tach output for the given state: two
// high half-periods per revolution.
func (f *Fan) TachLevel(x dynamo.State) bool {
	_, frac := math.Modf(x[1] * PulsesPerRevolution)
	if frac < 0 {
		frac++
	}
	return frac < 0.5
}

func (f *Fan) GetParams() map[string]float64 {
	return map[string]float64{
		"max_rps":       f.MaxRPS,
		"time_constant": f.TimeConstant,
	}
}

func (f *Fan) SetParam(name string, value float64) error {
	switch name {
	case "max_rps":
		if value <= 0 {
			return fmt.Errorf("max_rps=%v: %w", value, dynamo.ErrParameterBounds)
		}
		f.MaxRPS = value
	case "time_constant":
		if value <= 0 {
			return fmt.Errorf("time_constant=%v: %w", value, dynamo.ErrParameterBounds)
		}
		f.TimeConstant = value
	default:
		return fmt.Errorf("%s: %w", name, dynamo.ErrUnknownParameter)
	}
	return nil
}
