package fan

import (
	"fmt"

	"github.com/san-kum/fanctl/internal/control"
	"github.com/san-kum/fanctl/internal/hw"
)

// Mode is the operating mode of the controller.
type Mode uint8

const (
	ModeOff Mode = iota
	ModeRamp
	ModeClosedLoop
	ModeOpenLoop
)

var modeNames = map[Mode]string{
	ModeOff:        "off",
	ModeRamp:       "ramp",
	ModeClosedLoop: "closed-loop",
	ModeOpenLoop:   "open-loop",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("mode(%d)", uint8(m))
}

// ParseMode accepts the names printed by String.
func ParseMode(name string) (Mode, error) {
	for m, n := range modeNames {
		if n == name {
			return m, nil
		}
	}
	return ModeOff, fmt.Errorf("unknown mode %q", name)
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Modes lists every mode in key order.
func Modes() []Mode {
	return []Mode{ModeOff, ModeRamp, ModeClosedLoop, ModeOpenLoop}
}

// ModeForKey maps a key nibble to the mode it selects.
func ModeForKey(k hw.Key) (Mode, bool) {
	switch k {
	case hw.KeyOff:
		return ModeOff, true
	case hw.KeyRamp:
		return ModeRamp, true
	case hw.KeyClosedLoop:
		return ModeClosedLoop, true
	case hw.KeyOpenLoop:
		return ModeOpenLoop, true
	}
	return ModeOff, false
}

// Key returns the key that selects the mode.
func (m Mode) Key() hw.Key {
	switch m {
	case ModeRamp:
		return hw.KeyRamp
	case ModeClosedLoop:
		return hw.KeyClosedLoop
	case ModeOpenLoop:
		return hw.KeyOpenLoop
	}
	return hw.KeyOff
}

// ModeMachine tracks the selected mode. It starts in ModeOff.
type ModeMachine struct {
	mode Mode
}

// Mode returns the active mode.
func (m *ModeMachine) Mode() Mode {
	return m.mode
}

// Select applies a key reading. Only a key for a different mode causes a
// transition: the duty cycle and speed are zeroed and, when entering
// ClosedLoop, the PID reset latch is raised. Holding the key of the active
// mode and unrecognised keys leave everything untouched.
func (m *ModeMachine) Select(k hw.Key, v *Vars, reset *control.Latch) (Mode, bool) {
	next, ok := ModeForKey(k)
	if !ok || next == m.mode {
		return m.mode, false
	}

	m.mode = next
	v.DutyCycle = 0
	v.RPS = 0
	if next == ModeClosedLoop {
		reset.Raise()
	}
	return next, true
}
