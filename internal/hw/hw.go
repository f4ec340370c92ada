// Package hw defines the hardware capabilities the fan controller runs on.
//
// The controller never touches memory-mapped registers directly. Instead it
// is handed a [Board] (free-running counter plus a GPIO word) and a [Panel]
// (mode keys and slide switches). Backends live in sub-packages:
//
//   - simboard: deterministic simulated board with a fan rotor model
//   - serialboard: GPIO bridge firmware reached over a serial line
//   - periphboard: Linux GPIO through periph.io
//
// # Pins
//
// Pin numbers are bit positions in the board's GPIO word. The default
// mapping matches the reference board: tachometer on bit 1, fan drive on
// bit 3 and the rotary encoder phases on bits 17 and 19.
package hw

import "fmt"

// Pin is a bit position in the board GPIO word.
type Pin uint8

const (
	PinTach     Pin = 1
	PinFan      Pin = 3
	PinEncoderA Pin = 17
	PinEncoderB Pin = 19
)

// Mask returns the GPIO word bit for the pin.
func (p Pin) Mask() uint32 {
	return 1 << p
}

// Key is the active-low nibble read from the four push buttons.
type Key uint8

const (
	KeyOff        Key = 0xE
	KeyRamp       Key = 0xD
	KeyClosedLoop Key = 0xB
	KeyOpenLoop   Key = 0x7
	KeyNone       Key = 0xF
)

func (k Key) String() string {
	switch k {
	case KeyOff:
		return "off"
	case KeyRamp:
		return "ramp"
	case KeyClosedLoop:
		return "closed"
	case KeyOpenLoop:
		return "open"
	case KeyNone:
		return "none"
	}
	return fmt.Sprintf("key(0x%X)", uint8(k))
}

// ParseKey maps a mode name to the key that selects it.
func ParseKey(name string) (Key, error) {
	switch name {
	case "off":
		return KeyOff, nil
	case "ramp", "auto":
		return KeyRamp, nil
	case "closed", "closed-loop":
		return KeyClosedLoop, nil
	case "open", "open-loop":
		return KeyOpenLoop, nil
	}
	return KeyNone, fmt.Errorf("hw: unknown mode key %q", name)
}

// Board is the counter and GPIO word of the controller board. The core only
// ever writes the fan pin.
type Board interface {
	Counter() uint32
	ReadPin(p Pin) bool
	WritePin(p Pin, high bool)
}

// Panel is the operator front panel.
type Panel interface {
	Keys() Key
	// Switches returns SW0..SW9 in the low ten bits.
	Switches() uint16
}

// Refresher is implemented by backends that snapshot their inputs once per
// loop iteration. Write failures are reported by the next Refresh.
type Refresher interface {
	Refresh() error
}

// Operator accepts simulated operator input.
type Operator interface {
	Press(k Key)
	Turn(detents int)
	SetSwitches(sw uint16)
}

// PinMap assigns GPIO word bits to the controller signals.
type PinMap struct {
	Tach     Pin `yaml:"tach" json:"tach"`
	Fan      Pin `yaml:"fan" json:"fan"`
	EncoderA Pin `yaml:"encoder_a" json:"encoder_a"`
	EncoderB Pin `yaml:"encoder_b" json:"encoder_b"`
}

// DefaultPins is the reference board mapping.
func DefaultPins() PinMap {
	return PinMap{
		Tach:     PinTach,
		Fan:      PinFan,
		EncoderA: PinEncoderA,
		EncoderB: PinEncoderB,
	}
}

// Validate reports pins outside the 32-bit GPIO word or assigned twice.
func (m PinMap) Validate() error {
	seen := map[Pin]string{}
	for _, p := range []struct {
		name string
		pin  Pin
	}{
		{"tach", m.Tach},
		{"fan", m.Fan},
		{"encoder_a", m.EncoderA},
		{"encoder_b", m.EncoderB},
	} {
		if p.pin > 31 {
			return fmt.Errorf("hw: pin %s=%d outside GPIO word", p.name, p.pin)
		}
		if other, ok := seen[p.pin]; ok {
			return fmt.Errorf("hw: pin %d assigned to both %s and %s", p.pin, other, p.name)
		}
		seen[p.pin] = p.name
	}
	return nil
}
