package panel

import (
	"time"

	"github.com/san-kum/fanctl/internal/fan"
)

// ScrollInterval is how long each banner scroll frame is shown; the last
// frame stays up twice as long.
const ScrollInterval = 100 * time.Millisecond

// NumLEDs is the width of the duty-cycle bar.
const NumLEDs = 10

var tags = map[fan.Mode]string{
	fan.ModeRamp:       "AU",
	fan.ModeClosedLoop: "CL",
	fan.ModeOpenLoop:   "OP",
}

var banners = map[fan.Mode]string{
	fan.ModeOff:        "OFF",
	fan.ModeRamp:       "AUtO",
	fan.ModeClosedLoop: "CLOSEd",
	fan.ModeOpenLoop:   "OPEn",
}

// RPM converts revolutions per second to the displayed revolutions per
// minute.
func RPM(rps int) int {
	return rps * 60
}

// Readout renders a frame the way the seven-segment displays show it.
//
// With SW9 off: ramp shows the speed in RPM, the loop modes show the desired
// speed on HEX3..2 and the measured speed on HEX1..0. With SW9 on: ramp and
// closed loop show the on-time and open loop shows RPM.
func Readout(f fan.Frame) Digits {
	if f.Mode == fan.ModeOff {
		return text("OFF")
	}
	tag := tags[f.Mode]

	if f.ShowAlt {
		if f.Mode == fan.ModeOpenLoop {
			return withTag(tag, fourDigits(RPM(f.RPS)))
		}
		body := fourDigits(f.OnTime)
		body[0] = ' '
		return withTag(tag, body)
	}

	if f.Mode == fan.ModeRamp {
		return withTag(tag, fourDigits(RPM(f.RPS)))
	}
	desired := fourDigits(f.DesiredSpeed)
	measured := fourDigits(f.MeasuredSpeed)
	return withTag(tag, [4]rune{desired[2], desired[3], measured[2], measured[3]})
}

// FrequencyNotice shows a newly selected PWM frequency.
func FrequencyNotice(hz int) Digits {
	return withTag("F", fourDigits(hz))
}

// ResponsivenessNotice shows a newly selected encoder step.
func ResponsivenessNotice(step int) Digits {
	body := fourDigits(step)
	body[0], body[1] = ' ', ' '
	return withTag("r", body)
}

// Banner is the name shown when a mode is entered.
func Banner(m fan.Mode) string {
	return banners[m]
}

// ScrollFrames is the banner animation for a mode: the name enters from the
// right one digit at a time until it fills the display from HEX5.
func ScrollFrames(m fan.Mode) []Digits {
	name := text(Banner(m))
	frames := []Digits{Blank}
	for k := 1; k <= len(name); k++ {
		d := Blank
		copy(d[len(d)-k:], name[:k])
		frames = append(frames, d)
	}
	return frames
}

// LEDBar lights one LED per full ten percent of duty cycle, filling from
// the leftmost LED (bit 9).
func LEDBar(duty int) uint16 {
	tens := duty / 10
	if tens <= 0 {
		return 0
	}
	if tens > NumLEDs {
		tens = NumLEDs
	}
	return uint16(0x3FF<<(NumLEDs-tens)) & 0x3FF
}
