package panel

const (
	// DefaultPWMFrequency applies when SW4..SW0 hold no recognised pattern.
	DefaultPWMFrequency = 10
	// DefaultResponsiveness applies when SW8..SW5 hold no recognised pattern.
	DefaultResponsiveness = 1
)

// Frequencies lists every selectable PWM frequency in switch order.
var Frequencies = []int{DefaultPWMFrequency, 100, 1000, 3000, 5000, 7500}

// Responsivenesses lists every selectable encoder step in switch order.
var Responsivenesses = []int{DefaultResponsiveness, 2, 5, 10, 20}

// SplitSwitches separates the switch word into the frequency group
// (SW4..SW0), the responsiveness group (SW8..SW5) and SW9.
func SplitSwitches(sw uint16) (freq, resp uint16, alt bool) {
	return sw & 0x1F, (sw & 0x1E0) >> 5, sw&0x200 != 0
}

// FreqSelect maps SW4..SW0 to a PWM frequency. Switches are raised from SW0
// upward; any other pattern selects the default.
func FreqSelect(group uint16) int {
	switch group {
	case 0b00001:
		return 100
	case 0b00011:
		return 1000
	case 0b00111:
		return 3000
	case 0b01111:
		return 5000
	case 0b11111:
		return 7500
	}
	return DefaultPWMFrequency
}

// RespSelect maps SW8..SW5 to the encoder step size.
func RespSelect(group uint16) int {
	switch group {
	case 0b0001:
		return 2
	case 0b0011:
		return 5
	case 0b0111:
		return 10
	case 0b1111:
		return 20
	}
	return DefaultResponsiveness
}

// FreqSwitches returns the switch word selecting freq, or false if freq is
// not selectable.
func FreqSwitches(freq int) (uint16, bool) {
	for i, f := range Frequencies {
		if f == freq {
			return uint16(1<<i - 1), true
		}
	}
	return 0, false
}

// RespSwitches returns the switch word (already shifted into SW8..SW5)
// selecting resp, or false if resp is not selectable.
func RespSwitches(resp int) (uint16, bool) {
	for i, r := range Responsivenesses {
		if r == resp {
			return uint16(1<<i - 1) << 5, true
		}
	}
	return 0, false
}

// Settings are the operator parameters decoded from the switches.
type Settings struct {
	PWMFrequency   int
	Responsiveness int
	ShowAlt        bool
}

// NoticeKind says which parameter a Notice announces.
type NoticeKind uint8

const (
	NoticeFrequency NoticeKind = iota
	NoticeResponsiveness
)

// Notice announces a parameter the operator just changed.
type Notice struct {
	Kind  NoticeKind
	Value int
}

// Digits is the readout the notice shows.
func (n Notice) Digits() Digits {
	if n.Kind == NoticeFrequency {
		return FrequencyNotice(n.Value)
	}
	return ResponsivenessNotice(n.Value)
}

// Selectors decodes the switches every iteration and reports changes of
// either group. Both groups start from all-off, so a non-zero switch word at
// power-up is announced.
type Selectors struct {
	prevFreq uint16
	prevResp uint16
}

// Update decodes sw and returns the settings plus a notice for every group
// that moved since the previous call.
func (s *Selectors) Update(sw uint16) (Settings, []Notice) {
	freqGroup, respGroup, alt := SplitSwitches(sw)
	set := Settings{
		PWMFrequency:   FreqSelect(freqGroup),
		Responsiveness: RespSelect(respGroup),
		ShowAlt:        alt,
	}

	var notices []Notice
	if freqGroup != s.prevFreq {
		notices = append(notices, Notice{Kind: NoticeFrequency, Value: set.PWMFrequency})
	}
	if respGroup != s.prevResp {
		notices = append(notices, Notice{Kind: NoticeResponsiveness, Value: set.Responsiveness})
	}
	s.prevFreq, s.prevResp = freqGroup, respGroup
	return set, notices
}
