package config

import (
	"sort"

	"github.com/san-kum/fanctl/internal/automation"
)

func u16(v uint16) *uint16 { return &v }

var Presets = map[string]automation.Scenario{
	"closed-loop-step": {
		Name:        "closed-loop-step",
		Description: "closed loop at 1 kHz, setpoint 25 then 40",
		Events: []automation.Event{
			{At: 0, Freq: 1000, Resp: 5},
			{At: 0.1, Press: "closed"},
			{At: 0.2, Turn: 10},
			{At: 10, Turn: 6},
		},
	},
	"open-loop-sweep": {
		Name:        "open-loop-sweep",
		Description: "open loop duty raised in 20% steps",
		Events: []automation.Event{
			{At: 0, Freq: 3000, Resp: 10},
			{At: 0.1, Press: "open"},
			{At: 0.5, Turn: 2},
			{At: 3, Turn: 2},
			{At: 6, Turn: 2},
			{At: 9, Turn: 2},
			{At: 12, Turn: 2},
		},
	},
	"ramp": {
		Name:        "ramp",
		Description: "automatic triangle sweep of the duty cycle",
		Events: []automation.Event{
			{At: 0, Freq: 1000},
			{At: 0.1, Press: "ramp"},
			{At: 5, Resp: 2},
		},
	},
	"mode-tour": {
		Name:        "mode-tour",
		Description: "every mode in turn, alternate readout halfway",
		Events: []automation.Event{
			{At: 0, Switches: u16(0b0001_00011)},
			{At: 0.1, Press: "open"},
			{At: 0.2, Turn: 30},
			{At: 3, Press: "closed"},
			{At: 3.1, Turn: 30},
			{At: 6, Switches: u16(0b1_0001_00011)},
			{At: 8, Press: "ramp"},
			{At: 11, Press: "off"},
		},
	},
}

// GetPreset returns a default config running the named scenario, nil if
// there is no such preset.
func GetPreset(name string) *Config {
	s, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	cfg.Scenario = s
	cfg.Scenario.Events = append([]automation.Event(nil), s.Events...)
	if end := s.End() + 5; end > cfg.Run.Duration {
		cfg.Run.Duration = end
	}
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
