package automation

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/fanctl/internal/hw"
	"github.com/san-kum/fanctl/internal/panel"
)

// Scenario defines a scripted operator session
type Scenario struct {
	Name        string  `yaml:"name,omitempty" json:"name,omitempty"`
	Description string  `yaml:"description,omitempty" json:"description,omitempty"`
	Events      []Event `yaml:"events,omitempty" json:"events,omitempty"`
}

// Event is one operator action at a point in simulated time. Several
// actions in one event are applied in field order: switches, then freq,
// resp and alt, then press, then turn.
type Event struct {
	At       float64 `yaml:"at" json:"at"`
	Press    string  `yaml:"press,omitempty" json:"press,omitempty"`
	Turn     int     `yaml:"turn,omitempty" json:"turn,omitempty"`
	Switches *uint16 `yaml:"switches,omitempty" json:"switches,omitempty"`
	Freq     int     `yaml:"freq,omitempty" json:"freq,omitempty"`
	Resp     int     `yaml:"resp,omitempty" json:"resp,omitempty"`
	Alt      *bool   `yaml:"alt,omitempty" json:"alt,omitempty"`
}

func (e Event) String() string {
	s := fmt.Sprintf("t=%.3fs", e.At)
	if e.Switches != nil {
		s += fmt.Sprintf(" switches=%010b", *e.Switches)
	}
	if e.Freq != 0 {
		s += fmt.Sprintf(" freq=%d", e.Freq)
	}
	if e.Resp != 0 {
		s += fmt.Sprintf(" resp=%d", e.Resp)
	}
	if e.Alt != nil {
		s += fmt.Sprintf(" alt=%v", *e.Alt)
	}
	if e.Press != "" {
		s += " press=" + e.Press
	}
	if e.Turn != 0 {
		s += fmt.Sprintf(" turn=%+d", e.Turn)
	}
	return s
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("parsing scenario %s: %w", path, err)
	}
	if err := scenario.Validate(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return &scenario, nil
}

// Validate checks every event can be applied.
func (s Scenario) Validate() error {
	for i, e := range s.Events {
		if e.At < 0 {
			return fmt.Errorf("event %d: negative time %v", i+1, e.At)
		}
		if e.Press != "" {
			if _, err := hw.ParseKey(e.Press); err != nil {
				return fmt.Errorf("event %d: %w", i+1, err)
			}
		}
		if e.Freq != 0 {
			if _, ok := panel.FreqSwitches(e.Freq); !ok {
				return fmt.Errorf("event %d: frequency %d Hz not selectable (have %v)", i+1, e.Freq, panel.Frequencies)
			}
		}
		if e.Resp != 0 {
			if _, ok := panel.RespSwitches(e.Resp); !ok {
				return fmt.Errorf("event %d: responsiveness %d not selectable (have %v)", i+1, e.Resp, panel.Responsivenesses)
			}
		}
		if e.Switches != nil && *e.Switches > 0x3FF {
			return fmt.Errorf("event %d: switch word %#x wider than 10 bits", i+1, *e.Switches)
		}
	}
	return nil
}

// End is the time of the last event.
func (s Scenario) End() float64 {
	end := 0.0
	for _, e := range s.Events {
		if e.At > end {
			end = e.At
		}
	}
	return end
}

// Script replays a scenario against an operator as simulated time passes.
type Script struct {
	events   []Event
	next     int
	switches uint16
}

// NewScript orders the events by time; events at the same time keep their
// file order. switches is the switch word the board starts with.
func NewScript(s Scenario, switches uint16) (*Script, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	events := append([]Event(nil), s.Events...)
	sort.SliceStable(events, func(i, j int) bool { return events[i].At < events[j].At })
	return &Script{events: events, switches: switches}, nil
}

// Apply fires every event due at or before now and returns them.
func (s *Script) Apply(now float64, op hw.Operator) []Event {
	var fired []Event
	for s.next < len(s.events) && s.events[s.next].At <= now {
		e := s.events[s.next]
		s.apply(e, op)
		fired = append(fired, e)
		s.next++
	}
	return fired
}

func (s *Script) apply(e Event, op hw.Operator) {
	sw := s.switches
	if e.Switches != nil {
		sw = *e.Switches
	}
	if e.Freq != 0 {
		group, _ := panel.FreqSwitches(e.Freq)
		sw = sw&^0x1F | group
	}
	if e.Resp != 0 {
		group, _ := panel.RespSwitches(e.Resp)
		sw = sw&^0x1E0 | group
	}
	if e.Alt != nil {
		if *e.Alt {
			sw |= 0x200
		} else {
			sw &^= 0x200
		}
	}
	if sw != s.switches {
		s.switches = sw
		op.SetSwitches(sw)
	}

	if e.Press != "" {
		k, _ := hw.ParseKey(e.Press)
		op.Press(k)
	}
	if e.Turn != 0 {
		op.Turn(e.Turn)
	}
}

// Done reports whether every event has fired.
func (s *Script) Done() bool {
	return s.next >= len(s.events)
}

// Remaining is the number of events yet to fire.
func (s *Script) Remaining() int {
	return len(s.events) - s.next
}
