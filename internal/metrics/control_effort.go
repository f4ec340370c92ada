package metrics

import "github.com/san-kum/fanctl/internal/fan"

// ControlEffort is the mean on-time over iterations with the fan enabled.
type ControlEffort struct {
	name    string
	sum     float64
	samples int
}

func NewControlEffort() *ControlEffort {
	return &ControlEffort{
		name: "control_effort",
	}
}

func (c *ControlEffort) Name() string {
	return c.name
}

func (c *ControlEffort) Observe(f fan.Frame) {
	if f.Mode == fan.ModeOff {
		return
	}
	c.sum += float64(f.OnTime)
	c.samples++
}

func (c *ControlEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *ControlEffort) Reset() {
	c.sum = 0
	c.samples = 0
}

// Transitions counts mode changes.
type Transitions struct {
	count int
}

func NewTransitions() *Transitions {
	return &Transitions{}
}

func (t *Transitions) Name() string {
	return "transitions"
}

func (t *Transitions) Observe(f fan.Frame) {
	if f.Transition {
		t.count++
	}
}

func (t *Transitions) Value() float64 {
	return float64(t.count)
}

func (t *Transitions) Reset() {
	t.count = 0
}
