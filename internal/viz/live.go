package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/fanctl/internal/fan"
	"github.com/san-kum/fanctl/internal/hw"
	"github.com/san-kum/fanctl/internal/panel"
)

type TickMsg time.Time

// Model draws a Feed and, when op is set, turns key presses into panel
// input.
type Model struct {
	feed     *Feed
	op       hw.Operator
	switches uint16
	title    string
	snap     snapshot
	quitting bool
}

// NewModel starts from the board's current switch word. op may be nil for
// boards that take no operator input.
func NewModel(feed *Feed, op hw.Operator, switches uint16, title string) Model {
	return Model{
		feed:     feed,
		op:       op,
		switches: switches,
		title:    title,
		snap:     feed.snapshot(),
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/30, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return tick()
}

// Update handles input events and refreshes the snapshot.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "1":
			m.press(hw.KeyOff)
		case "2":
			m.press(hw.KeyRamp)
		case "3":
			m.press(hw.KeyClosedLoop)
		case "4":
			m.press(hw.KeyOpenLoop)
		case "right", "l":
			m.turn(1)
		case "left", "h":
			m.turn(-1)
		case "f":
			m.setSwitches(nextFrequency(m.switches))
		case "r":
			m.setSwitches(nextResponsiveness(m.switches))
		case "a":
			m.setSwitches(m.switches ^ 0x200)
		}
	case TickMsg:
		m.snap = m.feed.snapshot()
		return m, tick()
	}
	return m, nil
}

func (m *Model) press(k hw.Key) {
	if m.op != nil {
		m.op.Press(k)
	}
}

func (m *Model) turn(n int) {
	if m.op != nil {
		m.op.Turn(n)
	}
}

func (m *Model) setSwitches(sw uint16) {
	if m.op == nil {
		return
	}
	m.switches = sw
	m.op.SetSwitches(sw)
}

func nextFrequency(sw uint16) uint16 {
	freq, _, _ := panel.SplitSwitches(sw)
	next := panel.Frequencies[0]
	cur := panel.FreqSelect(freq)
	for i, f := range panel.Frequencies {
		if f == cur {
			next = panel.Frequencies[(i+1)%len(panel.Frequencies)]
		}
	}
	group, _ := panel.FreqSwitches(next)
	return sw&^0x1F | group
}

func nextResponsiveness(sw uint16) uint16 {
	_, resp, _ := panel.SplitSwitches(sw)
	next := panel.Responsivenesses[0]
	cur := panel.RespSelect(resp)
	for i, r := range panel.Responsivenesses {
		if r == cur {
			next = panel.Responsivenesses[(i+1)%len(panel.Responsivenesses)]
		}
	}
	group, _ := panel.RespSwitches(next)
	return sw&^0x1E0 | group
}

// View renders the TUI interface.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	s := m.snap
	f := s.frame

	var b strings.Builder
	b.WriteString(HeaderStyle.Render(strings.ToUpper(m.title)) + "\n\n")

	status := StatusRunning.Render("RUNNING")
	if s.done {
		status = StatusStopped.Render("STOPPED")
		if s.err != nil {
			status += " " + Subtle.Render(s.err.Error())
		}
	}
	b.WriteString(status + "\n\n")

	b.WriteString(DigitsStyle.Render(spaced(s.digits.String())) + "\n")
	b.WriteString(ledBar(panel.LEDBar(f.DutyCycle)) + "\n\n")

	row := func(label, value string) {
		b.WriteString(MetricLabel.Render(fmt.Sprintf("%-12s", label)) + MetricValue.Render(value) + "\n")
	}
	row("Mode", f.Mode.String())
	row("Duty", fmt.Sprintf("%d%%", f.DutyCycle))
	row("On-time", fmt.Sprintf("%d%%", f.OnTime))
	row("Speed", fmt.Sprintf("%d / %d", f.MeasuredSpeed, f.DesiredSpeed))
	row("Fan", fmt.Sprintf("%d rpm", panel.RPM(f.RPS)))
	row("PWM", fmt.Sprintf("%d Hz", f.PWMFrequency))
	row("Step", fmt.Sprintf("%d", f.Responsiveness))
	row("Switches", fmt.Sprintf("%010b", m.switches))

	if len(s.meas) > 1 {
		chart := asciigraph.PlotMany([][]float64{s.desired, s.meas},
			asciigraph.Height(8),
			asciigraph.Width(60),
			asciigraph.LowerBound(0),
			asciigraph.UpperBound(fan.MaxSpeed),
			asciigraph.Caption("desired / measured speed"))
		b.WriteString("\n" + GraphStyle.Render(chart) + "\n")
		b.WriteString(MetricLabel.Render("on-time     ") + SparklineChart(s.onTime, 60) + "\n")
	}

	if m.op != nil {
		b.WriteString(KeyHint.Render("\n1-4 mode  ←/→ encoder  f freq  r step  a alt  q quit"))
	} else {
		b.WriteString(KeyHint.Render("\nq quit"))
	}
	return GlassPanel.Render(b.String())
}

func spaced(s string) string {
	return strings.Join(strings.Split(s, ""), " ")
}

func ledBar(leds uint16) string {
	var b strings.Builder
	for i := panel.NumLEDs - 1; i >= 0; i-- {
		if leds&(1<<i) != 0 {
			b.WriteString(LEDOn.Render("●"))
		} else {
			b.WriteString(LEDOff.Render("○"))
		}
	}
	return b.String()
}
