package panel

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/san-kum/fanctl/internal/fan"
)

// Display is the operator-facing output of the loop.
type Display interface {
	// Show is called once per iteration.
	Show(f fan.Frame)
	// Announce is called when a mode is entered. It may block the loop
	// while the banner scrolls.
	Announce(m fan.Mode)
	// Notify is called when the operator changes a switch group.
	Notify(n Notice)
}

// Nop discards everything.
type Nop struct{}

func (Nop) Show(fan.Frame)    {}
func (Nop) Announce(fan.Mode) {}
func (Nop) Notify(Notice)     {}

// Console prints the readout and LED bar to w whenever they change.
// Banners and notices are printed as single lines without delay.
type Console struct {
	w    io.Writer
	last string
}

func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) Show(f fan.Frame) {
	line := fmt.Sprintf("[%s] %s", Readout(f), LEDString(LEDBar(f.DutyCycle)))
	if line == c.last {
		return
	}
	c.last = line
	fmt.Fprintf(c.w, "%8d  %s\n", f.Iteration, line)
}

func (c *Console) Announce(m fan.Mode) {
	fmt.Fprintf(c.w, "          >> %s\n", Banner(m))
}

func (c *Console) Notify(n Notice) {
	fmt.Fprintf(c.w, "          [%s]\n", n.Digits())
}

// LEDString draws the LED bar, leftmost LED first.
func LEDString(leds uint16) string {
	var b strings.Builder
	for i := NumLEDs - 1; i >= 0; i-- {
		if leds&(1<<i) != 0 {
			b.WriteRune('■')
		} else {
			b.WriteRune('□')
		}
	}
	return b.String()
}

// Recorder keeps everything it is shown. It is safe for concurrent use.
type Recorder struct {
	mu        sync.Mutex
	Frames    int
	Last      fan.Frame
	Announced []fan.Mode
	Notices   []Notice
}

func (r *Recorder) Show(f fan.Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Frames++
	r.Last = f
}

func (r *Recorder) Announce(m fan.Mode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Announced = append(r.Announced, m)
}

func (r *Recorder) Notify(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Notices = append(r.Notices, n)
}

// Multi fans every call out to each display in order.
type Multi []Display

func (m Multi) Show(f fan.Frame) {
	for _, d := range m {
		d.Show(f)
	}
}

func (m Multi) Announce(mode fan.Mode) {
	for _, d := range m {
		d.Announce(mode)
	}
}

func (m Multi) Notify(n Notice) {
	for _, d := range m {
		d.Notify(n)
	}
}
