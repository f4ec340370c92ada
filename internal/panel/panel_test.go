package panel

import (
	"bytes"
	"strings"
	"testing"

	"github.com/san-kum/fanctl/internal/fan"
)

func TestSplitSwitches(t *testing.T) {
	freq, resp, alt := SplitSwitches(0b1_0011_00111)
	if freq != 0b00111 || resp != 0b0011 || !alt {
		t.Errorf("SplitSwitches = %05b %04b %v", freq, resp, alt)
	}
}

func TestFreqSelect(t *testing.T) {
	tests := []struct {
		group uint16
		want  int
	}{
		{0b00000, 10},
		{0b00001, 100},
		{0b00011, 1000},
		{0b00111, 3000},
		{0b01111, 5000},
		{0b11111, 7500},
		{0b00010, 10},
		{0b10101, 10},
	}
	for _, tt := range tests {
		if got := FreqSelect(tt.group); got != tt.want {
			t.Errorf("FreqSelect(%05b) = %d, want %d", tt.group, got, tt.want)
		}
	}
}

func TestRespSelect(t *testing.T) {
	tests := []struct {
		group uint16
		want  int
	}{
		{0b0000, 1},
		{0b0001, 2},
		{0b0011, 5},
		{0b0111, 10},
		{0b1111, 20},
		{0b1000, 1},
	}
	for _, tt := range tests {
		if got := RespSelect(tt.group); got != tt.want {
			t.Errorf("RespSelect(%04b) = %d, want %d", tt.group, got, tt.want)
		}
	}
}

func TestSwitchesRoundTrip(t *testing.T) {
	for _, f := range Frequencies {
		sw, ok := FreqSwitches(f)
		if !ok {
			t.Fatalf("FreqSwitches(%d) not found", f)
		}
		if got := FreqSelect(sw); got != f {
			t.Errorf("frequency %d round-tripped to %d", f, got)
		}
	}
	for _, r := range Responsivenesses {
		sw, ok := RespSwitches(r)
		if !ok {
			t.Fatalf("RespSwitches(%d) not found", r)
		}
		_, group, _ := SplitSwitches(sw)
		if got := RespSelect(group); got != r {
			t.Errorf("responsiveness %d round-tripped to %d", r, got)
		}
	}
	if _, ok := FreqSwitches(42); ok {
		t.Error("42 Hz should not be selectable")
	}
}

func TestSelectorsNotices(t *testing.T) {
	var s Selectors

	set, notices := s.Update(0)
	if len(notices) != 0 || set.PWMFrequency != 10 || set.Responsiveness != 1 {
		t.Fatalf("power-up with switches off: %+v %v", set, notices)
	}

	set, notices = s.Update(0b0011_00011)
	if set.PWMFrequency != 1000 || set.Responsiveness != 5 {
		t.Errorf("settings = %+v", set)
	}
	if len(notices) != 2 || notices[0].Kind != NoticeFrequency || notices[1].Value != 5 {
		t.Errorf("notices = %+v", notices)
	}

	_, notices = s.Update(0b1_0011_00011)
	if len(notices) != 0 {
		t.Errorf("SW9 alone produced notices %+v", notices)
	}
}

func TestReadout(t *testing.T) {
	tests := []struct {
		name  string
		frame fan.Frame
		want  string
	}{
		{"off", fan.Frame{Mode: fan.ModeOff}, "OFF   "},
		{"off alt", fan.Frame{Mode: fan.ModeOff, ShowAlt: true}, "OFF   "},
		{"ramp rpm", fan.Frame{Mode: fan.ModeRamp, RPS: 21}, "AU1260"},
		{"ramp stopped", fan.Frame{Mode: fan.ModeRamp}, "AU0000"},
		{"ramp alt on-time", fan.Frame{Mode: fan.ModeRamp, ShowAlt: true, OnTime: 42}, "AU 042"},
		{"closed desired measured", fan.Frame{Mode: fan.ModeClosedLoop, DesiredSpeed: 25, MeasuredSpeed: 7}, "CL2507"},
		{"closed alt full", fan.Frame{Mode: fan.ModeClosedLoop, ShowAlt: true, OnTime: 100}, "CL 100"},
		{"open", fan.Frame{Mode: fan.ModeOpenLoop, DesiredSpeed: 50, MeasuredSpeed: 50}, "OP5050"},
		{"open alt rpm", fan.Frame{Mode: fan.ModeOpenLoop, ShowAlt: true, RPS: 5}, "OP0300"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Readout(tt.frame).String(); got != tt.want {
				t.Errorf("Readout = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNotices(t *testing.T) {
	if got := FrequencyNotice(7500).String(); got != "F 7500" {
		t.Errorf("FrequencyNotice = %q", got)
	}
	if got := FrequencyNotice(10).String(); got != "F 0010" {
		t.Errorf("FrequencyNotice = %q", got)
	}
	if got := ResponsivenessNotice(5).String(); got != "r   05" {
		t.Errorf("ResponsivenessNotice = %q", got)
	}
}

func TestScrollFrames(t *testing.T) {
	frames := ScrollFrames(fan.ModeClosedLoop)
	if len(frames) != 7 {
		t.Fatalf("got %d frames, want 7", len(frames))
	}
	want := []string{"      ", "     C", "    CL", "   CLO", "  CLOS", " CLOSE", "CLOSEd"}
	for i, w := range want {
		if frames[i].String() != w {
			t.Errorf("frame %d = %q, want %q", i, frames[i], w)
		}
	}

	off := ScrollFrames(fan.ModeOff)
	if last := off[len(off)-1].String(); last != "OFF   " {
		t.Errorf("final OFF frame = %q", last)
	}
}

func TestSegments(t *testing.T) {
	d, err := Parse("AU1260")
	if err != nil {
		t.Fatal(err)
	}
	hex54, hex30 := d.Registers()
	if hex54 != 0x0841 {
		t.Errorf("HEX5..4 = %#04x, want 0x0841", hex54)
	}
	if hex30 != 0xF9240240 {
		t.Errorf("HEX3..0 = %#08x, want 0xf9240240", hex30)
	}

	if _, err := Parse("AU12"); err == nil {
		t.Error("expected error for short text")
	}
	if _, err := Parse("XY1234"); err == nil {
		t.Error("expected error for unknown glyph")
	}
}

func TestLEDBar(t *testing.T) {
	tests := []struct {
		duty int
		want uint16
	}{
		{0, 0},
		{9, 0},
		{10, 0b1000000000},
		{45, 0b1111000000},
		{99, 0b1111111110},
		{100, 0b1111111111},
	}
	for _, tt := range tests {
		if got := LEDBar(tt.duty); got != tt.want {
			t.Errorf("LEDBar(%d) = %010b, want %010b", tt.duty, got, tt.want)
		}
	}
	if s := LEDString(LEDBar(30)); s != "■■■□□□□□□□" {
		t.Errorf("LEDString = %q", s)
	}
}

func TestConsoleOnlyPrintsChanges(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	f := fan.Frame{Mode: fan.ModeRamp, RPS: 10, DutyCycle: 30}
	c.Show(f)
	c.Show(f)
	f.RPS = 11
	c.Show(f)
	c.Announce(fan.ModeOpenLoop)

	out := buf.String()
	if n := strings.Count(out, "AU"); n != 2 {
		t.Errorf("printed %d readouts, want 2:\n%s", n, out)
	}
	if !strings.Contains(out, "OPEn") {
		t.Errorf("banner missing:\n%s", out)
	}
}

func TestMultiAndRecorder(t *testing.T) {
	var a, b Recorder
	m := Multi{&a, &b, Nop{}}
	m.Show(fan.Frame{Iteration: 3})
	m.Announce(fan.ModeRamp)
	m.Notify(Notice{Kind: NoticeFrequency, Value: 100})

	for _, r := range []*Recorder{&a, &b} {
		if r.Frames != 1 || r.Last.Iteration != 3 || len(r.Announced) != 1 || len(r.Notices) != 1 {
			t.Errorf("recorder = %+v", r)
		}
	}
}
