package viz

import (
	"sync"
	"time"

	"github.com/san-kum/fanctl/internal/fan"
	"github.com/san-kum/fanctl/internal/panel"
)

const (
	historyCapacity = 120
	// NoticeHold is how long a selector notice replaces the readout.
	NoticeHold = time.Second
)

// Feed is a panel.Display that keeps what the model needs to draw. The loop
// writes and the UI reads from different goroutines.
type Feed struct {
	mu  sync.Mutex
	now func() time.Time

	frame   fan.Frame
	frames  uint64
	desired []float64
	meas    []float64
	onTime  []float64

	banner   fan.Mode
	bannerAt time.Time
	notice   panel.Notice
	noticeAt time.Time

	done bool
	err  error
}

func NewFeed() *Feed {
	return &Feed{now: time.Now}
}

// Show keeps the frame and samples the chart at every closed tachometer
// window.
func (f *Feed) Show(fr fan.Frame) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frame = fr
	f.frames++
	if fr.WindowClosed || f.frames == 1 {
		f.desired = push(f.desired, float64(fr.DesiredSpeed))
		f.meas = push(f.meas, float64(fr.MeasuredSpeed))
		f.onTime = push(f.onTime, float64(fr.OnTime))
	}
}

func (f *Feed) Announce(m fan.Mode) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.banner = m
	f.bannerAt = f.now()
}

func (f *Feed) Notify(n panel.Notice) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notice = n
	f.noticeAt = f.now()
}

// Finish marks the run as over.
func (f *Feed) Finish(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.done = true
	f.err = err
}

func push(s []float64, v float64) []float64 {
	if len(s) == historyCapacity {
		copy(s, s[1:])
		s = s[:len(s)-1]
	}
	return append(s, v)
}

// snapshot is a consistent copy for one redraw.
type snapshot struct {
	frame   fan.Frame
	digits  panel.Digits
	desired []float64
	meas    []float64
	onTime  []float64
	done    bool
	err     error
}

func (f *Feed) snapshot() snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()

	s := snapshot{
		frame:   f.frame,
		digits:  panel.Readout(f.frame),
		desired: append([]float64(nil), f.desired...),
		meas:    append([]float64(nil), f.meas...),
		onTime:  append([]float64(nil), f.onTime...),
		done:    f.done,
		err:     f.err,
	}

	now := f.now()
	if !f.bannerAt.IsZero() {
		frames := panel.ScrollFrames(f.banner)
		// the last frame stays up for two intervals
		idx := int(now.Sub(f.bannerAt) / panel.ScrollInterval)
		if idx < len(frames)+1 {
			if idx >= len(frames) {
				idx = len(frames) - 1
			}
			s.digits = frames[idx]
			return s
		}
	}
	if !f.noticeAt.IsZero() && now.Sub(f.noticeAt) < NoticeHold {
		s.digits = f.notice.Digits()
	}
	return s
}
