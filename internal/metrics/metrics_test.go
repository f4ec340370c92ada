package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/fanctl/internal/fan"
)

func closed(desired, measured int) fan.Frame {
	return fan.Frame{Mode: fan.ModeClosedLoop, DesiredSpeed: desired, MeasuredSpeed: measured}
}

func TestSpeedError(t *testing.T) {
	m := NewSpeedError()
	sd := NewSpeedErrorStddev()
	assert.Equal(t, 0.0, m.Value())

	for _, f := range []fan.Frame{
		closed(25, 21),
		closed(25, 27),
		{Mode: fan.ModeOpenLoop, DesiredSpeed: 50},
		closed(25, 25),
	} {
		m.Observe(f)
		sd.Observe(f)
	}
	assert.InDelta(t, 2.0, m.Value(), 1e-9)
	assert.InDelta(t, 1.8, sd.Value(), 0.21)

	m.Reset()
	assert.Equal(t, 0.0, m.Value())
}

func TestStability(t *testing.T) {
	s := NewStability(3)
	assert.Equal(t, 1.0, s.Value())

	s.Observe(closed(30, 10))
	s.Observe(closed(30, 28))
	s.Observe(closed(30, 33))
	s.Observe(closed(30, 31))
	s.Observe(fan.Frame{Mode: fan.ModeRamp})
	assert.InDelta(t, 0.75, s.Value(), 1e-9)
}

func TestControlEffortAndTransitions(t *testing.T) {
	c := NewControlEffort()
	tr := NewTransitions()
	for _, f := range []fan.Frame{
		{Mode: fan.ModeOff, Transition: true},
		{Mode: fan.ModeOpenLoop, OnTime: 40, Transition: true},
		{Mode: fan.ModeOpenLoop, OnTime: 60},
	} {
		c.Observe(f)
		tr.Observe(f)
	}
	assert.InDelta(t, 50.0, c.Value(), 1e-9)
	assert.Equal(t, 2.0, tr.Value())

	tr.Reset()
	assert.Equal(t, 0.0, tr.Value())
}

func TestDefaultsNamesUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, m := range Defaults() {
		require.False(t, seen[m.Name()], "duplicate metric %s", m.Name())
		seen[m.Name()] = true
	}
}

func TestExporter(t *testing.T) {
	e := NewExporter()
	e.Observe(fan.Frame{Mode: fan.ModeClosedLoop, DutyCycle: 60, OnTime: 72, RPS: 20, Transition: true, WindowClosed: true})
	e.Observe(fan.Frame{Mode: fan.ModeClosedLoop, DutyCycle: 60, OnTime: 70, RPS: 21})

	assert.Equal(t, 70.0, testutil.ToFloat64(e.onTime))
	assert.Equal(t, 21.0, testutil.ToFloat64(e.rps))
	assert.Equal(t, 2.0, testutil.ToFloat64(e.mode))
	assert.Equal(t, 2.0, testutil.ToFloat64(e.iterations))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.transitions))

	rec := httptest.NewRecorder()
	e.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "fanctl_tach_rps 21"))
}
