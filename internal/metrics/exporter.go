package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/san-kum/fanctl/internal/fan"
)

// Exporter mirrors the latest frame into Prometheus gauges.
type Exporter struct {
	registry *prometheus.Registry

	duty        prometheus.Gauge
	onTime      prometheus.Gauge
	rps         prometheus.Gauge
	desired     prometheus.Gauge
	measured    prometheus.Gauge
	mode        prometheus.Gauge
	frequency   prometheus.Gauge
	iterations  prometheus.Counter
	transitions prometheus.Counter
	windows     prometheus.Counter
}

func NewExporter() *Exporter {
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "fanctl", Name: name, Help: help})
	}
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{Namespace: "fanctl", Name: name, Help: help})
	}

	e := &Exporter{
		registry:    prometheus.NewRegistry(),
		duty:        gauge("duty_cycle_percent", "Operator or ramp duty cycle."),
		onTime:      gauge("on_time_percent", "On-time applied to the fan."),
		rps:         gauge("tach_rps", "Last published tachometer reading."),
		desired:     gauge("desired_speed", "Setpoint on the 0-50 scale."),
		measured:    gauge("measured_speed", "Measured speed on the 0-50 scale."),
		mode:        gauge("mode", "Active mode: 0 off, 1 ramp, 2 closed loop, 3 open loop."),
		frequency:   gauge("pwm_frequency_hz", "Selected PWM frequency."),
		iterations:  counter("iterations_total", "Control loop iterations."),
		transitions: counter("mode_transitions_total", "Mode changes."),
		windows:     counter("tach_windows_total", "Closed tachometer windows."),
	}
	e.registry.MustRegister(e.duty, e.onTime, e.rps, e.desired, e.measured, e.mode,
		e.frequency, e.iterations, e.transitions, e.windows)
	return e
}

// Observe records one frame.
func (e *Exporter) Observe(f fan.Frame) {
	e.duty.Set(float64(f.DutyCycle))
	e.onTime.Set(float64(f.OnTime))
	e.rps.Set(float64(f.RPS))
	e.desired.Set(float64(f.DesiredSpeed))
	e.measured.Set(float64(f.MeasuredSpeed))
	e.mode.Set(float64(f.Mode))
	e.frequency.Set(float64(f.PWMFrequency))
	e.iterations.Inc()
	if f.Transition {
		e.transitions.Inc()
	}
	if f.WindowClosed {
		e.windows.Inc()
	}
}

func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(
		e.registry,
		promhttp.HandlerOpts{
			// Opt into OpenMetrics to support exemplars.
			EnableOpenMetrics: true,
		},
	)
}

// Serve exposes /metrics on addr until ctx is done.
func (e *Exporter) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", e.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warningf("metrics server shutdown: %v", err)
		}
	}()

	log.Infof("serving metrics on %s/metrics", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
