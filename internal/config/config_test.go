package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Backend != "sim" {
		t.Errorf("expected backend sim, got %s", cfg.Backend)
	}
	if cfg.Board.ClockHz != 50_000_000 {
		t.Errorf("expected 50 MHz clock, got %d", cfg.Board.ClockHz)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
	if got := cfg.Iterations(); got != 1_000_000 {
		t.Errorf("expected 1e6 iterations for 10 s, got %d", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero clock", func(c *Config) { c.Board.ClockHz = 0 }},
		{"one hertz clock", func(c *Config) { c.Board.ClockHz = 1 }},
		{"clock below top pwm frequency", func(c *Config) { c.Board.ClockHz = 5000 }},
		{"zero max rps", func(c *Config) { c.Board.MaxRPS = 0 }},
		{"duplicate pins", func(c *Config) { c.Board.Pins.Fan = c.Board.Pins.Tach }},
		{"unknown backend", func(c *Config) { c.Backend = "usb" }},
		{"wide switches", func(c *Config) { c.Run.Switches = 0x400 }},
		{"no serial device", func(c *Config) { c.Backend = "serial"; c.Serial.Device = "" }},
		{"three keys", func(c *Config) { c.Backend = "periph"; c.Periph.Keys = c.Periph.Keys[:3] }},
		{"zero ticks", func(c *Config) { c.Sim.TicksPerIteration = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestValidateSlowestClock(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Board.ClockHz = 7500
	if err := cfg.Validate(); err != nil {
		t.Errorf("7500 Hz clock rejected: %v", err)
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fan.yaml")
	cfg := GetPreset("closed-loop-step")
	cfg.Run.Switches = 0b0011_00011

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Run.Switches != cfg.Run.Switches {
		t.Errorf("switches = %b, want %b", got.Run.Switches, cfg.Run.Switches)
	}
	if len(got.Scenario.Events) != len(cfg.Scenario.Events) {
		t.Errorf("events = %d, want %d", len(got.Scenario.Events), len(cfg.Scenario.Events))
	}
}

func TestLoadPartial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fan.yaml")
	if err := os.WriteFile(path, []byte("run:\n  duration: 2\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Run.Duration != 2 {
		t.Errorf("duration = %v", cfg.Run.Duration)
	}
	if cfg.Sim.TicksPerIteration != DefaultTicksPerIteration {
		t.Error("defaults not kept for missing keys")
	}
}

func TestLoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fan.yaml")
	if err := os.WriteFile(path, []byte("backend: can\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("closed-loop-step")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.Scenario.Name != "closed-loop-step" {
		t.Errorf("scenario = %s", cfg.Scenario.Name)
	}
	if cfg.Run.Duration < cfg.Scenario.End() {
		t.Error("duration shorter than scenario")
	}

	cfg.Scenario.Events[0].At = 99
	if Presets["closed-loop-step"].Events[0].At == 99 {
		t.Error("preset events shared with returned config")
	}

	if GetPreset("nonexistent") != nil {
		t.Error("expected nil for nonexistent preset")
	}
}

func TestPresetsValid(t *testing.T) {
	names := ListPresets()
	if len(names) != len(Presets) {
		t.Fatalf("ListPresets returned %d of %d", len(names), len(Presets))
	}
	for _, name := range names {
		if err := GetPreset(name).Validate(); err != nil {
			t.Errorf("preset %s: %v", name, err)
		}
	}
}
