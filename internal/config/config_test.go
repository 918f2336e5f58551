package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/multierr"

	"github.com/san-kum/haptix/internal/device"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Backend != "sim" {
		t.Errorf("expected backend sim, got %s", cfg.Backend)
	}
	if cfg.Loop.Period <= 0 {
		t.Error("period should be positive")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
	if got := cfg.Friction.MaxStaticFriction / cfg.Friction.SpringRate; got < 4.999 || got > 5.001 {
		t.Errorf("static target position should be 5 mm, got %f", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero spring rate", func(c *Config) { c.Friction.SpringRate = 0 }},
		{"alpha zero", func(c *Config) { c.Filter.Alpha = 0 }},
		{"alpha above one", func(c *Config) { c.Filter.Alpha = 1.5 }},
		{"zero period", func(c *Config) { c.Loop.Period = 0 }},
		{"inverted angles", func(c *Config) { c.Servo.AngleMin = 180; c.Servo.AngleMax = 0 }},
		{"neutral out of range", func(c *Config) { c.Servo.Neutral = 200 }},
		{"zero servo frequency", func(c *Config) { c.Servo.Frequency = 0 }},
		{"negative servo frequency", func(c *Config) { c.Servo.Frequency = -50 }},
		{"no coefficients", func(c *Config) { c.Hysteresis.Coefficients = nil }},
		{"positive reset velocity", func(c *Config) { c.Friction.ResetVelocity = 1 }},
		{"dynamic above static", func(c *Config) { c.Friction.DynamicFriction = 1 }},
		{"unordered calibration", func(c *Config) {
			c.Friction.Calibration = []CalibrationStep{{Above: 0.1, Step: 0.1}, {Above: 1, Step: 1}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, device.ErrConfig) {
				t.Errorf("expected ErrConfig, got %v", err)
			}
		})
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Friction.SpringRate = 0
	cfg.Loop.Period = -1

	errs := multierr.Errors(cfg.Validate())
	if len(errs) != 2 {
		t.Errorf("expected 2 errors, got %d: %v", len(errs), errs)
	}
}

func TestCoefficientsTruncated(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Hysteresis.Coefficients = []float64{1, 2, 3, 4}
	cfg.Hysteresis.History = 2

	got, err := cfg.Coefficients()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]float64{1, 2}, got); diff != "" {
		t.Errorf("coefficients (-want +got):\n%s", diff)
	}
}

func TestCoefficientsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "servo.txt")
	if err := os.WriteFile(path, []byte("0.1\n0.2\n0.1\n0\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg := DefaultConfig()
	cfg.Hysteresis.File = path

	got, err := cfg.Coefficients()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]float64{0.1, 0.2, 0.1, 0}, got); diff != "" {
		t.Errorf("coefficients (-want +got):\n%s", diff)
	}
}

func TestLoadLayers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "haptix.yaml")
	data := `
backend: hw
friction:
  spring_rate: 0.2
loop:
  period: 0.02
hysteresis:
  coefficients: [0.1, 0.2]
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("HAPTIX_CONTROLLER__KP", "1.5")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Backend != "hw" {
		t.Errorf("backend: got %s", cfg.Backend)
	}
	if cfg.Friction.SpringRate != 0.2 {
		t.Errorf("spring rate: got %f", cfg.Friction.SpringRate)
	}
	if cfg.Friction.MaxStaticFriction != 0.8 {
		t.Errorf("default not kept: got %f", cfg.Friction.MaxStaticFriction)
	}
	if cfg.Loop.Period != 0.02 {
		t.Errorf("period: got %f", cfg.Loop.Period)
	}
	if cfg.Controller.Kp != 1.5 {
		t.Errorf("env override: got kp %f", cfg.Controller.Kp)
	}
	if diff := cmp.Diff([]float64{0.1, 0.2}, cfg.Hysteresis.Coefficients); diff != "" {
		t.Errorf("coefficients (-want +got):\n%s", diff)
	}
	if len(cfg.Friction.Calibration) != 4 {
		t.Errorf("calibration schedule lost: %v", cfg.Friction.Calibration)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "haptix.yaml")
	want := DefaultConfig()
	want.Friction.DynamicFriction = 0.35
	want.Servo.Pin = "GPIO12"

	if err := Save(path, want); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip (-want +got):\n%s", diff)
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("50hz")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.Loop.Period != 0.02 {
		t.Errorf("expected period 0.02, got %f", cfg.Loop.Period)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("preset should validate: %v", err)
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if cfg := GetPreset("nonexistent"); cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}
	if ApplyPreset(DefaultConfig(), "nonexistent") {
		t.Error("expected false for nonexistent preset")
	}
}

func TestListPresets(t *testing.T) {
	presets := ListPresets()
	if diff := cmp.Diff([]string{"100hz", "50hz", "bench", "hardware"}, presets); diff != "" {
		t.Errorf("presets (-want +got):\n%s", diff)
	}
}

func TestLoadOverPreset(t *testing.T) {
	base := GetPreset("50hz")
	path := filepath.Join(t.TempDir(), "haptix.yaml")
	if err := os.WriteFile(path, []byte("friction:\n  dynamic_friction: 0.3\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadOver(base, path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Loop.Period != 0.02 {
		t.Errorf("preset period lost: %f", cfg.Loop.Period)
	}
	if cfg.Friction.DynamicFriction != 0.3 {
		t.Errorf("file did not override preset: %f", cfg.Friction.DynamicFriction)
	}
	if diff := cmp.Diff(base.Hysteresis.Coefficients, cfg.Hysteresis.Coefficients); diff != "" {
		t.Errorf("coefficients (-want +got):\n%s", diff)
	}
}

func TestScriptSpan(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Servo.Settle = 1
	cfg.Loop.WarmUp = 1
	cfg.Loop.ResetHold = 2
	cfg.Sim.Script = []SimSegment{{Duration: 4}, {Duration: 3, Velocity: 4}}

	if got := cfg.ScriptSpan(); got != 11 {
		t.Errorf("ScriptSpan() = %f, want 11", got)
	}
}
