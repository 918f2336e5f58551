package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"go.uber.org/multierr"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/san-kum/haptix/internal/device"
	"github.com/san-kum/haptix/internal/hysteresis"
)

// EnvPrefix marks environment overrides, e.g.
// HAPTIX_FRICTION__SPRING_RATE=0.2 sets friction.spring_rate.
const EnvPrefix = "HAPTIX_"

const (
	DefaultPeriod    = 0.01
	DefaultWarmUp    = 1.0
	DefaultResetHold = 2.0
	DefaultAlpha     = 0.7
	DefaultKp        = 0.8
	DefaultKi        = 0.0
	DefaultKd        = 0.05
	DefaultHistory   = 7
	DefaultDataDir   = ".haptix"
)

// DefaultCoefficients is the servo FIR for 100 Hz ticks, fitted to the
// bench rig (-0.18 mm per degree). The newest delta has not moved the
// slider yet when velocity is measured, hence the leading zero.
var DefaultCoefficients = []float64{0, -6.2, -5.0, -3.1, -1.8, -0.9, -0.5}

type Config struct {
	Backend    string           `yaml:"backend" koanf:"backend"`
	DataDir    string           `yaml:"data_dir" koanf:"data_dir"`
	Loop       LoopConfig       `yaml:"loop" koanf:"loop"`
	Filter     FilterConfig     `yaml:"filter" koanf:"filter"`
	Friction   FrictionConfig   `yaml:"friction" koanf:"friction"`
	Controller ControllerConfig `yaml:"controller" koanf:"controller"`
	Servo      ServoConfig      `yaml:"servo" koanf:"servo"`
	Hysteresis HysteresisConfig `yaml:"hysteresis" koanf:"hysteresis"`
	Hardware   HardwareConfig   `yaml:"hardware" koanf:"hardware"`
	Sim        SimConfig        `yaml:"sim" koanf:"sim"`
	Telemetry  TelemetryConfig  `yaml:"telemetry" koanf:"telemetry"`
	Log        LogConfig        `yaml:"log" koanf:"log"`
}

// LoopConfig times are in seconds.
type LoopConfig struct {
	Period         float64 `yaml:"period" koanf:"period"`
	WarmUp         float64 `yaml:"warm_up" koanf:"warm_up"`
	ResetHold      float64 `yaml:"reset_hold" koanf:"reset_hold"`
	Duration       float64 `yaml:"duration" koanf:"duration"` // 0 runs until interrupted
	ResetOnRelease bool    `yaml:"reset_on_release" koanf:"reset_on_release"`
}

type FilterConfig struct {
	Alpha         float64 `yaml:"alpha" koanf:"alpha"`
	FullScale     float64 `yaml:"full_scale" koanf:"full_scale"`
	Span          float64 `yaml:"span" koanf:"span"`
	Cal           float64 `yaml:"cal" koanf:"cal"`
	Offset        float64 `yaml:"offset" koanf:"offset"`
	HighPassAlpha float64 `yaml:"high_pass_alpha" koanf:"high_pass_alpha"`
}

type CalibrationStep struct {
	Above float64 `yaml:"above" koanf:"above"`
	Step  float64 `yaml:"step" koanf:"step"`
}

type FrictionConfig struct {
	SpringRate             float64           `yaml:"spring_rate" koanf:"spring_rate"`
	MaxStaticFriction      float64           `yaml:"max_static_friction" koanf:"max_static_friction"`
	DynamicFriction        float64           `yaml:"dynamic_friction" koanf:"dynamic_friction"`
	SlipVelocity           float64           `yaml:"slip_velocity" koanf:"slip_velocity"`
	ResetVelocity          float64           `yaml:"reset_velocity" koanf:"reset_velocity"`
	FeedforwardGain        float64           `yaml:"feedforward_gain" koanf:"feedforward_gain"`
	DynamicFeedforwardGain float64           `yaml:"dynamic_feedforward_gain" koanf:"dynamic_feedforward_gain"`
	CalibrationTolerance   float64           `yaml:"calibration_tolerance" koanf:"calibration_tolerance"`
	Calibration            []CalibrationStep `yaml:"calibration" koanf:"calibration"`
}

type ControllerConfig struct {
	Kp            float64 `yaml:"kp" koanf:"kp"`
	Ki            float64 `yaml:"ki" koanf:"ki"`
	Kd            float64 `yaml:"kd" koanf:"kd"`
	TargetCap     float64 `yaml:"target_cap" koanf:"target_cap"`
	VelocityScale float64 `yaml:"velocity_scale" koanf:"velocity_scale"`
}

type ServoConfig struct {
	AngleMin  float64 `yaml:"angle_min" koanf:"angle_min"`
	AngleMax  float64 `yaml:"angle_max" koanf:"angle_max"`
	PulseMin  float64 `yaml:"pulse_min" koanf:"pulse_min"`
	PulseMax  float64 `yaml:"pulse_max" koanf:"pulse_max"`
	Start     float64 `yaml:"start" koanf:"start"`
	Neutral   float64 `yaml:"neutral" koanf:"neutral"`
	Settle    float64 `yaml:"settle" koanf:"settle"`
	Pin       string  `yaml:"pin" koanf:"pin"`
	Frequency float64 `yaml:"frequency" koanf:"frequency"`
}

type HysteresisConfig struct {
	Coefficients []float64 `yaml:"coefficients" koanf:"coefficients"`
	File         string    `yaml:"file" koanf:"file"`
	History      int       `yaml:"history" koanf:"history"`
}

type HardwareConfig struct {
	I2CBus      string `yaml:"i2c_bus" koanf:"i2c_bus"`
	ADCAddress  uint16 `yaml:"adc_address" koanf:"adc_address"`
	ADCChannel  int    `yaml:"adc_channel" koanf:"adc_channel"`
	SerialPort  string `yaml:"serial_port" koanf:"serial_port"`
	BaudRate    int    `yaml:"baud_rate" koanf:"baud_rate"`
	OpenRetries int    `yaml:"open_retries" koanf:"open_retries"`
}

// SimConfig drives the simulated rig. The operator script is a list of
// constant-velocity segments.
type SimConfig struct {
	Integrator      string       `yaml:"integrator" koanf:"integrator"`
	Substeps        int          `yaml:"substeps" koanf:"substeps"`
	AngleToDistance float64      `yaml:"angle_to_distance" koanf:"angle_to_distance"`
	SlewRate        float64      `yaml:"slew_rate" koanf:"slew_rate"`
	TimeConstant    float64      `yaml:"time_constant" koanf:"time_constant"`
	Backlash        float64      `yaml:"backlash" koanf:"backlash"`
	RestCompression float64      `yaml:"rest_compression" koanf:"rest_compression"`
	Noise           float64      `yaml:"noise" koanf:"noise"`
	Seed            int64        `yaml:"seed" koanf:"seed"`
	Realtime        bool         `yaml:"realtime" koanf:"realtime"`
	Script          []SimSegment `yaml:"script" koanf:"script"`
}

type SimSegment struct {
	Duration float64 `yaml:"duration" koanf:"duration"`
	Velocity float64 `yaml:"velocity" koanf:"velocity"`
}

type TelemetryConfig struct {
	Broker   string `yaml:"broker" koanf:"broker"`
	ClientID string `yaml:"client_id" koanf:"client_id"`
	Topic    string `yaml:"topic" koanf:"topic"`
	QoS      byte   `yaml:"qos" koanf:"qos"`
}

type LogConfig struct {
	Level       string  `yaml:"level" koanf:"level"`
	Development bool    `yaml:"development" koanf:"development"`
	TraceRate   float64 `yaml:"trace_rate" koanf:"trace_rate"` // debug tick lines per second
}

func DefaultConfig() *Config {
	return &Config{
		Backend: "sim",
		DataDir: DefaultDataDir,
		Loop: LoopConfig{
			Period:         DefaultPeriod,
			WarmUp:         DefaultWarmUp,
			ResetHold:      DefaultResetHold,
			ResetOnRelease: true,
		},
		Filter: FilterConfig{
			Alpha:         DefaultAlpha,
			FullScale:     32767,
			Span:          10.5,
			Cal:           1.01,
			Offset:        1.0,
			HighPassAlpha: 0.3,
		},
		Friction: FrictionConfig{
			SpringRate:             0.16,
			MaxStaticFriction:      0.8,
			DynamicFriction:        0.4,
			SlipVelocity:           0.2,
			ResetVelocity:          -5,
			FeedforwardGain:        1.2,
			DynamicFeedforwardGain: 2.7,
			CalibrationTolerance:   0.03,
			Calibration: []CalibrationStep{
				{Above: 1.1, Step: 2.0},
				{Above: 1.0, Step: 0.3},
				{Above: 0.1, Step: 0.1},
				{Above: 0.02, Step: 0.01},
			},
		},
		Controller: ControllerConfig{
			Kp:            DefaultKp,
			Ki:            DefaultKi,
			Kd:            DefaultKd,
			TargetCap:     0.15,
			VelocityScale: 50,
		},
		Servo: ServoConfig{
			AngleMin:  0,
			AngleMax:  180,
			PulseMin:  500,
			PulseMax:  2400,
			Start:     0,
			Neutral:   80,
			Settle:    1.0,
			Pin:       "GPIO18",
			Frequency: 50,
		},
		Hysteresis: HysteresisConfig{
			Coefficients: append([]float64(nil), DefaultCoefficients...),
			History:      DefaultHistory,
		},
		Hardware: HardwareConfig{
			ADCAddress:  0x48,
			ADCChannel:  0,
			SerialPort:  "/dev/ttyACM0",
			BaudRate:    115200,
			OpenRetries: 5,
		},
		Sim: SimConfig{
			Integrator:      "rk4",
			Substeps:        4,
			AngleToDistance: -0.18,
			SlewRate:        1000,
			TimeConstant:    0.015,
			Backlash:        0.5,
			RestCompression: 9.0,
			Noise:           2,
			Seed:            1,
			Script: []SimSegment{
				{Duration: 4, Velocity: 0},
				{Duration: 3, Velocity: 4},
				{Duration: 0.5, Velocity: -20},
			},
		},
		Telemetry: TelemetryConfig{
			ClientID: "haptix",
			Topic:    "haptix/records",
		},
		Log: LogConfig{
			Level:     "info",
			TraceRate: 10,
		},
	}
}

// Load layers defaults, the YAML file at path (skipped when path is empty)
// and HAPTIX_ environment variables, in that order.
func Load(path string) (*Config, error) {
	return LoadOver(DefaultConfig(), path)
}

// LoadOver is Load with base in place of the defaults, e.g. a preset.
func LoadOver(base *Config, path string) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(base, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}
	envKey := func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := cfg.YAML()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) YAML() ([]byte, error) {
	return yamlv3.Marshal(c)
}

// Coefficients resolves the hysteresis coefficient vector: the file wins
// over the inline list, and at most History values are kept.
func (c *Config) Coefficients() ([]float64, error) {
	if c.Hysteresis.File != "" {
		return hysteresis.LoadCoefficients(c.Hysteresis.File, c.Hysteresis.History)
	}
	coeffs := c.Hysteresis.Coefficients
	if c.Hysteresis.History > 0 && len(coeffs) > c.Hysteresis.History {
		coeffs = coeffs[:c.Hysteresis.History]
	}
	if len(coeffs) == 0 {
		return nil, hysteresis.ErrNoCoefficients
	}
	return append([]float64(nil), coeffs...), nil
}

// Validate reports every setting that cannot drive a session. All errors
// wrap device.ErrConfig.
func (c *Config) Validate() error {
	var errs error
	bad := func(format string, args ...any) {
		errs = multierr.Append(errs, fmt.Errorf("%w: "+format, append([]any{device.ErrConfig}, args...)...))
	}

	if c.Friction.SpringRate == 0 {
		bad("friction.spring_rate must be non-zero")
	}
	if c.Friction.MaxStaticFriction <= 0 {
		bad("friction.max_static_friction must be positive, got %g", c.Friction.MaxStaticFriction)
	}
	if c.Friction.DynamicFriction < 0 || c.Friction.DynamicFriction > c.Friction.MaxStaticFriction {
		bad("friction.dynamic_friction must lie in [0, max_static_friction], got %g", c.Friction.DynamicFriction)
	}
	if c.Friction.ResetVelocity >= 0 {
		bad("friction.reset_velocity must be negative, got %g", c.Friction.ResetVelocity)
	}
	if c.Filter.Alpha <= 0 || c.Filter.Alpha > 1 {
		bad("filter.alpha must lie in (0, 1], got %g", c.Filter.Alpha)
	}
	if c.Filter.FullScale == 0 || c.Filter.Cal == 0 {
		bad("filter.full_scale and filter.cal must be non-zero")
	}
	if c.Filter.HighPassAlpha <= 0 || c.Filter.HighPassAlpha > 1 {
		bad("filter.high_pass_alpha must lie in (0, 1], got %g", c.Filter.HighPassAlpha)
	}
	if c.Loop.Period <= 0 {
		bad("loop.period must be positive, got %g", c.Loop.Period)
	}
	if c.Loop.WarmUp < 0 || c.Loop.ResetHold < 0 || c.Loop.Duration < 0 {
		bad("loop durations must not be negative")
	}
	if c.Servo.AngleMin >= c.Servo.AngleMax {
		bad("servo.angle_min %g must be below servo.angle_max %g", c.Servo.AngleMin, c.Servo.AngleMax)
	}
	if c.Servo.Neutral < c.Servo.AngleMin || c.Servo.Neutral > c.Servo.AngleMax {
		bad("servo.neutral %g outside [%g, %g]", c.Servo.Neutral, c.Servo.AngleMin, c.Servo.AngleMax)
	}
	if c.Servo.Start < c.Servo.AngleMin || c.Servo.Start > c.Servo.AngleMax {
		bad("servo.start %g outside [%g, %g]", c.Servo.Start, c.Servo.AngleMin, c.Servo.AngleMax)
	}
	if c.Servo.PulseMin >= c.Servo.PulseMax {
		bad("servo.pulse_min must be below servo.pulse_max")
	}
	if c.Servo.Frequency <= 0 {
		bad("servo.frequency %g must be positive", c.Servo.Frequency)
	}
	if _, err := c.Coefficients(); err != nil {
		bad("hysteresis: %v", err)
	}
	for i, s := range c.Friction.Calibration {
		if s.Step <= 0 {
			bad("friction.calibration[%d].step must be positive", i)
		}
		if i > 0 && s.Above >= c.Friction.Calibration[i-1].Above {
			bad("friction.calibration must be ordered from far to near")
		}
	}
	return errs
}

// ScriptSpan is how long a simulated run needs to play the whole operator
// script, including homing, warm-up and the hold after a release.
func (c *Config) ScriptSpan() float64 {
	total := c.Servo.Settle + c.Loop.WarmUp + c.Loop.ResetHold
	for _, s := range c.Sim.Script {
		total += s.Duration
	}
	return total
}

// ServoRange returns the actuator configuration.
func (c *Config) ServoRange() device.ServoRange {
	return device.ServoRange{
		AngleMax: c.Servo.AngleMax,
		PulseMin: c.Servo.PulseMin,
		PulseMax: c.Servo.PulseMax,
	}
}
