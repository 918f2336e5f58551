package loop

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/san-kum/haptix/internal/config"
	"github.com/san-kum/haptix/internal/control"
	"github.com/san-kum/haptix/internal/device"
	"github.com/san-kum/haptix/internal/filter"
	"github.com/san-kum/haptix/internal/friction"
	"github.com/san-kum/haptix/internal/hysteresis"
)

type Loop struct {
	sensor    device.Sensor
	actuator  device.Actuator
	clock     device.Clock
	log       *zap.Logger
	sinks     []device.Sink
	observers []device.Observer
	trace     *rate.Limiter

	period     time.Duration
	warmUp     time.Duration
	resetHold  time.Duration
	duration   time.Duration
	settle     time.Duration
	springRate float64
	startAngle float64
	neutral    float64

	lowpass  *filter.LowPass
	highpass *filter.HighPass
	model    *hysteresis.Model
	history  *hysteresis.History
	machine  *friction.Machine
	pid      *control.PID
	gain     control.GainSchedule
	ff       friction.Feedforward

	started      bool
	runStart     time.Time
	sessionStart time.Time
	session      int
	ticks        int
	prev         device.Sample
	prevSmoothed float64
	extVel       float64
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// New validates cfg and builds a loop around the given collaborators.
func New(cfg *config.Config, sensor device.Sensor, actuator device.Actuator, opts ...Option) (*Loop, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	coeffs, err := cfg.Coefficients()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", device.ErrConfig, err)
	}
	model, err := hysteresis.New(coeffs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", device.ErrConfig, err)
	}

	schedule := make(friction.Schedule, 0, len(cfg.Friction.Calibration))
	for _, s := range cfg.Friction.Calibration {
		schedule = append(schedule, friction.Correction{Above: s.Above, Step: s.Step})
	}

	l := &Loop{
		sensor:   sensor,
		actuator: actuator,
		clock:    device.SystemClock,
		log:      zap.NewNop(),

		period:     seconds(cfg.Loop.Period),
		warmUp:     seconds(cfg.Loop.WarmUp),
		resetHold:  seconds(cfg.Loop.ResetHold),
		duration:   seconds(cfg.Loop.Duration),
		settle:     seconds(cfg.Servo.Settle),
		springRate: cfg.Friction.SpringRate,
		startAngle: cfg.Servo.Start,
		neutral:    cfg.Servo.Neutral,

		lowpass: filter.NewLowPass(cfg.Filter.Alpha, filter.Mapping{
			FullScale: cfg.Filter.FullScale,
			Span:      cfg.Filter.Span,
			Cal:       cfg.Filter.Cal,
			Offset:    cfg.Filter.Offset,
		}),
		highpass: filter.NewHighPass(cfg.Filter.HighPassAlpha),
		model:    model,
		history:  hysteresis.NewHistory(model.Len()),
		machine: friction.NewMachine(friction.Params{
			SpringRate:        cfg.Friction.SpringRate,
			MaxStaticFriction: cfg.Friction.MaxStaticFriction,
			DynamicFriction:   cfg.Friction.DynamicFriction,
			SlipVelocity:      cfg.Friction.SlipVelocity,
			ResetVelocity:     cfg.Friction.ResetVelocity,
			ResetOnRelease:    cfg.Loop.ResetOnRelease,
			Schedule:          schedule,
			Tolerance:         cfg.Friction.CalibrationTolerance,
		}),
		pid: control.NewPID(cfg.Controller.Kp, cfg.Controller.Ki, cfg.Controller.Kd,
			cfg.Servo.AngleMin, cfg.Servo.AngleMax),
		gain: control.GainSchedule{
			TargetCap:     cfg.Controller.TargetCap,
			VelocityScale: cfg.Controller.VelocityScale,
			SlipVelocity:  cfg.Friction.SlipVelocity,
		},
		ff: friction.Feedforward{
			Gain:        cfg.Friction.FeedforwardGain,
			DynamicGain: cfg.Friction.DynamicFeedforwardGain,
		},
	}
	for _, opt := range opts {
		opt(l)
	}
	if cfg.Log.TraceRate > 0 {
		l.trace = rate.NewLimiter(rate.Limit(cfg.Log.TraceRate), 1)
	}
	l.pid.BaseAngle = l.startAngle
	return l, nil
}

// Mode is the current friction mode.
func (l *Loop) Mode() friction.Mode { return l.machine.Mode() }

// Session counts sessions started, beginning at 1 after the first tick.
func (l *Loop) Session() int { return l.session }

// Gains reports the controller parameters by name ("Kp", "Ki", "Kd",
// "AngleMin", "AngleMax").
func (l *Loop) Gains() map[string]float64 { return l.pid.GetParams() }

// SetGain changes one controller parameter. Session restarts keep it. Not
// safe to call while Run is active.
func (l *Loop) SetGain(name string, value float64) error {
	if err := l.pid.SetParam(name, value); err != nil {
		return fmt.Errorf("%w: %v", device.ErrConfig, err)
	}
	return nil
}

// Home drives the servo to the start angle and waits for it to settle.
func (l *Loop) Home() error {
	if err := l.actuator.Set(l.startAngle); err != nil {
		return wrapIO(device.ErrActuator, err)
	}
	l.pid.BaseAngle = l.startAngle
	l.clock.Sleep(l.settle)
	return nil
}

// Run ticks until ctx is cancelled, the configured duration elapses or a
// collaborator fails. On exit the servo is sent to the neutral angle and the
// sinks are flushed. Cancellation is not an error.
func (l *Loop) Run(ctx context.Context) (err error) {
	defer func() {
		err = multierr.Append(err, l.shutdown())
	}()

	if !l.started {
		l.begin(l.clock.Now())
	}
	l.log.Info("loop started",
		zap.Duration("period", l.period),
		zap.Duration("duration", l.duration))

	for {
		select {
		case <-ctx.Done():
			l.log.Info("loop cancelled", zap.Int("ticks", l.ticks))
			return nil
		default:
		}

		tickStart := l.clock.Now()
		if l.duration > 0 && tickStart.Sub(l.runStart) >= l.duration {
			l.log.Info("loop finished", zap.Int("ticks", l.ticks))
			return nil
		}

		if _, _, err := l.Step(tickStart); err != nil {
			l.log.Error("tick failed", zap.Int("tick", l.ticks), zap.Error(err))
			return err
		}

		// No catch-up: a late tick just shortens the sleep to zero.
		if rem := l.period - l.clock.Now().Sub(tickStart); rem > 0 {
			l.clock.Sleep(rem)
		}
	}
}

func (l *Loop) begin(now time.Time) {
	l.started = true
	l.runStart = now
	l.prev = device.Sample{Time: now}
	l.startSession(now)
}

func (l *Loop) startSession(now time.Time) {
	l.session++
	l.sessionStart = now
	l.machine.Reset()
	l.pid.Reset()
	l.pid.BaseAngle = l.startAngle
	l.history.Reset()
	l.highpass.Reset()
	l.extVel = 0
	l.log.Info("session started",
		zap.Int("session", l.session),
		zap.Float64("setpoint", l.machine.Setpoint()))
}

// Step runs one tick at time now. ok is false for warm-up ticks, which
// issue no command and emit no record.
func (l *Loop) Step(now time.Time) (rec device.Record, ok bool, err error) {
	if !l.started {
		l.begin(now)
	}
	l.ticks++

	raw, err := l.sensor.Read()
	if err != nil {
		return rec, false, l.tickError(now, wrapIO(device.ErrSensor, err))
	}
	sample := device.Sample{Raw: raw, Time: now}
	smoothed := l.lowpass.Apply(sample.Raw)

	dt := sample.Time.Sub(l.prev.Time).Seconds()
	velocity := 0.0
	if dt > 0 {
		velocity = (smoothed - l.prevSmoothed) / dt
	}
	defer func() {
		l.prevSmoothed = smoothed
		l.prev = sample
	}()

	if now.Sub(l.sessionStart) < l.warmUp {
		// Target tracks the slider while the filter converges.
		l.pid.SetPreviousError(0)
		return rec, false, nil
	}

	out := l.machine.Evaluate(smoothed)
	if out.Transition == friction.Calibrated {
		l.pid.ResetIntegral()
		l.log.Info("calibration complete",
			zap.Int("session", l.session),
			zap.Float64("position", smoothed),
			zap.Float64("command", l.pid.BaseAngle))
	}

	var target float64
	if out.Mode == friction.Calibrating {
		target = out.Target
	} else {
		target = l.ff.Target(out.Mode, out.Force, l.springRate, l.extVel, dt)
	}

	l.pid.SetScale(l.gain.Scale(out.Mode == friction.Dynamic, l.highpass.Apply(target), l.extVel))
	signal := l.pid.Update(target-smoothed, dt)
	command := l.pid.Command(signal)

	if err := l.actuator.Set(command); err != nil {
		return rec, false, l.tickError(now, wrapIO(device.ErrActuator, err))
	}

	l.history.Push(command - l.pid.BaseAngle)
	l.pid.BaseAngle = command
	selfVel := l.model.PredictSelfVelocity(l.history.Newest())
	l.extVel = velocity - selfVel

	detected := smoothed * l.springRate
	errPct := 0.0
	if out.Force > 0 {
		errPct = 100 * (detected - out.Force) / out.Force
	}

	rec = device.Record{
		Time:             now.Sub(l.runStart).Seconds(),
		Velocity:         velocity,
		TargetForce:      out.Force,
		RenderedForce:    detected,
		ErrorPercent:     errPct,
		Session:          l.session,
		Mode:             out.Mode.String(),
		Position:         smoothed,
		TargetPosition:   target,
		Command:          command,
		SelfVelocity:     selfVel,
		ExternalVelocity: l.extVel,
		Scale:            l.pid.Scale(),
	}
	l.emit(rec)

	if l.trace != nil && l.trace.AllowN(now, 1) {
		l.log.Debug("tick",
			zap.Int("tick", l.ticks),
			zap.Stringer("mode", out.Mode),
			zap.Float64("position", smoothed),
			zap.Float64("target", target),
			zap.Float64("command", command),
			zap.Float64("ext_vel", l.extVel))
	}

	switch l.machine.Observe(detected, l.extVel) {
	case friction.Slipped:
		l.log.Info("slip detected",
			zap.Int("session", l.session),
			zap.Float64("force", detected),
			zap.Float64("ext_vel", l.extVel))
	case friction.Released:
		l.log.Info("operator released, restarting session",
			zap.Int("session", l.session),
			zap.Float64("ext_vel", l.extVel),
			zap.Duration("hold", l.resetHold))
		if err := l.restart(); err != nil {
			return rec, true, l.tickError(now, err)
		}
	}
	return rec, true, nil
}

func (l *Loop) restart() error {
	if err := l.actuator.Set(l.startAngle); err != nil {
		return wrapIO(device.ErrActuator, err)
	}
	l.clock.Sleep(l.resetHold)
	l.startSession(l.clock.Now())
	return nil
}

func (l *Loop) emit(rec device.Record) {
	for _, s := range l.sinks {
		s.Append(rec)
	}
	for _, o := range l.observers {
		o.OnRecord(rec)
	}
}

func (l *Loop) shutdown() error {
	var errs error
	if err := l.actuator.Set(l.neutral); err != nil {
		errs = multierr.Append(errs, wrapIO(device.ErrActuator, err))
	} else {
		l.log.Info("servo parked", zap.Float64("angle", l.neutral))
	}
	for _, s := range l.sinks {
		errs = multierr.Append(errs, s.Flush())
	}
	return errs
}

func (l *Loop) tickError(now time.Time, err error) error {
	return &device.TickError{Tick: l.ticks, Time: now.Sub(l.runStart).Seconds(), Wrapped: err}
}

func wrapIO(kind, err error) error {
	if errors.Is(err, kind) {
		return err
	}
	return fmt.Errorf("%w: %v", kind, err)
}
