// Package control provides the feedback controller that turns slider
// position error into a servo angle.
//
//   - [PID]: Proportional-Integral-Derivative controller with a hard angle clamp
//   - [GainSchedule]: bounded gain boost while the operator is sliding
//
// # Usage
//
//	pid := control.NewPID(0.8, 0, 0.05, 0, 180) // Kp, Ki, Kd, angle bounds
//	signal := pid.Update(target-position, dt)
//	angle := pid.Command(signal)
//	pid.BaseAngle = angle
//
// PID exposes GetParams/SetParam; loop.Loop.SetGain uses them to retune a
// loop between runs, as the gain sweep does for each candidate.
package control
