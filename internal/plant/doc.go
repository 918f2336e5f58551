// Package plant simulates the friction rig so the control loop can run
// without hardware.
//
// The model has two continuous states: the servo horn angle, which chases
// the commanded angle through a first-order lag with a backlash deadband
// and a slew limit, and the carriage position, which a scripted operator
// drives at piecewise-constant velocity. The potentiometer measures spring
// compression:
//
//	compression = RestCompression + carriage + AngleToDistance*angle
//
// A [Rig] implements both device.Sensor and device.Actuator and advances
// itself to the current time of its clock on every call, so it works with
// the wall clock or with the manual [Clock] used for fast benches.
package plant
