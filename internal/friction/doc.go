// Package friction decides what force the operator should feel and where
// the slider has to be for the spring to produce it.
//
// A session walks Calibrating -> Static -> Dynamic. Calibration pulls the
// carriage to the zero-friction setpoint with a coarse-to-fine correction
// [Schedule]. Static renders stiction until the operator both pushes hard
// enough and actually slides; Dynamic then renders the lower sliding
// friction for the rest of the session. The only way back is a session
// reset, which returns to Calibrating.
package friction
