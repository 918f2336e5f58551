// Package loop runs the fixed-rate friction rendering loop.
//
// One Loop owns every piece of per-session state: the position filter, the
// friction mode, the PID memory and the command history. Each tick reads the
// sensor, evaluates the friction mode, computes a target position, issues a
// clamped servo command and emits a device.Record to the configured sinks
// and observers. Nothing is shared with other goroutines.
package loop
