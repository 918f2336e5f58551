// Package device defines the contracts between the friction control loop
// and the outside world.
//
// The loop never talks to hardware directly. It reads raw samples from a
// [Sensor], writes clamped angles to an [Actuator] and hands one [Record]
// per tick to every configured [Sink] and [Observer]:
//
//   - [Sensor]: blocking, bounded-latency read of the slider potentiometer
//   - [Actuator]: servo horn angle in degrees, always pre-clamped
//   - [Sink]: append-only record stream flushed when the loop terminates
//   - [Clock]: wall time and sleep, swapped for a manual clock in benches
//
// Implementations live in the hw (real rig) and plant (simulated rig)
// packages.
package device
