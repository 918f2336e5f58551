// Package dynamo provides the ODE primitives behind the simulated rig.
//
//   - [State]: vector of continuous rig state (servo angle, carriage position)
//   - [Control]: inputs held constant over one integration step
//   - [System]: dX/dt = f(X, u, t)
//   - [Integrator]: numerical stepper (see the integrators package)
//
// The control loop itself never depends on this package; only the plant
// package uses it to advance the simulated hardware between ticks.
package dynamo
