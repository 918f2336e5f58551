package device

// Record is the per-tick log line of a session. The first five fields are
// the rendering accuracy columns persisted for every run; the rest are
// diagnostics.
type Record struct {
	Time          float64 `json:"time"`
	Velocity      float64 `json:"velocity"`
	TargetForce   float64 `json:"target_force"`
	RenderedForce float64 `json:"rendered_force"`
	ErrorPercent  float64 `json:"error_percent"`

	Session          int     `json:"session"`
	Mode             string  `json:"mode"`
	Position         float64 `json:"position"`
	TargetPosition   float64 `json:"target_position"`
	Command          float64 `json:"command"`
	SelfVelocity     float64 `json:"self_velocity"`
	ExternalVelocity float64 `json:"external_velocity"`
	Scale            float64 `json:"scale"`
}

// Sink receives every record of a run. Append must not block the tick;
// Flush is called once when the loop terminates.
type Sink interface {
	Append(r Record)
	Flush() error
}

type Observer interface {
	OnRecord(r Record)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(r Record)

func (f ObserverFunc) OnRecord(r Record) { f(r) }
