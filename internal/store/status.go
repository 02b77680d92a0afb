package store

// Resource names an asynchronous operation whose progress is tracked.
type Resource string

const (
	ResourceVehicles    Resource = "vehicles"
	ResourceLocations   Resource = "locations"
	ResourceFilter      Resource = "filter"
	ResourceRegister    Resource = "register"
	ResourceLogin       Resource = "login"
	ResourceReservation Resource = "reservation"
)

// Phase is the lifecycle of a tracked operation.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseLoading   Phase = "loading"
	PhaseSucceeded Phase = "succeeded"
	PhaseFailed    Phase = "failed"
)

// Status is the last known state of a resource. Reason is set when failed.
type Status struct {
	Phase  Phase  `json:"phase"`
	Reason string `json:"reason,omitempty"`
}

func failed(err error) Status {
	return Status{Phase: PhaseFailed, Reason: err.Error()}
}
