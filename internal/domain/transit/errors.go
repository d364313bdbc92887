package transit

import "errors"

// Domain errors for dispatch control.
var (
	// ErrInvalidAction indicates an action index outside the action space.
	ErrInvalidAction = errors.New("invalid action index")

	// ErrInvalidDecision indicates a decision not present in the action table.
	ErrInvalidDecision = errors.New("decision not in action table")

	// ErrInvalidConfig indicates an inconsistent transit configuration.
	ErrInvalidConfig = errors.New("invalid transit configuration")
)

// Simulator errors. Every error except ErrConnectionLost is recoverable.
var (
	// ErrUnknownVehicle indicates the vehicle id is not active.
	ErrUnknownVehicle = errors.New("unknown vehicle")

	// ErrDuplicateVehicle indicates a vehicle with the same id already exists.
	ErrDuplicateVehicle = errors.New("duplicate vehicle id")

	// ErrUnknownRoute indicates the route id is not defined.
	ErrUnknownRoute = errors.New("unknown route")

	// ErrUnknownStop indicates the stop id is not defined or not on the route.
	ErrUnknownStop = errors.New("unknown stop")

	// ErrUnknownEdge indicates the edge id is not defined.
	ErrUnknownEdge = errors.New("unknown edge")

	// ErrUnknownPerson indicates the person id is not active.
	ErrUnknownPerson = errors.New("unknown person")

	// ErrNoUpcomingStop indicates the vehicle has no remaining stops.
	ErrNoUpcomingStop = errors.New("no upcoming stop")

	// ErrConnectionLost indicates the simulator can no longer be reached.
	ErrConnectionLost = errors.New("simulator connection lost")
)

// IsFatal reports whether a simulator error must terminate the control loop.
func IsFatal(err error) bool {
	return errors.Is(err, ErrConnectionLost)
}
