package transit

import "context"

// Queries is the read surface of the traffic simulator. Ids are returned in
// the simulator's own stable order.
type Queries interface {
	// Time returns the current simulated second.
	Time() (float64, error)

	StopIDs() ([]string, error)
	StopPersonCount(stopID string) (int, error)
	StopPersonIDs(stopID string) ([]string, error)
	StopVehicleIDs(stopID string) ([]string, error)
	PersonWaitingTime(personID string) (float64, error)

	VehicleIDs() ([]string, error)
	VehicleLoad(vehicleID string) (int, error)
	VehicleSpeed(vehicleID string) (float64, error)
	VehicleLanePosition(vehicleID string) (float64, error)
	VehicleAccumulatedWaiting(vehicleID string) (float64, error)
	VehicleCO2Emission(vehicleID string) (float64, error)
	// VehicleNextStops returns ErrNoUpcomingStop when the vehicle has no
	// remaining stops.
	VehicleNextStops(vehicleID string) ([]string, error)

	EdgeIDs() ([]string, error)
	EdgeVehicleCount(edgeID string) (int, error)
}

// Commands is the write surface of the traffic simulator. Every command may
// fail with a recoverable error.
type Commands interface {
	AddVehicle(vehicleID, routeID, typeID string) error
	SetLine(vehicleID, line string) error
	// VehicleStops returns the stopping-place ids scheduled for the vehicle.
	VehicleStops(vehicleID string) ([]string, error)
	SetBusStop(vehicleID, stopID string, duration float64) error
}

// Simulator is the stepped traffic simulator the controller drives.
type Simulator interface {
	Queries
	Commands

	// Reset restarts the simulation and fast-forwards to startTime.
	Reset(ctx context.Context, startTime float64) error

	// Advance blocks until ticks simulated seconds have elapsed.
	Advance(ctx context.Context, ticks int) error

	// Close releases the simulator.
	Close() error
}
