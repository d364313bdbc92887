// Package transit provides domain types for the bus dispatch controller.
package transit

import "fmt"

// Config holds the network and episode parameters shared by the feature
// encoder, the action applier and the control loop.
type Config struct {
	// RouteIDs are the routes that alternate on every successful dispatch.
	RouteIDs []string `json:"routeIds"`

	// VehicleType is the simulator vehicle type used for injected buses.
	VehicleType string `json:"vehicleType"`

	// StartTime is the simulated second episodes fast-forward to on reset.
	StartTime float64 `json:"startTime"`

	// EndTime is the last simulated second the simulator is configured for.
	EndTime float64 `json:"endTime"`

	// Horizon is the simulated second at which an episode terminates.
	Horizon float64 `json:"horizon"`

	// StepTicks is the number of simulated seconds advanced per decision.
	StepTicks int `json:"stepTicks"`

	// TargetHeadway is the nominal dispatch interval in seconds.
	TargetHeadway float64 `json:"targetHeadway"`

	// MaxStops is the number of stops encoded in the stop block.
	MaxStops int `json:"maxStops"`

	// StopFeatures is the number of features per stop.
	StopFeatures int `json:"stopFeatures"`

	// MaxVehicles is the number of vehicles encoded in the vehicle block.
	MaxVehicles int `json:"maxVehicles"`

	// VehicleFeatures is the number of features per vehicle.
	VehicleFeatures int `json:"vehicleFeatures"`

	// NetworkFeatures is the padded size of the network block.
	NetworkFeatures int `json:"networkFeatures"`
}

// DefaultConfig returns the default corridor configuration.
func DefaultConfig() Config {
	return Config{
		RouteIDs:        []string{"0", "1"},
		VehicleType:     "bus",
		StartTime:       21590,
		EndTime:         30000,
		Horizon:         28000,
		StepTicks:       60,
		TargetHeadway:   600,
		MaxStops:        15,
		StopFeatures:    4,
		MaxVehicles:     6,
		VehicleFeatures: 6,
		NetworkFeatures: 16,
	}
}

// StopBlockSize returns the length of the stop feature block.
func (c Config) StopBlockSize() int {
	return c.MaxStops * c.StopFeatures
}

// VehicleBlockSize returns the length of the vehicle feature block.
func (c Config) VehicleBlockSize() int {
	return c.MaxVehicles * c.VehicleFeatures
}

// StateDim returns the length of the encoded state vector.
func (c Config) StateDim() int {
	return c.StopBlockSize() + c.VehicleBlockSize() + c.NetworkFeatures
}

// Validate checks the configuration for internal consistency.
func (c Config) Validate() error {
	if len(c.RouteIDs) == 0 {
		return fmt.Errorf("%w: at least one route id is required", ErrInvalidConfig)
	}
	for i, id := range c.RouteIDs {
		if id == "" {
			return fmt.Errorf("%w: route id %d is empty", ErrInvalidConfig, i)
		}
	}
	if c.StepTicks <= 0 {
		return fmt.Errorf("%w: stepTicks must be positive", ErrInvalidConfig)
	}
	if c.TargetHeadway <= 0 {
		return fmt.Errorf("%w: targetHeadway must be positive", ErrInvalidConfig)
	}
	if c.Horizon <= c.StartTime {
		return fmt.Errorf("%w: horizon %.0f must be after startTime %.0f", ErrInvalidConfig, c.Horizon, c.StartTime)
	}
	if c.EndTime > 0 && c.EndTime < c.Horizon {
		return fmt.Errorf("%w: endTime %.0f is before horizon %.0f", ErrInvalidConfig, c.EndTime, c.Horizon)
	}
	if c.MaxStops < 0 || c.MaxVehicles < 0 {
		return fmt.Errorf("%w: entity limits must not be negative", ErrInvalidConfig)
	}
	if c.StopFeatures != 4 {
		return fmt.Errorf("%w: stopFeatures must be 4, got %d", ErrInvalidConfig, c.StopFeatures)
	}
	if c.VehicleFeatures != 6 {
		return fmt.Errorf("%w: vehicleFeatures must be 6, got %d", ErrInvalidConfig, c.VehicleFeatures)
	}
	if c.NetworkFeatures < NetworkFeatureCount {
		return fmt.Errorf("%w: networkFeatures must be at least %d", ErrInvalidConfig, NetworkFeatureCount)
	}
	return nil
}

// NetworkFeatureCount is the number of real (non-padding) network features.
const NetworkFeatureCount = 6
