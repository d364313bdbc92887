// Package sim provides a seeded, stepped bus-corridor simulator that
// satisfies the transit simulator contract without an external process.
package sim

import (
	"fmt"

	domainTransit "github.com/surak-alf/addis-trans/internal/domain/transit"
)

// Config describes the synthetic corridor.
type Config struct {
	// Seed seeds demand, destinations and background traffic. Zero means
	// seed from the clock.
	Seed int64 `json:"seed"`

	// Routes are the route ids. Route r serves stops "r.0" .. "r.{n-1}".
	Routes []string `json:"routes"`

	// StopsPerRoute is the number of stops on each route.
	StopsPerRoute int `json:"stopsPerRoute"`

	// StopSpacing is the distance between consecutive stops in meters.
	StopSpacing float64 `json:"stopSpacing"`

	// CruiseSpeed is the free-flow bus speed in m/s.
	CruiseSpeed float64 `json:"cruiseSpeed"`

	// Capacity is the maximum number of passengers on one bus.
	Capacity int `json:"capacity"`

	// BoardingTime is the dwell added per boarding or alighting passenger.
	BoardingTime float64 `json:"boardingTime"`

	// MinDwell is the dwell at a stop when nobody boards or alights.
	MinDwell float64 `json:"minDwell"`

	// EndTime is the simulated second at which the simulation closes.
	EndTime float64 `json:"endTime"`

	// DemandScale multiplies the hourly passenger arrival rates.
	DemandScale float64 `json:"demandScale"`

	// BackgroundTraffic is the mean number of other vehicles per edge.
	BackgroundTraffic float64 `json:"backgroundTraffic"`

	// IdleEmission and CruiseEmission are CO2 rates in mg/s when stopped
	// and at cruise speed.
	IdleEmission   float64 `json:"idleEmission"`
	CruiseEmission float64 `json:"cruiseEmission"`
}

// DefaultConfig returns the default corridor.
func DefaultConfig() Config {
	return Config{
		Routes:            []string{"0", "1"},
		StopsPerRoute:     12,
		StopSpacing:       400,
		CruiseSpeed:       11,
		Capacity:          60,
		BoardingTime:      2,
		MinDwell:          10,
		EndTime:           30000,
		DemandScale:       1,
		BackgroundTraffic: 3,
		IdleEmission:      1500,
		CruiseEmission:    4000,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch {
	case len(c.Routes) == 0:
		return fmt.Errorf("%w: at least one route is required", domainTransit.ErrInvalidConfig)
	case c.StopsPerRoute < 2:
		return fmt.Errorf("%w: a route needs at least two stops", domainTransit.ErrInvalidConfig)
	case c.StopSpacing <= 0 || c.CruiseSpeed <= 0:
		return fmt.Errorf("%w: stop spacing and cruise speed must be positive", domainTransit.ErrInvalidConfig)
	case c.Capacity <= 0:
		return fmt.Errorf("%w: capacity must be positive", domainTransit.ErrInvalidConfig)
	case c.BoardingTime < 0 || c.MinDwell < 0 || c.DemandScale < 0 || c.BackgroundTraffic < 0:
		return fmt.Errorf("%w: rates and durations must be non-negative", domainTransit.ErrInvalidConfig)
	}
	seen := make(map[string]bool, len(c.Routes))
	for _, r := range c.Routes {
		if seen[r] {
			return fmt.Errorf("%w: duplicate route %q", domainTransit.ErrInvalidConfig, r)
		}
		seen[r] = true
	}
	return nil
}

// ArrivalsPerMinute returns the corridor-wide passenger arrival rate at the
// given simulated second: 10 in the morning peak, 12 in the evening peak and
// 4 otherwise.
func ArrivalsPerMinute(t float64) float64 {
	hour := t / 3600
	switch {
	case hour >= 7 && hour <= 9:
		return 10
	case hour >= 16 && hour <= 18:
		return 12
	default:
		return 4
	}
}
