package transit

import (
	"fmt"

	domainTransit "github.com/surak-alf/addis-trans/internal/domain/transit"
	"github.com/surak-alf/addis-trans/internal/infrastructure/events"
	"github.com/surak-alf/addis-trans/internal/infrastructure/logging"
)

// DispatchStatus is the result of applying one action.
type DispatchStatus string

const (
	// DispatchHeld means the dispatch window has not opened yet.
	DispatchHeld DispatchStatus = "held"
	// DispatchSent means a vehicle was inserted and the episode advanced.
	DispatchSent DispatchStatus = "dispatched"
	// DispatchFailed means the simulator rejected the insertion.
	DispatchFailed DispatchStatus = "failed"
)

// DispatchOutcome describes what Apply did.
type DispatchOutcome struct {
	Status    DispatchStatus         `json:"status"`
	Decision  domainTransit.Decision `json:"decision"`
	DueAt     float64                `json:"dueAt"`
	VehicleID string                 `json:"vehicleId,omitempty"`
	RouteID   string                 `json:"routeId,omitempty"`
	StopID    string                 `json:"stopId,omitempty"`

	// Err is the command error that failed the dispatch.
	Err error `json:"-"`

	// DwellErr is a failed dwell assignment on an otherwise successful dispatch.
	DwellErr error `json:"-"`
}

// ActionApplier turns decoded actions into simulator commands.
type ActionApplier struct {
	config   domainTransit.Config
	commands domainTransit.Commands
	logger   *logging.Logger
	bus      *events.EventBus
}

// NewActionApplier creates an applier. logger and bus may be nil.
func NewActionApplier(config domainTransit.Config, commands domainTransit.Commands, logger *logging.Logger, bus *events.EventBus) *ActionApplier {
	if logger == nil {
		logger = (*logging.LogManager)(nil).Named("dispatch")
	}
	return &ActionApplier{
		config:   config,
		commands: commands,
		logger:   logger,
		bus:      bus,
	}
}

// VehicleID returns the id used for a dispatch on route at now.
func VehicleID(routeID string, now float64) string {
	return fmt.Sprintf("bus_%s_%d", routeID, int64(now))
}

// Apply dispatches a vehicle if the shifted headway has elapsed. Command
// failures are reported in the outcome and logged; the returned error is
// reserved for invalid actions and a lost simulator connection.
func (a *ActionApplier) Apply(action int, now float64, episode *domainTransit.EpisodeState) (DispatchOutcome, error) {
	decision, err := domainTransit.Decode(action)
	if err != nil {
		return DispatchOutcome{}, err
	}

	outcome := DispatchOutcome{
		Status:   DispatchHeld,
		Decision: decision,
		DueAt:    episode.NextDispatchTime(decision.HeadwayShift),
	}
	if now < outcome.DueAt {
		return outcome, nil
	}

	outcome.RouteID = episode.NextRoute(a.config)
	outcome.VehicleID = VehicleID(outcome.RouteID, now)

	if err := a.insert(outcome.VehicleID, outcome.RouteID); err != nil {
		if domainTransit.IsFatal(err) {
			return outcome, fmt.Errorf("failed to dispatch %s: %w", outcome.VehicleID, err)
		}
		outcome.Status = DispatchFailed
		outcome.Err = err
		a.logger.Warning("dispatch failed", map[string]interface{}{
			"vehicle": outcome.VehicleID,
			"route":   outcome.RouteID,
			"error":   err.Error(),
		})
		if a.bus != nil {
			a.bus.EmitDispatchFailed(outcome.VehicleID, outcome.RouteID, err)
		}
		return outcome, nil
	}

	stopID, err := a.extendDwell(outcome.VehicleID, decision.DwellExtension)
	if err != nil {
		if domainTransit.IsFatal(err) {
			return outcome, fmt.Errorf("failed to set dwell for %s: %w", outcome.VehicleID, err)
		}
		outcome.DwellErr = err
		a.logger.Warning("dwell adjustment failed", map[string]interface{}{
			"vehicle": outcome.VehicleID,
			"stop":    stopID,
			"error":   err.Error(),
		})
	}
	outcome.StopID = stopID

	episode.RecordDispatch(a.config, now)
	outcome.Status = DispatchSent
	a.logger.Debug("vehicle dispatched", map[string]interface{}{
		"vehicle": outcome.VehicleID,
		"route":   outcome.RouteID,
		"shift":   decision.HeadwayShift,
		"dwell":   decision.DwellExtension,
	})
	return outcome, nil
}

// insert adds the vehicle and assigns its line.
func (a *ActionApplier) insert(vehicleID, routeID string) error {
	if err := a.commands.AddVehicle(vehicleID, routeID, a.config.VehicleType); err != nil {
		return fmt.Errorf("failed to add vehicle: %w", err)
	}
	if err := a.commands.SetLine(vehicleID, routeID); err != nil {
		return fmt.Errorf("failed to set line: %w", err)
	}
	return nil
}

// extendDwell requests a minimum stop duration at the vehicle's first
// scheduled stop. A vehicle without stops is left alone.
func (a *ActionApplier) extendDwell(vehicleID string, duration float64) (string, error) {
	stops, err := a.commands.VehicleStops(vehicleID)
	if err != nil {
		return "", fmt.Errorf("failed to list stops: %w", err)
	}
	if len(stops) == 0 {
		return "", nil
	}
	if err := a.commands.SetBusStop(vehicleID, stops[0], duration); err != nil {
		return stops[0], fmt.Errorf("failed to set bus stop: %w", err)
	}
	return stops[0], nil
}
