// Package transit provides the bus-dispatch training services: observation,
// reward, dispatch and the control loop that drives the learning agent.
package transit

import (
	"fmt"

	domainTransit "github.com/surak-alf/addis-trans/internal/domain/transit"
)

// queryGuard swallows recoverable query errors and remembers the first
// fatal one.
type queryGuard struct {
	fatal error
}

// ok reports whether err is nil. Once a fatal error is seen, ok keeps
// returning false so the capture stops issuing queries.
func (g *queryGuard) ok(err error) bool {
	if g.fatal != nil {
		return false
	}
	if err == nil {
		return true
	}
	if domainTransit.IsFatal(err) {
		g.fatal = err
	}
	return false
}

// Capture reads the simulator state the encoder and reward need. Failed
// per-entity queries fall back to zero; only a lost connection, or a failed
// clock read, is returned as an error.
func Capture(q domainTransit.Queries) (*domainTransit.Snapshot, error) {
	now, err := q.Time()
	if err != nil {
		return nil, fmt.Errorf("failed to read simulation time: %w", err)
	}

	g := &queryGuard{}
	snap := &domainTransit.Snapshot{Time: now}

	stopIDs, err := q.StopIDs()
	if !g.ok(err) {
		stopIDs = nil
	}
	for _, id := range stopIDs {
		snap.Stops = append(snap.Stops, captureStop(q, g, id))
	}

	vehicleIDs, err := q.VehicleIDs()
	if !g.ok(err) {
		vehicleIDs = nil
	}
	for _, id := range vehicleIDs {
		snap.Vehicles = append(snap.Vehicles, captureVehicle(q, g, id))
	}

	edgeIDs, err := q.EdgeIDs()
	if !g.ok(err) {
		edgeIDs = nil
	}
	for _, id := range edgeIDs {
		count, err := q.EdgeVehicleCount(id)
		if !g.ok(err) {
			count = 0
		}
		snap.Edges = append(snap.Edges, domainTransit.EdgeSnapshot{ID: id, VehicleCount: count})
	}

	if g.fatal != nil {
		return nil, fmt.Errorf("failed to capture snapshot at t=%.0f: %w", now, g.fatal)
	}
	return snap, nil
}

func captureStop(q domainTransit.Queries, g *queryGuard, id string) domainTransit.StopSnapshot {
	stop := domainTransit.StopSnapshot{ID: id}

	if count, err := q.StopPersonCount(id); g.ok(err) {
		stop.PersonCount = count
	}

	persons, err := q.StopPersonIDs(id)
	if g.ok(err) {
		for _, p := range persons {
			wait, err := q.PersonWaitingTime(p)
			if !g.ok(err) {
				wait = 0
			}
			stop.WaitTimes = append(stop.WaitTimes, wait)
		}
	}

	if linked, err := q.StopVehicleIDs(id); g.ok(err) {
		stop.LinkedVehicles = len(linked)
	}
	return stop
}

func captureVehicle(q domainTransit.Queries, g *queryGuard, id string) domainTransit.VehicleSnapshot {
	v := domainTransit.VehicleSnapshot{ID: id}

	if load, err := q.VehicleLoad(id); g.ok(err) {
		v.Load = load
	}
	if speed, err := q.VehicleSpeed(id); g.ok(err) {
		v.Speed = speed
	}
	if next, err := q.VehicleNextStops(id); g.ok(err) && len(next) > 0 {
		if pos, err := q.VehicleLanePosition(id); g.ok(err) {
			v.HasNextStop = true
			v.LanePosition = pos
		}
	}
	if wait, err := q.VehicleAccumulatedWaiting(id); g.ok(err) {
		v.AccumulatedWait = wait
	}
	if co2, err := q.VehicleCO2Emission(id); g.ok(err) {
		v.CO2 = co2
	}
	return v
}
