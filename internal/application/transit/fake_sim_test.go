package transit

import (
	"context"
	"fmt"

	domainTransit "github.com/surak-alf/addis-trans/internal/domain/transit"
)

type fakeStop struct {
	id       string
	waits    []float64
	vehicles []string
}

type fakeVehicle struct {
	id    string
	load  int
	speed float64
	pos   float64
	wait  float64
	co2   float64
	next  []string
}

// fakeSim is a scripted simulator. errs maps a method name to the error it
// returns; vehicles added through AddVehicle become visible to queries.
type fakeSim struct {
	now      float64
	stops    []fakeStop
	vehicles []fakeVehicle
	edges    map[string]int
	edgeIDs  []string
	route    []string
	errs     map[string]error

	// fatalAt makes Advance fail with a lost connection once reached.
	fatalAt float64

	resets  int
	added   []string
	lines   map[string]string
	dwells  map[string]float64
	advance int
}

func newFakeSim() *fakeSim {
	return &fakeSim{
		stops: []fakeStop{
			{id: "0.0", waits: []float64{30, 90}},
			{id: "0.1", waits: []float64{60}, vehicles: []string{"v1"}},
		},
		vehicles: []fakeVehicle{
			{id: "v1", load: 12, speed: 8, pos: 150, wait: 40, co2: 2500, next: []string{"0.1"}},
		},
		edges:   map[string]int{"0_0": 3, "0_1": 1},
		edgeIDs: []string{"0_0", "0_1"},
		route:   []string{"0.0", "0.1"},
		errs:    map[string]error{},
		lines:   map[string]string{},
		dwells:  map[string]float64{},
	}
}

func (f *fakeSim) fail(method string) error {
	return f.errs[method]
}

func (f *fakeSim) vehicle(id string) (*fakeVehicle, error) {
	for i := range f.vehicles {
		if f.vehicles[i].id == id {
			return &f.vehicles[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", domainTransit.ErrUnknownVehicle, id)
}

func (f *fakeSim) stop(id string) (*fakeStop, error) {
	for i := range f.stops {
		if f.stops[i].id == id {
			return &f.stops[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", domainTransit.ErrUnknownStop, id)
}

func (f *fakeSim) Time() (float64, error) {
	if err := f.fail("Time"); err != nil {
		return 0, err
	}
	return f.now, nil
}

func (f *fakeSim) StopIDs() ([]string, error) {
	if err := f.fail("StopIDs"); err != nil {
		return nil, err
	}
	ids := make([]string, len(f.stops))
	for i, s := range f.stops {
		ids[i] = s.id
	}
	return ids, nil
}

func (f *fakeSim) StopPersonCount(stopID string) (int, error) {
	if err := f.fail("StopPersonCount"); err != nil {
		return 0, err
	}
	s, err := f.stop(stopID)
	if err != nil {
		return 0, err
	}
	return len(s.waits), nil
}

func (f *fakeSim) StopPersonIDs(stopID string) ([]string, error) {
	if err := f.fail("StopPersonIDs"); err != nil {
		return nil, err
	}
	s, err := f.stop(stopID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(s.waits))
	for i := range s.waits {
		ids[i] = fmt.Sprintf("%s/%d", stopID, i)
	}
	return ids, nil
}

func (f *fakeSim) StopVehicleIDs(stopID string) ([]string, error) {
	if err := f.fail("StopVehicleIDs"); err != nil {
		return nil, err
	}
	s, err := f.stop(stopID)
	if err != nil {
		return nil, err
	}
	return s.vehicles, nil
}

func (f *fakeSim) PersonWaitingTime(personID string) (float64, error) {
	if err := f.fail("PersonWaitingTime"); err != nil {
		return 0, err
	}
	var stopID string
	var idx int
	for i := len(personID) - 1; i >= 0; i-- {
		if personID[i] == '/' {
			stopID = personID[:i]
			fmt.Sscanf(personID[i+1:], "%d", &idx)
			break
		}
	}
	s, err := f.stop(stopID)
	if err != nil || idx >= len(s.waits) {
		return 0, fmt.Errorf("%w: %s", domainTransit.ErrUnknownPerson, personID)
	}
	return s.waits[idx], nil
}

func (f *fakeSim) VehicleIDs() ([]string, error) {
	if err := f.fail("VehicleIDs"); err != nil {
		return nil, err
	}
	ids := make([]string, len(f.vehicles))
	for i, v := range f.vehicles {
		ids[i] = v.id
	}
	return ids, nil
}

func (f *fakeSim) VehicleLoad(id string) (int, error) {
	if err := f.fail("VehicleLoad"); err != nil {
		return 0, err
	}
	v, err := f.vehicle(id)
	if err != nil {
		return 0, err
	}
	return v.load, nil
}

func (f *fakeSim) VehicleSpeed(id string) (float64, error) {
	if err := f.fail("VehicleSpeed"); err != nil {
		return 0, err
	}
	v, err := f.vehicle(id)
	if err != nil {
		return 0, err
	}
	return v.speed, nil
}

func (f *fakeSim) VehicleLanePosition(id string) (float64, error) {
	if err := f.fail("VehicleLanePosition"); err != nil {
		return 0, err
	}
	v, err := f.vehicle(id)
	if err != nil {
		return 0, err
	}
	return v.pos, nil
}

func (f *fakeSim) VehicleAccumulatedWaiting(id string) (float64, error) {
	if err := f.fail("VehicleAccumulatedWaiting"); err != nil {
		return 0, err
	}
	v, err := f.vehicle(id)
	if err != nil {
		return 0, err
	}
	return v.wait, nil
}

func (f *fakeSim) VehicleCO2Emission(id string) (float64, error) {
	if err := f.fail("VehicleCO2Emission"); err != nil {
		return 0, err
	}
	v, err := f.vehicle(id)
	if err != nil {
		return 0, err
	}
	return v.co2, nil
}

func (f *fakeSim) VehicleNextStops(id string) ([]string, error) {
	if err := f.fail("VehicleNextStops"); err != nil {
		return nil, err
	}
	v, err := f.vehicle(id)
	if err != nil {
		return nil, err
	}
	if len(v.next) == 0 {
		return nil, domainTransit.ErrNoUpcomingStop
	}
	return v.next, nil
}

func (f *fakeSim) EdgeIDs() ([]string, error) {
	if err := f.fail("EdgeIDs"); err != nil {
		return nil, err
	}
	return f.edgeIDs, nil
}

func (f *fakeSim) EdgeVehicleCount(id string) (int, error) {
	if err := f.fail("EdgeVehicleCount"); err != nil {
		return 0, err
	}
	n, ok := f.edges[id]
	if !ok {
		return 0, fmt.Errorf("%w: %s", domainTransit.ErrUnknownEdge, id)
	}
	return n, nil
}

func (f *fakeSim) AddVehicle(vehicleID, routeID, typeID string) error {
	if err := f.fail("AddVehicle"); err != nil {
		return err
	}
	if _, err := f.vehicle(vehicleID); err == nil {
		return fmt.Errorf("%w: %s", domainTransit.ErrDuplicateVehicle, vehicleID)
	}
	f.added = append(f.added, vehicleID)
	f.vehicles = append(f.vehicles, fakeVehicle{id: vehicleID, next: append([]string(nil), f.route...)})
	return nil
}

func (f *fakeSim) SetLine(vehicleID, line string) error {
	if err := f.fail("SetLine"); err != nil {
		return err
	}
	f.lines[vehicleID] = line
	return nil
}

func (f *fakeSim) VehicleStops(vehicleID string) ([]string, error) {
	if err := f.fail("VehicleStops"); err != nil {
		return nil, err
	}
	v, err := f.vehicle(vehicleID)
	if err != nil {
		return nil, err
	}
	return v.next, nil
}

func (f *fakeSim) SetBusStop(vehicleID, stopID string, duration float64) error {
	if err := f.fail("SetBusStop"); err != nil {
		return err
	}
	f.dwells[vehicleID+"@"+stopID] = duration
	return nil
}

func (f *fakeSim) Reset(ctx context.Context, startTime float64) error {
	if err := f.fail("Reset"); err != nil {
		return err
	}
	f.resets++
	f.now = startTime
	return nil
}

func (f *fakeSim) Advance(ctx context.Context, ticks int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.fatalAt > 0 && f.now+float64(ticks) >= f.fatalAt {
		return fmt.Errorf("advance: %w", domainTransit.ErrConnectionLost)
	}
	f.advance++
	f.now += float64(ticks)
	return nil
}

func (f *fakeSim) Close() error {
	return nil
}

var _ domainTransit.Simulator = (*fakeSim)(nil)
