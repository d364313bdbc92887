package transit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainTransit "github.com/surak-alf/addis-trans/internal/domain/transit"
)

func TestCapture_ReadsAllEntities(t *testing.T) {
	sim := newFakeSim()
	sim.now = 100

	snap, err := Capture(sim)
	require.NoError(t, err)

	assert.Equal(t, 100.0, snap.Time)
	require.Len(t, snap.Stops, 2)
	assert.Equal(t, 2, snap.Stops[0].PersonCount)
	assert.Equal(t, []float64{30, 90}, snap.Stops[0].WaitTimes)
	assert.Equal(t, 1, snap.Stops[1].LinkedVehicles)

	require.Len(t, snap.Vehicles, 1)
	v := snap.Vehicles[0]
	assert.Equal(t, 12, v.Load)
	assert.True(t, v.HasNextStop)
	assert.Equal(t, 150.0, v.LanePosition)
	assert.Equal(t, 2500.0, v.CO2)

	assert.Equal(t, []domainTransit.EdgeSnapshot{{ID: "0_0", VehicleCount: 3}, {ID: "0_1", VehicleCount: 1}}, snap.Edges)
}

func TestCapture_RecoverableFailuresDefaultToZero(t *testing.T) {
	sim := newFakeSim()
	sim.errs["PersonWaitingTime"] = domainTransit.ErrUnknownPerson
	sim.errs["VehicleLoad"] = domainTransit.ErrUnknownVehicle
	sim.errs["EdgeVehicleCount"] = domainTransit.ErrUnknownEdge

	snap, err := Capture(sim)
	require.NoError(t, err)

	assert.Equal(t, 2, snap.Stops[0].PersonCount)
	assert.Equal(t, []float64{0, 0}, snap.Stops[0].WaitTimes)
	assert.Equal(t, 0, snap.Vehicles[0].Load)
	assert.Equal(t, 8.0, snap.Vehicles[0].Speed)
	for _, e := range snap.Edges {
		assert.Zero(t, e.VehicleCount)
	}
}

func TestCapture_NoUpcomingStopZeroesLanePosition(t *testing.T) {
	sim := newFakeSim()
	sim.vehicles[0].next = nil

	snap, err := Capture(sim)
	require.NoError(t, err)
	assert.False(t, snap.Vehicles[0].HasNextStop)
	assert.Zero(t, snap.Vehicles[0].LanePosition)
}

func TestCapture_FailedListYieldsEmptyBlock(t *testing.T) {
	sim := newFakeSim()
	sim.errs["StopIDs"] = domainTransit.ErrUnknownStop

	snap, err := Capture(sim)
	require.NoError(t, err)
	assert.Empty(t, snap.Stops)
	assert.Len(t, snap.Vehicles, 1)
}

func TestCapture_LostConnectionIsReturned(t *testing.T) {
	sim := newFakeSim()
	sim.errs["VehicleSpeed"] = domainTransit.ErrConnectionLost

	_, err := Capture(sim)
	require.Error(t, err)
	assert.True(t, domainTransit.IsFatal(err))
}

func TestCapture_ClockFailureIsReturned(t *testing.T) {
	sim := newFakeSim()
	sim.errs["Time"] = domainTransit.ErrUnknownVehicle

	_, err := Capture(sim)
	assert.ErrorIs(t, err, domainTransit.ErrUnknownVehicle)
}
