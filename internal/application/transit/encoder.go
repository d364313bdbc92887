package transit

import (
	domainTransit "github.com/surak-alf/addis-trans/internal/domain/transit"
)

// FeatureEncoder turns a snapshot into a fixed-length state vector made of a
// stop block, a vehicle block and a network block. Each block is truncated to
// its configured entity count and zero-padded.
type FeatureEncoder struct {
	config domainTransit.Config
}

// NewFeatureEncoder creates an encoder for the given layout.
func NewFeatureEncoder(config domainTransit.Config) (*FeatureEncoder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &FeatureEncoder{config: config}, nil
}

// Dim returns the length of every encoded state.
func (e *FeatureEncoder) Dim() int {
	return e.config.StateDim()
}

// Encode builds the state vector. It depends only on its arguments.
func (e *FeatureEncoder) Encode(snap *domainTransit.Snapshot, episode *domainTransit.EpisodeState) []float64 {
	state := make([]float64, e.Dim())
	e.encodeStops(state[:e.config.StopBlockSize()], snap)
	e.encodeVehicles(state[e.config.StopBlockSize():e.config.StopBlockSize()+e.config.VehicleBlockSize()], snap, episode)
	e.encodeNetwork(state[e.config.StopBlockSize()+e.config.VehicleBlockSize():], snap, episode)
	return state
}

// encodeStops writes [waiting, mean wait, linked vehicles, queue growth] per stop.
func (e *FeatureEncoder) encodeStops(block []float64, snap *domainTransit.Snapshot) {
	for i, stop := range snap.Stops {
		if i >= e.config.MaxStops {
			break
		}
		waiting := float64(stop.PersonCount)
		meanWait := stop.MeanWait()
		row := block[i*e.config.StopFeatures:]
		row[0] = waiting
		row[1] = meanWait
		row[2] = float64(stop.LinkedVehicles)
		row[3] = waiting / (meanWait + 1)
	}
}

// encodeVehicles writes [load, speed, lane position, schedule deviation,
// accumulated waiting, headway deviation] per vehicle.
func (e *FeatureEncoder) encodeVehicles(block []float64, snap *domainTransit.Snapshot, episode *domainTransit.EpisodeState) {
	scheduleDev := episode.ScheduleDeviation(snap.Time)
	headwayDev := episode.HeadwayDeviation(snap.Time)
	for i, v := range snap.Vehicles {
		if i >= e.config.MaxVehicles {
			break
		}
		row := block[i*e.config.VehicleFeatures:]
		row[0] = float64(v.Load)
		row[1] = v.Speed
		if v.HasNextStop {
			row[2] = v.LanePosition
		}
		row[3] = scheduleDev
		row[4] = v.AccumulatedWait
		row[5] = headwayDev
	}
}

// encodeNetwork writes the corridor aggregates; the rest of the block stays zero.
func (e *FeatureEncoder) encodeNetwork(block []float64, snap *domainTransit.Snapshot, episode *domainTransit.EpisodeState) {
	density := snap.MeanEdgeDensity()
	features := [domainTransit.NetworkFeatureCount]float64{
		snap.TotalEmission(),
		snap.MeanSpeed(),
		snap.TotalWaiting(),
		density,
		density / float64(len(snap.Edges)+1),
		episode.BunchingIndex(snap.Time),
	}
	copy(block, features[:])
}
