package transit

// StopSnapshot is the observed state of one stop.
type StopSnapshot struct {
	ID             string    `json:"id"`
	PersonCount    int       `json:"personCount"`
	WaitTimes      []float64 `json:"waitTimes,omitempty"`
	LinkedVehicles int       `json:"linkedVehicles"`
}

// MeanWait returns the mean waiting time of persons at the stop, or 0.
func (s StopSnapshot) MeanWait() float64 {
	if len(s.WaitTimes) == 0 {
		return 0
	}
	var sum float64
	for _, w := range s.WaitTimes {
		sum += w
	}
	return sum / float64(len(s.WaitTimes))
}

// VehicleSnapshot is the observed state of one vehicle.
type VehicleSnapshot struct {
	ID              string  `json:"id"`
	Load            int     `json:"load"`
	Speed           float64 `json:"speed"`
	LanePosition    float64 `json:"lanePosition"`
	HasNextStop     bool    `json:"hasNextStop"`
	AccumulatedWait float64 `json:"accumulatedWait"`
	CO2             float64 `json:"co2"`
}

// EdgeSnapshot is the observed state of one edge.
type EdgeSnapshot struct {
	ID           string `json:"id"`
	VehicleCount int    `json:"vehicleCount"`
}

// Snapshot is everything the encoder and reward read after a step.
type Snapshot struct {
	Time     float64           `json:"time"`
	Stops    []StopSnapshot    `json:"stops"`
	Vehicles []VehicleSnapshot `json:"vehicles"`
	Edges    []EdgeSnapshot    `json:"edges"`
}

// TotalWaiting returns the number of persons waiting across all stops.
func (s *Snapshot) TotalWaiting() float64 {
	var total int
	for _, st := range s.Stops {
		total += st.PersonCount
	}
	return float64(total)
}

// TotalEmission returns the CO2 emission summed over all vehicles.
func (s *Snapshot) TotalEmission() float64 {
	var total float64
	for _, v := range s.Vehicles {
		total += v.CO2
	}
	return total
}

// MeanSpeed returns the mean vehicle speed, or 0 without vehicles.
func (s *Snapshot) MeanSpeed() float64 {
	if len(s.Vehicles) == 0 {
		return 0
	}
	var total float64
	for _, v := range s.Vehicles {
		total += v.Speed
	}
	return total / float64(len(s.Vehicles))
}

// MeanEdgeDensity returns the mean vehicle count per edge, or 0 without edges.
func (s *Snapshot) MeanEdgeDensity() float64 {
	if len(s.Edges) == 0 {
		return 0
	}
	var total int
	for _, e := range s.Edges {
		total += e.VehicleCount
	}
	return float64(total) / float64(len(s.Edges))
}
