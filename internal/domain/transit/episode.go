package transit

import "math"

// EpisodeState is the dispatch bookkeeping for one episode. It is created on
// reset and mutated only when a dispatch succeeds.
type EpisodeState struct {
	// LastDispatchTime is the simulated second of the last successful dispatch.
	LastDispatchTime float64 `json:"lastDispatchTime"`

	// RouteToggle indexes Config.RouteIDs for the next dispatch.
	RouteToggle int `json:"routeToggle"`

	// TargetHeadway is the nominal dispatch interval in seconds.
	TargetHeadway float64 `json:"targetHeadway"`

	// Dispatches counts successful dispatches in this episode.
	Dispatches int `json:"dispatches"`
}

// NewEpisodeState returns the state for an episode starting at now.
func NewEpisodeState(cfg Config, now float64) *EpisodeState {
	return &EpisodeState{
		LastDispatchTime: now,
		TargetHeadway:    cfg.TargetHeadway,
	}
}

// NextDispatchTime returns when a dispatch with the given shift becomes due.
func (s *EpisodeState) NextDispatchTime(headwayShift float64) float64 {
	return s.LastDispatchTime + s.TargetHeadway + headwayShift
}

// ScheduleDeviation returns the time elapsed since the last dispatch.
func (s *EpisodeState) ScheduleDeviation(now float64) float64 {
	return now - s.LastDispatchTime
}

// HeadwayDeviation returns the signed deviation from the target headway.
func (s *EpisodeState) HeadwayDeviation(now float64) float64 {
	return s.ScheduleDeviation(now) - s.TargetHeadway
}

// BunchingIndex returns the absolute headway deviation.
func (s *EpisodeState) BunchingIndex(now float64) float64 {
	return math.Abs(s.HeadwayDeviation(now))
}

// NextRoute returns the route the next dispatch will use.
func (s *EpisodeState) NextRoute(cfg Config) string {
	return cfg.RouteIDs[s.RouteToggle%len(cfg.RouteIDs)]
}

// RecordDispatch marks a successful dispatch at now and flips the route toggle.
func (s *EpisodeState) RecordDispatch(cfg Config, now float64) {
	s.LastDispatchTime = now
	s.RouteToggle = (s.RouteToggle + 1) % len(cfg.RouteIDs)
	s.Dispatches++
}
