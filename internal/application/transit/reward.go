package transit

import (
	"fmt"

	domainTransit "github.com/surak-alf/addis-trans/internal/domain/transit"
)

// RewardConfig weights the three normalized cost terms.
type RewardConfig struct {
	// WaitingWeight scales the waiting-passenger term.
	WaitingWeight float64 `json:"waitingWeight"`

	// EmissionWeight scales the CO2 term.
	EmissionWeight float64 `json:"emissionWeight"`

	// HeadwayWeight scales the headway-deviation term.
	HeadwayWeight float64 `json:"headwayWeight"`

	// WaitingScale normalizes the number of waiting persons.
	WaitingScale float64 `json:"waitingScale"`

	// EmissionScale normalizes total CO2 emission.
	EmissionScale float64 `json:"emissionScale"`

	// HeadwayScale normalizes the absolute headway deviation in seconds.
	HeadwayScale float64 `json:"headwayScale"`
}

// DefaultRewardConfig returns the default reward weights.
func DefaultRewardConfig() RewardConfig {
	return RewardConfig{
		WaitingWeight:  0.5,
		EmissionWeight: 0.3,
		HeadwayWeight:  0.2,
		WaitingScale:   100,
		EmissionScale:  10000,
		HeadwayScale:   600,
	}
}

// Validate checks the configuration.
func (c RewardConfig) Validate() error {
	if c.WaitingWeight < 0 || c.EmissionWeight < 0 || c.HeadwayWeight < 0 {
		return fmt.Errorf("%w: reward weights must be non-negative", domainTransit.ErrInvalidConfig)
	}
	if c.WaitingScale <= 0 || c.EmissionScale <= 0 || c.HeadwayScale <= 0 {
		return fmt.Errorf("%w: reward scales must be positive", domainTransit.ErrInvalidConfig)
	}
	return nil
}

// RewardTerms are the normalized, unweighted cost components.
type RewardTerms struct {
	Waiting  float64 `json:"waiting"`
	Emission float64 `json:"emission"`
	Headway  float64 `json:"headway"`
}

// Terms returns the normalized cost components for a snapshot.
func (c RewardConfig) Terms(snap *domainTransit.Snapshot, episode *domainTransit.EpisodeState) RewardTerms {
	return RewardTerms{
		Waiting:  snap.TotalWaiting() / c.WaitingScale,
		Emission: snap.TotalEmission() / c.EmissionScale,
		Headway:  episode.BunchingIndex(snap.Time) / c.HeadwayScale,
	}
}

// Compute returns the negated weighted cost. It is never positive for
// non-negative observations.
func (c RewardConfig) Compute(snap *domainTransit.Snapshot, episode *domainTransit.EpisodeState) float64 {
	t := c.Terms(snap, episode)
	return -(c.WaitingWeight*t.Waiting + c.EmissionWeight*t.Emission + c.HeadwayWeight*t.Headway)
}
