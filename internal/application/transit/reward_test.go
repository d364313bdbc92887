package transit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainTransit "github.com/surak-alf/addis-trans/internal/domain/transit"
)

func TestReward_WeightedCost(t *testing.T) {
	sim := newFakeSim()
	sim.now = 100
	snap, err := Capture(sim)
	require.NoError(t, err)
	episode := domainTransit.NewEpisodeState(domainTransit.DefaultConfig(), 0)

	config := DefaultRewardConfig()
	terms := config.Terms(snap, episode)
	assert.InDelta(t, 0.03, terms.Waiting, 1e-12)
	assert.InDelta(t, 0.25, terms.Emission, 1e-12)
	assert.InDelta(t, 500.0/600, terms.Headway, 1e-12)

	want := -(0.5*0.03 + 0.3*0.25 + 0.2*500.0/600)
	assert.InDelta(t, want, config.Compute(snap, episode), 1e-12)
}

func TestReward_NeverPositive(t *testing.T) {
	config := DefaultRewardConfig()
	episode := domainTransit.NewEpisodeState(domainTransit.DefaultConfig(), 0)

	assert.Zero(t, config.Compute(&domainTransit.Snapshot{Time: 600}, episode))
	for _, now := range []float64{0, 300, 600, 900, 5000} {
		sim := newFakeSim()
		sim.now = now
		snap, err := Capture(sim)
		require.NoError(t, err)
		assert.LessOrEqual(t, config.Compute(snap, episode), 0.0)
	}
}

func TestRewardConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultRewardConfig().Validate())

	config := DefaultRewardConfig()
	config.WaitingScale = 0
	assert.ErrorIs(t, config.Validate(), domainTransit.ErrInvalidConfig)

	config = DefaultRewardConfig()
	config.HeadwayWeight = -1
	assert.ErrorIs(t, config.Validate(), domainTransit.ErrInvalidConfig)
}
