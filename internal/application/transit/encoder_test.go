package transit

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainTransit "github.com/surak-alf/addis-trans/internal/domain/transit"
)

func newTestEncoder(t *testing.T) *FeatureEncoder {
	t.Helper()
	enc, err := NewFeatureEncoder(domainTransit.DefaultConfig())
	require.NoError(t, err)
	return enc
}

func TestFeatureEncoder_EmptySnapshot(t *testing.T) {
	enc := newTestEncoder(t)
	episode := domainTransit.NewEpisodeState(domainTransit.DefaultConfig(), 0)

	state := enc.Encode(&domainTransit.Snapshot{Time: 600}, episode)
	assert.Equal(t, make([]float64, 112), state)
}

func TestFeatureEncoder_Layout(t *testing.T) {
	enc := newTestEncoder(t)
	sim := newFakeSim()
	sim.now = 100
	snap, err := Capture(sim)
	require.NoError(t, err)
	episode := domainTransit.NewEpisodeState(domainTransit.DefaultConfig(), 0)

	state := enc.Encode(snap, episode)
	require.Len(t, state, 112)

	assert.Equal(t, []float64{2, 60, 0, 2.0 / 61}, state[0:4])
	assert.Equal(t, []float64{1, 60, 1, 1.0 / 61}, state[4:8])
	assert.Equal(t, make([]float64, 52), state[8:60])

	assert.Equal(t, []float64{12, 8, 150, 100, 40, -500}, state[60:66])
	assert.Equal(t, make([]float64, 30), state[66:96])

	assert.Equal(t, []float64{2500, 8, 3, 2, 2.0 / 3, 500}, state[96:102])
	assert.Equal(t, make([]float64, 10), state[102:112])
}

func TestFeatureEncoder_TruncatesExtraEntities(t *testing.T) {
	enc := newTestEncoder(t)
	snap := &domainTransit.Snapshot{Time: 0}
	for i := 0; i < 20; i++ {
		snap.Stops = append(snap.Stops, domainTransit.StopSnapshot{ID: fmt.Sprint(i), PersonCount: i + 1})
	}
	for i := 0; i < 10; i++ {
		snap.Vehicles = append(snap.Vehicles, domainTransit.VehicleSnapshot{ID: fmt.Sprint(i), Load: i + 1})
	}

	state := enc.Encode(snap, domainTransit.NewEpisodeState(domainTransit.DefaultConfig(), 0))
	require.Len(t, state, 112)

	assert.Equal(t, 15.0, state[14*4], "last encoded stop")
	assert.Equal(t, 6.0, state[60+5*6], "last encoded vehicle")
	assert.Equal(t, 210.0, state[96+2], "network totals cover every stop")
}

func TestFeatureEncoder_IsPure(t *testing.T) {
	enc := newTestEncoder(t)
	sim := newFakeSim()
	snap, err := Capture(sim)
	require.NoError(t, err)
	episode := domainTransit.NewEpisodeState(domainTransit.DefaultConfig(), 0)

	assert.Equal(t, enc.Encode(snap, episode), enc.Encode(snap, episode))
}

func TestNewFeatureEncoder_RejectsInvalidConfig(t *testing.T) {
	config := domainTransit.DefaultConfig()
	config.StepTicks = 0
	_, err := NewFeatureEncoder(config)
	assert.ErrorIs(t, err, domainTransit.ErrInvalidConfig)
}
