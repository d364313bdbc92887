package transit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainTransit "github.com/surak-alf/addis-trans/internal/domain/transit"
)

func newTestEnvironment(t *testing.T, sim *fakeSim, steps int) *Environment {
	t.Helper()
	config := domainTransit.DefaultConfig()
	config.Horizon = config.StartTime + float64(steps*config.StepTicks)
	env, err := NewEnvironment(config, DefaultRewardConfig(), sim, NewActionApplier(config, sim, nil, nil))
	require.NoError(t, err)
	return env
}

func TestEnvironment_StepBeforeReset(t *testing.T) {
	env := newTestEnvironment(t, newFakeSim(), 3)
	_, err := env.Step(context.Background(), 0)
	assert.Error(t, err)
}

func TestEnvironment_EpisodeRunsToHorizon(t *testing.T) {
	sim := newFakeSim()
	env := newTestEnvironment(t, sim, 3)
	ctx := context.Background()

	state, err := env.Reset(ctx)
	require.NoError(t, err)
	assert.Len(t, state, env.StateDim())
	assert.Equal(t, 1, sim.resets)
	assert.Equal(t, 21590.0, sim.now)

	var results []StepResult
	for i := 0; i < 3; i++ {
		res, err := env.Step(ctx, 12)
		require.NoError(t, err)
		assert.Len(t, res.NextState, 112)
		assert.LessOrEqual(t, res.Reward, 0.0)
		results = append(results, res)
	}

	assert.False(t, results[0].Done)
	assert.False(t, results[1].Done)
	assert.True(t, results[2].Done)
	assert.Equal(t, 21770.0, results[2].Time)
	assert.Equal(t, DispatchHeld, results[0].Dispatch.Status)
	assert.Equal(t, 3, sim.advance)
}

func TestEnvironment_EarliestShiftDispatches(t *testing.T) {
	sim := newFakeSim()
	env := newTestEnvironment(t, sim, 10)
	ctx := context.Background()
	_, err := env.Reset(ctx)
	require.NoError(t, err)

	// action 0 is due after 600-240 seconds
	var dispatched int
	for i := 0; i < 10; i++ {
		res, err := env.Step(ctx, 0)
		require.NoError(t, err)
		if res.Dispatch.Status == DispatchSent {
			dispatched++
		}
	}
	assert.Equal(t, 1, dispatched)
	assert.Equal(t, 1, env.Episode().Dispatches)
	assert.Equal(t, []string{"bus_0_21950"}, sim.added)
}

func TestEnvironment_ResetStartsFreshEpisode(t *testing.T) {
	sim := newFakeSim()
	env := newTestEnvironment(t, sim, 10)
	ctx := context.Background()

	_, err := env.Reset(ctx)
	require.NoError(t, err)
	for i := 0; i < 7; i++ {
		_, err := env.Step(ctx, 0)
		require.NoError(t, err)
	}
	require.Equal(t, 1, env.Episode().RouteToggle)

	_, err = env.Reset(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, env.Episode().RouteToggle)
	assert.Equal(t, 21590.0, env.Episode().LastDispatchTime)
}

func TestEnvironment_LostConnectionEndsStep(t *testing.T) {
	sim := newFakeSim()
	sim.fatalAt = 21590 + 120
	env := newTestEnvironment(t, sim, 10)
	ctx := context.Background()

	_, err := env.Reset(ctx)
	require.NoError(t, err)
	_, err = env.Step(ctx, 12)
	require.NoError(t, err)
	_, err = env.Step(ctx, 12)
	require.Error(t, err)
	assert.True(t, domainTransit.IsFatal(err))
}
