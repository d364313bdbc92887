package transit

import (
	"context"
	"fmt"

	domainTransit "github.com/surak-alf/addis-trans/internal/domain/transit"
)

// StepResult is the outcome of one control step.
type StepResult struct {
	NextState []float64       `json:"nextState"`
	Reward    float64         `json:"reward"`
	Terms     RewardTerms     `json:"terms"`
	Done      bool            `json:"done"`
	Time      float64         `json:"time"`
	Dispatch  DispatchOutcome `json:"dispatch"`
}

// Environment wraps a simulator as an episodic decision process.
type Environment struct {
	config  domainTransit.Config
	sim     domainTransit.Simulator
	encoder *FeatureEncoder
	reward  RewardConfig
	applier *ActionApplier
	episode *domainTransit.EpisodeState
}

// NewEnvironment creates an environment. Reset must be called first.
func NewEnvironment(config domainTransit.Config, reward RewardConfig, sim domainTransit.Simulator, applier *ActionApplier) (*Environment, error) {
	encoder, err := NewFeatureEncoder(config)
	if err != nil {
		return nil, err
	}
	if err := reward.Validate(); err != nil {
		return nil, err
	}
	return &Environment{
		config:  config,
		sim:     sim,
		encoder: encoder,
		reward:  reward,
		applier: applier,
	}, nil
}

// StateDim returns the length of encoded states.
func (e *Environment) StateDim() int {
	return e.encoder.Dim()
}

// Episode returns a copy of the current episode bookkeeping.
func (e *Environment) Episode() domainTransit.EpisodeState {
	if e.episode == nil {
		return domainTransit.EpisodeState{}
	}
	return *e.episode
}

// Reset restarts the simulator at the configured start time and returns the
// initial state.
func (e *Environment) Reset(ctx context.Context) ([]float64, error) {
	if err := e.sim.Reset(ctx, e.config.StartTime); err != nil {
		return nil, fmt.Errorf("failed to reset simulator: %w", err)
	}
	now, err := e.sim.Time()
	if err != nil {
		return nil, fmt.Errorf("failed to read simulation time: %w", err)
	}
	e.episode = domainTransit.NewEpisodeState(e.config, now)

	snap, err := Capture(e.sim)
	if err != nil {
		return nil, err
	}
	return e.encoder.Encode(snap, e.episode), nil
}

// Step applies action, advances the simulator by StepTicks seconds and
// observes the result. The episode is done once the clock reaches Horizon.
func (e *Environment) Step(ctx context.Context, action int) (StepResult, error) {
	if e.episode == nil {
		return StepResult{}, fmt.Errorf("environment not reset")
	}

	now, err := e.sim.Time()
	if err != nil {
		return StepResult{}, fmt.Errorf("failed to read simulation time: %w", err)
	}
	outcome, err := e.applier.Apply(action, now, e.episode)
	if err != nil {
		return StepResult{Dispatch: outcome}, err
	}

	if err := e.sim.Advance(ctx, e.config.StepTicks); err != nil {
		return StepResult{Dispatch: outcome}, fmt.Errorf("failed to advance simulator: %w", err)
	}

	snap, err := Capture(e.sim)
	if err != nil {
		return StepResult{Dispatch: outcome}, err
	}

	return StepResult{
		NextState: e.encoder.Encode(snap, e.episode),
		Reward:    e.reward.Compute(snap, e.episode),
		Terms:     e.reward.Terms(snap, e.episode),
		Done:      snap.Time >= e.config.Horizon,
		Time:      snap.Time,
		Dispatch:  outcome,
	}, nil
}
