package transit

import (
	"context"
	"fmt"
	"time"

	domainTransit "github.com/surak-alf/addis-trans/internal/domain/transit"
	"github.com/surak-alf/addis-trans/internal/infrastructure/logging"
	infraNeural "github.com/surak-alf/addis-trans/internal/infrastructure/neural"
	"github.com/surak-alf/addis-trans/internal/infrastructure/runstore"
)

// EvaluationResult summarizes one greedy episode.
type EvaluationResult struct {
	RunID            string        `json:"runId,omitempty"`
	TotalReward      float64       `json:"totalReward"`
	Steps            int           `json:"steps"`
	Dispatches       int           `json:"dispatches"`
	FailedDispatches int           `json:"failedDispatches"`
	Terms            RewardTerms   `json:"terms"`
	Duration         time.Duration `json:"duration"`
}

// Evaluator runs a trained policy without exploration or learning.
type Evaluator struct {
	config TrainingConfig
	agent  *infraNeural.DQNAgent
	env    *Environment
	logger *logging.Logger
	rt     collaborators
}

// NewEvaluator creates an evaluator. The agent's exploration rate is set to
// zero.
func NewEvaluator(config TrainingConfig, sim domainTransit.Simulator, agent *infraNeural.DQNAgent, opts ...Option) (*Evaluator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	rt := newCollaborators(opts)

	env, err := newEnvironment(config, sim, agent, rt)
	if err != nil {
		return nil, err
	}
	agent.SetEpsilon(0)

	return &Evaluator{
		config: config,
		agent:  agent,
		env:    env,
		logger: rt.logs.Named("evaluator"),
		rt:     rt,
	}, nil
}

// LoadPolicy restores agent weights from a checkpoint file.
func LoadPolicy(agent *infraNeural.DQNAgent, path string) error {
	checkpoint, err := infraNeural.LoadCheckpointFile(path)
	if err != nil {
		return err
	}
	return agent.Restore(checkpoint)
}

// Evaluate runs a single greedy episode and returns its total reward. Terms
// holds the per-step mean of each cost term.
func (e *Evaluator) Evaluate(ctx context.Context) (*EvaluationResult, error) {
	started := time.Now()
	result := &EvaluationResult{}

	if e.rt.store != nil {
		run, err := e.rt.store.CreateRun(ctx, "evaluate", 1, e.config)
		if err != nil {
			return nil, err
		}
		result.RunID = run.ID
	}

	if err := e.run(ctx, result); err != nil {
		e.finish(result.RunID, runstore.RunStatusFailed, err)
		return result, fmt.Errorf("evaluation stopped after %d steps: %w", result.Steps, err)
	}
	result.Duration = time.Since(started)

	if e.rt.store != nil {
		err := e.rt.store.RecordEpisode(ctx, runstore.EpisodeRecord{
			RunID:            result.RunID,
			TotalReward:      result.TotalReward,
			Steps:            result.Steps,
			Dispatches:       result.Dispatches,
			FailedDispatches: result.FailedDispatches,
			DurationMs:       result.Duration.Milliseconds(),
		})
		if err != nil {
			e.logger.Warning("failed to record evaluation", map[string]interface{}{"error": err.Error()})
		}
	}
	e.finish(result.RunID, runstore.RunStatusCompleted, nil)

	e.logger.Info("evaluation completed", map[string]interface{}{
		"reward": result.TotalReward,
		"steps":  result.Steps,
	})
	fmt.Fprintf(e.rt.progress, "Total Reward: %.3f\n", result.TotalReward)
	return result, nil
}

func (e *Evaluator) run(ctx context.Context, result *EvaluationResult) error {
	state, err := e.env.Reset(ctx)
	if err != nil {
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		action, err := e.agent.GreedyAction(state)
		if err != nil {
			return err
		}
		step, err := e.env.Step(ctx, action)
		if err != nil {
			return err
		}

		result.TotalReward += step.Reward
		result.Steps++
		result.Terms.Waiting += step.Terms.Waiting
		result.Terms.Emission += step.Terms.Emission
		result.Terms.Headway += step.Terms.Headway
		switch step.Dispatch.Status {
		case DispatchSent:
			result.Dispatches++
		case DispatchFailed:
			result.FailedDispatches++
		}

		state = step.NextState
		if step.Done {
			break
		}
	}

	n := float64(result.Steps)
	result.Terms.Waiting /= n
	result.Terms.Emission /= n
	result.Terms.Headway /= n
	return nil
}

func (e *Evaluator) finish(runID string, status runstore.RunStatus, runErr error) {
	if e.rt.store == nil {
		return
	}
	if err := e.rt.store.FinishRun(context.Background(), runID, status, "", runErr); err != nil {
		e.logger.Warning("failed to finish run", map[string]interface{}{"error": err.Error()})
	}
}
