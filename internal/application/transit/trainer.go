package transit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	domainNeural "github.com/surak-alf/addis-trans/internal/domain/neural"
	domainTransit "github.com/surak-alf/addis-trans/internal/domain/transit"
	"github.com/surak-alf/addis-trans/internal/infrastructure/events"
	"github.com/surak-alf/addis-trans/internal/infrastructure/logging"
	infraNeural "github.com/surak-alf/addis-trans/internal/infrastructure/neural"
	"github.com/surak-alf/addis-trans/internal/infrastructure/runstore"
)

// EpisodeSummary aggregates one training episode.
type EpisodeSummary struct {
	Episode          int           `json:"episode"`
	TotalReward      float64       `json:"totalReward"`
	Epsilon          float64       `json:"epsilon"`
	Steps            int           `json:"steps"`
	Dispatches       int           `json:"dispatches"`
	FailedDispatches int           `json:"failedDispatches"`
	TrainSteps       int           `json:"trainSteps"`
	AvgLoss          float64       `json:"avgLoss"`
	Duration         time.Duration `json:"duration"`
}

// TrainingResult is returned by Trainer.Run.
type TrainingResult struct {
	RunID       string           `json:"runId"`
	Episodes    []EpisodeSummary `json:"episodes"`
	Checkpoints []string         `json:"checkpoints"`
	ModelPath   string           `json:"modelPath,omitempty"`
}

// Option configures a Trainer or an Evaluator.
type Option func(*collaborators)

// collaborators holds the optional dependencies shared by Trainer and Evaluator.
type collaborators struct {
	logs     *logging.LogManager
	bus      *events.EventBus
	store    *runstore.Store
	progress io.Writer
}

// WithLogManager routes component logs through lm.
func WithLogManager(lm *logging.LogManager) Option {
	return func(r *collaborators) { r.logs = lm }
}

// WithEventBus publishes lifecycle events on bus.
func WithEventBus(bus *events.EventBus) Option {
	return func(r *collaborators) { r.bus = bus }
}

// WithRunStore records runs, episodes and checkpoints in store.
func WithRunStore(store *runstore.Store) Option {
	return func(r *collaborators) { r.store = store }
}

// WithProgress writes one progress line per episode to w.
func WithProgress(w io.Writer) Option {
	return func(r *collaborators) { r.progress = w }
}

func newCollaborators(opts []Option) collaborators {
	r := collaborators{progress: io.Discard}
	for _, opt := range opts {
		opt(&r)
	}
	if r.progress == nil {
		r.progress = io.Discard
	}
	return r
}

// newEnvironment builds the environment and checks that the agent and the
// encoder agree on the state and action dimensions.
func newEnvironment(config TrainingConfig, sim domainTransit.Simulator, agent *infraNeural.DQNAgent, rt collaborators) (*Environment, error) {
	applier := NewActionApplier(config.Transit, sim, rt.logs.Named("dispatch"), rt.bus)
	env, err := NewEnvironment(config.Transit, config.Reward, sim, applier)
	if err != nil {
		return nil, err
	}

	agentConfig := agent.Config()
	if agentConfig.InputDim != env.StateDim() {
		return nil, fmt.Errorf("%w: state dimension %d, agent expects %d",
			domainNeural.ErrShapeMismatch, env.StateDim(), agentConfig.InputDim)
	}
	if agentConfig.NumActions != domainTransit.NumActions {
		return nil, fmt.Errorf("%w: %d actions, agent expects %d",
			domainNeural.ErrShapeMismatch, domainTransit.NumActions, agentConfig.NumActions)
	}
	return env, nil
}

// Trainer runs the episodic training loop.
type Trainer struct {
	config      TrainingConfig
	agent       *infraNeural.DQNAgent
	env         *Environment
	checkpoints *infraNeural.CheckpointStore
	logger      *logging.Logger
	rt          collaborators
}

// NewTrainer creates a trainer over sim and agent.
func NewTrainer(config TrainingConfig, sim domainTransit.Simulator, agent *infraNeural.DQNAgent, opts ...Option) (*Trainer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	rt := newCollaborators(opts)

	env, err := newEnvironment(config, sim, agent, rt)
	if err != nil {
		return nil, err
	}

	return &Trainer{
		config:      config,
		agent:       agent,
		env:         env,
		checkpoints: infraNeural.NewCheckpointStore(config.CheckpointDir),
		logger:      rt.logs.Named("trainer"),
		rt:          rt,
	}, nil
}

// Run trains for the configured number of episodes, saving a checkpoint
// every CheckpointEvery episodes and the final model at the end.
func (t *Trainer) Run(ctx context.Context) (*TrainingResult, error) {
	t.logger.Info("verified action space", map[string]interface{}{
		"actions":  domainTransit.NumActions,
		"first":    domainTransit.MustDecode(0).String(),
		"middle":   domainTransit.MustDecode(domainTransit.NumActions / 2).String(),
		"last":     domainTransit.MustDecode(domainTransit.NumActions - 1).String(),
		"stateDim": t.env.StateDim(),
	})

	result := &TrainingResult{RunID: uuid.New().String()}
	if t.rt.store != nil {
		run, err := t.rt.store.CreateRun(ctx, "train", t.config.Episodes, t.config)
		if err != nil {
			return nil, err
		}
		result.RunID = run.ID
	}
	if t.rt.bus != nil {
		t.rt.bus.EmitTrainingStarted(result.RunID, t.config.Episodes)
	}
	t.logger.Info("training started", map[string]interface{}{
		"run":      result.RunID,
		"episodes": t.config.Episodes,
	})

	for ep := 0; ep < t.config.Episodes; ep++ {
		summary, err := t.runEpisode(ctx, ep)
		if err != nil {
			return result, t.fail(result.RunID, ep, err)
		}
		result.Episodes = append(result.Episodes, summary)

		fmt.Fprintf(t.rt.progress, "Episode %3d | Reward: %10.3f | Epsilon: %.3f\n",
			ep, summary.TotalReward, summary.Epsilon)
		t.recordEpisode(result.RunID, summary)

		if ep%t.config.CheckpointEvery == 0 {
			path, err := t.saveCheckpoint(result.RunID, ep)
			if err != nil {
				return result, t.fail(result.RunID, ep, err)
			}
			result.Checkpoints = append(result.Checkpoints, path)
		}
	}

	modelPath, err := t.saveCheckpoint(result.RunID, domainNeural.FinalEpisode)
	if err != nil {
		return result, t.fail(result.RunID, t.config.Episodes, err)
	}
	result.ModelPath = modelPath

	t.finish(result.RunID, runstore.RunStatusCompleted, modelPath, nil)
	if t.rt.bus != nil {
		t.rt.bus.EmitTrainingCompleted(result.RunID, len(result.Episodes), modelPath)
	}
	t.logger.Info("training completed", map[string]interface{}{
		"run":   result.RunID,
		"model": modelPath,
	})
	fmt.Fprintf(t.rt.progress, "Training complete. Final model saved at %s\n", modelPath)
	return result, nil
}

func (t *Trainer) runEpisode(ctx context.Context, ep int) (EpisodeSummary, error) {
	started := time.Now()
	summary := EpisodeSummary{Episode: ep}

	state, err := t.env.Reset(ctx)
	if err != nil {
		return summary, err
	}

	var lossSum float64
	for {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		action, err := t.agent.SelectAction(state)
		if err != nil {
			return summary, err
		}
		step, err := t.env.Step(ctx, action)
		if err != nil {
			return summary, err
		}

		if err := t.agent.Store(domainNeural.Transition{
			State:     state,
			Action:    action,
			Reward:    step.Reward,
			NextState: step.NextState,
			Done:      step.Done,
		}); err != nil {
			return summary, err
		}
		if update, trained := t.agent.Train(); trained {
			lossSum += update.TotalLoss
			summary.TrainSteps++
		}

		switch step.Dispatch.Status {
		case DispatchSent:
			summary.Dispatches++
		case DispatchFailed:
			summary.FailedDispatches++
		}

		summary.TotalReward += step.Reward
		summary.Steps++
		state = step.NextState
		if step.Done {
			break
		}
	}

	if summary.TrainSteps > 0 {
		summary.AvgLoss = lossSum / float64(summary.TrainSteps)
	}
	summary.Epsilon = t.agent.Epsilon()
	summary.Duration = time.Since(started)
	return summary, nil
}

func (t *Trainer) saveCheckpoint(runID string, episode int) (string, error) {
	path, err := t.checkpoints.Save(t.agent.Checkpoint(runID, episode))
	if err != nil {
		return "", err
	}

	if t.rt.store != nil {
		rec := runstore.CheckpointRecord{RunID: runID, Episode: episode, Path: path}
		if err := t.rt.store.RecordCheckpoint(context.Background(), rec); err != nil {
			t.logger.Warning("failed to record checkpoint", map[string]interface{}{"error": err.Error()})
		}
	}
	if t.rt.bus != nil {
		t.rt.bus.EmitCheckpointSaved(runID, episode, path)
	}
	t.logger.Debug("checkpoint saved", map[string]interface{}{"episode": episode, "path": path})
	return path, nil
}

func (t *Trainer) recordEpisode(runID string, s EpisodeSummary) {
	if t.rt.bus != nil {
		t.rt.bus.EmitEpisodeCompleted(runID, s.Episode, s.TotalReward, s.Epsilon, s.Steps)
	}
	if t.rt.store == nil {
		return
	}
	err := t.rt.store.RecordEpisode(context.Background(), runstore.EpisodeRecord{
		RunID:            runID,
		Episode:          s.Episode,
		TotalReward:      s.TotalReward,
		Epsilon:          s.Epsilon,
		Steps:            s.Steps,
		Dispatches:       s.Dispatches,
		FailedDispatches: s.FailedDispatches,
		AvgLoss:          s.AvgLoss,
		DurationMs:       s.Duration.Milliseconds(),
	})
	if err != nil {
		t.logger.Warning("failed to record episode", map[string]interface{}{
			"episode": s.Episode,
			"error":   err.Error(),
		})
	}
}

// fail marks the run as cancelled or failed and returns err wrapped with the
// episode it stopped in.
func (t *Trainer) fail(runID string, ep int, err error) error {
	status := runstore.RunStatusFailed
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		status = runstore.RunStatusCancelled
	}
	t.finish(runID, status, "", err)

	if t.rt.bus != nil {
		t.rt.bus.EmitTrainingFailed(runID, err)
	}
	t.logger.Error("training stopped", map[string]interface{}{
		"run":     runID,
		"episode": ep,
		"status":  string(status),
		"error":   err.Error(),
	})
	return fmt.Errorf("training stopped in episode %d: %w", ep, err)
}

func (t *Trainer) finish(runID string, status runstore.RunStatus, modelPath string, runErr error) {
	if t.rt.store == nil {
		return
	}
	if err := t.rt.store.FinishRun(context.Background(), runID, status, modelPath, runErr); err != nil {
		t.logger.Warning("failed to finish run", map[string]interface{}{"error": err.Error()})
	}
}
