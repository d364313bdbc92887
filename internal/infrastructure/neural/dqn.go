package neural

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	domainNeural "github.com/surak-alf/addis-trans/internal/domain/neural"
)

// DQNAgent implements Deep Q-Network with experience replay and a hard-copied
// target network.
type DQNAgent struct {
	mu     sync.RWMutex
	config domainNeural.DQNConfig
	rng    *rand.Rand

	policy    *QNetwork
	target    *QNetwork
	optimizer *Adam
	buffer    *ReplayBuffer

	// Exploration
	epsilon   float64
	stepCount int64

	// Statistics
	targetSyncs int64
	avgLoss     float64
	avgLatency  float64
}

// NewDQNAgent creates an agent whose target network starts as a copy of the
// policy network.
func NewDQNAgent(config domainNeural.DQNConfig) (*DQNAgent, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	buffer, err := NewReplayBuffer(config.BufferSize, rand.New(rand.NewSource(rng.Int63())))
	if err != nil {
		return nil, err
	}

	policy := NewQNetwork(config.LayerSizes(), rng)
	return &DQNAgent{
		config:    config,
		rng:       rng,
		policy:    policy,
		target:    policy.Clone(),
		optimizer: NewAdam(config.LearningRate),
		buffer:    buffer,
		epsilon:   config.ExplorationInitial,
	}, nil
}

// SelectAction returns an ε-greedy action. Greedy ties resolve to the lowest
// index. Exploration is not decayed here.
func (d *DQNAgent) SelectAction(state []float64) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(state) != d.config.InputDim {
		return 0, fmt.Errorf("%w: state has %d features, agent expects %d", domainNeural.ErrShapeMismatch, len(state), d.config.InputDim)
	}
	if d.rng.Float64() < d.epsilon {
		return d.rng.Intn(d.config.NumActions), nil
	}
	qValues, err := d.policy.Forward(state)
	if err != nil {
		return 0, err
	}
	return argmax64(qValues), nil
}

// GreedyAction returns the policy network's best action without exploring.
func (d *DQNAgent) GreedyAction(state []float64) (int, error) {
	qValues, err := d.QValues(state)
	if err != nil {
		return 0, err
	}
	return argmax64(qValues), nil
}

// QValues returns the policy network's action values for a state.
func (d *DQNAgent) QValues(state []float64) ([]float64, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.policy.Forward(state)
}

// Store adds a transition to the replay buffer.
func (d *DQNAgent) Store(t domainNeural.Transition) error {
	if len(t.State) != d.config.InputDim || len(t.NextState) != d.config.InputDim {
		return fmt.Errorf("%w: transition states have %d/%d features, agent expects %d",
			domainNeural.ErrShapeMismatch, len(t.State), len(t.NextState), d.config.InputDim)
	}
	if t.Action < 0 || t.Action >= d.config.NumActions {
		return fmt.Errorf("%w: action %d outside [0,%d)", domainNeural.ErrShapeMismatch, t.Action, d.config.NumActions)
	}
	d.buffer.Push(t)
	return nil
}

// Train performs one learning step. It returns false without touching any
// state when the buffer holds fewer transitions than a mini-batch.
func (d *DQNAgent) Train() (domainNeural.RLUpdateResult, bool) {
	startTime := time.Now()

	d.mu.Lock()
	defer d.mu.Unlock()

	batch, err := d.buffer.Sample(d.config.MiniBatchSize)
	if err != nil {
		return domainNeural.RLUpdateResult{Epsilon: d.epsilon, Step: d.stepCount}, false
	}

	states, actions, targets := d.bellmanTargets(batch)
	grads, loss := d.policy.gradients(states, actions, targets)
	d.optimizer.step(d.policy, grads)

	d.stepCount++
	synced := d.stepCount%int64(d.config.TargetUpdateFreq) == 0
	if synced {
		d.target.CopyFrom(d.policy)
		d.targetSyncs++
	}

	d.epsilon = math.Max(d.config.ExplorationFinal, d.epsilon*d.config.ExplorationDecay)

	elapsed := float64(time.Since(startTime).Microseconds()) / 1000.0
	n := float64(d.stepCount)
	d.avgLoss = (d.avgLoss*(n-1) + loss) / n
	d.avgLatency = (d.avgLatency*(n-1) + elapsed) / n

	return domainNeural.RLUpdateResult{
		TotalLoss:    loss,
		Epsilon:      d.epsilon,
		Step:         d.stepCount,
		TargetSynced: synced,
		LatencyMs:    elapsed,
	}, true
}

// BatchLoss returns the mean-squared TD error of the policy network on batch,
// against targets computed from the current target network.
func (d *DQNAgent) BatchLoss(batch []domainNeural.Transition) float64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	states, actions, targets := d.bellmanTargets(batch)
	return d.policy.Loss(states, actions, targets)
}

// bellmanTargets builds r + γ·max_a Q_target(s', a)·(1 − done). The target
// network only feeds constants into the update.
func (d *DQNAgent) bellmanTargets(batch []domainNeural.Transition) (*mat.Dense, []int, []float64) {
	rows := len(batch)
	states := mat.NewDense(rows, d.config.InputDim, nil)
	nextStates := mat.NewDense(rows, d.config.InputDim, nil)
	actions := make([]int, rows)
	for i, t := range batch {
		states.SetRow(i, t.State)
		nextStates.SetRow(i, t.NextState)
		actions[i] = t.Action
	}

	nextQ := d.target.ForwardBatch(nextStates)
	targets := make([]float64, rows)
	row := make([]float64, d.config.NumActions)
	for i, t := range batch {
		targets[i] = t.Reward
		if !t.Done {
			mat.Row(row, i, nextQ)
			targets[i] += d.config.Gamma * max64(row)
		}
	}
	return states, actions, targets
}

// Epsilon returns the current exploration rate.
func (d *DQNAgent) Epsilon() float64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.epsilon
}

// SetEpsilon overrides the exploration rate. Evaluation sets it to 0.
func (d *DQNAgent) SetEpsilon(epsilon float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.epsilon = epsilon
}

// StepCount returns the number of training steps performed.
func (d *DQNAgent) StepCount() int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.stepCount
}

// BufferLen returns the replay buffer occupancy.
func (d *DQNAgent) BufferLen() int {
	return d.buffer.Len()
}

// Buffer returns the replay buffer.
func (d *DQNAgent) Buffer() *ReplayBuffer {
	return d.buffer
}

// PolicyNetwork returns a copy of the policy network.
func (d *DQNAgent) PolicyNetwork() *QNetwork {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.policy.Clone()
}

// TargetNetwork returns a copy of the target network.
func (d *DQNAgent) TargetNetwork() *QNetwork {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.target.Clone()
}

// TargetInSync reports whether target and policy parameters are identical.
func (d *DQNAgent) TargetInSync() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.target.Equal(d.policy)
}

// Config returns the agent configuration.
func (d *DQNAgent) Config() domainNeural.DQNConfig {
	return d.config
}

// GetStats returns agent statistics.
func (d *DQNAgent) GetStats() domainNeural.RLStats {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return domainNeural.RLStats{
		Algorithm:    domainNeural.AlgorithmDQN,
		UpdateCount:  d.stepCount,
		TargetSyncs:  d.targetSyncs,
		BufferSize:   d.buffer.Len(),
		Epsilon:      d.epsilon,
		AvgLoss:      d.avgLoss,
		AvgLatencyMs: d.avgLatency,
	}
}

// Checkpoint captures the policy network for persistence.
func (d *DQNAgent) Checkpoint(runID string, episode int) domainNeural.RLCheckpoint {
	stats := d.GetStats()

	d.mu.RLock()
	defer d.mu.RUnlock()

	return domainNeural.RLCheckpoint{
		ID:        uuid.New().String(),
		RunID:     runID,
		Episode:   episode,
		Algorithm: domainNeural.AlgorithmDQN,
		Layers:    d.policy.Weights(),
		Config:    d.config,
		Stats:     stats,
		CreatedAt: time.Now(),
	}
}

// Restore loads checkpoint weights into both networks.
func (d *DQNAgent) Restore(checkpoint *domainNeural.RLCheckpoint) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.policy.SetWeights(checkpoint.Layers); err != nil {
		return fmt.Errorf("failed to restore checkpoint %s: %w", checkpoint.ID, err)
	}
	d.target.CopyFrom(d.policy)
	return nil
}
