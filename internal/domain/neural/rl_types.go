// Package neural provides domain types for the value-based learning agent.
package neural

import (
	"fmt"
	"time"
)

// RLAlgorithm represents a reinforcement learning algorithm type.
type RLAlgorithm string

const (
	// AlgorithmDQN is Deep Q-Network.
	AlgorithmDQN RLAlgorithm = "dqn"
)

// DQNConfig is the configuration for the DQN agent.
type DQNConfig struct {
	// Algorithm is the algorithm type.
	Algorithm RLAlgorithm `json:"algorithm"`

	// InputDim is the input state dimension.
	InputDim int `json:"inputDim"`

	// HiddenDims are the hidden layer widths, in order.
	HiddenDims []int `json:"hiddenDims"`

	// NumActions is the number of discrete actions.
	NumActions int `json:"numActions"`

	// LearningRate for the Adam optimizer.
	LearningRate float64 `json:"learningRate"`

	// Gamma is the discount factor.
	Gamma float64 `json:"gamma"`

	// MiniBatchSize is the number of transitions per training step.
	MiniBatchSize int `json:"miniBatchSize"`

	// BufferSize is the replay buffer capacity.
	BufferSize int `json:"bufferSize"`

	// ExplorationInitial is the initial exploration rate.
	ExplorationInitial float64 `json:"explorationInitial"`

	// ExplorationFinal is the exploration floor.
	ExplorationFinal float64 `json:"explorationFinal"`

	// ExplorationDecay is the multiplicative decay applied per training step.
	ExplorationDecay float64 `json:"explorationDecay"`

	// TargetUpdateFreq is the number of training steps between hard copies
	// of the policy network into the target network.
	TargetUpdateFreq int `json:"targetUpdateFreq"`

	// Seed seeds weight initialization, exploration and replay sampling.
	// Zero means seed from the clock.
	Seed int64 `json:"seed"`
}

// DefaultDQNConfig returns the default DQN configuration.
func DefaultDQNConfig() DQNConfig {
	return DQNConfig{
		Algorithm:          AlgorithmDQN,
		InputDim:           112,
		HiddenDims:         []int{256, 128},
		NumActions:         27,
		LearningRate:       0.0001,
		Gamma:              0.99,
		MiniBatchSize:      64,
		BufferSize:         50000,
		ExplorationInitial: 1.0,
		ExplorationFinal:   0.05,
		ExplorationDecay:   0.9995,
		TargetUpdateFreq:   100,
	}
}

// Validate checks the configuration.
func (c DQNConfig) Validate() error {
	switch {
	case c.InputDim <= 0:
		return fmt.Errorf("%w: inputDim must be positive", ErrInvalidConfig)
	case c.NumActions <= 0:
		return fmt.Errorf("%w: numActions must be positive", ErrInvalidConfig)
	case c.MiniBatchSize <= 0:
		return fmt.Errorf("%w: miniBatchSize must be positive", ErrInvalidConfig)
	case c.BufferSize < c.MiniBatchSize:
		return fmt.Errorf("%w: bufferSize %d is smaller than miniBatchSize %d", ErrInvalidConfig, c.BufferSize, c.MiniBatchSize)
	case c.LearningRate <= 0:
		return fmt.Errorf("%w: learningRate must be positive", ErrInvalidConfig)
	case c.Gamma < 0 || c.Gamma > 1:
		return fmt.Errorf("%w: gamma must be in [0,1]", ErrInvalidConfig)
	case c.ExplorationDecay <= 0 || c.ExplorationDecay > 1:
		return fmt.Errorf("%w: explorationDecay must be in (0,1]", ErrInvalidConfig)
	case c.ExplorationFinal < 0 || c.ExplorationFinal > c.ExplorationInitial:
		return fmt.Errorf("%w: explorationFinal must be in [0, explorationInitial]", ErrInvalidConfig)
	case c.TargetUpdateFreq <= 0:
		return fmt.Errorf("%w: targetUpdateFreq must be positive", ErrInvalidConfig)
	}
	for i, h := range c.HiddenDims {
		if h <= 0 {
			return fmt.Errorf("%w: hidden layer %d has width %d", ErrInvalidConfig, i, h)
		}
	}
	return nil
}

// LayerSizes returns input, hidden and output widths in order.
func (c DQNConfig) LayerSizes() []int {
	sizes := make([]int, 0, len(c.HiddenDims)+2)
	sizes = append(sizes, c.InputDim)
	sizes = append(sizes, c.HiddenDims...)
	return append(sizes, c.NumActions)
}

// Transition is a single experience tuple. It is immutable once stored.
type Transition struct {
	// State is the encoded state before the action.
	State []float64 `json:"state"`

	// Action is the action taken.
	Action int `json:"action"`

	// Reward is the reward received.
	Reward float64 `json:"reward"`

	// NextState is the encoded state after the action.
	NextState []float64 `json:"nextState"`

	// Done indicates if NextState is terminal.
	Done bool `json:"done"`
}

// Clone returns a deep copy of the transition.
func (t Transition) Clone() Transition {
	c := t
	c.State = append([]float64(nil), t.State...)
	c.NextState = append([]float64(nil), t.NextState...)
	return c
}

// RLUpdateResult represents the result of one training step.
type RLUpdateResult struct {
	// TotalLoss is the mean-squared TD error over the batch before the step.
	TotalLoss float64 `json:"totalLoss"`

	// Epsilon is the exploration rate after decay.
	Epsilon float64 `json:"epsilon"`

	// Step is the training step counter after the update.
	Step int64 `json:"step"`

	// TargetSynced is true when this step copied policy into target.
	TargetSynced bool `json:"targetSynced"`

	// LatencyMs is the update latency in milliseconds.
	LatencyMs float64 `json:"latencyMs"`
}

// RLStats contains statistics for the agent.
type RLStats struct {
	// Algorithm is the algorithm type.
	Algorithm RLAlgorithm `json:"algorithm"`

	// UpdateCount is the number of training steps performed.
	UpdateCount int64 `json:"updateCount"`

	// TargetSyncs is the number of target network copies.
	TargetSyncs int64 `json:"targetSyncs"`

	// BufferSize is the current buffer occupancy.
	BufferSize int `json:"bufferSize"`

	// Epsilon is the current exploration rate.
	Epsilon float64 `json:"epsilon"`

	// AvgLoss is the running mean training loss.
	AvgLoss float64 `json:"avgLoss"`

	// AvgLatencyMs is the average update latency.
	AvgLatencyMs float64 `json:"avgLatencyMs"`
}

// LayerWeights holds one dense layer in row-major order.
type LayerWeights struct {
	Rows    int       `json:"rows"`
	Cols    int       `json:"cols"`
	Weights []float64 `json:"weights"`
	Bias    []float64 `json:"bias"`
}

// RLCheckpoint represents a persisted policy network.
type RLCheckpoint struct {
	// ID is the checkpoint identifier.
	ID string `json:"id"`

	// RunID is the training run that produced the checkpoint.
	RunID string `json:"runId,omitempty"`

	// Episode is the episode index the checkpoint was taken after, or -1
	// for the final model.
	Episode int `json:"episode"`

	// Algorithm is the algorithm type.
	Algorithm RLAlgorithm `json:"algorithm"`

	// Layers are the policy network weights.
	Layers []LayerWeights `json:"layers"`

	// Config is the agent configuration.
	Config DQNConfig `json:"config"`

	// Stats are the agent statistics.
	Stats RLStats `json:"stats"`

	// CreatedAt is when the checkpoint was created.
	CreatedAt time.Time `json:"createdAt"`
}

// FinalEpisode marks the checkpoint written at the end of training.
const FinalEpisode = -1
