package transit

import (
	"encoding/json"
	"fmt"
	"os"

	domainNeural "github.com/surak-alf/addis-trans/internal/domain/neural"
	domainTransit "github.com/surak-alf/addis-trans/internal/domain/transit"
	"github.com/surak-alf/addis-trans/internal/infrastructure/runstore"
	"github.com/surak-alf/addis-trans/internal/infrastructure/sim"
)

// TrainingConfig is everything a training or evaluation run needs.
type TrainingConfig struct {
	// Transit is the dispatch and observation layout.
	Transit domainTransit.Config `json:"transit"`

	// Reward weights the cost terms.
	Reward RewardConfig `json:"reward"`

	// Agent configures the DQN agent.
	Agent domainNeural.DQNConfig `json:"agent"`

	// Simulator configures the synthetic corridor.
	Simulator sim.Config `json:"simulator"`

	// Store configures the run history database.
	Store runstore.Config `json:"store"`

	// RecordRuns enables the run history database.
	RecordRuns bool `json:"recordRuns"`

	// Episodes is the number of training episodes.
	Episodes int `json:"episodes"`

	// CheckpointEvery saves a checkpoint when episode % CheckpointEvery == 0.
	CheckpointEvery int `json:"checkpointEvery"`

	// CheckpointDir receives checkpoints and the final model.
	CheckpointDir string `json:"checkpointDir"`

	// LogLevel is one of debug, info, warning, error.
	LogLevel string `json:"logLevel"`
}

// DefaultTrainingConfig returns the default training configuration.
func DefaultTrainingConfig() TrainingConfig {
	return TrainingConfig{
		Transit:         domainTransit.DefaultConfig(),
		Reward:          DefaultRewardConfig(),
		Agent:           domainNeural.DefaultDQNConfig(),
		Simulator:       sim.DefaultConfig(),
		Store:           runstore.DefaultConfig(),
		RecordRuns:      true,
		Episodes:        100,
		CheckpointEvery: 10,
		CheckpointDir:   "models",
		LogLevel:        "info",
	}
}

// LoadTrainingConfig reads a JSON file over the defaults. Fields absent from
// the file keep their default values.
func LoadTrainingConfig(path string) (TrainingConfig, error) {
	config := DefaultTrainingConfig()
	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return config, fmt.Errorf("failed to read config: %w", err)
	}
	if err := json.Unmarshal(data, &config); err != nil {
		return config, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return config, nil
}

// Validate checks each section and the dimensions they share.
func (c TrainingConfig) Validate() error {
	if err := c.Transit.Validate(); err != nil {
		return err
	}
	if err := c.Reward.Validate(); err != nil {
		return err
	}
	if err := c.Agent.Validate(); err != nil {
		return err
	}
	if err := c.Simulator.Validate(); err != nil {
		return err
	}

	if c.Agent.InputDim != c.Transit.StateDim() {
		return fmt.Errorf("%w: agent input dimension %d does not match state dimension %d",
			domainTransit.ErrInvalidConfig, c.Agent.InputDim, c.Transit.StateDim())
	}
	if c.Agent.NumActions != domainTransit.NumActions {
		return fmt.Errorf("%w: agent has %d actions, dispatch table has %d",
			domainTransit.ErrInvalidConfig, c.Agent.NumActions, domainTransit.NumActions)
	}

	routes := make(map[string]bool, len(c.Simulator.Routes))
	for _, r := range c.Simulator.Routes {
		routes[r] = true
	}
	for _, r := range c.Transit.RouteIDs {
		if !routes[r] {
			return fmt.Errorf("%w: route %q is not served by the simulator", domainTransit.ErrInvalidConfig, r)
		}
	}
	if c.Transit.Horizon > c.Simulator.EndTime {
		return fmt.Errorf("%w: horizon %.0f is past the simulation end %.0f",
			domainTransit.ErrInvalidConfig, c.Transit.Horizon, c.Simulator.EndTime)
	}

	switch {
	case c.Episodes <= 0:
		return fmt.Errorf("%w: episodes must be positive", domainTransit.ErrInvalidConfig)
	case c.CheckpointEvery <= 0:
		return fmt.Errorf("%w: checkpointEvery must be positive", domainTransit.ErrInvalidConfig)
	case c.CheckpointDir == "":
		return fmt.Errorf("%w: checkpointDir is required", domainTransit.ErrInvalidConfig)
	}
	return nil
}
