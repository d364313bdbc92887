package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	appTransit "github.com/surak-alf/addis-trans/internal/application/transit"
	infraNeural "github.com/surak-alf/addis-trans/internal/infrastructure/neural"
	"github.com/surak-alf/addis-trans/internal/infrastructure/sim"
)

// Train flags
var (
	trainEpisodes        int
	trainCheckpointDir   string
	trainCheckpointEvery int
	trainSeed            int64
	trainNoRecord        bool
)

// TrainCmd trains a dispatch policy.
var TrainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train a dispatch policy",
	Long: `Train a DQN dispatch policy against the corridor simulator.

A checkpoint is written every --checkpoint-every episodes and the final
model is written to dqn_model.json in the checkpoint directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadConfig()
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		if flags.Changed("episodes") {
			config.Episodes = trainEpisodes
		}
		if flags.Changed("checkpoint-dir") {
			config.CheckpointDir = trainCheckpointDir
		}
		if flags.Changed("checkpoint-every") {
			config.CheckpointEvery = trainCheckpointEvery
		}
		if flags.Changed("seed") {
			config.Agent.Seed = trainSeed
			config.Simulator.Seed = trainSeed
		}
		if trainNoRecord {
			config.RecordRuns = false
		}
		if err := config.Validate(); err != nil {
			return err
		}

		logs, err := newLogManager(config.LogLevel)
		if err != nil {
			return err
		}
		ctx, cancel := signalContext()
		defer cancel()

		store, err := openRunStore(ctx, config)
		if err != nil {
			return fmt.Errorf("failed to open run store: %w", err)
		}
		if store != nil {
			defer store.Close()
		}

		corridor, err := sim.NewCorridor(config.Simulator)
		if err != nil {
			return err
		}
		defer corridor.Close()

		agent, err := infraNeural.NewDQNAgent(config.Agent)
		if err != nil {
			return fmt.Errorf("failed to create agent: %w", err)
		}

		trainer, err := appTransit.NewTrainer(config, corridor, agent,
			appTransit.WithLogManager(logs),
			appTransit.WithEventBus(newEventBus(logs)),
			appTransit.WithRunStore(store),
			appTransit.WithProgress(os.Stdout),
		)
		if err != nil {
			return err
		}

		fmt.Printf("Training dispatch policy (episodes: %d, checkpoints every %d)\n", config.Episodes, config.CheckpointEvery)
		fmt.Println(strings.Repeat("-", 50))

		result, err := trainer.Run(ctx)
		if err != nil {
			return fmt.Errorf("training failed: %w", err)
		}

		fmt.Println(strings.Repeat("-", 50))
		fmt.Printf("  Run ID:      %s\n", result.RunID)
		fmt.Printf("  Episodes:    %d\n", len(result.Episodes))
		fmt.Printf("  Checkpoints: %d\n", len(result.Checkpoints))
		fmt.Printf("  Model:       %s\n", result.ModelPath)
		return nil
	},
}

func init() {
	TrainCmd.Flags().IntVarP(&trainEpisodes, "episodes", "e", 100, "Training episodes")
	TrainCmd.Flags().StringVarP(&trainCheckpointDir, "checkpoint-dir", "o", "models", "Checkpoint directory")
	TrainCmd.Flags().IntVar(&trainCheckpointEvery, "checkpoint-every", 10, "Episodes between checkpoints")
	TrainCmd.Flags().Int64Var(&trainSeed, "seed", 0, "Seed for the agent and the simulator (0 = clock)")
	TrainCmd.Flags().BoolVar(&trainNoRecord, "no-record", false, "Do not record the run in the run store")
}
