package commands

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	appTransit "github.com/surak-alf/addis-trans/internal/application/transit"
	infraNeural "github.com/surak-alf/addis-trans/internal/infrastructure/neural"
	"github.com/surak-alf/addis-trans/internal/infrastructure/sim"
)

// Evaluate flags
var (
	evalModel    string
	evalSeed     int64
	evalNoRecord bool
	evalJSON     bool
)

// EvaluateCmd runs a saved policy greedily for one episode.
var EvaluateCmd = &cobra.Command{
	Use:     "evaluate",
	Aliases: []string{"eval"},
	Short:   "Evaluate a saved policy",
	Long:    `Load a saved policy and run one greedy episode, printing the total reward.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("seed") {
			config.Simulator.Seed = evalSeed
		}
		if evalNoRecord {
			config.RecordRuns = false
		}
		if err := config.Validate(); err != nil {
			return err
		}

		model := evalModel
		if model == "" {
			model = filepath.Join(config.CheckpointDir, infraNeural.FinalModelName)
		}

		logs, err := newLogManager(config.LogLevel)
		if err != nil {
			return err
		}
		ctx, cancel := signalContext()
		defer cancel()

		agent, err := infraNeural.NewDQNAgent(config.Agent)
		if err != nil {
			return fmt.Errorf("failed to create agent: %w", err)
		}
		if err := appTransit.LoadPolicy(agent, model); err != nil {
			return fmt.Errorf("failed to load model: %w", err)
		}

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

		opts := []appTransit.Option{
			appTransit.WithLogManager(logs),
			appTransit.WithRunStore(store),
		}
		if !evalJSON {
			opts = append(opts, appTransit.WithProgress(cmd.OutOrStdout()))
		}
		evaluator, err := appTransit.NewEvaluator(config, corridor, agent, opts...)
		if err != nil {
			return err
		}

		result, err := evaluator.Evaluate(ctx)
		if err != nil {
			return fmt.Errorf("evaluation failed: %w", err)
		}

		if evalJSON {
			output, _ := json.MarshalIndent(result, "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(output))
			return nil
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "  Steps:       %d\n", result.Steps)
		fmt.Fprintf(out, "  Dispatches:  %d (%d failed)\n", result.Dispatches, result.FailedDispatches)
		fmt.Fprintf(out, "  Mean terms:  waiting %.3f  emission %.3f  headway %.3f\n",
			result.Terms.Waiting, result.Terms.Emission, result.Terms.Headway)
		return nil
	},
}

func init() {
	EvaluateCmd.Flags().StringVarP(&evalModel, "model", "m", "", "Model file (default <checkpoint-dir>/dqn_model.json)")
	EvaluateCmd.Flags().Int64Var(&evalSeed, "seed", 0, "Simulator seed (0 = clock)")
	EvaluateCmd.Flags().BoolVar(&evalNoRecord, "no-record", false, "Do not record the run in the run store")
	EvaluateCmd.Flags().BoolVar(&evalJSON, "json", false, "Output as JSON")
}
