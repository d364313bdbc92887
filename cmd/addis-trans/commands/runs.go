package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/surak-alf/addis-trans/internal/infrastructure/runstore"
)

// Runs flags
var (
	runsListLimit int
	runsJSON      bool
)

// RunsCmd is the parent command for run history.
var RunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect recorded runs",
	Long:  `Commands for listing and inspecting recorded training and evaluation runs.`,
}

var runsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List recent runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStoreForRead(cmd.Context())
		if err != nil {
			return err
		}
		defer store.Close()

		runs, err := store.ListRuns(cmd.Context(), runsListLimit)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if runsJSON {
			output, _ := json.MarshalIndent(runs, "", "  ")
			fmt.Fprintln(out, string(output))
			return nil
		}
		if len(runs) == 0 {
			fmt.Fprintln(out, "No runs recorded")
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tKIND\tSTATUS\tEPISODES\tSTARTED")
		fmt.Fprintln(w, strings.Repeat("-", 80))
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
				r.ID, r.Kind, r.Status, r.Episodes, r.StartedAt.Format(time.RFC3339))
		}
		return w.Flush()
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a run with its episode summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStoreForRead(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		run, err := store.GetRun(ctx, args[0])
		if err != nil {
			return err
		}
		episodes, err := store.Episodes(ctx, run.ID)
		if err != nil {
			return err
		}
		checkpoints, err := store.Checkpoints(ctx, run.ID)
		if err != nil {
			return err
		}
		summary := runstore.Summarize(episodes)

		out := cmd.OutOrStdout()
		if runsJSON {
			output, _ := json.MarshalIndent(map[string]interface{}{
				"run":         run,
				"summary":     summary,
				"episodes":    episodes,
				"checkpoints": checkpoints,
			}, "", "  ")
			fmt.Fprintln(out, string(output))
			return nil
		}

		fmt.Fprintf(out, "Run %s\n", run.ID)
		fmt.Fprintln(out, strings.Repeat("-", 50))
		fmt.Fprintf(out, "  Kind:         %s\n", run.Kind)
		fmt.Fprintf(out, "  Status:       %s\n", run.Status)
		fmt.Fprintf(out, "  Started:      %s\n", run.StartedAt.Format(time.RFC3339))
		if run.FinishedAt != nil {
			fmt.Fprintf(out, "  Finished:     %s\n", run.FinishedAt.Format(time.RFC3339))
		}
		if run.ModelPath != "" {
			fmt.Fprintf(out, "  Model:        %s\n", run.ModelPath)
		}
		if run.Error != "" {
			fmt.Fprintf(out, "  Error:        %s\n", run.Error)
		}
		fmt.Fprintf(out, "  Episodes:     %d/%d\n", summary.Episodes, run.Episodes)
		fmt.Fprintf(out, "  Mean reward:  %.3f (std %.3f)\n", summary.MeanReward, summary.StdReward)
		fmt.Fprintf(out, "  Best reward:  %.3f (episode %d)\n", summary.BestReward, summary.BestEpisode)
		fmt.Fprintf(out, "  Checkpoints:  %d\n", len(checkpoints))
		return nil
	},
}

func openStoreForRead(ctx context.Context) (*runstore.Store, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	config, err := loadConfig()
	if err != nil {
		return nil, err
	}
	store, err := runstore.Open(ctx, config.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to open run store: %w", err)
	}
	return store, nil
}

func init() {
	runsListCmd.Flags().IntVarP(&runsListLimit, "limit", "l", 20, "Maximum runs")
	RunsCmd.PersistentFlags().BoolVar(&runsJSON, "json", false, "Output as JSON")

	RunsCmd.AddCommand(runsListCmd)
	RunsCmd.AddCommand(runsShowCmd)
}
