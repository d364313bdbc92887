package commands

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	domainTransit "github.com/surak-alf/addis-trans/internal/domain/transit"
)

var actionsJSON bool

type actionRow struct {
	ID int `json:"id"`
	domainTransit.Decision
}

// ActionsCmd prints the dispatch action table.
var ActionsCmd = &cobra.Command{
	Use:   "actions",
	Short: "Show the dispatch action table",
	Long:  `Show every action index with its headway shift and dwell extension in seconds.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		table := domainTransit.ActionTable()
		out := cmd.OutOrStdout()

		if actionsJSON {
			rows := make([]actionRow, len(table))
			for i, d := range table {
				rows[i] = actionRow{ID: i, Decision: d}
			}
			output, _ := json.MarshalIndent(rows, "", "  ")
			fmt.Fprintln(out, string(output))
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ACTION ID\tHEADWAY SHIFT\tDWELL EXTENSION")
		fmt.Fprintln(w, strings.Repeat("-", 44))
		for i, d := range table {
			fmt.Fprintf(w, "%d\t%+.0f\t%.0f\n", i, d.HeadwayShift, d.DwellExtension)
		}
		return w.Flush()
	},
}

func init() {
	ActionsCmd.Flags().BoolVar(&actionsJSON, "json", false, "Output as JSON")
}
