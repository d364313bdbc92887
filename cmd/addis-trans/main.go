// Package main provides the CLI entry point for addis-trans.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/surak-alf/addis-trans/cmd/addis-trans/commands"
)

var (
	version = "0.1.0"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "addis-trans",
	Short: "Addis Trans - learned bus dispatch control",
	Long: `Addis Trans trains and evaluates a deep Q-network that decides when to
dispatch buses on a corridor and how long they dwell at their first stop.

It provides:
  - Episodic DQN training against a stepped corridor simulator
  - Greedy evaluation of saved policies
  - Run history in SQLite or PostgreSQL`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	commands.AddGlobalFlags(rootCmd)

	rootCmd.AddCommand(commands.TrainCmd)
	rootCmd.AddCommand(commands.EvaluateCmd)
	rootCmd.AddCommand(commands.ActionsCmd)
	rootCmd.AddCommand(commands.RunsCmd)
}
