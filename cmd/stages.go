package cmd

import (
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/routespeed-cli/internal/pipeline"
)

var describeCmd = &cobra.Command{
	Use:   "describe",
	Short: "Summarize speed by time period and render bar and box charts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStages(cmd, pipeline.StageDescribe)
	},
}

var exploreCmd = &cobra.Command{
	Use:   "explore",
	Short: "Plot route speed against route length with a fitted line",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStages(cmd, pipeline.StageExplore)
	},
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Compare tuned k-NN against linear regression on a holdout split",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStages(cmd, pipeline.StageEvaluate)
	},
}

func init() {
	rootCmd.AddCommand(describeCmd)
	rootCmd.AddCommand(exploreCmd)
	rootCmd.AddCommand(evaluateCmd)
}
