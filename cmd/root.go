package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/routespeed-cli/internal/config"
	"github.com/KaramelBytes/routespeed-cli/internal/logging"
	"github.com/KaramelBytes/routespeed-cli/internal/pipeline"
)

var (
	// Global flags
	cfgFile string
	debug   bool
	// Overrides applied on top of the loaded config when set
	flagInput   string
	flagOutput  string
	flagSeed    int64
	flagWorkers int
	flagXLSX    bool

	// Loaded configuration
	cfg *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:   "routespeed",
	Short: "Route speed analysis: aggregate, chart and model transit speeds",
	Long: `routespeed loads per-route average speed observations, tidies and aggregates
them by route, direction and time period, charts speed by time period and
against route length, and compares a tuned k-NN regressor with linear
regression on a seeded holdout split.

Run without a subcommand to execute the full pipeline.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStages(cmd)
	},
}

// Execute is the entry point called by main.main()
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	// Persistent global flags available to all subcommands
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./routespeed.yaml or ~/.routespeed/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&flagInput, "input", "i", "", "input CSV/TSV/XLSX file (overrides config)")
	rootCmd.PersistentFlags().StringVarP(&flagOutput, "output", "o", "", "output directory for charts and exports (overrides config)")
	rootCmd.PersistentFlags().Int64Var(&flagSeed, "seed", 0, "random seed for split and cross-validation (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagWorkers, "workers", 0, "parallel workers for the k grid search (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&flagXLSX, "xlsx", false, "also export derived tables to aggregates.xlsx")
}

func loadConfig(cmd *cobra.Command, args []string) error {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		return err
	}

	// Apply CLI overrides if provided
	f := cmd.Root().PersistentFlags()
	if f.Changed("input") && flagInput != "" {
		c.InputPath = flagInput
	}
	if f.Changed("output") && flagOutput != "" {
		c.OutputDir = flagOutput
	}
	if f.Changed("seed") {
		c.Seed = flagSeed
	}
	if f.Changed("workers") && flagWorkers > 0 {
		c.Workers = flagWorkers
	}
	if f.Changed("xlsx") {
		c.ExportXLSX = flagXLSX
	}
	cfg = c
	return nil
}

func runStages(cmd *cobra.Command, stages ...pipeline.Stage) error {
	deps := pipeline.Deps{
		Logger: logging.New(cmd.ErrOrStderr(), debug),
		Out:    cmd.OutOrStdout(),
	}
	_, err := pipeline.Run(cmd.Context(), cfg, deps, stages...)
	return err
}
