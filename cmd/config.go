package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/routespeed-cli/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set routespeed configuration",
	// config must stay usable when the current file does not validate
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(cmd, args); err != nil {
			fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
			cfg = nil
		}
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if cfg == nil {
			fmt.Fprintln(out, "No config loaded")
			return nil
		}
		fmt.Fprintf(out, "input_path: %s\n", cfg.InputPath)
		if cfg.InputEncoding != "" {
			fmt.Fprintf(out, "input_encoding: %s\n", cfg.InputEncoding)
		}
		if cfg.Delimiter != "" {
			fmt.Fprintf(out, "delimiter: %s\n", cfg.Delimiter)
		}
		if cfg.SheetName != "" {
			fmt.Fprintf(out, "sheet_name: %s\n", cfg.SheetName)
		}
		fmt.Fprintf(out, "drop_columns: %s\n", strings.Join(cfg.DropColumns, ","))
		fmt.Fprintf(out, "length_policy: %s\n", cfg.LengthPolicy)
		fmt.Fprintf(out, "spread_warn_ratio: %g\n", cfg.SpreadWarnRatio)
		fmt.Fprintf(out, "seed: %d\n", cfg.Seed)
		fmt.Fprintf(out, "test_fraction: %.3f\n", cfg.TestFraction)
		fmt.Fprintf(out, "folds: %d\n", cfg.Folds)
		fmt.Fprintf(out, "k_min: %d\n", cfg.KMin)
		fmt.Fprintf(out, "k_max: %d\n", cfg.KMax)
		fmt.Fprintf(out, "knn_weights: %s\n", cfg.KNNWeights)
		fmt.Fprintf(out, "workers: %d\n", cfg.Workers)
		fmt.Fprintf(out, "output_dir: %s\n", cfg.OutputDir)
		fmt.Fprintf(out, "export_xlsx: %t\n", cfg.ExportXLSX)
		fmt.Fprintf(out, "head_rows: %d\n", cfg.HeadRows)
		fmt.Fprintf(out, "chart_width_in: %g\n", cfg.ChartWidthIn)
		fmt.Fprintf(out, "chart_height_in: %g\n", cfg.ChartHeightIn)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		var err error
		switch key {
		case "input_path":
			cfg.InputPath = val
		case "input_encoding":
			cfg.InputEncoding = val
		case "delimiter":
			cfg.Delimiter = strings.ToLower(val)
		case "sheet_name":
			cfg.SheetName = val
		case "drop_columns":
			cfg.DropColumns = splitList(val)
		case "length_policy":
			cfg.LengthPolicy = strings.ToLower(val)
		case "spread_warn_ratio":
			cfg.SpreadWarnRatio, err = parseFloat(key, val)
		case "seed":
			cfg.Seed, err = strconv.ParseInt(val, 10, 64)
			if err != nil {
				err = fmt.Errorf("invalid int for seed: %w", err)
			}
		case "test_fraction":
			cfg.TestFraction, err = parseFloat(key, val)
		case "folds":
			cfg.Folds, err = parseInt(key, val)
		case "k_min":
			cfg.KMin, err = parseInt(key, val)
		case "k_max":
			cfg.KMax, err = parseInt(key, val)
		case "knn_weights":
			cfg.KNNWeights = strings.ToLower(val)
		case "workers":
			cfg.Workers, err = parseInt(key, val)
		case "output_dir":
			cfg.OutputDir = val
		case "export_xlsx":
			cfg.ExportXLSX, err = strconv.ParseBool(val)
			if err != nil {
				err = fmt.Errorf("invalid bool for export_xlsx: %w", err)
			}
		case "head_rows":
			cfg.HeadRows, err = parseInt(key, val)
		case "chart_width_in":
			cfg.ChartWidthIn, err = parseFloat(key, val)
		case "chart_height_in":
			cfg.ChartHeightIn, err = parseFloat(key, val)
		default:
			return fmt.Errorf("unknown key: %s", key)
		}
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func parseInt(key, val string) (int, error) {
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid int for %s: %w", key, err)
	}
	return i, nil
}

func parseFloat(key, val string) (float64, error) {
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float for %s: %w", key, err)
	}
	return f, nil
}

func splitList(val string) []string {
	var out []string
	for _, s := range strings.Split(val, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
