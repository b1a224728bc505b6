package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/pflag"
)

func init() { color.NoColor = true }

// runCmd executes the root command with args and returns its stdout.
func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	// Reset sticky flags that may persist Changed state across invocations
	rootCmd.PersistentFlags().VisitAll(func(fl *pflag.Flag) {
		_ = fl.Value.Set(fl.DefValue)
		fl.Changed = false
	})
	cfg = nil
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeWorkspace(t *testing.T) (cfgPath, outDir string) {
	t.Helper()
	dir := t.TempDir()
	lines := []string{"OBJECTID,base64_url,agency,district_name,route_name,org_id,route_id,direction_id,speed_mph,Shape_Length,time_period"}
	id := 1
	for r := 1; r <= 10; r++ {
		for d := 0; d <= 1; d++ {
			for _, period := range []string{"peak", "offpeak", "all_day"} {
				speed := 22 - 0.4*float64(r) + float64(d)
				lines = append(lines, fmt.Sprintf("%d,u,Metro,07,Route %d,rec001,%d,%d,%.2f,%.1f,%s", id, r, r, d, speed, 1.5*float64(r), period))
				id++
			}
		}
	}
	input := filepath.Join(dir, "routespeeds.csv")
	if err := os.WriteFile(input, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	outDir = filepath.Join(dir, "out")
	cfgPath = filepath.Join(dir, "routespeed.yaml")
	body := fmt.Sprintf("input_path: %s\noutput_dir: %s\nhead_rows: 3\n", input, outDir)
	if err := os.WriteFile(cfgPath, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return cfgPath, outDir
}

func TestCLI_RootRunsFullPipeline(t *testing.T) {
	cfgPath, outDir := writeWorkspace(t)
	out, err := runCmd(t, "--config", cfgPath, "--xlsx")
	if err != nil {
		t.Fatalf("root command failed: %v", err)
	}
	for _, want := range []string{"[DATASET SUMMARY]", "[SPEED BY TIME PERIOD]", "[LENGTH VS SPEED]", "[MODEL COMPARISON]", "Winner: "} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
	for _, name := range []string{"speed_by_time_period.html", "speed_distribution.html", "length_vs_speed.html", "aggregates.xlsx", "manifest.json"} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
}

func TestCLI_EvaluateOnly(t *testing.T) {
	cfgPath, outDir := writeWorkspace(t)
	out, err := runCmd(t, "evaluate", "--config", cfgPath, "--seed", "7")
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if !strings.Contains(out, "[MODEL COMPARISON]") {
		t.Fatalf("expected model comparison, got:\n%s", out)
	}
	if strings.Contains(out, "[SPEED BY TIME PERIOD]") {
		t.Fatalf("evaluate should not run the descriptive stage")
	}
	if _, err := os.Stat(filepath.Join(outDir, "speed_by_time_period.html")); !os.IsNotExist(err) {
		t.Fatalf("bar chart should not be written by evaluate")
	}
}

func TestCLI_FlagsOverrideConfig(t *testing.T) {
	cfgPath, outDir := writeWorkspace(t)
	other := filepath.Join(t.TempDir(), "elsewhere")
	if _, err := runCmd(t, "describe", "--config", cfgPath, "--output", other, "--seed", "99"); err != nil {
		t.Fatalf("describe failed: %v", err)
	}
	if cfg == nil || cfg.OutputDir != other || cfg.Seed != 99 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if _, err := os.Stat(filepath.Join(other, "speed_by_time_period.html")); err != nil {
		t.Fatalf("bar chart not written to override dir: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, "speed_by_time_period.html")); !os.IsNotExist(err) {
		t.Fatalf("configured output dir should be unused when --output is set")
	}
}

func TestCLI_MissingInputFails(t *testing.T) {
	cfgPath, _ := writeWorkspace(t)
	_, err := runCmd(t, "describe", "--config", cfgPath, "--input", filepath.Join(t.TempDir(), "absent.csv"))
	if err == nil {
		t.Fatalf("expected error for missing input")
	}
}

func TestCLI_ConfigSetShow(t *testing.T) {
	cfgPath, _ := writeWorkspace(t)
	if _, err := runCmd(t, "config", "set", "k_max", "10", "--config", cfgPath); err != nil {
		t.Fatalf("config set: %v", err)
	}
	out, err := runCmd(t, "config", "show", "--config", cfgPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if !strings.Contains(out, "k_max: 10") {
		t.Fatalf("expected k_max: 10, got:\n%s", out)
	}

	if _, err := runCmd(t, "config", "set", "k_min", "50", "--config", cfgPath); err == nil {
		t.Fatalf("expected validation error for k_min > k_max")
	}
	if _, err := runCmd(t, "config", "set", "nope", "1", "--config", cfgPath); err == nil {
		t.Fatalf("expected unknown key error")
	}
}
