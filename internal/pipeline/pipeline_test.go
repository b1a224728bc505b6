package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/routespeed-cli/internal/config"
	"github.com/KaramelBytes/routespeed-cli/internal/logging"
	"github.com/KaramelBytes/routespeed-cli/internal/report"
)

func init() { color.NoColor = true }

const rawHeader = "OBJECTID,base64_url,agency,district_name,route_name,org_id,route_id,direction_id,speed_mph,Shape_Length,time_period"

// writeFixture writes 12 routes x 2 directions x 2 periods with two
// observations per group.
func writeFixture(t *testing.T) string {
	t.Helper()
	lines := []string{rawHeader}
	id := 1
	for r := 1; r <= 12; r++ {
		length := 2.0 + float64(r)*1.5
		for dir := 0; dir <= 1; dir++ {
			for _, period := range []string{"peak", "offpeak"} {
				for j := 0; j < 2; j++ {
					speed := 25 - 0.6*length + 1.5*float64(dir) + 0.5*float64(j)
					if period == "peak" {
						speed -= 2
					}
					lines = append(lines, fmt.Sprintf("%d,aHR0cA==,Agency %d,07 - Los Angeles,Route %d,rec%03d,%d,%d,%.2f,%.2f,%s",
						id, r%3, r, r%3, r, dir, speed, length, period))
					id++
				}
			}
		}
	}
	p := filepath.Join(t.TempDir(), "routespeeds.csv")
	if err := os.WriteFile(p, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return p
}

func testConfig(input, out string) *config.Global {
	return &config.Global{
		InputPath:       input,
		DropColumns:     config.DefaultDropColumns,
		LengthPolicy:    "first",
		SpreadWarnRatio: 50,
		Seed:            42,
		TestFraction:    0.25,
		Folds:           5,
		KMin:            1,
		KMax:            20,
		KNNWeights:      "distance",
		OutputDir:       out,
		ExportXLSX:      true,
		HeadRows:        5,
		ChartWidthIn:    6,
		ChartHeightIn:   4,
	}
}

func TestRunFullPipelineIsReproducible(t *testing.T) {
	input := writeFixture(t)
	outA, outB := t.TempDir(), t.TempDir()

	var console bytes.Buffer
	a, err := Run(context.Background(), testConfig(input, outA), Deps{Out: &console})
	require.NoError(t, err)
	b, err := Run(context.Background(), testConfig(input, outB), Deps{})
	require.NoError(t, err)

	require.Len(t, a.Observations, 96)
	require.Len(t, a.Aggregate.Rows, 48)
	require.Empty(t, a.Aggregate.Inconsistent)
	require.Equal(t, a.Aggregate, b.Aggregate)
	require.Equal(t, a.Periods, b.Periods)
	require.Equal(t, a.Routes, b.Routes)
	require.Equal(t, a.Trend, b.Trend)
	require.Equal(t, a.Evaluation, b.Evaluation)
	require.NotEqual(t, a.Manifest.RunID, b.Manifest.RunID)

	require.Equal(t, "peak", a.Periods[0].Period)
	require.Len(t, a.Routes, 24)
	require.NotNil(t, a.Trend)
	require.Equal(t, 36, a.Evaluation.TrainSize)
	require.Equal(t, 12, a.Evaluation.TestSize)

	for _, name := range []string{report.PeriodBarFile, report.PeriodBoxFile, report.LengthSpeedFile, report.ExportFile, report.ManifestFile} {
		if _, err := os.Stat(filepath.Join(outA, name)); err != nil {
			t.Fatalf("missing artifact %s: %v", name, err)
		}
	}

	raw, err := os.ReadFile(filepath.Join(outA, report.ManifestFile))
	require.NoError(t, err)
	var man Manifest
	require.NoError(t, json.Unmarshal(raw, &man))
	require.Equal(t, a.Manifest.RunID, man.RunID)
	require.Equal(t, int64(42), man.Seed)
	require.Equal(t, []string{report.PeriodBarFile, report.PeriodBoxFile, report.LengthSpeedFile, report.ExportFile}, man.Artifacts)

	out := console.String()
	for _, want := range []string{"[TIDY DATA (HEAD)]", "[DATASET SUMMARY]", "[SPEED BY TIME PERIOD]", "[LENGTH VS SPEED]", "[MODEL COMPARISON]", "Routes: 24", "✓ Wrote"} {
		require.Contains(t, out, want)
	}
}

func TestRunSingleStage(t *testing.T) {
	input := writeFixture(t)
	out := t.TempDir()
	cfg := testConfig(input, out)
	cfg.ExportXLSX = false

	res, err := Run(context.Background(), cfg, Deps{}, StageDescribe)
	require.NoError(t, err)
	require.Nil(t, res.Evaluation)
	require.Len(t, res.Routes, 24)
	require.Nil(t, res.Trend)
	require.Equal(t, []string{report.PeriodBarFile, report.PeriodBoxFile}, res.Manifest.Artifacts)
	_, err = os.Stat(filepath.Join(out, report.LengthSpeedFile))
	require.True(t, os.IsNotExist(err))
}

func TestRunWarnsOnInconsistentLength(t *testing.T) {
	lines := []string{
		rawHeader,
		"1,x,A,d,R1,rec1,1,0,10,5,peak",
		"2,x,A,d,R1,rec1,1,0,12,6,peak",
		"3,x,A,d,R1,rec1,1,0,14,5,offpeak",
	}
	p := filepath.Join(t.TempDir(), "in.csv")
	require.NoError(t, os.WriteFile(p, []byte(strings.Join(lines, "\n")+"\n"), 0o644))

	var logs bytes.Buffer
	res, err := Run(context.Background(), testConfig(p, t.TempDir()), Deps{Logger: logging.New(&logs, false)}, StageDescribe)
	require.NoError(t, err)
	require.Len(t, res.Aggregate.Inconsistent, 1)
	require.Equal(t, 5.0, res.Aggregate.Rows[0].RouteLength)
	require.Contains(t, logs.String(), "route_length differs within group")
}

func TestRunSkipsRowsWithMissingKeys(t *testing.T) {
	lines := []string{
		rawHeader,
		"1,x,A,d,R1,rec1,1,0,10,5,peak",
		"2,x,A,d,R1,rec1,NA,0,99,5,peak",
		"3,x,A,d,R1,rec1,1,,99,5,peak",
		"4,x,A,d,R1,rec1,1,0,14,5,peak",
		"5,x,A,d,R1,rec1,1,1,12,5,offpeak",
	}
	p := filepath.Join(t.TempDir(), "in.csv")
	require.NoError(t, os.WriteFile(p, []byte(strings.Join(lines, "\n")+"\n"), 0o644))

	var logs, console bytes.Buffer
	res, err := Run(context.Background(), testConfig(p, t.TempDir()), Deps{Logger: logging.New(&logs, false), Out: &console}, StageDescribe)
	require.NoError(t, err)
	require.Len(t, res.Observations, 5)
	require.Equal(t, 2, res.Aggregate.MissingKey)
	require.Len(t, res.Aggregate.Rows, 2)
	require.Equal(t, 12.0, res.Aggregate.Rows[0].Speed)
	require.Len(t, res.Routes, 2)
	require.Contains(t, logs.String(), "blank or NaN key field")
	require.Contains(t, console.String(), "Left out (blank or NaN key): 2")
	require.Contains(t, console.String(), "Routes: 2")
}

func TestRunMissingInput(t *testing.T) {
	cfg := testConfig(filepath.Join(t.TempDir(), "absent.csv"), t.TempDir())
	_, err := Run(context.Background(), cfg, Deps{})
	require.Error(t, err)
	require.True(t, errors.Is(err, os.ErrNotExist))
	require.True(t, strings.HasPrefix(err.Error(), "load: "))
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, testConfig(writeFixture(t), t.TempDir()), Deps{})
	require.True(t, errors.Is(err, context.Canceled))
}
