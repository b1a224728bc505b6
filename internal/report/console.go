package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/KaramelBytes/routespeed-cli/internal/aggregate"
	"github.com/KaramelBytes/routespeed-cli/internal/analysis"
	"github.com/KaramelBytes/routespeed-cli/internal/dataset"
	"github.com/KaramelBytes/routespeed-cli/internal/model"
)

var (
	headingColor = color.New(color.FgYellow, color.Bold)
	winnerColor  = color.New(color.FgGreen, color.Bold)
)

// DatasetSummary is the row accounting printed before any table.
type DatasetSummary struct {
	Input        string
	Observations int
	Groups       int
	MissingKey   int
	Routes       int
	Inconsistent int
	SmallestSize int
	LargestSize  int
}

// Summary prints the [DATASET SUMMARY] section.
func Summary(w io.Writer, s DatasetSummary) {
	heading(w, "DATASET SUMMARY")
	if s.Input != "" {
		fmt.Fprintf(w, "File: %s\n", s.Input)
	}
	fmt.Fprintf(w, "Observations: %d\n", s.Observations)
	fmt.Fprintf(w, "Route/direction/period groups: %d", s.Groups)
	if s.Groups > 0 {
		fmt.Fprintf(w, " (size %d..%d)", s.SmallestSize, s.LargestSize)
	}
	fmt.Fprintln(w)
	if s.MissingKey > 0 {
		fmt.Fprintf(w, "Left out (blank or NaN key): %d\n", s.MissingKey)
	}
	if s.Routes > 0 {
		fmt.Fprintf(w, "Routes: %d\n", s.Routes)
	}
	if s.Inconsistent > 0 {
		fmt.Fprintf(w, "Groups with disagreeing route_length: %d\n", s.Inconsistent)
	}
	fmt.Fprintln(w)
}

// TidyHead prints the first n tidy observations.
func TidyHead(w io.Writer, obs []dataset.Observation, n int) {
	heading(w, "TIDY DATA (HEAD)")
	t := newTable(w, dataset.TidyColumns)
	for i, o := range obs {
		if i >= n {
			break
		}
		t.Append([]string{o.OrgID, o.Agency, o.RouteID, Float(o.Direction, 0), Float(o.Speed, 2), Float(o.RouteLength, 3), o.TimePeriod})
	}
	t.Render()
	fmt.Fprintf(w, "(%d of %d rows)\n\n", min(n, len(obs)), len(obs))
}

// RouteSpeedHead prints the first n aggregated rows.
func RouteSpeedHead(w io.Writer, rows []aggregate.RouteSpeed, n int) {
	heading(w, "ROUTE SPEEDS (HEAD)")
	t := newTable(w, routeSpeedHeader)
	for i, r := range rows {
		if i >= n {
			break
		}
		t.Append(routeSpeedRecord(r))
	}
	t.Render()
	fmt.Fprintf(w, "(%d of %d rows)\n\n", min(n, len(rows)), len(rows))
}

// Periods prints per-period descriptive statistics.
func Periods(w io.Writer, periods []analysis.PeriodSummary) {
	heading(w, "SPEED BY TIME PERIOD")
	t := newTable(w, periodHeader)
	for _, p := range periods {
		t.Append(periodRecord(p))
	}
	t.Render()
	fmt.Fprintln(w)
}

// Trend prints the fitted speed ~ route_length line.
func Trend(w io.Writer, tr analysis.Trend) {
	heading(w, "LENGTH VS SPEED")
	fmt.Fprintf(w, "speed = %.4f + %.4f * route_length (n=%d, R²=%.3f)\n\n", tr.Intercept, tr.Slope, tr.N, tr.R2)
}

// Comparison prints the model comparison and highlights the winner.
func Comparison(w io.Writer, res *model.Result) {
	heading(w, "MODEL COMPARISON")
	fmt.Fprintf(w, "Features: %s\n", strings.Join(model.FeatureNames, ", "))
	fmt.Fprintf(w, "Train rows: %d, test rows: %d\n", res.TrainSize, res.TestSize)
	fmt.Fprintf(w, "Best k: %d (CV score %.4f)", res.BestK, res.BestScore)
	if s := res.Search; s != nil && s.Capped && len(s.Candidates) > 0 {
		fmt.Fprintf(w, " [k range capped at %d]", s.Candidates[len(s.Candidates)-1].K)
	}
	fmt.Fprintln(w)

	t := newTable(w, []string{"model", "test RMSE", "% of mean train speed"})
	t.Append([]string{string(model.WinnerKNN), Float(res.KNNRMSE, 4), Float(res.KNNPercentError, 2) + "%"})
	t.Append([]string{string(model.WinnerLinear), Float(res.LinearRMSE, 4), Float(res.LinearPercentError, 2) + "%"})
	t.Render()

	fmt.Fprintf(w, "Mean train speed: %s\n", Float(res.MeanTrainSpeed, 3))
	fmt.Fprint(w, "Winner: ")
	winnerColor.Fprintf(w, "%s", res.Winner)
	if res.Margin == 0 {
		fmt.Fprintln(w, " (tie, simpler model preferred)")
	} else {
		fmt.Fprintf(w, " by %s RMSE\n", Float(res.Margin, 4))
	}
	fmt.Fprintln(w)
}

// Float formats v with prec decimals; non-finite values print as NaN/±Inf.
func Float(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}

func heading(w io.Writer, title string) {
	headingColor.Fprintf(w, "[%s]\n", title)
}

func newTable(w io.Writer, header []string) *tablewriter.Table {
	t := tablewriter.NewWriter(w)
	t.SetHeader(header)
	t.SetAutoFormatHeaders(false)
	t.SetAutoWrapText(false)
	return t
}
