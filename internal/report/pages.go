package report

import (
	"fmt"
	"io"

	"github.com/KaramelBytes/routespeed-cli/internal/aggregate"
	"github.com/KaramelBytes/routespeed-cli/internal/analysis"
	"github.com/KaramelBytes/routespeed-cli/internal/chart"
)

// Artifact file names written to the output directory.
const (
	PeriodBarFile   = "speed_by_time_period.html"
	PeriodBoxFile   = "speed_distribution.html"
	LengthSpeedFile = "length_vs_speed.html"
	ExportFile      = "aggregates.xlsx"
	ManifestFile    = "manifest.json"
)

// PeriodBarPage renders mean speed per time period with ±1 std error bars.
// Periods with an undefined std get zero-height bars.
func PeriodBarPage(w io.Writer, r chart.Renderer, periods []analysis.PeriodSummary) error {
	spec := chart.BarSpec{
		Axes: chart.Axes{Title: "Average route speed by time period", XLabel: "time period", YLabel: "speed (mph)"},
	}
	for _, p := range periods {
		spec.Labels = append(spec.Labels, p.Period)
		spec.Values = append(spec.Values, p.Mean)
		spec.Errors = append(spec.Errors, p.Std)
	}
	return chart.WritePage(w, spec.Title, PeriodTable(periods), func(out io.Writer) error {
		if err := r.Bar(out, spec); err != nil {
			return fmt.Errorf("period bar chart: %w", err)
		}
		return nil
	})
}

// PeriodBoxPage renders the distribution of speeds per time period.
func PeriodBoxPage(w io.Writer, r chart.Renderer, samples []analysis.PeriodSample, periods []analysis.PeriodSummary) error {
	spec := chart.BoxSpec{
		Axes: chart.Axes{Title: "Route speed distribution by time period", XLabel: "time period", YLabel: "speed (mph)"},
	}
	for _, s := range samples {
		spec.Groups = append(spec.Groups, chart.BoxGroup{Label: s.Period, Values: s.Speeds})
	}
	return chart.WritePage(w, spec.Title, PeriodTable(periods), func(out io.Writer) error {
		if err := r.Box(out, spec); err != nil {
			return fmt.Errorf("period box plot: %w", err)
		}
		return nil
	})
}

// LengthSpeedPage renders route speed against route length. A nil trend
// draws the points alone.
func LengthSpeedPage(w io.Writer, r chart.Renderer, routes []aggregate.RouteSummary, tr *analysis.Trend) error {
	spec := chart.ScatterSpec{
		Axes: chart.Axes{Title: "Route length vs average speed", XLabel: "route length", YLabel: "speed (mph)"},
		X:    make([]float64, len(routes)),
		Y:    make([]float64, len(routes)),
	}
	for i, rt := range routes {
		spec.X[i] = rt.RouteLength
		spec.Y[i] = rt.Speed
	}
	if tr != nil {
		spec.Line = &chart.Line{
			Intercept: tr.Intercept,
			Slope:     tr.Slope,
			Label:     fmt.Sprintf("OLS fit (R²=%.3f)", tr.R2),
		}
	}
	return chart.WritePage(w, spec.Title, RouteTable(routes), func(out io.Writer) error {
		if err := r.Scatter(out, spec); err != nil {
			return fmt.Errorf("length vs speed scatter: %w", err)
		}
		return nil
	})
}
