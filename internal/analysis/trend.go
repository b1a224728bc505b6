package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/routespeed-cli/internal/aggregate"
)

// Trend is an ordinary least squares line of speed on route length.
type Trend struct {
	Intercept float64
	Slope     float64
	// N is the number of finite points used in the fit.
	N int
	// R2 is the coefficient of determination of the fit.
	R2 float64
}

// At evaluates the fitted line at x.
func (t Trend) At(x float64) float64 { return t.Intercept + t.Slope*x }

// FitTrend fits speed ~ route_length over route summaries. Rows with a
// non-finite length or speed are skipped.
func FitTrend(routes []aggregate.RouteSummary) (Trend, error) {
	xs := make([]float64, 0, len(routes))
	ys := make([]float64, 0, len(routes))
	for _, r := range routes {
		if !finite(r.RouteLength) || !finite(r.Speed) {
			continue
		}
		xs = append(xs, r.RouteLength)
		ys = append(ys, r.Speed)
	}
	if len(xs) < 2 {
		return Trend{}, fmt.Errorf("fit trend on %d point(s): %w", len(xs), ErrInsufficientData)
	}
	distinct := false
	for _, x := range xs[1:] {
		if x != xs[0] {
			distinct = true
			break
		}
	}
	if !distinct {
		return Trend{}, fmt.Errorf("fit trend: route_length is constant: %w", ErrInsufficientData)
	}
	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	return Trend{
		Intercept: alpha,
		Slope:     beta,
		N:         len(xs),
		R2:        stat.RSquared(xs, ys, nil, alpha, beta),
	}, nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
