package analysis

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/routespeed-cli/internal/aggregate"
)

// ErrInsufficientData is returned when a statistic cannot be computed from
// the rows given.
var ErrInsufficientData = errors.New("insufficient data")

// PeriodOrder is the fixed category order for time periods. Periods not
// listed sort after these, alphabetically.
var PeriodOrder = []string{"peak", "offpeak", "all_day"}

// PeriodSummary holds descriptive statistics of speed for one time period.
type PeriodSummary struct {
	Period string
	Mean   float64
	// Std is the sample standard deviation (N-1). It is 0 when StdDefined is
	// false, i.e. the period has a single row.
	Std        float64
	StdDefined bool
	Count      int
}

// PeriodSample holds the finite speeds of one time period.
type PeriodSample struct {
	Period string
	Speeds []float64
}

// SortPeriods orders period labels by PeriodOrder, then alphabetically.
func SortPeriods(periods []string) {
	rank := func(p string) int {
		for i, q := range PeriodOrder {
			if p == q {
				return i
			}
		}
		return len(PeriodOrder)
	}
	sort.SliceStable(periods, func(i, j int) bool {
		ri, rj := rank(periods[i]), rank(periods[j])
		if ri != rj {
			return ri < rj
		}
		return periods[i] < periods[j]
	})
}

func groupByPeriod(rows []aggregate.RouteSpeed) ([]string, map[string][]float64) {
	groups := map[string][]float64{}
	var periods []string
	for _, r := range rows {
		if _, ok := groups[r.TimePeriod]; !ok {
			periods = append(periods, r.TimePeriod)
		}
		groups[r.TimePeriod] = append(groups[r.TimePeriod], r.Speed)
	}
	SortPeriods(periods)
	return periods, groups
}

// SummarizePeriods computes mean, sample standard deviation and count of
// speed per time period. NaN speeds are kept, so they propagate into Mean
// and Std of their period.
func SummarizePeriods(rows []aggregate.RouteSpeed) []PeriodSummary {
	periods, groups := groupByPeriod(rows)
	out := make([]PeriodSummary, 0, len(periods))
	for _, p := range periods {
		vals := groups[p]
		s := PeriodSummary{Period: p, Count: len(vals), Mean: stat.Mean(vals, nil)}
		if len(vals) > 1 {
			s.Std = stat.StdDev(vals, nil)
			s.StdDefined = true
		}
		out = append(out, s)
	}
	return out
}

// PeriodValues returns the finite speeds per time period for distribution
// plots, and how many NaN/Inf values were dropped.
func PeriodValues(rows []aggregate.RouteSpeed) (samples []PeriodSample, dropped int) {
	periods, groups := groupByPeriod(rows)
	for _, p := range periods {
		var keep []float64
		for _, v := range groups[p] {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				dropped++
				continue
			}
			keep = append(keep, v)
		}
		samples = append(samples, PeriodSample{Period: p, Speeds: keep})
	}
	return samples, dropped
}
