package report

import (
	"strconv"

	"github.com/KaramelBytes/routespeed-cli/internal/aggregate"
	"github.com/KaramelBytes/routespeed-cli/internal/analysis"
	"github.com/KaramelBytes/routespeed-cli/internal/chart"
)

var (
	routeSpeedHeader = []string{"org_id", "agency", "route_id", "direction", "time_period", "speed", "route_length", "n"}
	periodHeader     = []string{"time_period", "mean speed", "std", "n"}
	routeHeader      = []string{"org_id", "agency", "route_id", "direction", "speed", "route_length", "n"}
)

func routeSpeedRecord(r aggregate.RouteSpeed) []string {
	return []string{r.OrgID, r.Agency, r.RouteID, Float(r.Direction, 0), r.TimePeriod, Float(r.Speed, 2), Float(r.RouteLength, 3), strconv.Itoa(r.Size)}
}

func periodRecord(p analysis.PeriodSummary) []string {
	std := "n/a"
	if p.StdDefined {
		std = Float(p.Std, 2)
	}
	return []string{p.Period, Float(p.Mean, 2), std, strconv.Itoa(p.Count)}
}

func routeRecord(r aggregate.RouteSummary) []string {
	return []string{r.OrgID, r.Agency, r.RouteID, Float(r.Direction, 0), Float(r.Speed, 2), Float(r.RouteLength, 3), strconv.Itoa(r.Size)}
}

// PeriodTable is the data table shown under the period charts.
func PeriodTable(periods []analysis.PeriodSummary) chart.Table {
	t := chart.Table{Header: periodHeader}
	for _, p := range periods {
		t.Rows = append(t.Rows, periodRecord(p))
	}
	return t
}

// RouteTable is the data table shown under the length vs speed chart.
func RouteTable(routes []aggregate.RouteSummary) chart.Table {
	t := chart.Table{Header: routeHeader}
	for _, r := range routes {
		t.Rows = append(t.Rows, routeRecord(r))
	}
	return t
}
