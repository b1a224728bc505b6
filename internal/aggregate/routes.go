package aggregate

import (
	"github.com/KaramelBytes/routespeed-cli/internal/dataset"
)

// RouteSummary is one row per (org_id, route_id, direction), collapsing
// time periods.
type RouteSummary struct {
	OrgID       string
	RouteID     string
	Direction   float64
	Agency      string
	Speed       float64
	RouteLength float64
	Size        int
}

// RouteKeys groups observations for the exploratory view.
var RouteKeys = []string{dataset.ColOrgID, dataset.ColRouteID, dataset.ColDirection}

// SummarizeRoutes re-aggregates tidy observations by route: mean speed, first
// route_length and first agency, in first-seen order.
func SummarizeRoutes(obs []dataset.Observation) ([]RouteSummary, error) {
	res, err := Aggregate(obs, Options{Keys: RouteKeys, LengthPolicy: LengthFirst})
	if err != nil {
		return nil, err
	}
	out := make([]RouteSummary, len(res.Rows))
	for i, r := range res.Rows {
		out[i] = RouteSummary{
			OrgID:       r.OrgID,
			RouteID:     r.RouteID,
			Direction:   r.Direction,
			Agency:      r.Agency,
			Speed:       r.Speed,
			RouteLength: r.RouteLength,
			Size:        r.Size,
		}
	}
	return out, nil
}
