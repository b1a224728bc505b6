package dataset

import (
	"fmt"
	"strings"

	"github.com/go-gota/gota/dataframe"
)

// Canonical column names after tidying.
const (
	ColOrgID       = "org_id"
	ColAgency      = "agency"
	ColRouteID     = "route_id"
	ColDirection   = "direction"
	ColSpeed       = "speed"
	ColRouteLength = "route_length"
	ColTimePeriod  = "time_period"
)

// Rename maps a raw column name to its canonical name.
type Rename struct {
	From string
	To   string
}

// Renames applied by Tidy, in order.
var Renames = []Rename{
	{From: "direction_id", To: ColDirection},
	{From: "speed_mph", To: ColSpeed},
	{From: "Shape_Length", To: ColRouteLength},
}

// TidyColumns lists the columns Observations needs.
var TidyColumns = []string{ColOrgID, ColAgency, ColRouteID, ColDirection, ColSpeed, ColRouteLength, ColTimePeriod}

// MissingColumnsError reports columns a step expected but did not find.
type MissingColumnsError struct {
	Step    string
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("%s: missing required columns: %s", e.Step, strings.Join(e.Columns, ", "))
}

// Tidy drops the given columns and renames the remaining fields to canonical
// names. A drop or rename target that is absent is an error, never ignored.
func Tidy(df dataframe.DataFrame, drop []string) (dataframe.DataFrame, error) {
	if missing := missingColumns(df.Names(), drop); len(missing) > 0 {
		return dataframe.DataFrame{}, &MissingColumnsError{Step: "drop", Columns: missing}
	}
	from := make([]string, len(Renames))
	for i, r := range Renames {
		from[i] = r.From
	}
	if missing := missingColumns(df.Names(), from); len(missing) > 0 {
		return dataframe.DataFrame{}, &MissingColumnsError{Step: "rename", Columns: missing}
	}

	out := df
	if len(drop) > 0 {
		out = out.Drop(drop)
		if out.Err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("drop columns: %w", out.Err)
		}
	}
	for _, r := range Renames {
		out = out.Rename(r.To, r.From)
		if out.Err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("rename %s: %w", r.From, out.Err)
		}
	}
	return out, nil
}

// Observation is one tidy input row.
type Observation struct {
	OrgID       string
	Agency      string
	RouteID     string
	Direction   float64
	Speed       float64
	RouteLength float64
	TimePeriod  string
}

// Observations converts a tidy frame into typed rows. Unparseable numbers
// become NaN.
func Observations(df dataframe.DataFrame) ([]Observation, error) {
	if missing := missingColumns(df.Names(), TidyColumns); len(missing) > 0 {
		return nil, &MissingColumnsError{Step: "observations", Columns: missing}
	}
	org := df.Col(ColOrgID).Records()
	agency := df.Col(ColAgency).Records()
	route := df.Col(ColRouteID).Records()
	period := df.Col(ColTimePeriod).Records()
	dir := df.Col(ColDirection).Float()
	speed := df.Col(ColSpeed).Float()
	length := df.Col(ColRouteLength).Float()

	out := make([]Observation, df.Nrow())
	for i := range out {
		out[i] = Observation{
			OrgID:       org[i],
			Agency:      agency[i],
			RouteID:     route[i],
			Direction:   dir[i],
			Speed:       speed[i],
			RouteLength: length[i],
			TimePeriod:  period[i],
		}
	}
	return out, nil
}
