// Package aggregate collapses tidy observations into one row per grouping key.
package aggregate

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/KaramelBytes/routespeed-cli/internal/dataset"
)

// LengthPolicy selects how route_length is reduced within a group.
type LengthPolicy string

const (
	// LengthFirst keeps the first-encountered value and reports disagreement.
	LengthFirst LengthPolicy = "first"
	// LengthStrict fails when members disagree.
	LengthStrict LengthPolicy = "strict"
	// LengthMax keeps the largest value.
	LengthMax LengthPolicy = "max"
	// LengthMean averages the member values.
	LengthMean LengthPolicy = "mean"
)

// DefaultKeys is the composite key of AggregatedRouteSpeed rows.
var DefaultKeys = []string{
	dataset.ColOrgID,
	dataset.ColAgency,
	dataset.ColRouteID,
	dataset.ColDirection,
	dataset.ColTimePeriod,
}

// Options controls aggregation behavior.
type Options struct {
	// Keys are grouping field names; nil means DefaultKeys.
	Keys []string
	// LengthPolicy defaults to LengthFirst.
	LengthPolicy LengthPolicy
}

// RouteSpeed is one aggregated row per distinct key.
type RouteSpeed struct {
	OrgID       string
	Agency      string
	RouteID     string
	Direction   float64
	TimePeriod  string
	Speed       float64
	RouteLength float64
	// Size is the number of observations collapsed into this row.
	Size int
}

// Inconsistency describes a group whose members disagree on route_length.
type Inconsistency struct {
	Key     string
	Lengths []float64
}

// InconsistentLengthError is returned under LengthStrict.
type InconsistentLengthError struct {
	Groups []Inconsistency
}

func (e *InconsistentLengthError) Error() string {
	first := e.Groups[0]
	return fmt.Sprintf("route_length not constant in %d group(s); first: %s has %v", len(e.Groups), first.Key, first.Lengths)
}

// Result holds aggregated rows in first-seen key order.
type Result struct {
	Rows []RouteSpeed
	// Inconsistent lists groups with non-constant route_length (LengthFirst,
	// LengthMax and LengthMean report them too).
	Inconsistent []Inconsistency
	// MissingKey counts observations left out because a key field was
	// blank or NaN.
	MissingKey int
}

// SizeSpread returns the smallest and largest group sizes.
func (r *Result) SizeSpread() (smallest, largest int) {
	for i, row := range r.Rows {
		if i == 0 || row.Size < smallest {
			smallest = row.Size
		}
		if row.Size > largest {
			largest = row.Size
		}
	}
	return smallest, largest
}

// SpreadExceeds reports whether largest/smallest group size reaches ratio.
// A ratio of 0 disables the check.
func (r *Result) SpreadExceeds(ratio float64) bool {
	if ratio <= 0 || len(r.Rows) == 0 {
		return false
	}
	lo, hi := r.SizeSpread()
	return float64(hi)/float64(lo) >= ratio
}

type field struct {
	name string
	get  func(o *dataset.Observation) string
}

var fields = map[string]func(o *dataset.Observation) string{
	dataset.ColOrgID:      func(o *dataset.Observation) string { return o.OrgID },
	dataset.ColAgency:     func(o *dataset.Observation) string { return o.Agency },
	dataset.ColRouteID:    func(o *dataset.Observation) string { return o.RouteID },
	dataset.ColDirection:  func(o *dataset.Observation) string { return formatFloat(o.Direction) },
	dataset.ColTimePeriod: func(o *dataset.Observation) string { return o.TimePeriod },
}

func formatFloat(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) }

func keyFields(names []string) ([]field, error) {
	if len(names) == 0 {
		names = DefaultKeys
	}
	out := make([]field, 0, len(names))
	for _, n := range names {
		get, ok := fields[n]
		if !ok {
			return nil, fmt.Errorf("unknown grouping key %q", n)
		}
		out = append(out, field{name: n, get: get})
	}
	return out, nil
}

// missingKey matches what the loader leaves behind for NA or empty cells.
const missingKey = "NaN"

// groupKey reports false when any key field is blank or NaN.
func groupKey(fs []field, o *dataset.Observation) (string, bool) {
	parts := make([]string, len(fs))
	for i, f := range fs {
		v := f.get(o)
		if v == "" || v == missingKey {
			return "", false
		}
		parts[i] = f.name + "=" + v
	}
	return strings.Join(parts, " | "), true
}

type acc struct {
	first     dataset.Observation
	sum       float64
	n         int
	lengths   []float64
	lenSum    float64
	lenMax    float64
	disagrees bool
}

func (a *acc) add(o *dataset.Observation) {
	if a.n == 0 {
		a.first = *o
		a.lenMax = o.RouteLength
	}
	a.n++
	a.sum += o.Speed
	a.lenSum += o.RouteLength
	if o.RouteLength > a.lenMax || math.IsNaN(o.RouteLength) {
		a.lenMax = o.RouteLength
	}
	if !sameLength(o.RouteLength, a.first.RouteLength) {
		a.disagrees = true
	}
	a.lengths = appendDistinct(a.lengths, o.RouteLength)
}

func sameLength(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	return a == b
}

func appendDistinct(vals []float64, v float64) []float64 {
	for _, x := range vals {
		if sameLength(x, v) {
			return vals
		}
	}
	return append(vals, v)
}

// Aggregate produces exactly one RouteSpeed per distinct key combination.
// Speed is the arithmetic mean of the group; a NaN member makes it NaN.
// Fields not in the key are taken from the first member of the group.
// Observations with a blank or NaN key field belong to no group; they are
// skipped and counted in Result.MissingKey.
func Aggregate(obs []dataset.Observation, opt Options) (*Result, error) {
	fs, err := keyFields(opt.Keys)
	if err != nil {
		return nil, err
	}
	policy := opt.LengthPolicy
	if policy == "" {
		policy = LengthFirst
	}
	switch policy {
	case LengthFirst, LengthStrict, LengthMax, LengthMean:
	default:
		return nil, fmt.Errorf("unknown length policy %q", policy)
	}

	index := make(map[string]int)
	var keys []string
	var accs []*acc
	missing := 0
	for i := range obs {
		k, ok := groupKey(fs, &obs[i])
		if !ok {
			missing++
			continue
		}
		j, ok := index[k]
		if !ok {
			j = len(accs)
			index[k] = j
			keys = append(keys, k)
			accs = append(accs, &acc{})
		}
		accs[j].add(&obs[i])
	}

	res := &Result{Rows: make([]RouteSpeed, len(accs)), MissingKey: missing}
	for j, a := range accs {
		length := a.first.RouteLength
		switch policy {
		case LengthMax:
			length = a.lenMax
		case LengthMean:
			length = a.lenSum / float64(a.n)
		}
		res.Rows[j] = RouteSpeed{
			OrgID:       a.first.OrgID,
			Agency:      a.first.Agency,
			RouteID:     a.first.RouteID,
			Direction:   a.first.Direction,
			TimePeriod:  a.first.TimePeriod,
			Speed:       a.sum / float64(a.n),
			RouteLength: length,
			Size:        a.n,
		}
		if a.disagrees {
			res.Inconsistent = append(res.Inconsistent, Inconsistency{Key: keys[j], Lengths: a.lengths})
		}
	}
	if policy == LengthStrict && len(res.Inconsistent) > 0 {
		return nil, &InconsistentLengthError{Groups: res.Inconsistent}
	}
	return res, nil
}
