package report

import (
	"fmt"
	"math"

	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/routespeed-cli/internal/aggregate"
	"github.com/KaramelBytes/routespeed-cli/internal/analysis"
)

// Export sheet names.
const (
	SheetRouteSpeeds = "route_speeds"
	SheetPeriods     = "time_periods"
	SheetRoutes      = "routes"
)

// Tables bundles every derived table for export.
type Tables struct {
	RouteSpeeds []aggregate.RouteSpeed
	Periods     []analysis.PeriodSummary
	Routes      []aggregate.RouteSummary
}

// ExportXLSX writes the derived tables to a workbook, one sheet each.
// Non-finite numbers are left as empty cells.
func ExportXLSX(path string, t Tables) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetRouteSpeeds); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	rs := make([][]any, len(t.RouteSpeeds))
	for i, r := range t.RouteSpeeds {
		rs[i] = []any{r.OrgID, r.Agency, r.RouteID, num(r.Direction), r.TimePeriod, num(r.Speed), num(r.RouteLength), r.Size}
	}
	if err := writeSheet(f, SheetRouteSpeeds, routeSpeedHeader, rs); err != nil {
		return err
	}

	ps := make([][]any, len(t.Periods))
	for i, p := range t.Periods {
		var std any
		if p.StdDefined {
			std = num(p.Std)
		}
		ps[i] = []any{p.Period, num(p.Mean), std, p.Count}
	}
	if _, err := f.NewSheet(SheetPeriods); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := writeSheet(f, SheetPeriods, periodHeader, ps); err != nil {
		return err
	}

	routes := make([][]any, len(t.Routes))
	for i, r := range t.Routes {
		routes[i] = []any{r.OrgID, r.Agency, r.RouteID, num(r.Direction), num(r.Speed), num(r.RouteLength), r.Size}
	}
	if _, err := f.NewSheet(SheetRoutes); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := writeSheet(f, SheetRoutes, routeHeader, routes); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, header []string, rows [][]any) error {
	hdr := make([]any, len(header))
	for i, h := range header {
		hdr[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &hdr); err != nil {
		return fmt.Errorf("export %s header: %w", sheet, err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("export %s: %w", sheet, err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("export %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

// num maps non-finite values to nil so the cell stays blank.
func num(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}
