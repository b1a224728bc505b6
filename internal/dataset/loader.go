package dataset

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// RequiredColumns must all be present in the raw input header.
var RequiredColumns = []string{
	"OBJECTID",
	"base64_url",
	"agency",
	"district_name",
	"route_name",
	"org_id",
	"route_id",
	"direction_id",
	"speed_mph",
	"Shape_Length",
	"time_period",
}

// Identifier columns are kept as text even when they look numeric.
var columnTypes = map[string]series.Type{
	"OBJECTID":      series.String,
	"base64_url":    series.String,
	"agency":        series.String,
	"district_name": series.String,
	"route_name":    series.String,
	"org_id":        series.String,
	"route_id":      series.String,
	"time_period":   series.String,
	"direction_id":  series.Float,
	"speed_mph":     series.Float,
	"Shape_Length":  series.Float,
}

// LoadOptions controls how the raw observation file is read.
type LoadOptions struct {
	// Delimiter for CSV. If 0, '\t' for .tsv files and ',' otherwise.
	Delimiter rune
	// Encoding is an IANA/WHATWG name such as "windows-1252". Empty means UTF-8.
	Encoding string
	// SheetName selects the worksheet of an .xlsx input; empty means the first sheet.
	SheetName string
}

// Load reads the raw observation table from path. CSV/TSV and XLSX inputs are
// supported. Every column in RequiredColumns must be present.
func Load(path string, opt LoadOptions) (dataframe.DataFrame, error) {
	var (
		df  dataframe.DataFrame
		err error
	)
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		df, err = loadXLSX(path, opt.SheetName)
	} else {
		df, err = loadCSV(path, opt)
	}
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	if missing := missingColumns(df.Names(), RequiredColumns); len(missing) > 0 {
		return dataframe.DataFrame{}, &MissingColumnsError{Step: "load", Columns: missing}
	}
	return df, nil
}

func loadCSV(path string, opt LoadOptions) (dataframe.DataFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if opt.Encoding != "" {
		enc, err := htmlindex.Get(opt.Encoding)
		if err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("input encoding %q: %w", opt.Encoding, err)
		}
		r = transform.NewReader(f, enc.NewDecoder())
	}
	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(path)
	}
	df := dataframe.ReadCSV(r,
		dataframe.WithDelimiter(delim),
		dataframe.WithTypes(columnTypes),
	)
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("read csv %s: %w", filepath.Base(path), df.Err)
	}
	return df, nil
}

func loadXLSX(path, sheetName string) (dataframe.DataFrame, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return dataframe.DataFrame{}, fmt.Errorf("xlsx %s has no sheets", filepath.Base(path))
	}
	sheet := sheets[0]
	if sheetName != "" {
		sheet = ""
		for _, s := range sheets {
			if strings.EqualFold(s, sheetName) {
				sheet = s
				break
			}
		}
		if sheet == "" {
			return dataframe.DataFrame{}, fmt.Errorf("sheet '%s' not found in workbook '%s'.\nAvailable sheets: %s",
				sheetName, filepath.Base(path), strings.Join(sheets, ", "))
		}
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return dataframe.DataFrame{}, fmt.Errorf("sheet %s is empty", sheet)
	}
	// GetRows trims trailing empty cells; pad to the header width.
	width := len(rows[0])
	for i, row := range rows {
		if len(row) < width {
			tmp := make([]string, width)
			copy(tmp, row)
			rows[i] = tmp
		}
	}
	df := dataframe.LoadRecords(rows, dataframe.WithTypes(columnTypes))
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("load sheet %s: %w", sheet, df.Err)
	}
	return df, nil
}

func sniffDelimiter(path string) rune {
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		return '\t'
	}
	return ','
}

func missingColumns(have, want []string) []string {
	set := make(map[string]struct{}, len(have))
	for _, h := range have {
		set[h] = struct{}{}
	}
	var missing []string
	for _, w := range want {
		if _, ok := set[w]; !ok {
			missing = append(missing, w)
		}
	}
	return missing
}
