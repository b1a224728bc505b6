package chart

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
)

// Table is the tabular data printed under a chart.
type Table struct {
	Header []string
	Rows   [][]string
}

type page struct {
	Title string
	SVG   template.HTML
	Table Table
}

var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; margin-top: 1.5em; }
th, td { border: 1px solid #ccc; padding: 4px 10px; text-align: right; }
th:first-child, td:first-child { text-align: left; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<figure>
{{.SVG}}
</figure>
{{- with .Table.Header}}
<table>
<thead><tr>{{range .}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>
{{- range $.Table.Rows}}
<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{- end}}
</tbody>
</table>
{{- end}}
</body>
</html>
`))

// WritePage renders a chart with draw and embeds the image and table in a
// standalone HTML document.
func WritePage(w io.Writer, title string, table Table, draw func(io.Writer) error) error {
	var buf bytes.Buffer
	if err := draw(&buf); err != nil {
		return err
	}
	svg := buf.Bytes()
	// drop the XML prolog so the element can be inlined
	if i := bytes.Index(svg, []byte("<svg")); i > 0 {
		svg = svg[i:]
	}
	p := page{Title: title, SVG: template.HTML(svg), Table: table}
	if err := pageTmpl.Execute(w, p); err != nil {
		return fmt.Errorf("render page %q: %w", title, err)
	}
	return nil
}
