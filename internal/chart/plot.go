package chart

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

var (
	barColor   = color.RGBA{R: 20, G: 80, B: 200, A: 255}
	pointColor = color.RGBA{R: 20, G: 80, B: 200, A: 200}
	lineColor  = color.RGBA{R: 200, G: 30, B: 30, A: 255}
)

// SVG renders charts with gonum/plot into SVG.
type SVG struct {
	Width  vg.Length
	Height vg.Length
}

// NewSVG returns a renderer producing images of the given size in inches.
// Non-positive sizes fall back to 8x5.
func NewSVG(widthIn, heightIn float64) *SVG {
	if widthIn <= 0 {
		widthIn = 8
	}
	if heightIn <= 0 {
		heightIn = 5
	}
	return &SVG{Width: vg.Length(widthIn) * vg.Inch, Height: vg.Length(heightIn) * vg.Inch}
}

type meanErrors struct {
	plotter.XYs
	plotter.YErrors
}

// Bar draws category means. Non-finite values are drawn at zero height.
func (r *SVG) Bar(w io.Writer, s BarSpec) error {
	if len(s.Labels) != len(s.Values) {
		return fmt.Errorf("bar chart: %d labels for %d values", len(s.Labels), len(s.Values))
	}
	if s.Errors != nil && len(s.Errors) != len(s.Values) {
		return fmt.Errorf("bar chart: %d error bars for %d values", len(s.Errors), len(s.Values))
	}
	if len(s.Values) == 0 {
		return errors.New("bar chart: no categories")
	}
	p := newPlot(s.Axes)

	vals := make(plotter.Values, len(s.Values))
	for i, v := range s.Values {
		vals[i] = zeroIfNonFinite(v)
	}
	bars, err := plotter.NewBarChart(vals, vg.Points(40))
	if err != nil {
		return fmt.Errorf("bar chart: %w", err)
	}
	bars.Color = barColor
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)

	if s.Errors != nil {
		pts := meanErrors{XYs: make(plotter.XYs, len(vals)), YErrors: make(plotter.YErrors, len(vals))}
		for i, v := range vals {
			e := zeroIfNonFinite(s.Errors[i])
			pts.XYs[i] = plotter.XY{X: float64(i), Y: v}
			pts.YErrors[i].Low, pts.YErrors[i].High = e, e
		}
		eb, err := plotter.NewYErrorBars(pts)
		if err != nil {
			return fmt.Errorf("bar chart error bars: %w", err)
		}
		p.Add(eb)
	}
	p.NominalX(s.Labels...)
	return write(p, w, r.Width, r.Height)
}

// Box draws one box per group. Empty groups keep their axis slot.
func (r *SVG) Box(w io.Writer, s BoxSpec) error {
	if len(s.Groups) == 0 {
		return errors.New("box plot: no groups")
	}
	p := newPlot(s.Axes)
	labels := make([]string, len(s.Groups))
	for i, g := range s.Groups {
		labels[i] = g.Label
		if len(g.Values) == 0 {
			continue
		}
		box, err := plotter.NewBoxPlot(vg.Points(40), float64(i), plotter.Values(g.Values))
		if err != nil {
			return fmt.Errorf("box plot %s: %w", g.Label, err)
		}
		box.FillColor = color.RGBA{R: 180, G: 200, B: 240, A: 255}
		p.Add(box)
	}
	p.NominalX(labels...)
	return write(p, w, r.Width, r.Height)
}

// Scatter draws the finite points of s plus the optional line.
func (r *SVG) Scatter(w io.Writer, s ScatterSpec) error {
	if len(s.X) != len(s.Y) {
		return fmt.Errorf("scatter: %d x values for %d y values", len(s.X), len(s.Y))
	}
	p := newPlot(s.Axes)
	pts := make(plotter.XYs, 0, len(s.X))
	for i := range s.X {
		if isFinite(s.X[i]) && isFinite(s.Y[i]) {
			pts = append(pts, plotter.XY{X: s.X[i], Y: s.Y[i]})
		}
	}
	if len(pts) == 0 {
		return errors.New("scatter: no finite points")
	}
	sc, err := plotter.NewScatter(pts)
	if err != nil {
		return fmt.Errorf("scatter: %w", err)
	}
	sc.GlyphStyle.Color = pointColor
	sc.GlyphStyle.Radius = vg.Points(2.5)
	p.Add(sc)

	if s.Line != nil {
		xmin, xmax, _, _ := plotter.XYRange(pts)
		ln := *s.Line
		fn := plotter.NewFunction(func(x float64) float64 { return ln.Intercept + ln.Slope*x })
		fn.XMin, fn.XMax = xmin, xmax
		fn.Color = lineColor
		fn.Width = vg.Points(1.5)
		p.Add(fn)
		if ln.Label != "" {
			p.Legend.Add(ln.Label, fn)
			p.Legend.Top = true
		}
	}
	return write(p, w, r.Width, r.Height)
}

func newPlot(a Axes) *plot.Plot {
	p := plot.New()
	p.Title.Text = a.Title
	p.X.Label.Text = a.XLabel
	p.Y.Label.Text = a.YLabel
	p.Add(plotter.NewGrid())
	return p
}

func write(p *plot.Plot, w io.Writer, width, height vg.Length) error {
	wt, err := p.WriterTo(width, height, "svg")
	if err != nil {
		return fmt.Errorf("render svg: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write svg: %w", err)
	}
	return nil
}

func zeroIfNonFinite(v float64) float64 {
	if !isFinite(v) {
		return 0
	}
	return v
}

func isFinite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
