package chart

import "io"

// Renderer draws charts as standalone images.
type Renderer interface {
	Bar(w io.Writer, s BarSpec) error
	Box(w io.Writer, s BoxSpec) error
	Scatter(w io.Writer, s ScatterSpec) error
}

// Axes holds the text shared by every chart kind.
type Axes struct {
	Title  string
	XLabel string
	YLabel string
}

// BarSpec is one bar per category with symmetric error bars.
type BarSpec struct {
	Axes
	Labels []string
	Values []float64
	// Errors are half-widths; nil draws no error bars.
	Errors []float64
}

// BoxGroup is one box of a box plot.
type BoxGroup struct {
	Label  string
	Values []float64
}

// BoxSpec is a box plot with one box per group.
type BoxSpec struct {
	Axes
	Groups []BoxGroup
}

// Line is y = Intercept + Slope*x drawn over a scatter.
type Line struct {
	Intercept float64
	Slope     float64
	Label     string
}

// ScatterSpec is a point cloud with an optional fitted line.
type ScatterSpec struct {
	Axes
	X, Y []float64
	Line *Line
}
