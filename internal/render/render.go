package render

import (
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/chartloom/internal/chart"
	"github.com/KaramelBytes/chartloom/internal/dataset"
)

// Renderer draws a chart figure to w.
type Renderer interface {
	Render(w io.Writer, s chart.Figure) error
	ContentType() string
}

// Options controls canvas size.
type Options struct {
	Width  int
	Height int
}

// DefaultOptions returns the dashboard canvas size.
func DefaultOptions() Options {
	return Options{Width: 960, Height: 480}
}

func (o Options) normalized() Options {
	d := DefaultOptions()
	if o.Width <= 0 {
		o.Width = d.Width
	}
	if o.Height <= 0 {
		o.Height = d.Height
	}
	return o
}

// ForFormat returns the renderer for "svg" or "png".
func ForFormat(format string, opt Options) (Renderer, error) {
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "svg":
		return NewSVG(opt), nil
	case "png":
		return NewPNG(opt), nil
	}
	return nil, fmt.Errorf("unsupported image format %q (use svg or png)", format)
}

// FormatFromPath infers the output format from a file extension, defaulting to png.
func FormatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".svg":
		return "svg"
	default:
		return "png"
	}
}

// series is a figure flattened to plottable numbers. Non-finite values are dropped.
type series struct {
	xs, ys []float64
	labels []string // x labels, one per kept point
	// categorical axes carry positions 0..n-1 into xnames/ynames
	categorical  bool
	ycategorical bool
	xnames       []string
	ynames       []string
}

// categories hands out positions to text values in first-seen order.
type categories struct {
	pos   map[string]float64
	names []string
}

func (c *categories) at(name string) float64 {
	if c.pos == nil {
		c.pos = map[string]float64{}
	}
	v, ok := c.pos[name]
	if !ok {
		v = float64(len(c.names))
		c.pos[name] = v
		c.names = append(c.names, name)
	}
	return v
}

// coord maps a cell onto an axis. Text cells go through cats when the axis is
// categorical.
func coord(v dataset.Value, layout string, cats *categories) (float64, bool) {
	if cats != nil {
		if v.IsMissing() {
			return 0, false
		}
		return cats.at(dataset.Label(v, layout)), true
	}
	f, ok := v.Float()
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func flatten(s chart.Figure) series {
	var out series
	out.categorical = s.XKind == dataset.KindText
	out.ycategorical = s.YKind == dataset.KindText
	var xc, yc *categories
	if out.categorical {
		xc = &categories{}
	}
	if out.ycategorical {
		yc = &categories{}
	}
	for _, p := range s.Points {
		y, ok := coord(p.Y, s.TimeLayout, yc)
		if !ok {
			continue
		}
		x, ok := coord(p.X, s.TimeLayout, xc)
		if !ok {
			continue
		}
		out.xs = append(out.xs, x)
		out.ys = append(out.ys, y)
		out.labels = append(out.labels, dataset.Label(p.X, s.TimeLayout))
	}
	if xc != nil {
		out.xnames = xc.names
	}
	if yc != nil {
		out.ynames = yc.names
	}
	return out
}

// bars returns label/height pairs for bar-like charts, including histograms.
// A text y column yields 1-based category positions as heights, so the first
// category still draws a bar, plus the category names in position order.
func bars(s chart.Figure) (labels []string, heights []float64, ynames []string) {
	if s.Kind == chart.Histogram {
		for _, b := range s.Bins {
			labels = append(labels, b.Label)
			heights = append(heights, float64(b.Count))
		}
		return labels, heights, nil
	}
	var yc *categories
	if s.YKind == dataset.KindText {
		yc = &categories{}
	}
	for _, p := range s.Points {
		y, ok := coord(p.Y, s.TimeLayout, yc)
		if !ok {
			continue
		}
		if yc != nil {
			y++
		}
		labels = append(labels, dataset.Label(p.X, s.TimeLayout))
		heights = append(heights, y)
	}
	if yc != nil {
		ynames = yc.names
	}
	return labels, heights, ynames
}

// span pads a degenerate [lo, hi] so axes always have a non-zero range.
func span(vals []float64, includeZero bool) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range vals {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if includeZero {
		lo = math.Min(lo, 0)
		hi = math.Max(hi, 0)
	}
	if math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		return 0, 1
	}
	if lo == hi {
		pad := math.Abs(lo) * 0.1
		if pad == 0 {
			pad = 1
		}
		return lo - pad, hi + pad
	}
	return lo, hi
}

// guard turns a panic inside a chart library into an error.
func guard(fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("render panic: %v", rec)
		}
	}()
	return fn()
}
