package render

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"log/slog"
	"time"

	"github.com/KaramelBytes/chartloom/internal/chart"
	"github.com/KaramelBytes/chartloom/internal/dataset"
	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

var (
	seriesColor = drawing.ColorFromHex("636efa")
	maxTicks    = 12
)

// SVG renders charts with go-chart for the web dashboard.
type SVG struct {
	opt Options
}

func NewSVG(opt Options) *SVG { return &SVG{opt: opt.normalized()} }

func (r *SVG) ContentType() string { return "image/svg+xml" }

// Render writes s as SVG. Charts with nothing to draw, or that go-chart
// refuses, come out as a placeholder so the page still updates.
func (r *SVG) Render(w io.Writer, s chart.Figure) error {
	var buf bytes.Buffer
	err := guard(func() error {
		if s.Kind == chart.Bar || s.Kind == chart.Histogram {
			return r.bar(&buf, s)
		}
		return r.xy(&buf, s)
	})
	if err != nil {
		slog.Debug("svg render fell back to placeholder", "title", s.Title, "error", err)
		buf.Reset()
		r.placeholder(&buf, s.Title, "No data to display")
	}
	_, err = w.Write(buf.Bytes())
	return err
}

func (r *SVG) xy(w io.Writer, s chart.Figure) error {
	fs := flatten(s)
	if len(fs.xs) == 0 {
		return fmt.Errorf("no finite points")
	}
	st := gochart.Style{StrokeColor: seriesColor, StrokeWidth: 2}
	switch s.Kind {
	case chart.Line:
		st.DotWidth = 3
		st.DotColor = seriesColor
	case chart.Scatter:
		st.StrokeWidth = 0
		st.StrokeColor = drawing.ColorTransparent
		st.DotWidth = 4
		st.DotColor = seriesColor
	case chart.Area:
		st.FillColor = seriesColor.WithAlpha(96)
	}

	xlo, xhi := span(fs.xs, false)
	ylo, yhi := span(fs.ys, s.Kind == chart.Area)
	xa := gochart.XAxis{Name: xmlText(s.XLabel), Range: &gochart.ContinuousRange{Min: xlo, Max: xhi}}
	ya := gochart.YAxis{Name: xmlText(s.YLabel), Range: &gochart.ContinuousRange{Min: ylo, Max: yhi}}
	if fs.ycategorical {
		ya.Ticks = categoryTicks(fs.ynames, 0)
	}
	var series gochart.Series
	switch {
	case fs.categorical:
		xa.Ticks = categoryTicks(fs.xnames, 0)
		series = gochart.ContinuousSeries{XValues: fs.xs, YValues: fs.ys, Style: st}
	case s.XKind == dataset.KindDatetime:
		ts := make([]time.Time, len(fs.xs))
		for i, x := range fs.xs {
			ts[i] = unixTime(x)
		}
		// go-chart places time values at unix nanoseconds.
		xa.Range = &gochart.ContinuousRange{Min: xlo * 1e9, Max: xhi * 1e9}
		xa.ValueFormatter = timeFormatter(s.TimeLayout)
		series = gochart.TimeSeries{XValues: ts, YValues: fs.ys, Style: st}
	default:
		series = gochart.ContinuousSeries{XValues: fs.xs, YValues: fs.ys, Style: st}
	}

	ch := gochart.Chart{
		Title:      xmlText(s.Title),
		Width:      r.opt.Width,
		Height:     r.opt.Height,
		Background: gochart.Style{Padding: gochart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis:      xa,
		YAxis:      ya,
		Series:     []gochart.Series{series},
	}
	return ch.Render(gochart.SVG, w)
}

func (r *SVG) bar(w io.Writer, s chart.Figure) error {
	labels, heights, ynames := bars(s)
	if len(heights) == 0 {
		return fmt.Errorf("no finite bars")
	}
	lo, hi := span(heights, true)
	ya := gochart.YAxis{Name: xmlText(s.YLabel), Range: &gochart.ContinuousRange{Min: lo, Max: hi}}
	if len(ynames) > 0 {
		ya.Ticks = categoryTicks(ynames, 1)
	}
	values := make([]gochart.Value, len(heights))
	for i := range heights {
		values[i] = gochart.Value{
			Label: xmlText(labels[i]),
			Value: heights[i],
			Style: gochart.Style{FillColor: seriesColor, StrokeColor: seriesColor},
		}
	}
	spacing := 4
	if s.Kind == chart.Histogram {
		spacing = 1
	}
	width := (r.opt.Width-120)/len(values) - spacing
	if width < 2 {
		width = 2
	}
	bc := gochart.BarChart{
		Title:      xmlText(s.Title),
		Width:      r.opt.Width,
		Height:     r.opt.Height,
		Background: gochart.Style{Padding: gochart.Box{Top: 40}},
		BarWidth:   width,
		BarSpacing: spacing,
		YAxis:      ya,
		Bars:       values,
	}
	return bc.Render(gochart.SVG, w)
}

func (r *SVG) placeholder(w io.Writer, title, msg string) {
	fmt.Fprintf(w, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d">`, r.opt.Width, r.opt.Height)
	fmt.Fprintf(w, `<text x="20" y="30" font-family="sans-serif" font-size="16">%s</text>`, html.EscapeString(title))
	fmt.Fprintf(w, `<text x="%d" y="%d" font-family="sans-serif" font-size="14" text-anchor="middle">%s</text>`,
		r.opt.Width/2, r.opt.Height/2, html.EscapeString(msg))
	fmt.Fprint(w, `</svg>`)
}

// categoryTicks labels at most maxTicks of the category positions
// base, base+1, ... on a categorical axis.
func categoryTicks(names []string, base float64) []gochart.Tick {
	step := 1
	if len(names) > maxTicks {
		step = (len(names) + maxTicks - 1) / maxTicks
	}
	var ticks []gochart.Tick
	for i := 0; i < len(names); i += step {
		ticks = append(ticks, gochart.Tick{Value: base + float64(i), Label: xmlText(names[i])})
	}
	return ticks
}

// timeFormatter labels time ticks with the column's own layout, so a
// date-only column reads the same on the axis as in the table.
func timeFormatter(layout string) gochart.ValueFormatter {
	if layout == "" {
		return gochart.TimeValueFormatter
	}
	return func(v interface{}) string {
		switch t := v.(type) {
		case time.Time:
			return t.UTC().Format(layout)
		case float64:
			return time.Unix(0, int64(t)).UTC().Format(layout)
		}
		return gochart.TimeValueFormatter(v)
	}
}

// xmlText escapes user text; go-chart writes labels into the SVG verbatim.
func xmlText(s string) string { return html.EscapeString(s) }

func unixTime(sec float64) time.Time {
	return time.Unix(0, int64(sec*1e9)).UTC()
}
