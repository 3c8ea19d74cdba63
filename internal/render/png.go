package render

import (
	"fmt"
	"image/color"
	"io"
	"strings"

	"github.com/KaramelBytes/chartloom/internal/chart"
	"github.com/KaramelBytes/chartloom/internal/dataset"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

var plotColor = color.RGBA{R: 0x63, G: 0x6e, B: 0xfa, A: 0xff}

// PNG renders charts with gonum/plot for offline export.
type PNG struct {
	opt Options
}

func NewPNG(opt Options) *PNG { return &PNG{opt: opt.normalized()} }

func (r *PNG) ContentType() string { return "image/png" }

func (r *PNG) Render(w io.Writer, s chart.Figure) error {
	p := plot.New()
	p.Title.Text = s.Title
	p.X.Label.Text = s.XLabel
	p.Y.Label.Text = s.YLabel

	err := guard(func() error {
		switch {
		case s.Kind == chart.Histogram && !s.Categorical:
			return addHistogram(p, s)
		case s.Kind == chart.Bar || s.Kind == chart.Histogram:
			return r.addBars(p, s)
		default:
			return addXY(p, s)
		}
	})
	if err != nil {
		return fmt.Errorf("plot %q: %w", s.Title, err)
	}

	wt, err := p.WriterTo(vg.Points(float64(r.opt.Width)), vg.Points(float64(r.opt.Height)), "png")
	if err != nil {
		return fmt.Errorf("create plot writer: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return nil
}

func addXY(p *plot.Plot, s chart.Figure) error {
	fs := flatten(s)
	if len(fs.xs) == 0 {
		return nil
	}
	xys := make(plotter.XYs, len(fs.xs))
	for i := range fs.xs {
		xys[i] = plotter.XY{X: fs.xs[i], Y: fs.ys[i]}
	}
	switch s.Kind {
	case chart.Line:
		line, pts, err := plotter.NewLinePoints(xys)
		if err != nil {
			return err
		}
		line.Color = plotColor
		pts.Color = plotColor
		p.Add(line, pts)
	case chart.Scatter:
		sc, err := plotter.NewScatter(xys)
		if err != nil {
			return err
		}
		sc.Color = plotColor
		p.Add(sc)
	case chart.Area:
		line, err := plotter.NewLine(xys)
		if err != nil {
			return err
		}
		line.Color = plotColor
		line.FillColor = color.RGBA{R: 0x63, G: 0x6e, B: 0xfa, A: 0x60}
		p.Add(line)
	}
	switch {
	case fs.categorical:
		p.NominalX(fs.xnames...)
	case s.XKind == dataset.KindDatetime:
		p.X.Tick.Marker = plot.TimeTicks{Format: tickLayout(s.TimeLayout)}
	}
	if fs.ycategorical {
		p.NominalY(fs.ynames...)
	}
	return nil
}

func (r *PNG) addBars(p *plot.Plot, s chart.Figure) error {
	labels, heights, ynames := bars(s)
	if len(heights) == 0 {
		return nil
	}
	width := float64(r.opt.Width-100) / float64(len(heights)) * 0.8
	if width < 1 {
		width = 1
	}
	bc, err := plotter.NewBarChart(plotter.Values(heights), vg.Points(width))
	if err != nil {
		return err
	}
	bc.Color = plotColor
	bc.LineStyle.Width = 0
	p.Add(bc)
	p.NominalX(labels...)
	if len(ynames) > 0 {
		p.Y.Tick.Marker = nominalTicks(ynames, 1)
	}
	return nil
}

func addHistogram(p *plot.Plot, s chart.Figure) error {
	if len(s.Bins) == 0 {
		return nil
	}
	h := &plotter.Histogram{
		Bins:      make([]plotter.HistogramBin, len(s.Bins)),
		Width:     s.Bins[0].Hi - s.Bins[0].Lo,
		FillColor: plotColor,
		LineStyle: plotter.DefaultLineStyle,
	}
	for i, b := range s.Bins {
		h.Bins[i] = plotter.HistogramBin{Min: b.Lo, Max: b.Hi, Weight: float64(b.Count)}
	}
	if h.Width == 0 {
		// single-value column: give the lone bar some width
		h.Bins[0].Min -= 0.5
		h.Bins[0].Max += 0.5
		h.Width = 1
	}
	p.Add(h)
	if s.XKind == dataset.KindDatetime {
		p.X.Tick.Marker = plot.TimeTicks{Format: tickLayout(s.TimeLayout)}
	}
	return nil
}

// tickLayout drops the clock from time ticks for date-only columns.
func tickLayout(layout string) string {
	if layout != "" && !strings.Contains(layout, "15") {
		return layout
	}
	return "2006-01-02\n15:04"
}

// nominalTicks labels positions base, base+1, ... with names.
func nominalTicks(names []string, base float64) plot.ConstantTicks {
	ticks := make(plot.ConstantTicks, len(names))
	for i, n := range names {
		ticks[i] = plot.Tick{Value: base + float64(i), Label: n}
	}
	return ticks
}
