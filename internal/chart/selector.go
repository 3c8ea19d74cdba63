package chart

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/KaramelBytes/chartloom/internal/dataset"
)

const (
	EfficiencyTitle   = "Device-wise Efficiency"
	EfficiencySummary = "The device-wise efficiency visualization highlights variations in efficiency across devices."
	AverageRPMNote    = "The average RPM gives an idea of the overall rotational speed."
)

// Request is one axis and kind selection. X and Y must name dataset columns.
type Request struct {
	X    string `json:"x"`
	Y    string `json:"y"`
	Kind Kind   `json:"kind"`
}

// Point is one (x, y) pair taken from a dataset row.
type Point struct {
	X dataset.Value `json:"x"`
	Y dataset.Value `json:"y"`
}

// Bin is one histogram bucket. Numeric bins cover [Lo, Hi); the last one is closed.
type Bin struct {
	Lo    float64 `json:"lo"`
	Hi    float64 `json:"hi"`
	Label string  `json:"label"`
	Count int     `json:"count"`
}

// Figure is a renderer-independent chart description.
type Figure struct {
	Kind       Kind   `json:"kind"`
	Title      string `json:"title"`
	XLabel     string `json:"x_label"`
	YLabel     string `json:"y_label"`
	ShowLegend bool   `json:"show_legend"`
	// Line draws markers at every point; Area fills under the curve.
	Markers bool `json:"markers"`
	Fill    bool `json:"fill"`
	// XKind is the column kind of the x axis (y for histograms).
	XKind dataset.ColumnKind `json:"x_kind"`
	YKind dataset.ColumnKind `json:"y_kind,omitempty"`
	// TimeLayout formats datetime labels the way the table shows them.
	TimeLayout string `json:"time_layout,omitempty"`

	Points []Point `json:"points,omitempty"`
	// Frames is the draw-in animation for line charts: frame i holds Points[:i+1].
	Frames FrameList `json:"frames,omitempty"`

	// Histogram input (y values, unfiltered) and buckets.
	Values      []dataset.Value `json:"values,omitempty"`
	Bins        []Bin           `json:"bins,omitempty"`
	Categorical bool            `json:"categorical,omitempty"`
}

// Result is everything the dashboard shows for one Request.
type Result struct {
	Request Request `json:"request"`
	// Rows is the number of dataset rows fed to the chart.
	Rows    int    `json:"rows"`
	Caption string `json:"caption"`
	Chart   Figure `json:"chart"`
	Summary string `json:"summary"`

	Efficiency        Figure `json:"efficiency"`
	EfficiencySummary string `json:"efficiency_summary"`
}

// Render builds the chart for req over ds. It has no side effects and never
// fails on empty data: a selection that filters out every row yields an empty chart.
func Render(ds *dataset.Dataset, req Request) (*Result, error) {
	if ds == nil {
		return nil, fmt.Errorf("render: no dataset")
	}
	if !req.Kind.Valid() {
		return nil, fmt.Errorf("render: invalid chart kind %d", int(req.Kind))
	}
	xc, err := ds.Lookup(req.X)
	if err != nil {
		return nil, err
	}
	yc, err := ds.Lookup(req.Y)
	if err != nil {
		return nil, err
	}

	rows := selectRows(ds.Rows, xc, yc, req.Kind)
	res := &Result{
		Request:           req,
		Rows:              len(rows),
		Caption:           fmt.Sprintf("Visualizing %s vs %s", req.Y, req.X),
		Summary:           Summary(req.Kind, req.X, req.Y),
		EfficiencySummary: EfficiencySummary,
	}

	switch req.Kind {
	case Histogram:
		res.Chart = histogram(yc, rows)
	default:
		res.Chart = xy(req.Kind, xc, yc, rows)
	}
	res.Efficiency = efficiency(ds, rows)
	return res, nil
}

// Summary returns the fixed conclusion sentence for a kind.
func Summary(k Kind, x, y string) string {
	switch k {
	case Line, Scatter:
		return fmt.Sprintf("The %s tends to vary with %s.", y, x)
	case Bar:
		return fmt.Sprintf("The %s shows different values for different %s.", y, x)
	case Area:
		return fmt.Sprintf("The area under the curve represents the cumulative %s with respect to %s.", y, x)
	case Histogram:
		return fmt.Sprintf("The histogram shows the distribution of %s values.", y)
	}
	return ""
}

// AverageRPMSentence renders the average RPM line of the dashboard.
func AverageRPMSentence(avg float64) string {
	return "The average RPM is: " + dataset.FormatScalar(avg)
}

func selectRows(n int, xc, yc *dataset.Column, k Kind) []int {
	rows := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if k.Filters() && (xc.Values[i].IsMissing() || yc.Values[i].IsMissing()) {
			continue
		}
		rows = append(rows, i)
	}
	return rows
}

func xy(k Kind, xc, yc *dataset.Column, rows []int) Figure {
	s := Figure{
		Kind:    k,
		Title:   fmt.Sprintf("%s vs %s", yc.Name, xc.Name),
		XLabel:  xc.Name,
		YLabel:  yc.Name,
		XKind:   xc.Kind,
		YKind:   yc.Kind,
		Markers: k == Line || k == Scatter,
		Fill:    k == Area,
		Points:  make([]Point, len(rows)),
	}
	s.TimeLayout = xc.Layout()
	for i, r := range rows {
		s.Points[i] = Point{X: xc.Values[r], Y: yc.Values[r]}
	}
	if k == Line {
		s.Frames = Frames(s.Points)
	}
	return s
}

// FrameList is a sequence of growing prefixes of one point slice.
type FrameList [][]Point

// MarshalJSON encodes each frame as its point count; frame i is Points[:n].
func (f FrameList) MarshalJSON() ([]byte, error) {
	lens := make([]int, len(f))
	for i, fr := range f {
		lens[i] = len(fr)
	}
	return json.Marshal(lens)
}

// Frames returns the progressive reveal of pts: frame i holds the first i+1 points.
func Frames(pts []Point) FrameList {
	frames := make(FrameList, len(pts))
	for i := range pts {
		frames[i] = pts[: i+1 : i+1]
	}
	return frames
}

func histogram(yc *dataset.Column, rows []int) Figure {
	s := Figure{
		Kind:   Histogram,
		Title:  fmt.Sprintf("%s Histogram", yc.Name),
		XLabel: yc.Name,
		YLabel: "count",
		XKind:  yc.Kind,
		Values: make([]dataset.Value, len(rows)),
	}
	for i, r := range rows {
		s.Values[i] = yc.Values[r]
	}
	if yc.Kind == dataset.KindText {
		s.Categorical = true
		s.Bins = categoryBins(s.Values)
		return s
	}
	label := dataset.FormatNumber
	if yc.Kind == dataset.KindDatetime {
		layout := yc.Layout()
		s.TimeLayout = layout
		label = func(f float64) string {
			sec, frac := math.Modf(f)
			return time.Unix(int64(sec), int64(frac*1e9)).UTC().Format(layout)
		}
	}
	s.Bins = numericBins(s.Values, label)
	return s
}

// numericBins buckets the finite values using Sturges' rule.
func numericBins(vals []dataset.Value, label func(float64) string) []Bin {
	xs := make([]float64, 0, len(vals))
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range vals {
		x, ok := v.Float()
		if !ok || math.IsNaN(x) || math.IsInf(x, 0) {
			continue
		}
		xs = append(xs, x)
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	if len(xs) == 0 {
		return nil
	}
	if lo == hi {
		return []Bin{{Lo: lo, Hi: hi, Label: label(lo), Count: len(xs)}}
	}
	k := int(math.Ceil(math.Log2(float64(len(xs))))) + 1
	width := (hi - lo) / float64(k)
	bins := make([]Bin, k)
	for i := range bins {
		bins[i].Lo = lo + float64(i)*width
		bins[i].Hi = lo + float64(i+1)*width
		if i == k-1 {
			bins[i].Hi = hi
		}
		bins[i].Label = label(bins[i].Lo) + " - " + label(bins[i].Hi)
	}
	for _, x := range xs {
		i := int((x - lo) / width)
		if i >= k {
			i = k - 1
		}
		bins[i].Count++
	}
	return bins
}

// categoryBins counts text values in first-seen order.
func categoryBins(vals []dataset.Value) []Bin {
	var bins []Bin
	idx := map[string]int{}
	for _, v := range vals {
		if v.IsMissing() {
			continue
		}
		key := v.String()
		i, ok := idx[key]
		if !ok {
			i = len(bins)
			idx[key] = i
			bins = append(bins, Bin{Lo: float64(i), Hi: float64(i + 1), Label: key})
		}
		bins[i].Count++
	}
	return bins
}

// efficiency is the always-present Efficiency-by-Device_id bar chart over the
// same rows the primary chart received.
func efficiency(ds *dataset.Dataset, rows []int) Figure {
	dev, _ := ds.Column(string(dataset.FieldDeviceID))
	eff, _ := ds.Column(string(dataset.FieldEfficiency))
	s := Figure{
		Kind:   Bar,
		Title:  EfficiencyTitle,
		XLabel: string(dataset.FieldDeviceID),
		YLabel: string(dataset.FieldEfficiency),
		YKind:  dataset.KindNumeric,
		Points: make([]Point, 0, len(rows)),
	}
	if dev == nil || eff == nil {
		return s
	}
	s.XKind = dev.Kind
	for _, r := range rows {
		s.Points = append(s.Points, Point{X: dev.Values[r], Y: eff.Values[r]})
	}
	return s
}
