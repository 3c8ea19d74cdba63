package dataset

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// Report is a markdown-friendly description of a prepared dataset.
type Report struct {
	Name       string
	Rows       int
	Cols       []ColumnSummary
	Samples    [][]string
	AverageRPM float64
	// Efficiency rows whose denominator was zero.
	EfficiencyNaN int
	EfficiencyInf int
}

// ColumnSummary captures kind and statistics per column.
type ColumnSummary struct {
	Name    string
	Kind    ColumnKind
	NonNull int
	Missing int
	// Numeric stats over finite values
	Min  float64
	Max  float64
	Mean float64
	// Datetime range
	First time.Time
	Last  time.Time
	// Text top values
	TopValues []CategoryCount
	Unique    int
}

type CategoryCount struct {
	Value string
	Count int
}

// Summarize builds a Report for ds with up to sampleRows example rows.
func Summarize(ds *Dataset, sampleRows int) *Report {
	if sampleRows < 0 {
		sampleRows = 0
	}
	rep := &Report{Name: ds.Name, Rows: ds.Rows, AverageRPM: ds.AverageRPM}
	for _, c := range ds.Columns() {
		rep.Cols = append(rep.Cols, summarizeColumn(c))
	}
	for _, x := range ds.Numbers(FieldEfficiency) {
		switch {
		case math.IsNaN(x):
			rep.EfficiencyNaN++
		case math.IsInf(x, 0):
			rep.EfficiencyInf++
		}
	}
	n := min(sampleRows, ds.Rows)
	for i := 0; i < n; i++ {
		row := make([]string, 0, len(ds.Columns()))
		for _, c := range ds.Columns() {
			row = append(row, c.Format(i))
		}
		rep.Samples = append(rep.Samples, row)
	}
	return rep
}

func summarizeColumn(c *Column) ColumnSummary {
	s := ColumnSummary{Name: c.Name, Kind: c.Kind}
	s.Missing = c.Missing()
	s.NonNull = len(c.Values) - s.Missing
	switch c.Kind {
	case KindNumeric:
		s.Min, s.Max = math.Inf(1), math.Inf(-1)
		var sum float64
		n := 0
		for _, v := range c.Values {
			if v.Kind != ValueNumber || math.IsNaN(v.Num) || math.IsInf(v.Num, 0) {
				continue
			}
			s.Min = math.Min(s.Min, v.Num)
			s.Max = math.Max(s.Max, v.Num)
			sum += v.Num
			n++
		}
		if n == 0 {
			s.Min, s.Max, s.Mean = math.NaN(), math.NaN(), math.NaN()
		} else {
			s.Mean = sum / float64(n)
		}
	case KindDatetime:
		for _, v := range c.Values {
			if v.Kind != ValueTime {
				continue
			}
			if s.First.IsZero() || v.Time.Before(s.First) {
				s.First = v.Time
			}
			if s.Last.IsZero() || v.Time.After(s.Last) {
				s.Last = v.Time
			}
		}
	case KindText:
		cats := map[string]int{}
		for _, v := range c.Values {
			if v.Kind == ValueText {
				cats[v.Text]++
			}
		}
		tops := make([]CategoryCount, 0, len(cats))
		for k, v := range cats {
			tops = append(tops, CategoryCount{Value: k, Count: v})
		}
		sort.Slice(tops, func(i, j int) bool {
			if tops[i].Count == tops[j].Count {
				return tops[i].Value < tops[j].Value
			}
			return tops[i].Count > tops[j].Count
		})
		if len(tops) > 5 {
			tops = tops[:5]
		}
		s.TopValues = tops
		s.Unique = len(cats)
	}
	return s
}

// Markdown renders a compact report for the terminal or a file.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if r.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", r.Name))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", r.Rows))
	b.WriteString(fmt.Sprintf("Columns: %d\n\n", len(r.Cols)))

	b.WriteString("[SCHEMA]\n")
	for _, c := range r.Cols {
		total := c.NonNull + c.Missing
		missPct := 0.0
		if total > 0 {
			missPct = float64(c.Missing) * 100.0 / float64(total)
		}
		b.WriteString(fmt.Sprintf("- %s: %s (non-null %d, missing %.1f%%)", safeName(c.Name), c.Kind, c.NonNull, missPct))
		switch c.Kind {
		case KindNumeric:
			b.WriteString(fmt.Sprintf(" — min %.4g, max %.4g, mean %.4g", c.Min, c.Max, c.Mean))
		case KindDatetime:
			if !c.First.IsZero() {
				b.WriteString(fmt.Sprintf(" — from %s to %s", c.First.Format(layoutDateTime), c.Last.Format(layoutDateTime)))
			}
		case KindText:
			if len(c.TopValues) > 0 {
				b.WriteString(" — top: ")
				for i, kv := range c.TopValues {
					if i > 0 {
						b.WriteString(", ")
					}
					b.WriteString(fmt.Sprintf("%s(%d)", safeVal(kv.Value), kv.Count))
				}
				if c.Unique > len(c.TopValues) {
					b.WriteString(fmt.Sprintf("; unique=%d", c.Unique))
				}
			}
		}
		b.WriteString("\n")
	}

	b.WriteString("\n[DERIVED METRICS]\n")
	b.WriteString(fmt.Sprintf("- Average RPM: %s\n", FormatScalar(r.AverageRPM)))
	b.WriteString("- Efficiency = Total_rotations / (Total_rotations + Off_time)")
	if r.EfficiencyNaN > 0 || r.EfficiencyInf > 0 {
		b.WriteString(fmt.Sprintf(" — undefined rows: %d NaN, %d inf", r.EfficiencyNaN, r.EfficiencyInf))
	}
	b.WriteString("\n")

	if len(r.Samples) > 0 {
		b.WriteString("\n[HEAD AND SAMPLE ROWS]\n")
		b.WriteString("| ")
		for i, c := range r.Cols {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(safeName(c.Name))
		}
		b.WriteString(" |\n| ")
		for i := range r.Cols {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString("---")
		}
		b.WriteString(" |\n")
		for _, row := range r.Samples {
			b.WriteString("| ")
			for i := range r.Cols {
				if i > 0 {
					b.WriteString(" | ")
				}
				val := ""
				if i < len(row) {
					val = row[i]
				}
				if len(val) > 80 {
					val = val[:77] + "..."
				}
				b.WriteString(safeVal(val))
			}
			b.WriteString(" |\n")
		}
	}
	return b.String()
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}
func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
