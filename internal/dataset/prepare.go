package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

// Options controls how uploaded bytes are read.
type Options struct {
	// Name is the uploaded file name; used for reports and delimiter sniffing.
	Name string
	// Delimiter for CSV. If 0, '\t' for .tsv names and ',' otherwise.
	Delimiter rune
	// DecimalSeparator for numeric cells. If 0, '.'.
	DecimalSeparator rune
}

// DefaultOptions returns reasonable defaults for dashboard uploads.
func DefaultOptions() Options {
	return Options{DecimalSeparator: '.'}
}

var errNoHeader = errors.New("no columns to parse from file")

// naTokens are cell spellings read as missing.
var naTokens = map[string]struct{}{
	"": {}, "NA": {}, "N/A": {}, "n/a": {}, "NaN": {}, "nan": {}, "-NaN": {}, "-nan": {},
	"null": {}, "NULL": {}, "None": {}, "#N/A": {}, "#NA": {}, "<NA>": {},
}

func isNA(s string) bool {
	_, ok := naTokens[s]
	return ok
}

// Prepare parses CSV bytes, coerces the time column, appends the Efficiency
// column and computes the average RPM. raw is not modified.
func Prepare(raw []byte, opt Options) (*Dataset, error) {
	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(opt.Name)
	}
	// Spreadsheet exports often lead with a UTF-8 byte order mark.
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
	r := csv.NewReader(bytes.NewReader(raw))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.Comma = delim

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &ParseError{Err: errNoHeader}
		}
		return nil, &ParseError{Err: err}
	}
	names := headerNames(header)
	ncol := len(names)

	cells := make([][]string, ncol)
	rows := 0
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, &ParseError{Err: fmt.Errorf("read row %d: %w", rows+1, err)}
		}
		if len(rec) > ncol {
			line, _ := r.FieldPos(0)
			return nil, &ParseError{Line: line, Err: fmt.Errorf("expected %d fields, saw %d", ncol, len(rec))}
		}
		for j := 0; j < ncol; j++ {
			v := ""
			if j < len(rec) {
				v = strings.TrimSpace(rec[j])
			}
			cells[j] = append(cells[j], v)
		}
		rows++
	}

	present := make(map[string]struct{}, ncol)
	for _, n := range names {
		present[n] = struct{}{}
	}
	for _, f := range RequiredFields {
		if _, ok := present[string(f)]; !ok {
			return nil, &MissingColumnError{Column: string(f)}
		}
	}

	ds := newDataset(opt.Name, rows)
	for j, name := range names {
		if name == string(FieldTime) {
			col, err := coerceTimeColumn(name, cells[j], opt)
			if err != nil {
				return nil, err
			}
			ds.put(col)
			continue
		}
		ds.put(inferColumn(name, cells[j], opt))
	}

	ds.put(efficiencyColumn(ds))
	ds.AverageRPM = mean(ds.Numbers(FieldRPM))
	return ds, nil
}

// Efficiency returns Total_rotations / (Total_rotations + Off_time) for one row.
// A zero denominator yields NaN or ±Inf.
func Efficiency(totalRotations, offTime float64) float64 {
	return totalRotations / (totalRotations + offTime)
}

func efficiencyColumn(ds *Dataset) *Column {
	tr := ds.Numbers(FieldTotalRotations)
	off := ds.Numbers(FieldOffTime)
	vals := make([]Value, ds.Rows)
	for i := range vals {
		vals[i] = Number(Efficiency(tr[i], off[i]))
	}
	return &Column{Name: string(FieldEfficiency), Kind: KindNumeric, Values: vals}
}

// mean skips NaN cells; no values gives NaN.
func mean(xs []float64) float64 {
	var sum float64
	n := 0
	for _, x := range xs {
		if math.IsNaN(x) {
			continue
		}
		sum += x
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// headerNames trims names, fills blanks and disambiguates duplicates with ".N".
func headerNames(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if n, ok := seen[name]; ok {
			seen[name] = n + 1
			name = fmt.Sprintf("%s.%d", name, n+1)
		} else {
			seen[name] = 0
		}
		out[i] = name
	}
	return out
}

func inferColumn(name string, raw []string, opt Options) *Column {
	vals := make([]Value, len(raw))
	numeric := true
	for i, s := range raw {
		if isNA(s) {
			vals[i] = Missing()
			continue
		}
		x, ok := parseNumeric(s, opt)
		if !ok {
			numeric = false
			break
		}
		vals[i] = Number(x)
	}
	if numeric {
		return &Column{Name: name, Kind: KindNumeric, Values: vals}
	}
	for i, s := range raw {
		if isNA(s) {
			vals[i] = Missing()
			continue
		}
		vals[i] = Text(s)
	}
	return &Column{Name: name, Kind: KindText, Values: vals}
}

func coerceTimeColumn(name string, raw []string, opt Options) (*Column, error) {
	vals := make([]Value, len(raw))
	// A column of bare numbers is read as nanoseconds since the epoch.
	epoch := true
	seen := false
	for _, s := range raw {
		if isNA(s) {
			continue
		}
		seen = true
		if _, ok := parseNumeric(s, opt); !ok {
			epoch = false
			break
		}
	}
	dateOnly := true
	for i, s := range raw {
		if isNA(s) {
			vals[i] = Missing()
			continue
		}
		var t time.Time
		if epoch && seen {
			x, _ := parseNumeric(s, opt)
			t = time.Unix(0, int64(x)).UTC()
		} else {
			var err error
			t, err = parseTime(s)
			if err != nil {
				return nil, &TypeCoercionError{Column: name, Row: i + 1, Value: s, Err: err}
			}
		}
		if t.Hour() != 0 || t.Minute() != 0 || t.Second() != 0 || t.Nanosecond() != 0 {
			dateOnly = false
		}
		vals[i] = Timestamp(t)
	}
	layout := layoutDateTime
	if dateOnly {
		layout = layoutDate
	}
	return &Column{Name: name, Kind: KindDatetime, Values: vals, layout: layout}, nil
}

func sniffDelimiter(name string) rune {
	if strings.HasSuffix(strings.ToLower(name), ".tsv") {
		return '\t'
	}
	return ','
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05Z07:00",
	"2006/01/02",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"01/02/2006",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"1/2/2006",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"02-Jan-2006",
	"2 Jan 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"20060102",
}

func parseTime(s string) (time.Time, error) {
	for _, l := range timeLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("no known layout matches %q", s)
}

func parseNumeric(s string, opt Options) (float64, bool) {
	raw := strings.TrimSpace(s)
	if dec := opt.DecimalSeparator; dec != 0 && dec != '.' {
		if strings.Contains(raw, ".") {
			return 0, false
		}
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		// strconv reports out-of-range values as ±Inf with ErrRange; keep them.
		if ne, ok := err.(*strconv.NumError); ok && errors.Is(ne.Err, strconv.ErrRange) {
			return f, true
		}
		return 0, false
	}
	return f, true
}
