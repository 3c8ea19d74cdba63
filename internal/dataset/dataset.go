package dataset

import (
	"math"
	"time"
)

// Field names a column the dashboard depends on.
type Field string

const (
	FieldTime           Field = "time"
	FieldTotalRotations Field = "Total_rotations"
	FieldOffTime        Field = "Off_time"
	FieldRPM            Field = "RPM"
	FieldDeviceID       Field = "Device_id"
	FieldEfficiency     Field = "Efficiency"
)

// RequiredFields lists the input columns Prepare validates, in check order.
var RequiredFields = []Field{FieldTime, FieldTotalRotations, FieldOffTime, FieldRPM, FieldDeviceID}

// ColumnKind is the inferred type of a column.
type ColumnKind string

const (
	KindNumeric  ColumnKind = "numeric"
	KindDatetime ColumnKind = "datetime"
	KindText     ColumnKind = "text"
)

const (
	layoutDate     = "2006-01-02"
	layoutDateTime = "2006-01-02 15:04:05"
)

// Column is one named, typed column.
type Column struct {
	Name   string
	Kind   ColumnKind
	Values []Value

	// display layout for datetime columns
	layout string
}

// Format renders row i using the column's display conventions.
func (c *Column) Format(i int) string {
	if i < 0 || i >= len(c.Values) {
		return ""
	}
	return Label(c.Values[i], c.layout)
}

// Layout is the display layout of a datetime column, empty otherwise.
func (c *Column) Layout() string { return c.layout }

// Label renders v with the given datetime layout; other kinds use v.String().
func Label(v Value, layout string) string {
	if v.Kind == ValueTime && layout != "" {
		return v.Time.Format(layout)
	}
	return v.String()
}

// Missing counts cells that are missing in the row-filtering sense.
func (c *Column) Missing() int {
	n := 0
	for _, v := range c.Values {
		if v.IsMissing() {
			n++
		}
	}
	return n
}

// Dataset is the prepared, augmented table produced by Prepare.
type Dataset struct {
	Name       string
	Rows       int
	AverageRPM float64

	cols  []*Column
	index map[string]int
}

func newDataset(name string, rows int) *Dataset {
	return &Dataset{Name: name, Rows: rows, index: make(map[string]int)}
}

func (d *Dataset) put(c *Column) {
	if i, ok := d.index[c.Name]; ok {
		d.cols[i] = c
		return
	}
	d.index[c.Name] = len(d.cols)
	d.cols = append(d.cols, c)
}

// ColumnNames returns every column name in table order, derived ones included.
func (d *Dataset) ColumnNames() []string {
	out := make([]string, len(d.cols))
	for i, c := range d.cols {
		out[i] = c.Name
	}
	return out
}

// Columns returns the columns in table order.
func (d *Dataset) Columns() []*Column { return d.cols }

// Column looks up a column by exact name.
func (d *Dataset) Column(name string) (*Column, bool) {
	i, ok := d.index[name]
	if !ok {
		return nil, false
	}
	return d.cols[i], true
}

// Lookup is Column with an InvalidFieldError for unknown names.
func (d *Dataset) Lookup(name string) (*Column, error) {
	c, ok := d.Column(name)
	if !ok {
		return nil, &InvalidFieldError{Field: name}
	}
	return c, nil
}

// Has reports whether the dataset carries the given field.
func (d *Dataset) Has(f Field) bool {
	_, ok := d.index[string(f)]
	return ok
}

// Numbers returns the field as float64 per row. Missing cells, and every cell
// of a non-numeric column, come back as NaN.
func (d *Dataset) Numbers(f Field) []float64 {
	out := make([]float64, d.Rows)
	c, ok := d.Column(string(f))
	for i := range out {
		out[i] = math.NaN()
		if ok && c.Kind == KindNumeric && c.Values[i].Kind == ValueNumber {
			out[i] = c.Values[i].Num
		}
	}
	return out
}

// Times returns the coerced time column; missing cells are the zero time.
func (d *Dataset) Times() []time.Time {
	out := make([]time.Time, d.Rows)
	if c, ok := d.Column(string(FieldTime)); ok {
		for i, v := range c.Values {
			out[i] = v.Time
		}
	}
	return out
}

// Labels returns the field rendered as strings, one per row.
func (d *Dataset) Labels(f Field) []string {
	out := make([]string, d.Rows)
	if c, ok := d.Column(string(f)); ok {
		for i := range out {
			out[i] = c.Format(i)
		}
	}
	return out
}
