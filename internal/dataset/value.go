package dataset

import (
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// ValueKind tags the variant held by a Value.
type ValueKind uint8

const (
	ValueMissing ValueKind = iota
	ValueNumber
	ValueTime
	ValueText
)

// Value is a single typed cell.
type Value struct {
	Kind ValueKind
	Num  float64
	Time time.Time
	Text string
}

func Missing() Value              { return Value{Kind: ValueMissing} }
func Number(f float64) Value      { return Value{Kind: ValueNumber, Num: f} }
func Timestamp(t time.Time) Value { return Value{Kind: ValueTime, Time: t} }
func Text(s string) Value         { return Value{Kind: ValueText, Text: s} }

// IsMissing reports whether the cell counts as missing for row filtering.
// A numeric NaN is missing; infinities are not.
func (v Value) IsMissing() bool {
	switch v.Kind {
	case ValueMissing:
		return true
	case ValueNumber:
		return math.IsNaN(v.Num)
	}
	return false
}

// Float returns the numeric form of the cell. Timestamps map to unix seconds.
func (v Value) Float() (float64, bool) {
	switch v.Kind {
	case ValueNumber:
		return v.Num, true
	case ValueTime:
		return float64(v.Time.UnixNano()) / 1e9, true
	}
	return math.NaN(), false
}

// String renders the cell for tables and labels.
func (v Value) String() string {
	switch v.Kind {
	case ValueNumber:
		return FormatNumber(v.Num)
	case ValueTime:
		return v.Time.Format(layoutDateTime)
	case ValueText:
		return v.Text
	}
	return "NaN"
}

// MarshalJSON encodes missing cells as null and non-finite numbers as strings.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case ValueNumber:
		return marshalFloat(v.Num)
	case ValueTime:
		return json.Marshal(v.Time)
	case ValueText:
		return json.Marshal(v.Text)
	}
	return []byte("null"), nil
}

// Float is a float64 that survives JSON encoding when NaN or infinite.
type Float float64

func (f Float) MarshalJSON() ([]byte, error) { return marshalFloat(float64(f)) }

func marshalFloat(f float64) ([]byte, error) {
	switch {
	case math.IsNaN(f):
		return []byte(`"NaN"`), nil
	case math.IsInf(f, 1):
		return []byte(`"+Inf"`), nil
	case math.IsInf(f, -1):
		return []byte(`"-Inf"`), nil
	}
	return json.Marshal(f)
}

// FormatNumber renders a float for table cells and chart labels.
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// FormatScalar renders a float the way the dashboard prints scalars:
// integral values keep one decimal ("150.0"), non-finite values are lowercase.
func FormatScalar(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case f == math.Trunc(f) && math.Abs(f) < 1e16:
		return strconv.FormatFloat(f, 'f', 1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
