package chart

import (
	"fmt"
	"strings"
)

// Kind is the chart type a user can pick.
type Kind int

const (
	Line Kind = iota
	Scatter
	Bar
	Area
	Histogram
)

var kindNames = [...]string{"line", "scatter", "bar", "area", "histogram"}

// Labels as shown in the chart-kind dropdown.
var kindLabels = [...]string{"Line Plot", "Scatter Plot", "Bar Plot", "Area Plot", "Histogram"}

// Kinds returns every kind in dropdown order.
func Kinds() []Kind { return []Kind{Line, Scatter, Bar, Area, Histogram} }

func (k Kind) Valid() bool { return k >= Line && k <= Histogram }

func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// Label is the human-facing name.
func (k Kind) Label() string {
	if !k.Valid() {
		return k.String()
	}
	return kindLabels[k]
}

// Filters reports whether rows missing x or y are dropped before charting.
func (k Kind) Filters() bool { return k != Histogram }

// ParseKind accepts a kind name ("bar") or its label ("Bar Plot"), case-insensitively.
func ParseKind(s string) (Kind, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	for _, k := range Kinds() {
		if v == kindNames[k] || v == strings.ToLower(kindLabels[k]) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown chart kind %q (use line|scatter|bar|area|histogram)", s)
}

func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid chart kind %d", int(k))
	}
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	v, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}
