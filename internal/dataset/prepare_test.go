package dataset

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
)

const twoDevices = "time,Total_rotations,Off_time,RPM,Device_id\n" +
	"2024-01-01,10,0,100,A\n" +
	"2024-01-02,0,0,200,B\n"

func mustPrepare(t *testing.T, csv string) *Dataset {
	t.Helper()
	ds, err := Prepare([]byte(csv), DefaultOptions())
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	return ds
}

func TestPrepare_TwoDevices(t *testing.T) {
	ds := mustPrepare(t, twoDevices)
	if ds.Rows != 2 {
		t.Fatalf("rows=%d, want 2", ds.Rows)
	}
	eff := ds.Numbers(FieldEfficiency)
	if eff[0] != 1.0 {
		t.Fatalf("efficiency[0]=%v, want 1", eff[0])
	}
	if !math.IsNaN(eff[1]) {
		t.Fatalf("efficiency[1]=%v, want NaN", eff[1])
	}
	if ds.AverageRPM != 150.0 {
		t.Fatalf("average rpm=%v, want 150", ds.AverageRPM)
	}
	want := []string{"time", "Total_rotations", "Off_time", "RPM", "Device_id", "Efficiency"}
	got := ds.ColumnNames()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("columns=%v, want %v", got, want)
	}
	tc, _ := ds.Column("time")
	if tc.Kind != KindDatetime {
		t.Fatalf("time kind=%s", tc.Kind)
	}
	if tc.Format(0) != "2024-01-01" {
		t.Fatalf("time display=%q", tc.Format(0))
	}
	dc, _ := ds.Column("Device_id")
	if dc.Kind != KindText {
		t.Fatalf("Device_id kind=%s", dc.Kind)
	}
}

func TestPrepare_EfficiencyMatchesFormula(t *testing.T) {
	csv := "time,Total_rotations,Off_time,RPM,Device_id\n" +
		"2024-01-01 10:00:00,30,10,1,A\n" +
		"2024-01-01 11:00:00,5,-5,1,A\n" +
		"2024-01-01 12:00:00,-3,3,1,B\n" +
		"2024-01-01 13:00:00,7.5,2.5,1,B\n"
	ds := mustPrepare(t, csv)
	tr := ds.Numbers(FieldTotalRotations)
	off := ds.Numbers(FieldOffTime)
	eff := ds.Numbers(FieldEfficiency)
	for i := range eff {
		want := tr[i] / (tr[i] + off[i])
		if math.IsNaN(want) != math.IsNaN(eff[i]) || (!math.IsNaN(want) && want != eff[i]) {
			t.Fatalf("row %d: efficiency=%v, want %v", i, eff[i], want)
		}
	}
	if !math.IsInf(eff[1], 1) {
		t.Fatalf("row 1: expected +Inf, got %v", eff[1])
	}
	if !math.IsInf(eff[2], -1) {
		t.Fatalf("row 2: expected -Inf, got %v", eff[2])
	}
}

func TestPrepare_AverageRPMEmptyIsNaN(t *testing.T) {
	ds := mustPrepare(t, "time,Total_rotations,Off_time,RPM,Device_id\n")
	if ds.Rows != 0 {
		t.Fatalf("rows=%d", ds.Rows)
	}
	if !math.IsNaN(ds.AverageRPM) {
		t.Fatalf("average rpm=%v, want NaN", ds.AverageRPM)
	}
}

func TestPrepare_AverageRPMSkipsMissingAndNonNumericIsNaN(t *testing.T) {
	ds := mustPrepare(t, "time,Total_rotations,Off_time,RPM,Device_id\n"+
		"2024-01-01,1,1,100,A\n"+
		"2024-01-02,1,1,,A\n"+
		"2024-01-03,1,1,300,A\n")
	if ds.AverageRPM != 200 {
		t.Fatalf("average rpm=%v, want 200", ds.AverageRPM)
	}
	ds = mustPrepare(t, "time,Total_rotations,Off_time,RPM,Device_id\n"+
		"2024-01-01,1,1,fast,A\n"+
		"2024-01-02,1,1,100,A\n")
	if !math.IsNaN(ds.AverageRPM) {
		t.Fatalf("average rpm=%v, want NaN for text column", ds.AverageRPM)
	}
}

func TestPrepare_MissingColumn(t *testing.T) {
	cases := []struct {
		name   string
		header string
		want   string
	}{
		{"time", "Total_rotations,Off_time,RPM,Device_id", "time"},
		{"rotations", "time,Off_time,RPM,Device_id", "Total_rotations"},
		{"off", "time,Total_rotations,RPM,Device_id", "Off_time"},
		{"rpm", "time,Total_rotations,Off_time,Device_id", "RPM"},
		{"device", "time,Total_rotations,Off_time,RPM", "Device_id"},
	}
	for _, c := range cases {
		_, err := Prepare([]byte(c.header+"\n"), DefaultOptions())
		var mc *MissingColumnError
		if !errors.As(err, &mc) {
			t.Fatalf("%s: expected MissingColumnError, got %v", c.name, err)
		}
		if mc.Column != c.want {
			t.Fatalf("%s: column=%q, want %q", c.name, mc.Column, c.want)
		}
	}
}

func TestPrepare_TypeCoercionError(t *testing.T) {
	csv := "time,Total_rotations,Off_time,RPM,Device_id\n" +
		"2024-01-01,1,1,1,A\n" +
		"yesterday,1,1,1,A\n"
	_, err := Prepare([]byte(csv), DefaultOptions())
	var te *TypeCoercionError
	if !errors.As(err, &te) {
		t.Fatalf("expected TypeCoercionError, got %v", err)
	}
	if te.Row != 2 || te.Value != "yesterday" {
		t.Fatalf("unexpected error detail: %+v", te)
	}
}

func TestPrepare_MissingTimeStaysMissing(t *testing.T) {
	ds := mustPrepare(t, "time,Total_rotations,Off_time,RPM,Device_id\n"+
		",1,1,1,A\n"+
		"2024-03-01T08:30:00Z,1,1,1,B\n")
	tc, _ := ds.Column("time")
	if !tc.Values[0].IsMissing() {
		t.Fatalf("expected missing time in row 0")
	}
	if tc.Format(1) != "2024-03-01 08:30:00" {
		t.Fatalf("time display=%q", tc.Format(1))
	}
}

func TestPrepare_ParseErrors(t *testing.T) {
	_, err := Prepare(nil, DefaultOptions())
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("empty input: expected ParseError, got %v", err)
	}
	tooWide := "time,Total_rotations,Off_time,RPM,Device_id\n2024-01-01,1,1,1,A,extra\n"
	_, err = Prepare([]byte(tooWide), DefaultOptions())
	if !errors.As(err, &pe) {
		t.Fatalf("wide row: expected ParseError, got %v", err)
	}
	if pe.Line != 2 {
		t.Fatalf("wide row: line=%d, want 2", pe.Line)
	}
	badQuote := "time,Total_rotations,Off_time,RPM,Device_id\n2024-01-01,1,1,1,\"A\n"
	_, err = Prepare([]byte(badQuote), DefaultOptions())
	if !errors.As(err, &pe) {
		t.Fatalf("bad quote: expected ParseError, got %v", err)
	}
}

func TestPrepare_ShortRowsArePadded(t *testing.T) {
	ds := mustPrepare(t, "time,Total_rotations,Off_time,RPM,Device_id,Temp\n"+
		"2024-01-01,1,1,1,A,20.5\n"+
		"2024-01-02,1,1,1,B\n")
	c, _ := ds.Column("Temp")
	if c.Kind != KindNumeric {
		t.Fatalf("Temp kind=%s", c.Kind)
	}
	if !c.Values[1].IsMissing() {
		t.Fatalf("expected padded cell to be missing")
	}
}

func TestPrepare_NATokensAndDuplicates(t *testing.T) {
	ds := mustPrepare(t, "time,Total_rotations,Off_time,RPM,Device_id,RPM\n"+
		"2024-01-01,N/A,1,100,A,1\n"+
		"2024-01-02,2,null,NA,B,2\n")
	if _, ok := ds.Column("RPM.1"); !ok {
		t.Fatalf("expected duplicate header renamed to RPM.1, got %v", ds.ColumnNames())
	}
	if ds.AverageRPM != 100 {
		t.Fatalf("average rpm=%v, want 100", ds.AverageRPM)
	}
	eff := ds.Numbers(FieldEfficiency)
	if !math.IsNaN(eff[0]) || !math.IsNaN(eff[1]) {
		t.Fatalf("expected NaN efficiency for missing inputs, got %v", eff)
	}
}

func TestPrepare_ExistingEfficiencyIsReplaced(t *testing.T) {
	ds := mustPrepare(t, "time,Efficiency,Total_rotations,Off_time,RPM,Device_id\n"+
		"2024-01-01,junk,3,1,1,A\n")
	names := ds.ColumnNames()
	if len(names) != 6 || names[1] != "Efficiency" {
		t.Fatalf("columns=%v", names)
	}
	if got := ds.Numbers(FieldEfficiency)[0]; got != 0.75 {
		t.Fatalf("efficiency=%v, want 0.75", got)
	}
}

func TestPrepare_TSVAndDecimalComma(t *testing.T) {
	opt := DefaultOptions()
	opt.Name = "readings.tsv"
	opt.DecimalSeparator = ','
	tsv := "time\tTotal_rotations\tOff_time\tRPM\tDevice_id\n" +
		"2024-01-01\t1,5\t0,5\t99,5\tA\n"
	ds, err := Prepare([]byte(tsv), opt)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if got := ds.Numbers(FieldEfficiency)[0]; got != 0.75 {
		t.Fatalf("efficiency=%v, want 0.75", got)
	}
	if ds.AverageRPM != 99.5 {
		t.Fatalf("average rpm=%v", ds.AverageRPM)
	}
}

func TestPrepare_DoesNotMutateInput(t *testing.T) {
	raw := []byte(twoDevices)
	before := string(raw)
	mustPrepare(t, string(raw))
	if _, err := Prepare(raw, DefaultOptions()); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if string(raw) != before {
		t.Fatalf("input bytes were modified")
	}
}

func TestDatasetJSON_NonFinite(t *testing.T) {
	ds := mustPrepare(t, twoDevices)
	b, err := json.Marshal(ds)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, `"average_rpm":150`) {
		t.Fatalf("missing average: %s", s)
	}
	if !strings.Contains(s, `"NaN"`) {
		t.Fatalf("expected NaN efficiency encoded as string: %s", s)
	}
}

func TestFormatScalar(t *testing.T) {
	cases := map[float64]string{
		150:          "150.0",
		0.25:         "0.25",
		math.NaN():   "nan",
		math.Inf(1):  "inf",
		math.Inf(-1): "-inf",
	}
	for in, want := range cases {
		if got := FormatScalar(in); got != want {
			t.Errorf("FormatScalar(%v)=%q, want %q", in, got, want)
		}
	}
}

func TestPrepare_StripsByteOrderMark(t *testing.T) {
	ds := mustPrepare(t, "\xef\xbb\xbf"+twoDevices)
	if ds.Rows != 2 {
		t.Fatalf("rows=%d, want 2", ds.Rows)
	}
	tc, ok := ds.Column("time")
	if !ok || tc.Kind != KindDatetime {
		t.Fatalf("time column not found after BOM: %v", ds.ColumnNames())
	}
}
