package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

const readingsCSV = "time,Total_rotations,Off_time,RPM,Device_id\n" +
	"2024-01-01 00:00:00,10,0,100,A\n" +
	"2024-01-01 01:00:00,0,0,200,B\n" +
	"2024-01-01 02:00:00,8,2,150,A\n"

// runCmd is a helper to execute the root command with args.
func runCmd(t *testing.T, args ...string) error {
	t.Helper()
	resetFlags()
	cfg = nil
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

// resetFlags restores every flag to its default; cobra keeps values and
// Changed state across Execute calls.
func resetFlags() {
	reset := func(fl *pflag.Flag) {
		_ = fl.Value.Set(fl.DefValue)
		fl.Changed = false
	}
	rootCmd.PersistentFlags().VisitAll(reset)
	for _, c := range rootCmd.Commands() {
		c.Flags().VisitAll(reset)
	}
}

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func writeReadings(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "readings.csv")
	if err := os.WriteFile(path, []byte(readingsCSV), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

func TestCLI_InspectMarkdownAndJSON(t *testing.T) {
	home := isolate(t)
	csvPath := writeReadings(t, home)

	out := filepath.Join(home, "out", "summary.md")
	if err := runCmd(t, "inspect", csvPath, "-o", out); err != nil {
		t.Fatalf("inspect: %v", err)
	}
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read summary: %v", err)
	}
	md := string(b)
	if !strings.Contains(md, "File: readings.csv") || !strings.Contains(md, "- Average RPM: 150.0") || !strings.Contains(md, "- Efficiency: numeric") {
		t.Fatalf("unexpected summary:\n%s", md)
	}

	jsonOut := filepath.Join(home, "dataset.json")
	if err := runCmd(t, "inspect", csvPath, "--json", "-o", jsonOut); err != nil {
		t.Fatalf("inspect --json: %v", err)
	}
	b, err = os.ReadFile(jsonOut)
	if err != nil {
		t.Fatalf("read json: %v", err)
	}
	var doc struct {
		Rows       int `json:"rows"`
		AverageRPM any `json:"average_rpm"`
		Data       [][]any
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if doc.Rows != 3 || doc.AverageRPM != 150.0 || len(doc.Data) != 3 {
		t.Fatalf("unexpected dataset json: %+v", doc)
	}
	if doc.Data[1][5] != "NaN" {
		t.Fatalf("efficiency of a stopped device should encode as NaN, got %v", doc.Data[1][5])
	}
}

func TestCLI_InspectRejectsMissingColumn(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "bad.csv")
	if err := os.WriteFile(path, []byte("time,RPM\n2024-01-01,1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	err := runCmd(t, "inspect", path)
	if err == nil || !strings.Contains(err.Error(), "Total_rotations") {
		t.Fatalf("expected missing column error, got %v", err)
	}
}

func TestCLI_PlotPNGAndSVG(t *testing.T) {
	home := isolate(t)
	csvPath := writeReadings(t, home)

	png := filepath.Join(home, "charts", "rpm.png")
	if err := runCmd(t, "plot", csvPath, "--x", "time", "--y", "RPM", "--kind", "line", "-o", png, "--efficiency"); err != nil {
		t.Fatalf("plot png: %v", err)
	}
	for _, p := range []string{png, filepath.Join(home, "charts", "rpm.efficiency.png")} {
		b, err := os.ReadFile(p)
		if err != nil {
			t.Fatalf("read %s: %v", p, err)
		}
		if !bytes.HasPrefix(b, []byte("\x89PNG")) {
			t.Fatalf("%s is not a png", p)
		}
	}

	svg := filepath.Join(home, "rpm.svg")
	if err := runCmd(t, "plot", csvPath, "--x", "Device_id", "--y", "RPM", "--kind", "Bar Plot", "-o", svg); err != nil {
		t.Fatalf("plot svg: %v", err)
	}
	b, err := os.ReadFile(svg)
	if err != nil || !strings.Contains(string(b), "<svg") {
		t.Fatalf("svg output: %v", err)
	}
}

func TestCLI_PlotErrors(t *testing.T) {
	home := isolate(t)
	csvPath := writeReadings(t, home)
	out := filepath.Join(home, "x.png")
	if err := runCmd(t, "plot", csvPath, "--x", "nope", "--y", "RPM", "-o", out); err == nil || !strings.Contains(err.Error(), "nope") {
		t.Fatalf("expected invalid field error, got %v", err)
	}
	if err := runCmd(t, "plot", csvPath, "--x", "time", "--y", "RPM", "--kind", "pie", "-o", out); err == nil {
		t.Fatalf("expected invalid kind error")
	}
	if err := runCmd(t, "plot", csvPath, "--x", "time", "--y", "RPM"); err == nil {
		t.Fatalf("expected missing output error")
	}
}

func TestCLI_ConfigSet(t *testing.T) {
	home := isolate(t)
	if err := runCmd(t, "config", "set", "addr", "127.0.0.1:9000"); err != nil {
		t.Fatalf("config set addr: %v", err)
	}
	if err := runCmd(t, "config", "set", "chart_width", "1280"); err != nil {
		t.Fatalf("config set chart_width: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(home, ".chartloom", "config.yaml"))
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, "127.0.0.1:9000") || !strings.Contains(s, "chart_width: 1280") {
		t.Fatalf("unexpected config file:\n%s", s)
	}
	if err := runCmd(t, "config", "set", "chart_width", "wide"); err == nil {
		t.Fatalf("expected invalid int error")
	}
	if err := runCmd(t, "config", "set", "log_format", "xml"); err == nil {
		t.Fatalf("expected invalid log_format error")
	}
	if err := runCmd(t, "config", "set", "bogus", "1"); err == nil {
		t.Fatalf("expected unknown key error")
	}
	if err := runCmd(t, "config", "show"); err != nil {
		t.Fatalf("config show: %v", err)
	}
}
