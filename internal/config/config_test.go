package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	chdir(t, t.TempDir())
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Addr != ":8501" || c.MaxUploadMB != 32 || c.SampleRows != 5 || c.ChartWidth != 960 || c.ChartHeight != 480 {
		t.Fatalf("unexpected defaults: %+v", c)
	}
	if c.SessionTTL().Minutes() != 60 || c.MaxSessions != 256 {
		t.Fatalf("unexpected session defaults: %+v", c)
	}
	if c.LogLevel != "info" || c.LogFormat != "text" || c.GinMode != "release" {
		t.Fatalf("unexpected log defaults: %+v", c)
	}
}

func TestSaveLoad_RoundTripAndEnvOverride(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	chdir(t, t.TempDir())
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	c.Addr = "127.0.0.1:9000"
	c.SampleRows = 3
	if err := Save(c, ""); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(home, ".chartloom", "config.yaml")); err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	got, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Addr != "127.0.0.1:9000" || got.SampleRows != 3 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	t.Setenv("CHARTLOOM_ADDR", ":7000")
	got, err = Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Addr != ":7000" {
		t.Fatalf("env did not override file: %q", got.Addr)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	chdir(t, dir)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("CHARTLOOM_CHART_WIDTH=1200\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("CHARTLOOM_CHART_WIDTH") })
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.ChartWidth != 1200 {
		t.Fatalf("chart_width=%d, want 1200 from .env", c.ChartWidth)
	}
}

func TestLoad_ExplicitFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	chdir(t, t.TempDir())
	path := filepath.Join(t.TempDir(), "custom.yaml")
	if err := os.WriteFile(path, []byte("max_sessions: 4\nlog_format: json\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.MaxSessions != 4 || c.LogFormat != "json" || c.Addr != ":8501" {
		t.Fatalf("unexpected config: %+v", c)
	}
}

func TestInitLogger(t *testing.T) {
	prev, prevLogger := slog.Default(), Logger
	t.Cleanup(func() {
		slog.SetDefault(prev)
		Logger = prevLogger
	})

	var buf bytes.Buffer
	l := initLogger(&buf, "warn", "json", false)
	if Logger != l || slog.Default() != l {
		t.Fatalf("initLogger should install the returned logger")
	}
	l.Info("hidden")
	l.Warn("shown", "k", 1)
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, `"msg":"shown"`) {
		t.Fatalf("unexpected log output: %s", out)
	}

	buf.Reset()
	l = initLogger(&buf, "error", "text", true)
	l.Debug("dbg")
	if !strings.Contains(buf.String(), "msg=dbg") {
		t.Fatalf("debug flag should enable debug level: %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{"debug": slog.LevelDebug, "WARNING": slog.LevelWarn, "error": slog.LevelError, "": slog.LevelInfo, "bogus": slog.LevelInfo}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q)=%v, want %v", in, got, want)
		}
	}
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
