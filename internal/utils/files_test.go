package utils

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSafeWriteFile_CreatesParents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "nested", "chart.svg")
	if err := SafeWriteFile(path, []byte("<svg/>")); err != nil {
		t.Fatalf("SafeWriteFile: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil || string(b) != "<svg/>" {
		t.Fatalf("read back %q %v", b, err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind")
	}
}

func TestPrettyJSON(t *testing.T) {
	b, err := PrettyJSON(map[string]int{"rows": 2})
	if err != nil {
		t.Fatalf("PrettyJSON: %v", err)
	}
	if !strings.Contains(string(b), "\n  \"rows\": 2") {
		t.Fatalf("not indented: %s", b)
	}
	if _, err := PrettyJSON(math.NaN()); err == nil {
		t.Fatalf("expected error for bare NaN")
	}
}
