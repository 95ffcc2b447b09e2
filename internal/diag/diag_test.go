package diag

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestDailyWriter_RotatesByDay(t *testing.T) {
	dir := t.TempDir()
	w := NewDailyWriter(dir, "info")
	defer w.Close()

	day1 := time.Date(2024, 3, 1, 23, 59, 0, 0, time.Local)
	w.now = func() time.Time { return day1 }
	if _, err := w.Write([]byte("first\n")); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	day2 := day1.Add(2 * time.Minute)
	w.now = func() time.Time { return day2 }
	if _, err := w.Write([]byte("second\n")); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	first, err := os.ReadFile(filepath.Join(dir, "2024-03-01", "info.txt"))
	if err != nil {
		t.Fatalf("Expected first day file: %v", err)
	}
	if string(first) != "first\n" {
		t.Errorf("Expected 'first', got %q", first)
	}

	second, err := os.ReadFile(filepath.Join(dir, "2024-03-02", "info.txt"))
	if err != nil {
		t.Fatalf("Expected second day file: %v", err)
	}
	if string(second) != "second\n" {
		t.Errorf("Expected 'second', got %q", second)
	}
}

func TestNew_WritesLevelFiles(t *testing.T) {
	dir := t.TempDir()
	log, err := New(Config{Dir: dir})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	log.Info("hello", zap.String("speaker", "Alice"))
	log.Error("boom")
	_ = log.Sync()

	day := time.Now().Format("2006-01-02")
	info, err := os.ReadFile(filepath.Join(dir, day, "info.txt"))
	if err != nil {
		t.Fatalf("Expected info file: %v", err)
	}
	if !strings.Contains(string(info), `"speaker":"Alice"`) {
		t.Errorf("Expected structured field in info file, got %q", info)
	}
	if strings.Contains(string(info), "boom") {
		t.Error("Expected error entry to stay out of the info file")
	}

	errs, err := os.ReadFile(filepath.Join(dir, day, "error.txt"))
	if err != nil {
		t.Fatalf("Expected error file: %v", err)
	}
	if !strings.Contains(string(errs), "boom") {
		t.Errorf("Expected error entry, got %q", errs)
	}

	if _, err := os.Stat(filepath.Join(dir, day, "debug.txt")); !os.IsNotExist(err) {
		t.Error("Expected no debug file without debug mode")
	}
}
