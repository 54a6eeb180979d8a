package logging

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"houses_scraper/models"
)

func TestRotatingWriter_Rotates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scraper.log")
	w, err := NewRotatingWriter(path, 16)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer w.Close()

	if _, err := w.Write([]byte("0123456789abcdefXYZ")); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if _, err := os.Stat(path + ".1"); err != nil {
		t.Fatalf("expected a backup file after rotation: %v", err)
	}

	if _, err := w.Write([]byte("after")); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(data) != "after" {
		t.Fatalf("expected fresh file to contain only new data, got %q", data)
	}
}

func TestToLoggerAndTee(t *testing.T) {
	var buf bytes.Buffer
	var calls int
	counter := func(level models.LogLevel, source, message string) { calls++ }

	fn := Tee(ToLogger(log.New(&buf, "", 0)), counter, nil)
	fn.Logf(models.LogLevelWarn, "driver", "page %d empty", 2)

	if got := strings.TrimSpace(buf.String()); got != "[warn] driver: page 2 empty" {
		t.Fatalf("unexpected log line %q", got)
	}
	if calls != 1 {
		t.Fatalf("expected tee to reach every sink, got %d calls", calls)
	}
}

func TestMinLevel(t *testing.T) {
	var got []models.LogLevel
	fn := MinLevel(models.LogLevelInfo, func(level models.LogLevel, source, message string) {
		got = append(got, level)
	})

	fn(models.LogLevelDebug, "x", "dropped")
	fn(models.LogLevelInfo, "x", "kept")
	fn(models.LogLevelError, "x", "kept")

	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %v", got)
	}
}

func TestNilLogFuncIsSafe(t *testing.T) {
	var fn LogFunc
	fn.Logf(models.LogLevelInfo, "x", "nothing happens")
}
