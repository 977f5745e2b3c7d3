package transcode

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"packcam/config"
	"packcam/database"
	"packcam/storage"
)

func newEngineFixture(t *testing.T, ffmpegPath string) (*Engine, *database.SQLiteDB, string) {
	t.Helper()

	db, err := database.NewSQLiteDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	base := t.TempDir()
	paths := storage.NewPathResolver(func() (string, error) { return base, nil })
	cfg := config.Config{FFmpegPath: ffmpegPath}
	engine := NewEngine(db, paths, NewJobTracker(), cfg, nil)
	return engine, db, base
}

// writeFakeFFmpeg installs a shell script that emits transcoder-shaped
// diagnostics and writes its last argument, standing in for ffmpeg
func writeFakeFFmpeg(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake ffmpeg script requires a unix shell")
	}

	path := filepath.Join(t.TempDir(), "fake-ffmpeg")
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatalf("Failed to write fake ffmpeg: %v", err)
	}
	return path
}

const succeedingFFmpeg = `#!/bin/sh
echo "  Duration: 00:00:10.00, start: 0.000000, bitrate: 1052 kb/s" 1>&2
echo "frame=  150 fps=0.0 q=28.0 size=256KiB time=00:00:05.00 bitrate= 419.4kbits/s" 1>&2
for last; do :; done
printf 'compressed' > "$last"
`

const failingFFmpeg = `#!/bin/sh
echo "input.webm: Invalid data found when processing input" 1>&2
exit 1
`

func TestCompressReplacesOriginal(t *testing.T) {
	ffmpeg := writeFakeFFmpeg(t, succeedingFFmpeg)
	engine, db, base := newEngineFixture(t, ffmpeg)

	fileKey := filepath.Join("2026", "02", "15", "ABC123.webm")
	inputPath := filepath.Join(base, fileKey)
	if err := os.MkdirAll(filepath.Dir(inputPath), 0755); err != nil {
		t.Fatalf("Failed to create input dir: %v", err)
	}
	original := []byte("original-recording-bytes-that-are-longer")
	if err := os.WriteFile(inputPath, original, 0644); err != nil {
		t.Fatalf("Failed to write input file: %v", err)
	}

	now := time.Now()
	finished := now
	err := db.CreateRecording(database.Recording{
		ID:             "rec-1",
		TrackingNumber: "ABC123",
		FileKey:        fileKey,
		FileSize:       int64(len(original)),
		Status:         database.StatusSaved,
		LifecycleStage: database.StageActive,
		StartedAt:      now,
		FinishedAt:     &finished,
		CreatedAt:      now,
	})
	if err != nil {
		t.Fatalf("Failed to create recording: %v", err)
	}

	result, err := engine.Compress("rec-1", fileKey)
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}

	wantKey := filepath.Join("2026", "02", "15", "ABC123.mp4")
	if result.NewFileKey != wantKey {
		t.Errorf("Expected new key %s, got %s", wantKey, result.NewFileKey)
	}
	if result.OriginalFileSize != int64(len(original)) {
		t.Errorf("Expected original size %d, got %d", len(original), result.OriginalFileSize)
	}
	if result.NewFileSize != int64(len("compressed")) {
		t.Errorf("Expected new size %d, got %d", len("compressed"), result.NewFileSize)
	}

	// Original gone, replacement in place, no temp output left behind
	if _, err := os.Stat(inputPath); !os.IsNotExist(err) {
		t.Errorf("Expected original to be deleted, stat err: %v", err)
	}
	outputPath := filepath.Join(base, wantKey)
	if _, err := os.Stat(outputPath); err != nil {
		t.Errorf("Expected compressed output at %s: %v", outputPath, err)
	}
	entries, _ := filepath.Glob(filepath.Join(base, "2026", "02", "15", "*.tmp.mp4"))
	if len(entries) != 0 {
		t.Errorf("Expected no temp outputs, found %v", entries)
	}

	// One logical metadata update
	rec, err := db.GetRecording("rec-1")
	if err != nil || rec == nil {
		t.Fatalf("Failed to get recording: %v", err)
	}
	if rec.LifecycleStage != database.StageArchived {
		t.Errorf("Expected stage archived, got %s", rec.LifecycleStage)
	}
	if rec.FileKey != wantKey {
		t.Errorf("Expected file key %s, got %s", wantKey, rec.FileKey)
	}
	if rec.OriginalFileSize != int64(len(original)) || rec.FileSize != int64(len("compressed")) {
		t.Errorf("Unexpected sizes on record: %+v", rec)
	}
	if rec.ArchivedAt == nil {
		t.Error("Expected ArchivedAt to be set")
	}
	if !strings.HasPrefix(rec.Thumbnail, "data:image/jpeg;base64,") {
		t.Errorf("Expected inline thumbnail, got %q", rec.Thumbnail)
	}

	// Job record removed on completion
	if _, inFlight := engine.Jobs().Get("rec-1"); inFlight {
		t.Error("Expected job entry to be removed after success")
	}
}

func TestCompressFailureLeavesOriginal(t *testing.T) {
	ffmpeg := writeFakeFFmpeg(t, failingFFmpeg)
	engine, db, base := newEngineFixture(t, ffmpeg)

	fileKey := "broken.webm"
	inputPath := filepath.Join(base, fileKey)
	if err := os.WriteFile(inputPath, []byte("bytes"), 0644); err != nil {
		t.Fatalf("Failed to write input file: %v", err)
	}

	now := time.Now()
	finished := now
	err := db.CreateRecording(database.Recording{
		ID:             "rec-1",
		TrackingNumber: "BRK1",
		FileKey:        fileKey,
		Status:         database.StatusSaved,
		LifecycleStage: database.StageActive,
		StartedAt:      now,
		FinishedAt:     &finished,
		CreatedAt:      now,
	})
	if err != nil {
		t.Fatalf("Failed to create recording: %v", err)
	}

	_, err = engine.Compress("rec-1", fileKey)
	if err == nil {
		t.Fatal("Expected compression to fail")
	}

	var terr *TranscodeError
	if !errors.As(err, &terr) {
		t.Fatalf("Expected TranscodeError, got %T: %v", err, err)
	}
	// The diagnostic tail rides along for triage
	if !strings.Contains(terr.Detail, "Invalid data found") {
		t.Errorf("Expected stderr tail in error detail, got %q", terr.Detail)
	}

	// Source file and record untouched, retryable on the next scan
	if _, err := os.Stat(inputPath); err != nil {
		t.Errorf("Expected original to survive a failed attempt: %v", err)
	}
	rec, _ := db.GetRecording("rec-1")
	if rec.LifecycleStage != database.StageActive {
		t.Errorf("Expected stage to stay active, got %s", rec.LifecycleStage)
	}
	if rec.FileKey != fileKey {
		t.Errorf("Expected file key unchanged, got %s", rec.FileKey)
	}

	// No partial temp output, no lingering job entry
	if _, err := os.Stat(filepath.Join(base, "broken.tmp.mp4")); !os.IsNotExist(err) {
		t.Errorf("Expected partial output to be removed, stat err: %v", err)
	}
	if _, inFlight := engine.Jobs().Get("rec-1"); inFlight {
		t.Error("Expected job entry to be removed after failure")
	}
}

func TestCompressMissingSource(t *testing.T) {
	engine, _, _ := newEngineFixture(t, "ffmpeg")

	_, err := engine.Compress("rec-1", "no/such/file.webm")
	if err == nil {
		t.Fatal("Expected error for missing source file")
	}
	var terr *TranscodeError
	if !errors.As(err, &terr) {
		t.Fatalf("Expected TranscodeError, got %T", err)
	}
	if _, inFlight := engine.Jobs().Get("rec-1"); inFlight {
		t.Error("Expected no job entry to remain")
	}
}
