package storage

import (
	"path/filepath"
	"testing"
	"time"
)

func TestResolveFileKey(t *testing.T) {
	resolver := NewPathResolver(func() (string, error) { return "/srv/videos", nil })

	path, err := resolver.Resolve("2026/02/15/ABC123.webm")
	if err != nil {
		t.Fatalf("Failed to resolve relative key: %v", err)
	}
	if path != filepath.Join("/srv/videos", "2026/02/15/ABC123.webm") {
		t.Errorf("Unexpected resolved path: %s", path)
	}

	// Absolute keys pass through unchanged
	path, err = resolver.Resolve("/mnt/legacy/old.webm")
	if err != nil {
		t.Fatalf("Failed to resolve absolute key: %v", err)
	}
	if path != "/mnt/legacy/old.webm" {
		t.Errorf("Expected absolute key verbatim, got: %s", path)
	}
}

func TestResolveBasePathError(t *testing.T) {
	wantErr := filepath.ErrBadPattern // any sentinel will do
	resolver := NewPathResolver(func() (string, error) { return "", wantErr })

	if _, err := resolver.Resolve("relative.webm"); err != wantErr {
		t.Errorf("Expected base path error to propagate, got: %v", err)
	}

	// Absolute keys never consult the base path
	if _, err := resolver.Resolve("/abs/key.webm"); err != nil {
		t.Errorf("Expected absolute key to resolve without base path, got: %v", err)
	}
}

func TestNewFileKey(t *testing.T) {
	now := time.Date(2026, 2, 15, 10, 30, 0, 0, time.UTC)
	key := NewFileKey("ABC123", "1a2b3c4d-ffff-eeee-dddd-000000000000", now)

	expected := filepath.Join("2026/02/15", "ABC123-1a2b3c4d.webm")
	if key != expected {
		t.Errorf("Expected key %s, got %s", expected, key)
	}

	// Path separators in tracking numbers must not escape the shard dir
	key = NewFileKey("../..//evil", "abcdef12", now)
	if filepath.Dir(key) != filepath.Join("2026", "02", "15") {
		t.Errorf("Sanitization failed, got key: %s", key)
	}
}

func TestReplaceExt(t *testing.T) {
	cases := []struct {
		in, ext, want string
	}{
		{"2026/02/15/ABC123.webm", ".mp4", "2026/02/15/ABC123.mp4"},
		{"/abs/path/clip.webm", ".mp4", "/abs/path/clip.mp4"},
		{"noext", ".mp4", "noext.mp4"},
	}

	for _, tc := range cases {
		if got := ReplaceExt(tc.in, tc.ext); got != tc.want {
			t.Errorf("ReplaceExt(%q, %q) = %q, want %q", tc.in, tc.ext, got, tc.want)
		}
	}
}

func TestThumbnailKeyFor(t *testing.T) {
	if got := ThumbnailKeyFor("2026/02/15/ABC123.webm"); got != "2026/02/15/ABC123.jpg" {
		t.Errorf("Unexpected thumbnail key: %s", got)
	}
}
