package config

import (
	"path/filepath"
	"testing"

	"packcam/database"
)

func newSettingsFixture(t *testing.T, fallbackStorage string) (*SettingsService, *database.SQLiteDB) {
	t.Helper()
	db, err := database.NewSQLiteDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSettingsService(db, fallbackStorage), db
}

func TestSettingsDefaults(t *testing.T) {
	settings, _ := newSettingsFixture(t, "/srv/videos")

	if !settings.LifecycleEnabled() {
		t.Error("Expected lifecycle enabled by default")
	}
	if days := settings.ArchiveAfterDays(); days != DefaultArchiveAfterDays {
		t.Errorf("Expected default %d days, got %d", DefaultArchiveAfterDays, days)
	}

	base, err := settings.StorageBasePath()
	if err != nil {
		t.Fatalf("Expected fallback storage path, got error: %v", err)
	}
	if base != "/srv/videos" {
		t.Errorf("Expected fallback path, got %s", base)
	}
}

func TestSettingsOverrides(t *testing.T) {
	settings, db := newSettingsFixture(t, "/srv/videos")

	if err := settings.SetLifecycleEnabled(false); err != nil {
		t.Fatalf("Failed to set lifecycle flag: %v", err)
	}
	if settings.LifecycleEnabled() {
		t.Error("Expected lifecycle disabled after override")
	}

	if err := settings.SetArchiveAfterDays(30); err != nil {
		t.Fatalf("Failed to set retention: %v", err)
	}
	if days := settings.ArchiveAfterDays(); days != 30 {
		t.Errorf("Expected 30 days, got %d", days)
	}

	// Database setting wins over the environment fallback
	if err := db.SetConfig(KeyStorageBasePath, "/mnt/bigdisk"); err != nil {
		t.Fatalf("Failed to set storage path: %v", err)
	}
	base, err := settings.StorageBasePath()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if base != "/mnt/bigdisk" {
		t.Errorf("Expected database path to win, got %s", base)
	}
}

func TestSettingsCorruptValues(t *testing.T) {
	settings, db := newSettingsFixture(t, "")

	// Corrupt values fall back to the per-key default
	db.SetConfig(KeyLifecycleEnabled, "not-a-bool")
	if !settings.LifecycleEnabled() {
		t.Error("Expected default true for corrupt boolean")
	}

	db.SetConfig(KeyArchiveAfterDays, "soon")
	if days := settings.ArchiveAfterDays(); days != DefaultArchiveAfterDays {
		t.Errorf("Expected default for corrupt integer, got %d", days)
	}

	db.SetConfig(KeyArchiveAfterDays, "-3")
	if days := settings.ArchiveAfterDays(); days != DefaultArchiveAfterDays {
		t.Errorf("Expected default for out-of-range retention, got %d", days)
	}

	// No database value and no fallback: path resolution is impossible
	if _, err := settings.StorageBasePath(); err != ErrStorageBasePathNotSet {
		t.Errorf("Expected ErrStorageBasePathNotSet, got %v", err)
	}
}
