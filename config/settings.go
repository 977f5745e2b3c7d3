package config

import (
	"errors"
	"log"
	"strconv"

	"packcam/database"
)

// Settings keys stored in the database config table
const (
	KeyLifecycleEnabled = "lifecycle_enabled"
	KeyArchiveAfterDays = "archive_after_days"
	KeyStorageBasePath  = "storage_base_path"
)

// Defaults applied when a key is missing or unparsable
const (
	DefaultLifecycleEnabled = true
	DefaultArchiveAfterDays = 14
)

// ErrStorageBasePathNotSet is returned when no storage base path is
// configured anywhere. File key resolution is impossible without one.
var ErrStorageBasePathNotSet = errors.New("storage base path is not configured")

// SettingsService reads operator-tunable settings from the database
// config table, falling back to an explicit default per key when the
// value is missing or corrupt.
type SettingsService struct {
	db              database.Database
	fallbackStorage string // From environment config, used when the key is unset
}

// NewSettingsService creates a settings service backed by the database
func NewSettingsService(db database.Database, fallbackStoragePath string) *SettingsService {
	return &SettingsService{
		db:              db,
		fallbackStorage: fallbackStoragePath,
	}
}

// LifecycleEnabled reports whether the archival scheduler should run
func (s *SettingsService) LifecycleEnabled() bool {
	return s.getBool(KeyLifecycleEnabled, DefaultLifecycleEnabled)
}

// ArchiveAfterDays returns the retention window in days
func (s *SettingsService) ArchiveAfterDays() int {
	days := s.getInt(KeyArchiveAfterDays, DefaultArchiveAfterDays)
	if days < 1 {
		log.Printf("settings : archive_after_days %d out of range, using default %d", days, DefaultArchiveAfterDays)
		return DefaultArchiveAfterDays
	}
	return days
}

// StorageBasePath returns the base path relative file keys are resolved
// against. The database setting wins over the environment fallback.
func (s *SettingsService) StorageBasePath() (string, error) {
	if value, err := s.db.GetConfig(KeyStorageBasePath); err == nil && value != "" {
		return value, nil
	}
	if s.fallbackStorage != "" {
		return s.fallbackStorage, nil
	}
	return "", ErrStorageBasePathNotSet
}

// SetLifecycleEnabled persists the scheduler enabled flag
func (s *SettingsService) SetLifecycleEnabled(enabled bool) error {
	return s.db.SetConfig(KeyLifecycleEnabled, strconv.FormatBool(enabled))
}

// SetArchiveAfterDays persists the retention window
func (s *SettingsService) SetArchiveAfterDays(days int) error {
	return s.db.SetConfig(KeyArchiveAfterDays, strconv.Itoa(days))
}

func (s *SettingsService) getBool(key string, fallback bool) bool {
	value, err := s.db.GetConfig(key)
	if err != nil {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("settings : invalid boolean for %s (%q), using default %v", key, value, fallback)
		return fallback
	}
	return parsed
}

func (s *SettingsService) getInt(key string, fallback int) int {
	value, err := s.db.GetConfig(key)
	if err != nil {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("settings : invalid integer for %s (%q), using default %d", key, value, fallback)
		return fallback
	}
	return parsed
}
