package config

import (
	"log"
	"os"
	"strconv"
)

// Config contains all configuration for the application
type Config struct {
	// Storage Configuration
	StoragePath string // Base path for relative file keys

	// Server Configuration
	ServerPort string
	BaseURL    string // Base URL for accessing recordings

	// Database Configuration
	DatabasePath string

	// Transcoding Configuration
	FFmpegPath  string // Path to the ffmpeg binary
	TargetCRF   int    // Constant rate factor for archival encodes
	TargetFPS   int    // Normalized output frame rate
	AudioBitrate string

	// Lifecycle Scheduler Configuration
	ScanInterval  string // robfig/cron spec, e.g. "@every 1h"
	StartupDelay  int    // Seconds before the first scan after boot

	// Offsite Backup Configuration (S3-compatible, optional)
	BackupEnabled   bool
	BackupAccessKey string
	BackupSecretKey string
	BackupBucket    string
	BackupEndpoint  string
	BackupRegion    string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() Config {
	cfg := Config{
		StoragePath:  getEnv("STORAGE_PATH", "./videos"),
		ServerPort:   getEnv("SERVER_PORT", "3000"),
		BaseURL:      getEnv("BASE_URL", "http://localhost:3000"),
		DatabasePath: getEnv("DATABASE_PATH", "./data/recordings.db"),

		FFmpegPath:   getEnv("FFMPEG_PATH", "ffmpeg"),
		TargetCRF:    getEnvInt("TARGET_CRF", 30),
		TargetFPS:    getEnvInt("TARGET_FPS", 30),
		AudioBitrate: getEnv("AUDIO_BITRATE", "96k"),

		ScanInterval: getEnv("SCAN_INTERVAL", "@every 1h"),
		StartupDelay: getEnvInt("STARTUP_DELAY_SECONDS", 30),

		BackupEnabled:   getEnvBool("BACKUP_ENABLED", false),
		BackupAccessKey: getEnv("BACKUP_ACCESS_KEY", ""),
		BackupSecretKey: getEnv("BACKUP_SECRET_KEY", ""),
		BackupBucket:    getEnv("BACKUP_BUCKET", ""),
		BackupEndpoint:  getEnv("BACKUP_ENDPOINT", ""),
		BackupRegion:    getEnv("BACKUP_REGION", "auto"),
	}

	log.Printf("Storage Path: %s", cfg.StoragePath)
	log.Printf("Server running on port %s with base URL %s", cfg.ServerPort, cfg.BaseURL)
	log.Printf("Offsite Backup Enabled: %v", cfg.BackupEnabled)

	return cfg
}

// getEnv retrieves an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt retrieves an integer environment variable with a fallback value
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
		log.Printf("Warning: invalid integer for %s, using default %d", key, fallback)
	}
	return fallback
}

// getEnvBool retrieves a boolean environment variable with a fallback value
func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
		log.Printf("Warning: invalid boolean for %s, using default %v", key, fallback)
	}
	return fallback
}
