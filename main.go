package main

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"packcam/api"
	"packcam/config"
	"packcam/cron"
	"packcam/database"
	"packcam/ingest"
	"packcam/monitoring"
	"packcam/storage"
	"packcam/transcode"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if present
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.LoadConfig()

	// Make sure the database directory exists
	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0755); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}

	db, err := database.NewSQLiteDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	settings := config.NewSettingsService(db, cfg.StoragePath)
	paths := storage.NewPathResolver(settings.StorageBasePath)
	writer := ingest.NewChunkWriter(paths)

	// Optional offsite backup of archived recordings
	var backup *storage.BackupStorage
	if cfg.BackupEnabled {
		backup, err = storage.NewBackupStorage(storage.BackupConfig{
			AccessKey: cfg.BackupAccessKey,
			SecretKey: cfg.BackupSecretKey,
			Bucket:    cfg.BackupBucket,
			Endpoint:  cfg.BackupEndpoint,
			Region:    cfg.BackupRegion,
		})
		if err != nil {
			log.Printf("Warning: offsite backup disabled: %v", err)
			backup = nil
		}
	}

	engine := transcode.NewEngine(db, paths, transcode.NewJobTracker(), cfg, backup)

	archiveCron := cron.NewArchiveCron(db, settings, engine)
	if err := archiveCron.Start(time.Duration(cfg.StartupDelay)*time.Second, cfg.ScanInterval); err != nil {
		log.Fatalf("Failed to start archive cron: %v", err)
	}
	defer archiveCron.Stop()

	monitoring.StartMonitoring(5*time.Minute, settings.StorageBasePath)

	server := api.NewServer(cfg, db, settings, writer, engine, paths, archiveCron)
	server.Start()
}
