package storage

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"golang.org/x/sync/semaphore"
)

// Number of attempts for the UploadFile retry loop
const maxUploadAttempts = 3

// Max concurrent uploads when backing up a batch
const maxBackupConcurrency = 2

// BackupConfig holds configuration for the offsite S3-compatible backup
type BackupConfig struct {
	AccessKey string
	SecretKey string
	Bucket    string
	Endpoint  string
	Region    string
}

// BackupStorage uploads archived recordings to an S3-compatible bucket.
// Backup is best-effort and never on the archival critical path.
type BackupStorage struct {
	config   BackupConfig
	uploader *s3manager.Uploader
	sem      *semaphore.Weighted
}

// NewBackupStorage creates a new BackupStorage instance
func NewBackupStorage(config BackupConfig) (*BackupStorage, error) {
	if config.Region == "" {
		config.Region = "auto"
	}

	sess, err := session.NewSession(&aws.Config{
		Credentials:      credentials.NewStaticCredentials(config.AccessKey, config.SecretKey, ""),
		Endpoint:         aws.String(config.Endpoint),
		Region:           aws.String(config.Region),
		S3ForcePathStyle: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %v", err)
	}

	// Single connection per upload to keep warehouse uplink headroom
	uploader := s3manager.NewUploader(sess, func(u *s3manager.Uploader) {
		u.PartSize = 10 * 1024 * 1024
		u.Concurrency = 1
	})

	return &BackupStorage{
		config:   config,
		uploader: uploader,
		sem:      semaphore.NewWeighted(maxBackupConcurrency),
	}, nil
}

// UploadFile uploads a local file under the given remote key, retrying on
// transient failures
func (b *BackupStorage) UploadFile(localPath, remoteKey string) error {
	remoteKey = filepath.ToSlash(remoteKey)

	var lastErr error
	for attempt := 1; attempt <= maxUploadAttempts; attempt++ {
		file, err := os.Open(localPath)
		if err != nil {
			return fmt.Errorf("failed to open file for backup: %v", err)
		}

		_, err = b.uploader.Upload(&s3manager.UploadInput{
			Bucket: aws.String(b.config.Bucket),
			Key:    aws.String(remoteKey),
			Body:   file,
		})
		file.Close()

		if err == nil {
			log.Printf("[Backup] Uploaded %s as %s", localPath, remoteKey)
			return nil
		}

		lastErr = err
		log.Printf("[Backup] Upload attempt %d/%d for %s failed: %v", attempt, maxUploadAttempts, remoteKey, err)
		time.Sleep(time.Duration(attempt) * 2 * time.Second)
	}

	return fmt.Errorf("failed to upload %s after %d attempts: %v", remoteKey, maxUploadAttempts, lastErr)
}

// UploadFileAsync uploads in the background with bounded concurrency.
// Failures are logged only.
func (b *BackupStorage) UploadFileAsync(localPath, remoteKey string) {
	go func() {
		if err := b.sem.Acquire(context.Background(), 1); err != nil {
			log.Printf("[Backup] Error acquiring upload slot for %s: %v", remoteKey, err)
			return
		}
		defer b.sem.Release(1)

		if err := b.UploadFile(localPath, remoteKey); err != nil {
			log.Printf("[Backup] %v", err)
		}
	}()
}
