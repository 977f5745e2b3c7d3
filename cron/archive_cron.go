package cron

import (
	"log"
	"time"

	"packcam/config"
	"packcam/database"
	"packcam/transcode"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/semaphore"
)

// Compressor archives one recording's video file. Satisfied by
// *transcode.Engine; a fake stands in for it in tests.
type Compressor interface {
	Compress(recordingID, fileKey string) (transcode.CompressResult, error)
}

// ScanSummary aggregates the outcome of one archival scan
type ScanSummary struct {
	Eligible   int   `json:"eligible"`
	Archived   int   `json:"archived"`
	Failed     int   `json:"failed"`
	BytesSaved int64 `json:"bytesSaved"`
}

// ArchiveCron periodically archives saved recordings older than the
// configured retention window. At most one scan runs at a time; an
// overlapping trigger logs and returns without queueing.
type ArchiveCron struct {
	db       database.Database
	settings *config.SettingsService
	engine   Compressor

	scanGuard *semaphore.Weighted
	schedule  *cron.Cron

	// Injectable for eligibility boundary tests
	now func() time.Time
}

// NewArchiveCron creates an archival scheduler
func NewArchiveCron(db database.Database, settings *config.SettingsService, engine Compressor) *ArchiveCron {
	return &ArchiveCron{
		db:        db,
		settings:  settings,
		engine:    engine,
		scanGuard: semaphore.NewWeighted(1),
		now:       time.Now,
	}
}

// Start schedules scans: one after the startup delay, then on the
// recurring interval. Interval uses robfig/cron syntax, e.g. "@every 1h".
func (ac *ArchiveCron) Start(startupDelay time.Duration, interval string) error {
	ac.schedule = cron.New()
	if _, err := ac.schedule.AddFunc(interval, func() { ac.RunScan() }); err != nil {
		return err
	}

	time.AfterFunc(startupDelay, func() { ac.RunScan() })
	ac.schedule.Start()

	log.Printf("archiveCron : started, first scan in %v then %s", startupDelay, interval)
	return nil
}

// Stop cancels future ticks. An in-progress scan is not interrupted.
func (ac *ArchiveCron) Stop() {
	if ac.schedule != nil {
		ac.schedule.Stop()
	}
	log.Println("archiveCron : stopped")
}

// RunScan performs one archival scan and returns its summary. Returns nil
// when another scan is already in flight or the lifecycle is disabled.
func (ac *ArchiveCron) RunScan() *ScanSummary {
	if !ac.scanGuard.TryAcquire(1) {
		log.Println("archiveCron : scan already in progress, skipping")
		return nil
	}
	defer ac.scanGuard.Release(1)

	if !ac.settings.LifecycleEnabled() {
		log.Println("archiveCron : lifecycle archival is disabled")
		return nil
	}

	days := ac.settings.ArchiveAfterDays()
	cutoff := ac.now().AddDate(0, 0, -days)
	log.Printf("archiveCron : scanning for recordings finished before %s (retention %d days)",
		cutoff.Format("2006-01-02 15:04:05"), days)

	recordings, err := ac.db.GetArchivableRecordings(cutoff)
	if err != nil {
		log.Printf("archiveCron : error querying archivable recordings: %v", err)
		return nil
	}

	summary := &ScanSummary{Eligible: len(recordings)}
	if len(recordings) == 0 {
		log.Println("archiveCron : nothing to archive")
		return summary
	}

	// Strictly sequential: the transcoder already saturates the CPU for
	// one file, parallel jobs would only add contention
	for _, rec := range recordings {
		result, err := ac.engine.Compress(rec.ID, rec.FileKey)
		if err != nil {
			summary.Failed++
			log.Printf("archiveCron : error archiving recording %s (%s): %v", rec.ID, rec.TrackingNumber, err)
			continue
		}

		summary.Archived++
		summary.BytesSaved += result.OriginalFileSize - result.NewFileSize
	}

	log.Printf("archiveCron : scan complete: %d eligible, %d archived, %d failed, %d bytes saved",
		summary.Eligible, summary.Archived, summary.Failed, summary.BytesSaved)
	return summary
}
