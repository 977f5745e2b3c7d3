package transcode

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"packcam/config"
	"packcam/database"
	"packcam/storage"
)

// Number of diagnostic lines kept for the error detail on failure
const maxStderrLines = 30

// CompressResult describes a completed archival compression
type CompressResult struct {
	NewFileKey       string
	NewFileSize      int64
	OriginalFileSize int64
}

// Engine re-encodes saved recordings into the compact archival format,
// atomically replacing the original file and updating the metadata record.
type Engine struct {
	db     database.Database
	paths  *storage.PathResolver
	jobs   *JobTracker
	cfg    config.Config
	backup *storage.BackupStorage // nil when offsite backup is disabled
}

// NewEngine creates a transcoding engine
func NewEngine(db database.Database, paths *storage.PathResolver, jobs *JobTracker, cfg config.Config, backup *storage.BackupStorage) *Engine {
	return &Engine{
		db:     db,
		paths:  paths,
		jobs:   jobs,
		cfg:    cfg,
		backup: backup,
	}
}

// Jobs exposes the progress tracker for pollers
func (e *Engine) Jobs() *JobTracker {
	return e.jobs
}

// Compress re-encodes the recording's video file, swaps the original for
// the compressed output and marks the record archived. On failure the
// original file and its record are left untouched so the attempt can be
// retried on the next scan.
func (e *Engine) Compress(recordingID, fileKey string) (CompressResult, error) {
	defer e.jobs.Remove(recordingID)

	inputPath, err := e.paths.Resolve(fileKey)
	if err != nil {
		return CompressResult{}, err
	}

	info, err := os.Stat(inputPath)
	if err != nil {
		return CompressResult{}, &TranscodeError{FileKey: fileKey, Err: fmt.Errorf("source file missing: %w", err)}
	}
	// Captured before the encode starts so a concurrent append would not
	// be counted
	originalSize := info.Size()

	newFileKey := storage.ReplaceExt(fileKey, ".mp4")
	outputPath, err := e.paths.Resolve(newFileKey)
	if err != nil {
		return CompressResult{}, err
	}
	// Same directory as the final output so the rename stays on one
	// filesystem
	tmpPath := strings.TrimSuffix(outputPath, ".mp4") + ".tmp.mp4"

	e.jobs.Set(recordingID, 0)

	if err := e.runTranscode(recordingID, inputPath, tmpPath); err != nil {
		if rmErr := os.Remove(tmpPath); rmErr != nil && !os.IsNotExist(rmErr) {
			log.Printf("transcode : error removing partial output %s: %v", tmpPath, rmErr)
		}
		return CompressResult{}, err
	}

	outInfo, err := os.Stat(tmpPath)
	if err != nil {
		return CompressResult{}, &TranscodeError{FileKey: fileKey, Err: fmt.Errorf("transcoder produced no output: %w", err)}
	}
	newSize := outInfo.Size()

	if err := os.Rename(tmpPath, outputPath); err != nil {
		os.Remove(tmpPath)
		return CompressResult{}, &TranscodeError{FileKey: fileKey, Err: fmt.Errorf("failed to move output into place: %w", err)}
	}

	// The original is only removed once the replacement is in place
	if outputPath != inputPath {
		if err := os.Remove(inputPath); err != nil && !os.IsNotExist(err) {
			log.Printf("transcode : error removing original file %s: %v", inputPath, err)
		}
	}

	// Older versions wrote thumbnails next to the video; sweep those up
	e.removeLegacyThumbnail(fileKey)

	// Thumbnail regeneration is a logged, non-propagating sub-step: the
	// archived frame differs from the original's, but a failure here must
	// not fail the compression
	var thumbnail *string
	if data, err := ExtractThumbnail(outputPath, e.cfg.FFmpegPath); err != nil {
		log.Printf("transcode : thumbnail regeneration for %s failed: %v", recordingID, err)
	} else {
		thumbnail = &data
	}

	now := time.Now()
	stage := database.StageArchived
	update := database.RecordingUpdate{
		FileKey:          &newFileKey,
		FileSize:         &newSize,
		OriginalFileSize: &originalSize,
		LifecycleStage:   &stage,
		ArchivedAt:       &now,
		Thumbnail:        thumbnail,
	}
	if err := e.db.UpdateRecording(recordingID, update); err != nil {
		return CompressResult{}, fmt.Errorf("failed to update archived recording %s: %v", recordingID, err)
	}

	e.jobs.Set(recordingID, 100)

	if e.backup != nil {
		e.backup.UploadFileAsync(outputPath, newFileKey)
	}

	log.Printf("transcode : archived %s: %s -> %s (%d -> %d bytes)",
		recordingID, fileKey, newFileKey, originalSize, newSize)

	return CompressResult{
		NewFileKey:       newFileKey,
		NewFileSize:      newSize,
		OriginalFileSize: originalSize,
	}, nil
}

// runTranscode launches ffmpeg and streams its diagnostic output into the
// progress tracker until the process exits
func (e *Engine) runTranscode(recordingID, inputPath, tmpPath string) error {
	crf := e.cfg.TargetCRF
	if crf <= 0 {
		crf = 30
	}
	fps := e.cfg.TargetFPS
	if fps <= 0 {
		fps = 30
	}
	audioBitrate := e.cfg.AudioBitrate
	if audioBitrate == "" {
		audioBitrate = "96k"
	}

	// Fixed archival target: reduced quality, normalized frame rate and
	// regenerated timestamps to correct variable-frame-rate capture
	cmd := exec.Command(e.ffmpegPath(),
		"-i", inputPath,
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", strconv.Itoa(crf),
		"-r", strconv.Itoa(fps),
		"-fflags", "+genpts",
		"-avoid_negative_ts", "make_zero",
		"-c:a", "aac",
		"-b:a", audioBitrate,
		"-movflags", "+faststart",
		"-y",
		tmpPath,
	)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return &TranscodeError{FileKey: inputPath, Err: fmt.Errorf("failed to open stderr pipe: %w", err)}
	}

	if err := cmd.Start(); err != nil {
		return &TranscodeError{FileKey: inputPath, Err: fmt.Errorf("failed to launch transcoder: %w", err)}
	}

	parser := &progressParser{}
	var tail []string

	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 64*1024), 64*1024)
	scanner.Split(scanLinesWithCR)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if percent, ok := parser.feed(line); ok {
			e.jobs.Set(recordingID, percent)
		}

		// Progress lines churn constantly and are useless in an error
		// report
		if !strings.Contains(line, "time=") {
			tail = append(tail, line)
			if len(tail) > maxStderrLines {
				tail = tail[1:]
			}
		}
	}

	if err := cmd.Wait(); err != nil {
		return &TranscodeError{
			FileKey: inputPath,
			Detail:  strings.Join(tail, "\n"),
			Err:     err,
		}
	}

	return nil
}

// removeLegacyThumbnail best-effort-deletes an on-disk thumbnail written
// by an older version next to the original file
func (e *Engine) removeLegacyThumbnail(fileKey string) {
	thumbKey := storage.ThumbnailKeyFor(fileKey)
	thumbPath, err := e.paths.Resolve(thumbKey)
	if err != nil {
		return
	}
	if err := os.Remove(thumbPath); err != nil && !os.IsNotExist(err) {
		log.Printf("transcode : error removing legacy thumbnail %s: %v", thumbPath, err)
	}
}

func (e *Engine) ffmpegPath() string {
	if e.cfg.FFmpegPath != "" {
		return e.cfg.FFmpegPath
	}
	return "ffmpeg"
}

// scanLinesWithCR splits on both \r and \n since ffmpeg terminates its
// progress lines with a carriage return
func scanLinesWithCR(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	for i := 0; i < len(data); i++ {
		if data[i] == '\r' || data[i] == '\n' {
			advance = i + 1
			for advance < len(data) && (data[advance] == '\r' || data[advance] == '\n') {
				advance++
			}
			return advance, data[0:i], nil
		}
	}

	if atEOF {
		return len(data), data, nil
	}

	return 0, nil, nil
}
