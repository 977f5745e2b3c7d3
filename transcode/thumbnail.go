package transcode

import (
	"encoding/base64"
	"fmt"
	"os"
	"os/exec"
)

// Thumbnails are scaled to this width; height follows the aspect ratio
const thumbnailWidth = 320

// ExtractThumbnail pulls a single representative frame from a video and
// returns it as a base64 data URI. The frame is taken at the 1 second
// mark; clips shorter than that are retried at 0. The temporary image is
// removed regardless of outcome.
func ExtractThumbnail(videoPath, ffmpegPath string) (string, error) {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}

	var lastErr error
	for _, timestamp := range []string{"1", "0"} {
		data, err := extractFrameAt(videoPath, ffmpegPath, timestamp)
		if err == nil {
			return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(data), nil
		}
		lastErr = err
	}

	return "", &ThumbnailError{VideoPath: videoPath, Err: lastErr}
}

// extractFrameAt grabs one scaled frame at the given timestamp into a
// temporary file and returns its bytes
func extractFrameAt(videoPath, ffmpegPath, timestamp string) ([]byte, error) {
	tmpFile, err := os.CreateTemp("", "packcam-thumb-*.jpg")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp thumbnail file: %w", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	defer os.Remove(tmpPath)

	cmd := exec.Command(ffmpegPath,
		"-ss", timestamp,
		"-i", videoPath,
		"-vframes", "1",
		"-vf", fmt.Sprintf("scale=%d:-1", thumbnailWidth),
		"-y",
		tmpPath,
	)

	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("frame grab at %ss failed: %v (%s)", timestamp, err, tailOf(output))
	}

	data, err := os.ReadFile(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read thumbnail: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("frame grab at %ss produced an empty image", timestamp)
	}

	return data, nil
}

// tailOf returns the last part of subprocess output for error messages
func tailOf(output []byte) string {
	const max = 300
	if len(output) <= max {
		return string(output)
	}
	return "..." + string(output[len(output)-max:])
}
