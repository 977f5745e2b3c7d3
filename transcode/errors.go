package transcode

import "fmt"

// TranscodeError reports a failed compression attempt. Detail carries the
// tail of the transcoder's diagnostic output for operator triage.
type TranscodeError struct {
	FileKey string
	Detail  string
	Err     error
}

func (e *TranscodeError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("transcode of %s failed: %v\n%s", e.FileKey, e.Err, e.Detail)
	}
	return fmt.Sprintf("transcode of %s failed: %v", e.FileKey, e.Err)
}

func (e *TranscodeError) Unwrap() error { return e.Err }

// ThumbnailError reports that no frame could be extracted from a video.
// Always non-fatal to the surrounding operation.
type ThumbnailError struct {
	VideoPath string
	Err       error
}

func (e *ThumbnailError) Error() string {
	return fmt.Sprintf("thumbnail extraction from %s failed: %v", e.VideoPath, e.Err)
}

func (e *ThumbnailError) Unwrap() error { return e.Err }
