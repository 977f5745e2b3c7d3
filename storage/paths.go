package storage

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// BasePathFunc returns the current storage base path. Resolution happens
// at call time so an operator can repoint storage between recordings.
type BasePathFunc func() (string, error)

// PathResolver maps file keys to absolute filesystem paths. Relative keys
// are joined against the configured base path; absolute keys pass through
// unchanged (recordings stored before the relative-key schema carry
// absolute keys and must keep resolving the same way).
type PathResolver struct {
	basePath BasePathFunc
}

// NewPathResolver creates a resolver reading the base path through fn
func NewPathResolver(fn BasePathFunc) *PathResolver {
	return &PathResolver{basePath: fn}
}

// Resolve converts a file key into an absolute path
func (r *PathResolver) Resolve(fileKey string) (string, error) {
	if filepath.IsAbs(fileKey) {
		return fileKey, nil
	}
	base, err := r.basePath()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, fileKey), nil
}

// NewFileKey builds a date-sharded relative file key for a new recording,
// e.g. 2026/02/15/ABC123-1a2b3c4d.webm
func NewFileKey(trackingNumber, id string, now time.Time) string {
	short := id
	if len(short) > 8 {
		short = short[:8]
	}
	name := fmt.Sprintf("%s-%s.webm", sanitizeName(trackingNumber), short)
	return filepath.Join(now.Format("2006/01/02"), name)
}

// ReplaceExt swaps the extension of a file key, e.g. .webm -> .mp4
func ReplaceExt(fileKey, newExt string) string {
	ext := filepath.Ext(fileKey)
	return strings.TrimSuffix(fileKey, ext) + newExt
}

// ThumbnailKeyFor returns the legacy on-disk thumbnail key for a video
// file key. Current records embed thumbnails inline; this derivation only
// exists so archival can clean up thumbnails written by older versions.
func ThumbnailKeyFor(fileKey string) string {
	return ReplaceExt(fileKey, ".jpg")
}

// sanitizeName strips path separators and other unsafe characters from a
// tracking number before it is used in a filename
func sanitizeName(name string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", "..", "_", " ", "_", ":", "_")
	cleaned := replacer.Replace(name)
	if cleaned == "" {
		cleaned = "untracked"
	}
	return cleaned
}
