package database

import (
	"time"
)

// RecordingStatus represents the capture outcome of a recording
type RecordingStatus string

const (
	StatusRecording RecordingStatus = "recording" // Chunks are still being appended
	StatusSaved     RecordingStatus = "saved"     // Ingestion finalized successfully
	StatusFailed    RecordingStatus = "failed"    // Recording terminated abnormally
)

// LifecycleStage represents the archival stage of a recording.
// The transition is one-way: active -> archived.
type LifecycleStage string

const (
	StageActive   LifecycleStage = "active"   // Original file as recorded
	StageArchived LifecycleStage = "archived" // Re-encoded to the compact format
)

// Recording represents one packing video tied to a shipment
type Recording struct {
	ID               string          `json:"id"`               // Unique identifier, assigned at creation
	TrackingNumber   string          `json:"trackingNumber"`   // Shipment tracking number (not unique)
	Carrier          string          `json:"carrier"`          // Optional carrier tag
	FileKey          string          `json:"fileKey"`          // Relative or absolute key of the video file
	FileSize         int64           `json:"fileSize"`         // Size in bytes (0 until finalized)
	DurationMs       int64           `json:"durationMs"`       // Duration in milliseconds (0 until finalized)
	Status           RecordingStatus `json:"status"`           // Capture outcome
	LifecycleStage   LifecycleStage  `json:"lifecycleStage"`   // Archival stage
	OriginalFileSize int64           `json:"originalFileSize"` // Size before archival compression
	Thumbnail        string          `json:"thumbnail"`        // Data URI, or a legacy on-disk file key
	StartedAt        time.Time       `json:"startedAt"`        // When recording started
	FinishedAt       *time.Time      `json:"finishedAt"`       // When recording finished (nil while recording)
	CreatedAt        time.Time       `json:"createdAt"`        // When the record was created
	ArchivedAt       *time.Time      `json:"archivedAt"`       // When the recording was archived (nil while active)
}

// RecordingUpdate describes a partial update of a recording. Nil fields
// are left untouched.
type RecordingUpdate struct {
	TrackingNumber   *string
	Carrier          *string
	FileKey          *string
	FileSize         *int64
	DurationMs       *int64
	Status           *RecordingStatus
	LifecycleStage   *LifecycleStage
	OriginalFileSize *int64
	Thumbnail        *string
	FinishedAt       *time.Time
	ArchivedAt       *time.Time
}

// SortField enumerates the columns a search may be ordered by
type SortField string

const (
	SortByCreatedAt SortField = "created_at"
	SortByFileSize  SortField = "file_size"
	SortByDuration  SortField = "duration_ms"
)

// SearchFilter describes a filtered, sorted, paginated recording query
type SearchFilter struct {
	Carrier        string         // Exact carrier match, empty = any
	TrackingNumber string         // Substring match, empty = any
	LifecycleStage LifecycleStage // Empty = any
	From           *time.Time     // CreatedAt lower bound (inclusive)
	To             *time.Time     // CreatedAt upper bound (exclusive)
	SortBy         SortField      // Defaults to created_at
	SortDesc       bool
	Limit          int // Defaults to 50
	Offset         int
}

// StorageStats aggregates storage usage over saved recordings, grouped
// by lifecycle stage
type StorageStats struct {
	ActiveCount   int   `json:"activeCount"`
	ArchivedCount int   `json:"archivedCount"`
	TotalCount    int   `json:"totalCount"`
	ActiveSize    int64 `json:"activeSize"`
	ArchivedSize  int64 `json:"archivedSize"`
	SpaceSaved    int64 `json:"spaceSaved"` // Sum of originalFileSize - fileSize over archived rows
}

// Database defines the interface for recording metadata operations
type Database interface {
	// Recording operations
	CreateRecording(rec Recording) error
	GetRecording(id string) (*Recording, error)
	GetRecordingsByTrackingNumber(trackingNumber string) ([]Recording, error)
	UpdateRecording(id string, update RecordingUpdate) error
	DeleteRecording(id string) error

	// Lifecycle operations
	GetArchivableRecordings(cutoff time.Time) ([]Recording, error)

	// Query operations
	SearchRecordings(filter SearchFilter) ([]Recording, int, error)
	GetStorageStats() (*StorageStats, error)

	// Settings operations
	GetConfig(key string) (string, error)
	SetConfig(key, value string) error
	DeleteConfig(key string) error
	GetAllConfig() (map[string]string, error)

	// Helper operations
	Close() error
}
