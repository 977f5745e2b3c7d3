package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteDB implements the Database interface using SQLite
type SQLiteDB struct {
	db *sql.DB
}

// NewSQLiteDB creates a new SQLite database instance
func NewSQLiteDB(dbPath string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %v", err)
	}

	// Create tables if they don't exist
	err = initTables(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize tables: %v", err)
	}

	return &SQLiteDB{db: db}, nil
}

// GetDB exposes the underlying sql.DB for callers that need raw queries
func (s *SQLiteDB) GetDB() *sql.DB {
	return s.db
}

// initTables creates the necessary tables if they don't exist
func initTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS recordings (
			id TEXT PRIMARY KEY,
			tracking_number TEXT NOT NULL,
			carrier TEXT,
			file_key TEXT NOT NULL,
			file_size INTEGER DEFAULT 0,
			duration_ms INTEGER DEFAULT 0,
			status TEXT NOT NULL,
			lifecycle_stage TEXT NOT NULL DEFAULT 'active',
			original_file_size INTEGER DEFAULT 0,
			thumbnail TEXT,
			started_at TIMESTAMP NOT NULL,
			finished_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL,
			archived_at TIMESTAMP
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_recordings_tracking_number ON recordings (tracking_number)
	`)
	if err != nil {
		return err
	}

	// Composite index backing the archival eligibility query
	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_recordings_lifecycle ON recordings (status, lifecycle_stage, finished_at)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS config (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return err
	}

	return nil
}

// recordingColumns is the column list shared by every recording SELECT
const recordingColumns = `
	id, tracking_number, carrier, file_key, file_size, duration_ms,
	status, lifecycle_stage, original_file_size, thumbnail,
	started_at, finished_at, created_at, archived_at`

// scanRecording scans one recording row from a *sql.Row or *sql.Rows
func scanRecording(scan func(dest ...interface{}) error) (*Recording, error) {
	var rec Recording
	var carrier, thumbnail sql.NullString
	var finishedAt, archivedAt sql.NullTime

	err := scan(
		&rec.ID,
		&rec.TrackingNumber,
		&carrier,
		&rec.FileKey,
		&rec.FileSize,
		&rec.DurationMs,
		&rec.Status,
		&rec.LifecycleStage,
		&rec.OriginalFileSize,
		&thumbnail,
		&rec.StartedAt,
		&finishedAt,
		&rec.CreatedAt,
		&archivedAt,
	)
	if err != nil {
		return nil, err
	}

	if carrier.Valid {
		rec.Carrier = carrier.String
	}
	if thumbnail.Valid {
		rec.Thumbnail = thumbnail.String
	}
	if finishedAt.Valid {
		rec.FinishedAt = &finishedAt.Time
	}
	if archivedAt.Valid {
		rec.ArchivedAt = &archivedAt.Time
	}

	return &rec, nil
}

// CreateRecording inserts a new recording record into the database
func (s *SQLiteDB) CreateRecording(rec Recording) error {
	if rec.Status == "" {
		rec.Status = StatusRecording
	}
	if rec.LifecycleStage == "" {
		rec.LifecycleStage = StageActive
	}

	_, err := s.db.Exec(`
		INSERT INTO recordings (
			id, tracking_number, carrier, file_key, file_size, duration_ms,
			status, lifecycle_stage, original_file_size, thumbnail,
			started_at, finished_at, created_at, archived_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID,
		rec.TrackingNumber,
		rec.Carrier,
		rec.FileKey,
		rec.FileSize,
		rec.DurationMs,
		rec.Status,
		rec.LifecycleStage,
		rec.OriginalFileSize,
		rec.Thumbnail,
		rec.StartedAt,
		rec.FinishedAt,
		rec.CreatedAt,
		rec.ArchivedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create recording: %v", err)
	}

	return nil
}

// GetRecording retrieves a recording by its ID. Returns nil without an
// error when no row matches.
func (s *SQLiteDB) GetRecording(id string) (*Recording, error) {
	row := s.db.QueryRow(`SELECT `+recordingColumns+` FROM recordings WHERE id = ?`, id)

	rec, err := scanRecording(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recording: %v", err)
	}

	return rec, nil
}

// GetRecordingsByTrackingNumber retrieves all recordings for a tracking
// number, newest first. Tracking numbers are not unique.
func (s *SQLiteDB) GetRecordingsByTrackingNumber(trackingNumber string) ([]Recording, error) {
	rows, err := s.db.Query(`
		SELECT `+recordingColumns+`
		FROM recordings
		WHERE tracking_number = ?
		ORDER BY created_at DESC
	`, trackingNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to get recordings by tracking number: %v", err)
	}
	defer rows.Close()

	return collectRecordings(rows)
}

// UpdateRecording applies a partial update to a recording. Nil fields of
// the update are left untouched.
func (s *SQLiteDB) UpdateRecording(id string, update RecordingUpdate) error {
	var sets []string
	var args []interface{}

	add := func(column string, value interface{}) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}

	if update.TrackingNumber != nil {
		add("tracking_number", *update.TrackingNumber)
	}
	if update.Carrier != nil {
		add("carrier", *update.Carrier)
	}
	if update.FileKey != nil {
		add("file_key", *update.FileKey)
	}
	if update.FileSize != nil {
		add("file_size", *update.FileSize)
	}
	if update.DurationMs != nil {
		add("duration_ms", *update.DurationMs)
	}
	if update.Status != nil {
		add("status", *update.Status)
	}
	if update.LifecycleStage != nil {
		add("lifecycle_stage", *update.LifecycleStage)
	}
	if update.OriginalFileSize != nil {
		add("original_file_size", *update.OriginalFileSize)
	}
	if update.Thumbnail != nil {
		add("thumbnail", *update.Thumbnail)
	}
	if update.FinishedAt != nil {
		add("finished_at", *update.FinishedAt)
	}
	if update.ArchivedAt != nil {
		add("archived_at", *update.ArchivedAt)
	}

	if len(sets) == 0 {
		return nil
	}

	args = append(args, id)
	query := "UPDATE recordings SET " + strings.Join(sets, ", ") + " WHERE id = ?"

	result, err := s.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to update recording: %v", err)
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("recording %s not found", id)
	}

	return nil
}

// DeleteRecording removes a recording record by its ID
func (s *SQLiteDB) DeleteRecording(id string) error {
	_, err := s.db.Exec("DELETE FROM recordings WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete recording: %v", err)
	}

	return nil
}

// GetArchivableRecordings returns saved, active recordings that finished
// before the cutoff, oldest first
func (s *SQLiteDB) GetArchivableRecordings(cutoff time.Time) ([]Recording, error) {
	rows, err := s.db.Query(`
		SELECT `+recordingColumns+`
		FROM recordings
		WHERE status = ? AND lifecycle_stage = ? AND finished_at IS NOT NULL AND finished_at < ?
		ORDER BY finished_at ASC
	`, StatusSaved, StageActive, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query archivable recordings: %v", err)
	}
	defer rows.Close()

	return collectRecordings(rows)
}

// collectRecordings drains a result set into a slice
func collectRecordings(rows *sql.Rows) ([]Recording, error) {
	var recordings []Recording
	for rows.Next() {
		rec, err := scanRecording(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recording row: %v", err)
		}
		recordings = append(recordings, *rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error after scanning rows: %v", err)
	}

	return recordings, nil
}

// Close closes the database connection
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}
