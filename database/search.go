package database

import (
	"fmt"
	"strings"
)

// SearchRecordings returns recordings matching the filter plus the total
// number of matches before pagination
func (s *SQLiteDB) SearchRecordings(filter SearchFilter) ([]Recording, int, error) {
	var where []string
	var args []interface{}

	if filter.Carrier != "" {
		where = append(where, "carrier = ?")
		args = append(args, filter.Carrier)
	}
	if filter.TrackingNumber != "" {
		where = append(where, "tracking_number LIKE ?")
		args = append(args, "%"+filter.TrackingNumber+"%")
	}
	if filter.LifecycleStage != "" {
		where = append(where, "lifecycle_stage = ?")
		args = append(args, filter.LifecycleStage)
	}
	if filter.From != nil {
		where = append(where, "created_at >= ?")
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		where = append(where, "created_at < ?")
		args = append(args, *filter.To)
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	err := s.db.QueryRow("SELECT COUNT(*) FROM recordings"+whereClause, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count recordings: %v", err)
	}

	// Sort column is restricted to the SortField constants; anything else
	// falls back to created_at
	orderBy := string(SortByCreatedAt)
	switch filter.SortBy {
	case SortByCreatedAt, SortByFileSize, SortByDuration:
		orderBy = string(filter.SortBy)
	}
	direction := "ASC"
	if filter.SortDesc {
		direction = "DESC"
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(
		"SELECT %s FROM recordings%s ORDER BY %s %s LIMIT ? OFFSET ?",
		recordingColumns, whereClause, orderBy, direction,
	)
	args = append(args, limit, offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search recordings: %v", err)
	}
	defer rows.Close()

	recordings, err := collectRecordings(rows)
	if err != nil {
		return nil, 0, err
	}

	return recordings, total, nil
}

// GetStorageStats aggregates storage usage over saved recordings grouped
// by lifecycle stage. Space saved counts only archived rows.
func (s *SQLiteDB) GetStorageStats() (*StorageStats, error) {
	rows, err := s.db.Query(`
		SELECT
			lifecycle_stage,
			COUNT(*),
			COALESCE(SUM(file_size), 0),
			COALESCE(SUM(original_file_size - file_size), 0)
		FROM recordings
		WHERE status = ?
		GROUP BY lifecycle_stage
	`, StatusSaved)
	if err != nil {
		return nil, fmt.Errorf("failed to query storage stats: %v", err)
	}
	defer rows.Close()

	stats := &StorageStats{}
	for rows.Next() {
		var stage LifecycleStage
		var count int
		var size, saved int64
		if err := rows.Scan(&stage, &count, &size, &saved); err != nil {
			return nil, fmt.Errorf("failed to scan stats row: %v", err)
		}

		switch stage {
		case StageActive:
			stats.ActiveCount = count
			stats.ActiveSize = size
		case StageArchived:
			stats.ArchivedCount = count
			stats.ArchivedSize = size
			stats.SpaceSaved = saved
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error after scanning stats rows: %v", err)
	}

	stats.TotalCount = stats.ActiveCount + stats.ArchivedCount
	return stats, nil
}
