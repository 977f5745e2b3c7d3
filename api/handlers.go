package api

import (
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"packcam/database"
	"packcam/monitoring"
	"packcam/storage"
	"packcam/transcode"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// createRecording registers a new recording and assigns it a file key.
// Chunks may be appended as soon as this returns.
func (s *Server) createRecording(c *gin.Context) {
	var req struct {
		TrackingNumber string `json:"trackingNumber" binding:"required"`
		Carrier        string `json:"carrier"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	now := time.Now()
	id := uuid.New().String()
	rec := database.Recording{
		ID:             id,
		TrackingNumber: req.TrackingNumber,
		Carrier:        req.Carrier,
		FileKey:        storage.NewFileKey(req.TrackingNumber, id, now),
		Status:         database.StatusRecording,
		LifecycleStage: database.StageActive,
		StartedAt:      now,
		CreatedAt:      now,
	}

	if err := s.db.CreateRecording(rec); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create recording", "details": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "data": rec})
}

// appendChunk appends the raw request body to the recording's file
func (s *Server) appendChunk(c *gin.Context) {
	rec, ok := s.lookupRecording(c)
	if !ok {
		return
	}
	if rec.Status != database.StatusRecording {
		c.JSON(http.StatusConflict, gin.H{"error": "Recording is not accepting chunks", "status": rec.Status})
		return
	}

	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read chunk body", "details": err.Error()})
		return
	}
	if len(data) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Empty chunk"})
		return
	}

	if err := s.writer.WriteChunk(rec.FileKey, data); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to write chunk", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "bytes": len(data)})
}

// finalizeRecording closes the recording file and marks the record saved
func (s *Server) finalizeRecording(c *gin.Context) {
	rec, ok := s.lookupRecording(c)
	if !ok {
		return
	}

	var req struct {
		DurationMs int64 `json:"durationMs"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	size, err := s.writer.Finalize(rec.FileKey)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to finalize recording", "details": err.Error()})
		return
	}

	now := time.Now()
	saved := database.StatusSaved
	update := database.RecordingUpdate{
		Status:     &saved,
		FileSize:   &size,
		DurationMs: &req.DurationMs,
		FinishedAt: &now,
	}

	// First thumbnail, straight from the freshly saved file. Non-fatal.
	if path, err := s.paths.Resolve(rec.FileKey); err == nil {
		if thumb, err := transcode.ExtractThumbnail(path, s.config.FFmpegPath); err != nil {
			log.Printf("api : thumbnail extraction for %s failed: %v", rec.ID, err)
		} else {
			update.Thumbnail = &thumb
		}
	}

	if err := s.db.UpdateRecording(rec.ID, update); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update recording", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "fileSize": size})
}

// getRecording returns one recording by ID
func (s *Server) getRecording(c *gin.Context) {
	rec, ok := s.lookupRecording(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": rec})
}

// deleteRecording removes the recording's file and metadata
func (s *Server) deleteRecording(c *gin.Context) {
	rec, ok := s.lookupRecording(c)
	if !ok {
		return
	}

	if err := s.writer.DeleteFile(rec.FileKey); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete recording file", "details": err.Error()})
		return
	}

	if err := s.db.DeleteRecording(rec.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete recording", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// getRecordingsByTracking lists all recordings for a tracking number
func (s *Server) getRecordingsByTracking(c *gin.Context) {
	recordings, err := s.db.GetRecordingsByTrackingNumber(c.Param("number"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list recordings", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": recordings, "total": len(recordings)})
}

// searchRecordings answers filtered, sorted, paginated queries
func (s *Server) searchRecordings(c *gin.Context) {
	filter := database.SearchFilter{
		Carrier:        c.Query("carrier"),
		TrackingNumber: c.Query("trackingNumber"),
		LifecycleStage: database.LifecycleStage(c.Query("stage")),
		SortBy:         database.SortField(c.Query("sortBy")),
		SortDesc:       c.Query("order") == "desc",
	}

	if v := c.Query("from"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.From = &t
		}
	}
	if v := c.Query("to"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.To = &t
		}
	}
	if v := c.Query("limit"); v != "" {
		filter.Limit, _ = strconv.Atoi(v)
	}
	if v := c.Query("offset"); v != "" {
		filter.Offset, _ = strconv.Atoi(v)
	}

	recordings, total, err := s.db.SearchRecordings(filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to search recordings", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": recordings, "total": total})
}

// getArchiveProgress reports the progress of an in-flight archival job.
// After a restart an in-flight job has no visible progress.
func (s *Server) getArchiveProgress(c *gin.Context) {
	id := c.Param("id")
	percent, inFlight := s.engine.Jobs().Get(id)
	c.JSON(http.StatusOK, gin.H{"success": true, "inFlight": inFlight, "percent": percent})
}

// getStats returns aggregate storage statistics
func (s *Server) getStats(c *gin.Context) {
	stats, err := s.db.GetStorageStats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute stats", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": stats})
}

// getSettings returns the lifecycle settings with defaults applied
func (s *Server) getSettings(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"lifecycleEnabled": s.settings.LifecycleEnabled(),
		"archiveAfterDays": s.settings.ArchiveAfterDays(),
	})
}

// updateSettings changes the lifecycle settings
func (s *Server) updateSettings(c *gin.Context) {
	var req struct {
		LifecycleEnabled *bool `json:"lifecycleEnabled"`
		ArchiveAfterDays *int  `json:"archiveAfterDays"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if req.LifecycleEnabled != nil {
		if err := s.settings.SetLifecycleEnabled(*req.LifecycleEnabled); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update settings", "details": err.Error()})
			return
		}
	}
	if req.ArchiveAfterDays != nil {
		if *req.ArchiveAfterDays < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "archiveAfterDays must be at least 1"})
			return
		}
		if err := s.settings.SetArchiveAfterDays(*req.ArchiveAfterDays); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update settings", "details": err.Error()})
			return
		}
	}

	s.getSettings(c)
}

// getSystemHealth returns process and storage-disk telemetry
func (s *Server) getSystemHealth(c *gin.Context) {
	usage, err := monitoring.GetResourceUsage()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read resource usage", "details": err.Error()})
		return
	}

	health := gin.H{
		"success":     true,
		"resources":   usage,
		"openHandles": s.writer.OpenHandles(),
	}

	if base, err := s.settings.StorageBasePath(); err == nil {
		if du, err := storage.GetDiskUsage(base); err == nil {
			health["disk"] = du
		}
	}

	c.JSON(http.StatusOK, health)
}

// triggerArchiveScan kicks off an archival scan outside the schedule
func (s *Server) triggerArchiveScan(c *gin.Context) {
	go s.archiveCron.RunScan()
	c.JSON(http.StatusAccepted, gin.H{"success": true, "message": "Archive scan triggered"})
}

// lookupRecording fetches the recording for the :id path parameter,
// writing the error response itself when missing
func (s *Server) lookupRecording(c *gin.Context) (*database.Recording, bool) {
	rec, err := s.db.GetRecording(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get recording", "details": err.Error()})
		return nil, false
	}
	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Recording not found"})
		return nil, false
	}
	return rec, true
}
