package api

import (
	"fmt"

	"packcam/config"
	"packcam/cron"
	"packcam/database"
	"packcam/ingest"
	"packcam/storage"
	"packcam/transcode"

	"github.com/gin-gonic/gin"
)

type Server struct {
	config      config.Config
	db          database.Database
	settings    *config.SettingsService
	writer      *ingest.ChunkWriter
	engine      *transcode.Engine
	paths       *storage.PathResolver
	archiveCron *cron.ArchiveCron
}

func NewServer(cfg config.Config, db database.Database, settings *config.SettingsService,
	writer *ingest.ChunkWriter, engine *transcode.Engine, paths *storage.PathResolver,
	archiveCron *cron.ArchiveCron) *Server {
	return &Server{
		config:      cfg,
		db:          db,
		settings:    settings,
		writer:      writer,
		engine:      engine,
		paths:       paths,
		archiveCron: archiveCron,
	}
}

func (s *Server) Start() {
	r := gin.Default()
	s.setupCORS(r)
	s.setupRoutes(r)
	portAddr := ":" + s.config.ServerPort
	fmt.Printf("Starting API server on %s\n", portAddr)
	r.Run(portAddr)
}

func (s *Server) setupCORS(r *gin.Engine) {
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})
}

func (s *Server) setupRoutes(r *gin.Engine) {
	api := r.Group("/api")
	{
		api.POST("/recordings", s.createRecording)
		api.GET("/recordings", s.searchRecordings)
		api.GET("/recordings/:id", s.getRecording)
		api.DELETE("/recordings/:id", s.deleteRecording)
		api.POST("/recordings/:id/chunks", s.appendChunk)
		api.POST("/recordings/:id/finalize", s.finalizeRecording)
		api.GET("/recordings/:id/progress", s.getArchiveProgress)
		api.GET("/tracking/:number", s.getRecordingsByTracking)
		api.GET("/stats", s.getStats)
		api.GET("/settings", s.getSettings)
		api.PUT("/settings", s.updateSettings)
		api.GET("/system_health", s.getSystemHealth)
		api.POST("/archive/scan", s.triggerArchiveScan)
	}
}
