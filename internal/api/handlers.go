package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/gomeme/internal/domain"
	"github.com/jonesrussell/gomeme/internal/scheduler"
)

// queueItemResponse is the wire form of the queued item.
type queueItemResponse struct {
	ID         string    `json:"id"`
	URL        string    `json:"url"`
	Title      string    `json:"title"`
	SourceTag  string    `json:"source_tag"`
	IsVideo    bool      `json:"is_video"`
	Caption    *string   `json:"caption,omitempty"`
	PreparedAt time.Time `json:"prepared_at"`
}

func toQueueItemResponse(item *domain.QueueItem) queueItemResponse {
	return queueItemResponse{
		ID:         item.Candidate.ID,
		URL:        item.Candidate.URL,
		Title:      item.Candidate.Title,
		SourceTag:  item.Candidate.SourceTag,
		IsVideo:    item.Media.IsVideo,
		Caption:    item.Caption,
		PreparedAt: item.PreparedAt,
	}
}

// handleStatus reports version, queue occupancy, the next schedule
// instants and the history row counts.
func (s *Server) handleStatus(c *gin.Context) {
	preload, publish := s.schedule.NextTimes()
	cadence := s.schedule.Cadence()

	status := gin.H{
		"version":        s.version,
		"queue_occupied": s.slot.Occupied(),
		"next_preload":   preload,
		"next_publish":   publish,
		"schedule": gin.H{
			"posts_per_day":        cadence.PostsPerDay,
			"start_delay_seconds":  int(cadence.StartDelay.Seconds()),
			"preload_lead_seconds": int(cadence.PreloadLead.Seconds()),
		},
	}

	posts, fingerprints, err := s.stats.Stats(c.Request.Context())
	if err != nil {
		s.log.Error("failed to load history stats", "error", err)
		status["history"] = gin.H{"error": "unavailable"}
	} else {
		status["history"] = gin.H{"posts": posts, "fingerprints": fingerprints}
	}

	c.JSON(http.StatusOK, status)
}

// handleQueueGet returns the queued item, or 404 when the slot is empty.
func (s *Server) handleQueueGet(c *gin.Context) {
	item, ok := s.slot.Peek()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "queue is empty"})
		return
	}
	c.JSON(http.StatusOK, toQueueItemResponse(item))
}

// injectRequest is the body of a manual queue injection.
type injectRequest struct {
	URL string `json:"url" binding:"required"`
}

// handleQueuePost acquires, fingerprints and queues a manually chosen
// URL. An occupied slot or a failed preparation yields 409.
func (s *Server) handleQueuePost(c *gin.Context) {
	var req injectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}

	if s.slot.Occupied() {
		c.JSON(http.StatusConflict, gin.H{"error": "queue already holds an item"})
		return
	}

	item, err := s.injector.Inject(c.Request.Context(), req.URL)
	if err != nil {
		s.log.Warn("manual injection failed", "url", req.URL, "error", err)
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, toQueueItemResponse(item))
}

// handleQueueDelete clears the slot and deletes the item's media.
func (s *Server) handleQueueDelete(c *gin.Context) {
	item, ok := s.slot.Clear()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "queue is empty"})
		return
	}

	if err := s.releaser.DeleteFile(item.Media.LocalPath); err != nil {
		s.log.Warn("failed to delete media", "path", item.Media.LocalPath, "error", err)
	}
	if item.Media.PreviewPath != item.Media.LocalPath {
		if err := s.releaser.DeleteFile(item.Media.PreviewPath); err != nil {
			s.log.Warn("failed to delete preview", "path", item.Media.PreviewPath, "error", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"cleared": item.Candidate.ID})
}

// scheduleRequest is the body of a cadence update.
type scheduleRequest struct {
	PostsPerDay        int `json:"posts_per_day" binding:"required"`
	StartDelaySeconds  int `json:"start_delay_seconds"`
	PreloadLeadSeconds int `json:"preload_lead_seconds"`
}

// handleSchedulePut validates and applies a new publish cadence.
func (s *Server) handleSchedulePut(c *gin.Context) {
	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "posts_per_day is required"})
		return
	}

	cadence := scheduler.Cadence{
		PostsPerDay: req.PostsPerDay,
		StartDelay:  time.Duration(req.StartDelaySeconds) * time.Second,
		PreloadLead: time.Duration(req.PreloadLeadSeconds) * time.Second,
	}
	if err := s.schedule.SetCadence(cadence); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	preload, publish := s.schedule.NextTimes()
	c.JSON(http.StatusOK, gin.H{
		"posts_per_day": req.PostsPerDay,
		"next_preload":  preload,
		"next_publish":  publish,
	})
}
