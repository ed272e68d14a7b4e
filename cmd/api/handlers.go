package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/therealutkarshpriyadarshi/autocaptions/internal/cache"
	"github.com/therealutkarshpriyadarshi/autocaptions/internal/captions"
	"github.com/therealutkarshpriyadarshi/autocaptions/internal/logging"
	"github.com/therealutkarshpriyadarshi/autocaptions/internal/metrics"
	"github.com/therealutkarshpriyadarshi/autocaptions/internal/middleware"
	"github.com/therealutkarshpriyadarshi/autocaptions/pkg/models"
)

// CaptionService produces caption tracks for video URLs
type CaptionService interface {
	Captions(ctx context.Context, videoURL string) (*models.CaptionTrack, error)
}

// CaptionCache stores caption tracks between requests
type CaptionCache interface {
	GetCaptions(ctx context.Context, videoURL string) (*models.CaptionTrack, error)
	SetCaptions(ctx context.Context, videoURL string, track *models.CaptionTrack, ttl time.Duration) error
	Ping(ctx context.Context) error
	TTL() time.Duration
}

// API holds the handlers' dependencies
type API struct {
	captions CaptionService
	cache    CaptionCache
	logger   *logging.Logger
}

// NewAPI creates the API. captionCache may be nil.
func NewAPI(service CaptionService, captionCache CaptionCache, logger *logging.Logger) *API {
	if logger == nil {
		logger = logging.Nop()
	}
	return &API{
		captions: service,
		cache:    captionCache,
		logger:   logger,
	}
}

func (api *API) home(c *gin.Context) {
	c.String(http.StatusOK, "Hello, World!")
}

func (api *API) about(c *gin.Context) {
	c.String(http.StatusOK, "About")
}

// Health check endpoint
func (api *API) healthCheck(c *gin.Context) {
	if api.cache != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if err := api.cache.Ping(ctx); err != nil {
			middleware.GetLogger(c, api.logger).WithError(err).Error("Caption cache unreachable")
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
	})
}

// Get captions endpoint
func (api *API) getCaptions(c *gin.Context) {
	videoURL := c.Query("url")
	if videoURL == "" {
		metrics.RecordCaptionRequest("bad_request")
		c.JSON(http.StatusBadRequest, gin.H{"error": "No URL provided"})
		return
	}

	ctx := c.Request.Context()
	logger := middleware.GetLogger(c, api.logger).WithVideoURL(videoURL)

	if track := api.cachedCaptions(ctx, logger, videoURL); track != nil {
		metrics.RecordCaptionRequest("found")
		c.JSON(http.StatusOK, gin.H{"captions": track.Captions})
		return
	}

	track, err := api.captions.Captions(ctx, videoURL)
	if err != nil {
		status, message := extractionErrorResponse(err)
		logger.WithError(err).Errorf("Caption extraction failed (status %d)", status)
		metrics.RecordCaptionRequest(captions.ErrorKind(err))
		c.JSON(status, gin.H{"error": message})
		return
	}

	if track.Empty() {
		metrics.RecordCaptionRequest("not_found")
		c.JSON(http.StatusNotFound, gin.H{"error": "Captions not found"})
		return
	}

	api.storeCaptions(ctx, logger, videoURL, track)

	metrics.RecordCaptionRequest("found")
	c.JSON(http.StatusOK, gin.H{"captions": track.Captions})
}

// extractionErrorResponse maps extraction error kinds to a status code and
// client-facing message
func extractionErrorResponse(err error) (int, string) {
	switch {
	case errors.Is(err, captions.ErrUnsupportedSource):
		return http.StatusUnprocessableEntity, "Unsupported video URL"
	case errors.Is(err, captions.ErrUnavailable):
		return http.StatusNotFound, "Video unavailable"
	case errors.Is(err, captions.ErrNetwork):
		return http.StatusBadGateway, "Failed to reach video platform"
	default:
		return http.StatusInternalServerError, "Failed to extract captions"
	}
}

func (api *API) cachedCaptions(ctx context.Context, logger *logging.Logger, videoURL string) *models.CaptionTrack {
	if api.cache == nil {
		return nil
	}

	track, err := api.cache.GetCaptions(ctx, videoURL)
	hit := err == nil && !track.Empty()
	logger.LogCacheOperation("get", cache.CaptionsKey(videoURL), hit, err)
	if err != nil {
		metrics.RecordError("cache", "get")
		return nil
	}
	metrics.RecordCacheAccess("captions", hit)
	if !hit {
		return nil
	}
	return track
}

func (api *API) storeCaptions(ctx context.Context, logger *logging.Logger, videoURL string, track *models.CaptionTrack) {
	if api.cache == nil {
		return
	}

	err := api.cache.SetCaptions(ctx, videoURL, track, api.cache.TTL())
	logger.LogCacheOperation("set", cache.CaptionsKey(videoURL), false, err)
	if err != nil {
		metrics.RecordError("cache", "set")
	}
}
