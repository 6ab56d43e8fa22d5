package policymodule

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mediamesh/playadvisor/internal/logger"
)

// APIHandler handles HTTP requests for the policy module
type APIHandler struct {
	manager *Manager
}

// NewAPIHandler creates a new API handler
func NewAPIHandler(manager *Manager) *APIHandler {
	return &APIHandler{manager: manager}
}

// HandleDecide computes a playback policy for a (device, media) pair
func (h *APIHandler) HandleDecide(c *gin.Context) {
	var request struct {
		Device DeviceDescriptor     `json:"device" binding:"required"`
		Media  MediaCharacteristics `json:"media" binding:"required"`
	}

	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	policy, _, err := h.manager.DecideForDevice(request.Device, &request.Media)
	if err != nil {
		// The engine already degraded internally; surfacing the default
		// keeps the advisory contract.
		logger.Error("decision failed", logger.Err("error", err))
		policy = DefaultPolicy()
	}

	c.JSON(http.StatusOK, gin.H{
		"policy":       policy,
		"capabilities": TranslatePolicy(policy, &request.Media),
	})
}

// HandlePlaybackStart records the beginning of a playback session
func (h *APIHandler) HandlePlaybackStart(c *gin.Context) {
	var request struct {
		Device           DeviceDescriptor     `json:"device" binding:"required"`
		Media            MediaCharacteristics `json:"media" binding:"required"`
		Method           string               `json:"method" binding:"required,oneof=direct_play direct_stream transcode unknown"`
		Policy           PlaybackPolicy       `json:"policy"`
		TranscodeReasons []string             `json:"transcode_reasons"`
	}

	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	outcome, err := h.manager.RecordPlaybackStart(request.Device, &request.Media,
		PlayMethod(request.Method), request.Policy, request.TranscodeReasons)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, outcome)
}

// HandlePlaybackStop finalizes a session and feeds the learning loop
func (h *APIHandler) HandlePlaybackStop(c *gin.Context) {
	outcomeID := c.Param("outcomeId")

	var request struct {
		PlayedTicks int64 `json:"played_ticks"`
		TotalTicks  int64 `json:"total_ticks"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	outcome, err := h.manager.RecordPlaybackStop(outcomeID, request.PlayedTicks, request.TotalTicks)
	if err != nil {
		if errors.Is(err, ErrOutcomeNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "outcome not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, outcome)
}

// HandleGetClient returns a device's learned profile
func (h *APIHandler) HandleGetClient(c *gin.Context) {
	deviceID := c.Param("deviceId")

	client, err := h.manager.GetClientProfile(deviceID)
	if err != nil {
		if errors.Is(err, ErrClientNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "client not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, client)
}

// HandleRecalibrate triggers a bulk recalibration for a device
func (h *APIHandler) HandleRecalibrate(c *gin.Context) {
	deviceID := c.Param("deviceId")

	if err := h.manager.Recalibrate(deviceID); err != nil {
		if errors.Is(err, ErrClientNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "client not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "recalibrated", "device_id": deviceID})
}

// HandleStats reports advisor counters and configuration state
func (h *APIHandler) HandleStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.manager.Stats())
}
