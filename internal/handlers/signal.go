package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/quantfeed/signal-scout/internal/pipeline"
	"github.com/quantfeed/signal-scout/internal/services"
)

// SignalHandler serves the signal audit trail and pipeline statistics
type SignalHandler struct {
	signalService *services.SignalService
	stats         func() pipeline.Stats
}

// NewSignalHandler creates a new signal handler
func NewSignalHandler(signalService *services.SignalService, stats func() pipeline.Stats) *SignalHandler {
	return &SignalHandler{
		signalService: signalService,
		stats:         stats,
	}
}

// GetSignals retrieves extracted signals with pagination
func (h *SignalHandler) GetSignals(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	instrument := c.Query("instrument")

	signals, total, err := h.signalService.GetSignals(page, limit, instrument)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve signals"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"signals": signals,
		"total":   total,
		"page":    page,
		"limit":   limit,
	})
}

// GetSignal retrieves a specific signal by ID
func (h *SignalHandler) GetSignal(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid signal ID"})
		return
	}

	sig, err := h.signalService.GetSignal(uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Signal not found"})
		return
	}

	c.JSON(http.StatusOK, sig)
}

// GetChannelSignals retrieves recent signals from a specific channel
func (h *SignalHandler) GetChannelSignals(c *gin.Context) {
	channelID := c.Param("channel")
	if channelID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "channel parameter is required"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	signals, err := h.signalService.GetSignalsByChannel(channelID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve signals"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"channel": channelID,
		"signals": signals,
	})
}

// GetStats reports pipeline counters and the fingerprint total
func (h *SignalHandler) GetStats(c *gin.Context) {
	fingerprints, err := h.signalService.CountFingerprints()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count fingerprints"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"pipeline":     h.stats(),
		"fingerprints": fingerprints,
	})
}
