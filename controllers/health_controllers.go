package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/local-talent/hub"
	"github.com/yeremiapane/local-talent/services"
	"github.com/yeremiapane/local-talent/utils"
)

type HealthController struct {
	Ping    func(ctx context.Context) error
	Hub     *hub.Hub
	Metrics *services.TrackingMetrics
}

func NewHealthController(ping func(ctx context.Context) error, h *hub.Hub, metrics *services.TrackingMetrics) *HealthController {
	return &HealthController{Ping: ping, Hub: h, Metrics: metrics}
}

func (hc *HealthController) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}

// Health -> storage reachability plus observer and traffic counters
func (hc *HealthController) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	data := gin.H{
		"database": "ok",
		"observers": gin.H{
			"clients":  hc.Hub.Clients(),
			"bookings": hc.Hub.Bookings(),
		},
	}
	if hc.Metrics != nil {
		data["tracking"] = hc.Metrics.Snapshot()
	}

	if err := hc.Ping(ctx); err != nil {
		utils.ErrorLogger.WithError(err).Warn("Health check failed")
		data["database"] = "unavailable"
		c.JSON(http.StatusServiceUnavailable, utils.JSONResponse{
			Status:  false,
			Message: "Storage unavailable",
			Code:    utils.ErrorCode(utils.ErrStorageUnavailable),
			Data:    data,
		})
		return
	}
	utils.RespondJSON(c, http.StatusOK, "OK", data)
}
