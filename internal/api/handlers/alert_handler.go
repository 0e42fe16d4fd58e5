package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/andresuchdata/stockalert/internal/alerting"
	"github.com/andresuchdata/stockalert/internal/domain"
	"github.com/andresuchdata/stockalert/internal/scheduler"
	"github.com/andresuchdata/stockalert/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type AlertHandler struct {
	alertService *service.AlertService
}

func NewAlertHandler(alertService *service.AlertService) *AlertHandler {
	return &AlertHandler{alertService: alertService}
}

type outcomeResponse struct {
	alerting.Outcome
	Error string `json:"error,omitempty"`
}

func newOutcomeResponse(out alerting.Outcome) outcomeResponse {
	resp := outcomeResponse{Outcome: out}
	if out.Err != nil {
		resp.Error = out.Err.Error()
	}
	return resp
}

type sweepResponse struct {
	alerting.SweepReport
	Error string `json:"error,omitempty"`
}

func newSweepResponse(report alerting.SweepReport) sweepResponse {
	resp := sweepResponse{SweepReport: report}
	if report.Err != nil {
		resp.Error = report.Err.Error()
	}
	return resp
}

// RunSweep evaluates every stock unit now. The sweep outlives a dropped
// client connection.
func (h *AlertHandler) RunSweep(c *gin.Context) {
	report, err := h.alertService.Sweep(context.WithoutCancel(c.Request.Context()))
	if errors.Is(err, scheduler.ErrSweepRunning) {
		c.JSON(http.StatusConflict, gin.H{"error": "a sweep is already running"})
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("manual sweep failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to run sweep"})
		return
	}

	status := http.StatusOK
	if report.Err != nil {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, newSweepResponse(report))
}

// GetLastSweep returns the most recent sweep report
func (h *AlertHandler) GetLastSweep(c *gin.Context) {
	report, ok := h.alertService.LastSweep(c.Request.Context())
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no sweep has run yet"})
		return
	}
	c.JSON(http.StatusOK, newSweepResponse(report))
}

// EvaluateUnit evaluates one stock unit now
func (h *AlertHandler) EvaluateUnit(c *gin.Context) {
	id := c.Param("id")

	out, err := h.alertService.EvaluateUnit(c.Request.Context(), id)
	if err != nil {
		h.writeLookupError(c, id, err)
		return
	}

	c.JSON(http.StatusOK, newOutcomeResponse(out))
}

// StockChanged receives write-path notifications. It answers 202 even when
// the evaluation failed: alerting never fails the caller's write.
func (h *AlertHandler) StockChanged(c *gin.Context) {
	var change domain.StockChange
	if err := c.ShouldBindJSON(&change); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid stock change payload"})
		return
	}
	if _, _, err := domain.ParseUnitID(change.UnitID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	out := h.alertService.StockChanged(c.Request.Context(), change)
	c.JSON(http.StatusAccepted, newOutcomeResponse(out))
}

// GetNotificationStatus lists the ledger state of every alert kind for a unit
func (h *AlertHandler) GetNotificationStatus(c *gin.Context) {
	id := c.Param("id")

	statuses, err := h.alertService.NotificationStatus(c.Request.Context(), id)
	if errors.Is(err, service.ErrInspectionUnsupported) {
		c.JSON(http.StatusNotImplemented, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.writeLookupError(c, id, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"unit_id": id, "notifications": statuses})
}

func (h *AlertHandler) writeLookupError(c *gin.Context, id string, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidUnitID):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrUnitNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "stock unit not found"})
	default:
		log.Error().Err(err).Str("unit_id", id).Msg("stock unit lookup failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "inventory store unavailable"})
	}
}
