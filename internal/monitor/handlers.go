package monitor

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mbd888/bridgewatch/internal/sigforge"
	"github.com/mbd888/bridgewatch/internal/traces"
	"github.com/mbd888/bridgewatch/internal/validation"
)

// MaxScanBatchSize caps the number of transactions per scan request.
const MaxScanBatchSize = 500

// Broadcaster receives completed scan results for realtime streaming.
type Broadcaster interface {
	BroadcastScan(result *ScanResult)
}

// Handler provides HTTP endpoints for scans and signature validation.
type Handler struct {
	monitor     *Monitor
	store       Store
	logger      *slog.Logger
	broadcaster Broadcaster
}

// NewHandler creates a monitor handler. The store may be nil, in which case
// scan history endpoints return 404s and results are not persisted.
func NewHandler(monitor *Monitor, store Store, logger *slog.Logger) *Handler {
	return &Handler{monitor: monitor, store: store, logger: logger}
}

// SetBroadcaster wires completed scans into a realtime stream.
func (h *Handler) SetBroadcaster(b Broadcaster) {
	h.broadcaster = b
}

// RegisterRoutes sets up scan and signature routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/scans", h.RunScan)
	r.GET("/scans/:id", h.GetScan)
	r.GET("/bridges/:address/scans", h.ListScans)
	r.GET("/bridges/:address/alerts", h.ListAlerts)
	r.POST("/signatures/validate", h.ValidateSignatures)
}

// ScanRequest is the POST /scans body.
type ScanRequest struct {
	BridgeAddress string             `json:"bridgeAddress" binding:"required"`
	Network       string             `json:"network" binding:"required"`
	Transactions  []TransactionInput `json:"transactions"`
}

// RunScan handles POST /scans.
func (h *Handler) RunScan(c *gin.Context) {
	var req ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": err.Error(),
		})
		return
	}

	if !validation.IsValidEthAddress(req.BridgeAddress) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_address",
			"message": "bridgeAddress must be a valid Ethereum address (0x + 40 hex chars)",
		})
		return
	}
	if len(req.Transactions) > MaxScanBatchSize {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "batch_too_large",
			"message": "too many transactions in one scan",
		})
		return
	}

	addr := validation.SanitizeAddress(req.BridgeAddress)

	ctx, span := traces.StartSpan(c.Request.Context(), "monitor.scan",
		traces.BridgeAddr(addr),
		traces.Network(req.Network),
		traces.TxCount(len(req.Transactions)),
	)
	defer span.End()

	result := h.monitor.Scan(ctx, addr, req.Network, req.Transactions)
	span.SetAttributes(traces.ScanID(result.ID), traces.RiskLevel(string(result.RiskLevel)))

	// Persistence is best-effort; the caller gets the result either way.
	if h.store != nil {
		if err := h.store.RecordScan(ctx, result); err != nil {
			h.logger.Warn("failed to persist scan result", "scan_id", result.ID, "error", err)
		}
	}

	if h.broadcaster != nil {
		h.broadcaster.BroadcastScan(result)
	}

	c.JSON(http.StatusOK, gin.H{"scan": result})
}

// GetScan handles GET /scans/:id.
func (h *Handler) GetScan(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "scan history is not enabled"})
		return
	}

	result, err := h.store.GetScan(c.Request.Context(), c.Param("id"))
	if errors.Is(err, ErrScanNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "no scan with that ID"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "scan_error", "message": "failed to load scan"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"scan": result})
}

// ListScans handles GET /bridges/:address/scans.
func (h *Handler) ListScans(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusOK, gin.H{"scans": []*ScanResult{}})
		return
	}

	limit := 20
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 && l <= 100 {
		limit = l
	}

	scans, err := h.store.ListByBridge(c.Request.Context(), validation.SanitizeAddress(c.Param("address")), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "scan_error", "message": "failed to list scans"})
		return
	}
	if scans == nil {
		scans = []*ScanResult{}
	}

	c.JSON(http.StatusOK, gin.H{"scans": scans})
}

// ListAlerts handles GET /bridges/:address/alerts.
func (h *Handler) ListAlerts(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusOK, gin.H{"alerts": []*Alert{}})
		return
	}

	limit := 50
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 && l <= 200 {
		limit = l
	}

	alerts, err := h.store.ListAlerts(c.Request.Context(), validation.SanitizeAddress(c.Param("address")), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "alert_error", "message": "failed to list alerts"})
		return
	}
	if alerts == nil {
		alerts = []*Alert{}
	}

	c.JSON(http.StatusOK, gin.H{"alerts": alerts})
}

// ValidateRequest is the POST /signatures/validate body.
type ValidateRequest struct {
	Signatures []sigforge.SignatureCheck `json:"signatures" binding:"required"`
}

// ValidateSignatures handles POST /signatures/validate.
func (h *Handler) ValidateSignatures(c *gin.Context) {
	var req ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": err.Error(),
		})
		return
	}
	if len(req.Signatures) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "at least one signature is required",
		})
		return
	}
	if len(req.Signatures) > MaxScanBatchSize {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "batch_too_large",
			"message": "too many signatures in one request",
		})
		return
	}

	results := h.monitor.Detector().BatchValidate(c.Request.Context(), req.Signatures)
	c.JSON(http.StatusOK, gin.H{"results": results})
}
