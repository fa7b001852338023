// Package api exposes the small operational surface an operator needs
// around the trading engine: health, manual trigger, permission
// administration, and audit export.
package api

import (
	"context"
	"net/http"
	"strconv"

	"tradeengine/internal/export"
	"tradeengine/internal/models"
	"tradeengine/internal/store"

	"github.com/gin-gonic/gin"
)

// Scheduler is the narrow slice of tradeengine.Scheduler the trigger
// endpoint needs.
type Scheduler interface {
	OnNewTrade(ctx context.Context)
}

// APIHandler wires the store and the live per-bot schedulers into gin
// routes.
type APIHandler struct {
	store      *store.Store
	schedulers map[uint]Scheduler
}

// SetupRoutes registers the engine's operational routes onto r and returns
// the handler.
func SetupRoutes(r *gin.RouterGroup, st *store.Store, schedulers map[uint]Scheduler) *APIHandler {
	handler := &APIHandler{store: st, schedulers: schedulers}

	r.GET("/health", handler.Health)

	bots := r.Group("/bots")
	{
		bots.GET("", handler.ListBots)
		bots.POST("/:id/trigger", handler.TriggerBot)
		bots.GET("/:id/audit.xlsx", handler.ExportAudit)

		permissions := bots.Group("/:id/permissions")
		{
			permissions.POST("", handler.GrantPermission)
			permissions.DELETE("", handler.RevokePermission)
		}
	}

	return handler
}

// CORSMiddleware allows the operator dashboard to call this API from a
// different origin.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (h *APIHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *APIHandler) ListBots(c *gin.Context) {
	accounts, err := h.store.AllBotAccounts()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, accounts)
}

// TriggerBot schedules an out-of-band parsing pass for one bot account,
// equivalent to an inbound event-feed push.
func (h *APIHandler) TriggerBot(c *gin.Context) {
	id, ok := parseBotID(c)
	if !ok {
		return
	}
	scheduler, ok := h.schedulers[id]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no running scheduler for that bot account"})
		return
	}
	// The pass outlives this request, so it must not run under the
	// request's context, which is canceled once the response is written.
	scheduler.OnNewTrade(context.Background())
	c.JSON(http.StatusAccepted, gin.H{"status": "scheduled"})
}

func (h *APIHandler) ExportAudit(c *gin.Context) {
	id, ok := parseBotID(c)
	if !ok {
		return
	}
	records, err := h.store.AuditHistory(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=audit.xlsx")
	if err := export.AuditWorkbook(c.Writer, records); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
}

type permissionRequest struct {
	CounterpartySteamID64 uint64                 `json:"counterparty_steam_id_64" binding:"required"`
	Level                 models.PermissionLevel `json:"level" binding:"required"`
}

func (h *APIHandler) GrantPermission(c *gin.Context) {
	id, ok := parseBotID(c)
	if !ok {
		return
	}
	var req permissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.store.Permissions().Grant(c.Request.Context(), id, req.CounterpartySteamID64, req.Level); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "granted"})
}

func (h *APIHandler) RevokePermission(c *gin.Context) {
	id, ok := parseBotID(c)
	if !ok {
		return
	}
	var req permissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.store.Permissions().Revoke(c.Request.Context(), id, req.CounterpartySteamID64, req.Level); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "revoked"})
}

func parseBotID(c *gin.Context) (uint, bool) {
	raw, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid bot account id"})
		return 0, false
	}
	return uint(raw), true
}
