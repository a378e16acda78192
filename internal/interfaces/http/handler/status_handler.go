package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	intakeapp "github.com/vitrina/stockbot/internal/application/intake"
	"github.com/vitrina/stockbot/internal/domain/sessionlog"
)

// StatusHandler exposes the bot's operational state: the active workflow and
// the persisted session log. Read-only; the workflow is driven by chat.
type StatusHandler struct {
	workflow *intakeapp.Service
	logRepo  sessionlog.Repository
}

// NewStatusHandler creates a new StatusHandler
func NewStatusHandler(workflow *intakeapp.Service, logRepo sessionlog.Repository) *StatusHandler {
	return &StatusHandler{workflow: workflow, logRepo: logRepo}
}

// RegisterRoutes registers the status routes on the API group
func (h *StatusHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/workflow", h.GetWorkflow)
	rg.GET("/sessions", h.ListSessions)
}

// GetWorkflow returns the current workflow state and session progress
func (h *StatusHandler) GetWorkflow(c *gin.Context) {
	c.JSON(http.StatusOK, h.workflow.Snapshot())
}

// ListSessions returns recent session log records, newest first
func (h *StatusHandler) ListSessions(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 200 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer between 1 and 200"})
			return
		}
		limit = n
	}

	records, err := h.logRepo.Recent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read session log"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": records})
}
