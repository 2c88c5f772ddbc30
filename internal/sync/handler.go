package sync

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/atlas-support/backend/internal/syncstatus"
	"github.com/atlas-support/backend/pkg/response"
)

// Handler exposes sync triggers and status over HTTP. Background triggers
// accept immediately; synchronous triggers hold the in-progress guard for
// the duration of the step.
type Handler struct {
	orch   *Orchestrator
	status *syncstatus.Repository
	logger *zap.Logger
}

// NewHandler creates a sync handler.
func NewHandler(orch *Orchestrator, status *syncstatus.Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{orch: orch, status: status, logger: logger}
}

// TriggerFull starts a full background sync. POST /sync/full
func (h *Handler) TriggerFull(c *gin.Context) {
	if err := h.orch.RunFullAsync(); err != nil {
		if errors.Is(err, ErrSyncInProgress) {
			response.Conflict(c, err.Error())
			return
		}
		response.Internal(c, err.Error())
		return
	}
	response.Accepted(c, gin.H{"mode": "full"})
}

// TriggerDelta starts a delta background sync. POST /sync/delta
func (h *Handler) TriggerDelta(c *gin.Context) {
	if err := h.orch.RunDeltaAsync(); err != nil {
		if errors.Is(err, ErrSyncInProgress) {
			response.Conflict(c, err.Error())
			return
		}
		response.Internal(c, err.Error())
		return
	}
	response.Accepted(c, gin.H{"mode": "delta"})
}

// SyncOrganizations runs the organization sync synchronously.
// POST /sync/organizations
func (h *Handler) SyncOrganizations(c *gin.Context) {
	h.runStep(c, func() (int, error) {
		return h.orch.SyncOrganizations(c.Request.Context())
	})
}

// SyncTickets runs the ticket sync synchronously; ?delta=true limits it to
// tickets updated since the last successful run. POST /sync/tickets
func (h *Handler) SyncTickets(c *gin.Context) {
	delta := c.Query("delta") == "true"
	h.runStep(c, func() (int, error) {
		return h.orch.SyncTickets(c.Request.Context(), delta)
	})
}

// SyncAssignments runs the CSM ownership sync synchronously.
// POST /sync/assignments
func (h *Handler) SyncAssignments(c *gin.Context) {
	h.runStep(c, func() (int, error) {
		return h.orch.SyncCSMAssignments(c.Request.Context())
	})
}

// SyncLinks runs the GitHub cross-reference sync synchronously.
// POST /sync/links
func (h *Handler) SyncLinks(c *gin.Context) {
	h.runStep(c, func() (int, error) {
		return h.orch.SyncGitHubLinks(c.Request.Context())
	})
}

// Status returns the latest status per sync type plus the in-progress
// flag. GET /sync/status
func (h *Handler) Status(c *gin.Context) {
	statuses, err := h.status.ListAll(c.Request.Context())
	if err != nil {
		h.logger.Error("list sync status", zap.Error(err))
		response.Internal(c, "list sync status failed")
		return
	}
	response.OK(c, gin.H{
		"statuses":    statuses,
		"in_progress": h.orch.InProgress(),
	})
}

func (h *Handler) runStep(c *gin.Context, step func() (int, error)) {
	if !h.orch.TryBegin() {
		response.Conflict(c, ErrSyncInProgress.Error())
		return
	}
	defer h.orch.End()

	count, err := step()
	if err != nil {
		// A partial failure still synced count records; surface both.
		c.JSON(http.StatusInternalServerError, response.Body{
			Success: false,
			Data:    gin.H{"count": count},
			Error:   err.Error(),
		})
		return
	}
	response.OK(c, gin.H{"count": count})
}
