package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"driftbox/internal/service"
)

// CopyHandler handles batch copy planning and commit endpoints.
type CopyHandler struct {
	copyService service.CopyService
}

// NewCopyHandler creates a new CopyHandler.
func NewCopyHandler(copyService service.CopyService) *CopyHandler {
	return &CopyHandler{copyService: copyService}
}

// BatchCopy handles POST /api/v1/copy/batch
// @Summary Plan or execute a batch copy
// @Description Same-mount copies run server-side; cross-mount copies return a client-side relay plan
// @Tags copy
// @Accept json
// @Produce json
// @Success 200 {object} APIResponse{data=service.BatchCopyResult} "Copy result or relay plan"
// @Security BearerAuth
// @Router /copy/batch [post]
func (h *CopyHandler) BatchCopy(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	var input service.BatchCopyInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}

	result, err := h.copyService.PlanBatchCopy(c.Request.Context(), principal, input)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, result)
}

// BatchCopyCommit handles POST /api/v1/copy/batch/commit
// @Summary Commit relayed files in one batch
// @Tags copy
// @Accept json
// @Produce json
// @Success 200 {object} APIResponse "Committed"
// @Security BearerAuth
// @Router /copy/batch/commit [post]
func (h *CopyHandler) BatchCopyCommit(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	var input service.CommitBatchCopyInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}

	if err := h.copyService.CommitBatchCopy(c.Request.Context(), principal, input); err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, gin.H{})
}
