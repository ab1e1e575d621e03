package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"driftbox/internal/service"
)

// UploadHandler handles the multipart/presigned upload orchestration endpoints.
type UploadHandler struct {
	uploadService service.UploadService
}

// NewUploadHandler creates a new UploadHandler.
func NewUploadHandler(uploadService service.UploadService) *UploadHandler {
	return &UploadHandler{uploadService: uploadService}
}

// Init handles POST /api/v1/uploads/init
// @Summary Open a multipart upload session
// @Description Validates the target path, infers the content type from the filename, and opens a native multipart upload
// @Tags uploads
// @Accept json
// @Produce json
// @Success 200 {object} APIResponse{data=service.InitResult} "Session opened"
// @Failure 400 {object} APIResponse "Missing or invalid parameters"
// @Failure 403 {object} APIResponse "Path outside permitted prefix"
// @Security BearerAuth
// @Router /uploads/init [post]
func (h *UploadHandler) Init(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	var input service.InitInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}

	result, err := h.uploadService.Init(c.Request.Context(), principal, input)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, result)
}

// Part handles PUT /api/v1/uploads/part
// @Summary Upload one part
// @Description Streams a raw part body to the store and returns its ETag. The key query parameter must match the value returned by init.
// @Tags uploads
// @Accept octet-stream
// @Produce json
// @Param path query string true "Target logical path"
// @Param upload_id query string true "Upload session ID"
// @Param part_number query int true "1-based part number"
// @Param key query string true "Storage key from init"
// @Success 200 {object} APIResponse "Part ETag"
// @Failure 409 {object} APIResponse "Storage key mismatch"
// @Security BearerAuth
// @Router /uploads/part [put]
func (h *UploadHandler) Part(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	partNumber, err := strconv.ParseInt(c.Query("part_number"), 10, 32)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "part_number must be an integer")
		return
	}
	isLast, _ := strconv.ParseBool(c.DefaultQuery("is_last", "false"))

	etag, err := h.uploadService.UploadPart(c.Request.Context(), principal, service.PartInput{
		Path:       c.Query("path"),
		UploadID:   c.Query("upload_id"),
		PartNumber: int32(partNumber),
		StorageKey: c.Query("key"),
		IsLast:     isLast,
		Body:       c.Request.Body,
		Size:       c.Request.ContentLength,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, gin.H{"etag": etag})
}

// Parts handles GET /api/v1/uploads/parts
// @Summary List store-confirmed parts of an in-flight session
// @Description Returns the parts the store has already accepted, so an interrupted client can resume instead of restarting
// @Tags uploads
// @Produce json
// @Param path query string true "Target logical path"
// @Param upload_id query string true "Upload session ID"
// @Success 200 {object} APIResponse "Uploaded parts"
// @Failure 404 {object} APIResponse "No such session"
// @Security BearerAuth
// @Router /uploads/parts [get]
func (h *UploadHandler) Parts(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	parts, err := h.uploadService.ListUploadedParts(c.Request.Context(), principal, c.Query("path"), c.Query("upload_id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, gin.H{"parts": parts})
}

// Complete handles POST /api/v1/uploads/complete
// @Summary Finalize a multipart upload
// @Description Submits the full ordered part list, persists the file record, and deletes the session
// @Tags uploads
// @Accept json
// @Produce json
// @Success 200 {object} APIResponse{data=domain.FileMeta} "Stored file metadata"
// @Failure 400 {object} APIResponse "Empty or non-contiguous part list"
// @Security BearerAuth
// @Router /uploads/complete [post]
func (h *UploadHandler) Complete(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	var input service.CompleteInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}

	meta, err := h.uploadService.Complete(c.Request.Context(), principal, input)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, meta)
}

// Abort handles POST /api/v1/uploads/abort
// @Summary Abort an upload session
// @Description Releases store-side multipart state and deletes the session. Idempotent: aborting twice succeeds.
// @Tags uploads
// @Accept json
// @Produce json
// @Success 200 {object} APIResponse "Aborted"
// @Security BearerAuth
// @Router /uploads/abort [post]
func (h *UploadHandler) Abort(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	var input service.AbortInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}

	if err := h.uploadService.Abort(c.Request.Context(), principal, input); err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, gin.H{})
}

// Presign handles POST /api/v1/uploads/presign
// @Summary Issue a presigned single-shot upload URL
// @Tags uploads
// @Accept json
// @Produce json
// @Success 200 {object} APIResponse{data=service.PresignResult} "Presigned PUT URL"
// @Security BearerAuth
// @Router /uploads/presign [post]
func (h *UploadHandler) Presign(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	var input service.PresignInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}

	result, err := h.uploadService.Presign(c.Request.Context(), principal, input)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, result)
}

// Commit handles POST /api/v1/uploads/commit
// @Summary Commit a presigned single-shot upload
// @Tags uploads
// @Accept json
// @Produce json
// @Success 200 {object} APIResponse{data=domain.FileMeta} "Stored file metadata"
// @Security BearerAuth
// @Router /uploads/commit [post]
func (h *UploadHandler) Commit(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	var input service.CommitInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}

	meta, err := h.uploadService.Commit(c.Request.Context(), principal, input)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, meta)
}

// Direct handles PUT /api/v1/uploads/direct
// @Summary Upload a small file in one shot through the server
// @Description Streams the raw request body to the store and records the file immediately. Intended for files below the multipart threshold.
// @Tags uploads
// @Accept octet-stream
// @Produce json
// @Param path query string true "Target logical path"
// @Param filename query string true "Original filename, used to infer the content type"
// @Success 200 {object} APIResponse{data=domain.FileMeta} "Stored file metadata"
// @Security BearerAuth
// @Router /uploads/direct [put]
func (h *UploadHandler) Direct(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	meta, err := h.uploadService.Direct(c.Request.Context(), principal, service.DirectInput{
		Path:     c.Query("path"),
		Filename: c.Query("filename"),
		Size:     c.Request.ContentLength,
		Body:     c.Request.Body,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, meta)
}
