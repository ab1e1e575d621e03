package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"driftbox/internal/domain"
	"driftbox/internal/handler"
	"driftbox/internal/middleware"
	"driftbox/internal/service"
	"driftbox/mocks"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// injectPrincipal stands in for the auth middleware in handler tests.
func injectPrincipal(p domain.Principal) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextKeyPrincipal, p)
		c.Next()
	}
}

func uploadRouter(svc service.UploadService, p domain.Principal) *gin.Engine {
	h := handler.NewUploadHandler(svc)
	r := gin.New()
	r.Use(injectPrincipal(p))
	r.POST("/uploads/init", h.Init)
	r.PUT("/uploads/part", h.Part)
	r.GET("/uploads/parts", h.Parts)
	r.POST("/uploads/complete", h.Complete)
	r.POST("/uploads/abort", h.Abort)
	r.PUT("/uploads/direct", h.Direct)
	return r
}

func TestUploadHandler_Init(t *testing.T) {
	principal := domain.Principal{ID: uuid.New(), Kind: domain.PrincipalUser, PathPrefix: "/"}
	svc := new(mocks.MockUploadService)
	svc.On("Init", mock.Anything, principal, service.InitInput{
		Path:     "/docs/a.bin",
		FileSize: 1024,
		Filename: "a.bin",
	}).Return(&service.InitResult{
		UploadID:            "upl-1",
		StorageKey:          "docs/a.bin",
		RecommendedPartSize: 5 * 1024 * 1024,
	}, nil)

	body, _ := json.Marshal(map[string]any{
		"path": "/docs/a.bin", "file_size": 1024, "filename": "a.bin",
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/uploads/init", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	uploadRouter(svc, principal).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Success bool               `json:"success"`
		Data    service.InitResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "upl-1", resp.Data.UploadID)
	assert.Equal(t, int64(5*1024*1024), resp.Data.RecommendedPartSize)
}

func TestUploadHandler_Init_MissingFields(t *testing.T) {
	principal := domain.Principal{ID: uuid.New(), PathPrefix: "/"}
	svc := new(mocks.MockUploadService)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/uploads/init", bytes.NewReader([]byte(`{"path":"/a"}`)))
	req.Header.Set("Content-Type", "application/json")
	uploadRouter(svc, principal).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "Init")
}

func TestUploadHandler_Part(t *testing.T) {
	principal := domain.Principal{ID: uuid.New(), PathPrefix: "/"}
	svc := new(mocks.MockUploadService)
	svc.On("UploadPart", mock.Anything, principal, mock.MatchedBy(func(input service.PartInput) bool {
		return input.Path == "/docs/a.bin" &&
			input.UploadID == "upl-1" &&
			input.PartNumber == 3 &&
			input.StorageKey == "docs/a.bin" &&
			input.IsLast &&
			input.Size == 9
	})).Return(`"etag-3"`, nil)

	w := httptest.NewRecorder()
	target := "/uploads/part?path=%2Fdocs%2Fa.bin&upload_id=upl-1&part_number=3&key=docs%2Fa.bin&is_last=true"
	req := httptest.NewRequest(http.MethodPut, target, bytes.NewReader([]byte("part-data")))
	uploadRouter(svc, principal).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"etag-3"`)
}

func TestUploadHandler_Part_InvalidPartNumber(t *testing.T) {
	principal := domain.Principal{ID: uuid.New(), PathPrefix: "/"}
	svc := new(mocks.MockUploadService)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/uploads/part?part_number=abc", bytes.NewReader([]byte("x")))
	uploadRouter(svc, principal).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "UploadPart")
}

func TestUploadHandler_Part_StorageKeyMismatch(t *testing.T) {
	principal := domain.Principal{ID: uuid.New(), PathPrefix: "/"}
	svc := new(mocks.MockUploadService)
	svc.On("UploadPart", mock.Anything, principal, mock.Anything).
		Return("", domain.ErrStorageKeyMismatch)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut,
		"/uploads/part?path=%2Fa&upload_id=u&part_number=1&key=stale", bytes.NewReader([]byte("x")))
	uploadRouter(svc, principal).ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "STORAGE_KEY_MISMATCH")
}

func TestUploadHandler_Parts(t *testing.T) {
	principal := domain.Principal{ID: uuid.New(), PathPrefix: "/"}
	svc := new(mocks.MockUploadService)
	svc.On("ListUploadedParts", mock.Anything, principal, "/docs/a.bin", "upl-1").
		Return([]service.UploadedPart{
			{PartNumber: 1, ETag: `"e1"`, Size: 5 * 1024 * 1024},
		}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/uploads/parts?path=%2Fdocs%2Fa.bin&upload_id=upl-1", nil)
	uploadRouter(svc, principal).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data struct {
			Parts []service.UploadedPart `json:"parts"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data.Parts, 1)
	assert.Equal(t, int32(1), resp.Data.Parts[0].PartNumber)
}

func TestUploadHandler_Direct(t *testing.T) {
	principal := domain.Principal{ID: uuid.New(), PathPrefix: "/"}
	svc := new(mocks.MockUploadService)
	svc.On("Direct", mock.Anything, principal, mock.MatchedBy(func(input service.DirectInput) bool {
		return input.Path == "/pastes/note.txt" && input.Filename == "note.txt" && input.Size == 5
	})).Return(&domain.FileMeta{
		ID:   uuid.New(),
		Path: "/pastes/note.txt",
		ETag: `"direct-etag"`,
	}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut,
		"/uploads/direct?path=%2Fpastes%2Fnote.txt&filename=note.txt", bytes.NewReader([]byte("hello")))
	uploadRouter(svc, principal).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"direct-etag"`)
}

func TestUploadHandler_Complete_ValidationErrorCarriesDetail(t *testing.T) {
	principal := domain.Principal{ID: uuid.New(), PathPrefix: "/"}
	svc := new(mocks.MockUploadService)
	svc.On("Complete", mock.Anything, principal, mock.Anything).
		Return(nil, fmt.Errorf("%w: parts must be ascending and contiguous", domain.ErrValidation))

	body, _ := json.Marshal(map[string]any{
		"path": "/a", "upload_id": "u", "key": "a",
		"parts": []map[string]any{{"part_number": 2, "etag": "e"}},
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/uploads/complete", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	uploadRouter(svc, principal).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "ascending and contiguous")
}

func TestUploadHandler_Abort_Idempotent(t *testing.T) {
	principal := domain.Principal{ID: uuid.New(), PathPrefix: "/"}
	svc := new(mocks.MockUploadService)
	svc.On("Abort", mock.Anything, principal, mock.Anything).Return(nil).Twice()

	body, _ := json.Marshal(map[string]any{"path": "/a", "upload_id": "u", "key": "a"})
	r := uploadRouter(svc, principal)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/uploads/abort", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}
	svc.AssertExpectations(t)
}
