package transfer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"

	"driftbox/internal/domain"
)

// Client talks to the upload orchestrator's HTTP surface and directly to
// presigned object-store URLs. All failures come back as *RequestError so
// callers can decide retryability from the kind alone.
type Client struct {
	baseURL    string
	token      string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a Client authenticating with a bearer token. Per-call
// deadlines come from the caller's context, not a client-wide timeout.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{},
	}
}

// NewClientWithAPIKey creates a Client authenticating with an API key.
func NewClientWithAPIKey(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{},
	}
}

// InitRequest is the body of POST /uploads/init.
type InitRequest struct {
	Path     string `json:"path"`
	FileSize int64  `json:"file_size"`
	Filename string `json:"filename"`
}

// InitResponse carries the session handle for all subsequent part calls.
type InitResponse struct {
	UploadID            string `json:"upload_id"`
	StorageKey          string `json:"key"`
	RecommendedPartSize int64  `json:"recommended_part_size"`
}

// PartRequest addresses one part upload.
type PartRequest struct {
	Path       string
	UploadID   string
	PartNumber int32
	StorageKey string
	IsLast     bool
}

// CompleteRequest is the body of POST /uploads/complete.
type CompleteRequest struct {
	Path       string                  `json:"path"`
	UploadID   string                  `json:"upload_id"`
	StorageKey string                  `json:"key"`
	Parts      []domain.UploadPartETag `json:"parts"`
	FileSize   int64                   `json:"file_size"`
}

// AbortRequest is the body of POST /uploads/abort.
type AbortRequest struct {
	Path       string `json:"path"`
	UploadID   string `json:"upload_id"`
	StorageKey string `json:"key"`
}

// PresignRequest is the body of POST /uploads/presign.
type PresignRequest struct {
	Path     string `json:"path"`
	Filename string `json:"filename"`
	FileSize int64  `json:"file_size"`
}

// PresignResponse carries the presigned PUT URL and commit handle.
type PresignResponse struct {
	UploadURL  string    `json:"upload_url"`
	FileID     uuid.UUID `json:"file_id"`
	StorageKey string    `json:"storage_key"`
	TargetPath string    `json:"target_path"`
}

// CommitRequest is the body of POST /uploads/commit.
type CommitRequest struct {
	Path       string    `json:"path"`
	FileID     uuid.UUID `json:"file_id"`
	StorageKey string    `json:"key"`
	ETag       string    `json:"etag"`
	FileSize   int64     `json:"file_size"`
}

// BatchCopyRequest is the body of POST /copy/batch.
type BatchCopyRequest struct {
	Items        []BatchCopyItem `json:"items"`
	SkipExisting bool            `json:"skip_existing"`
}

// BatchCopyItem is one source → target pair.
type BatchCopyItem struct {
	SourcePath string `json:"source_path"`
	TargetPath string `json:"target_path"`
}

// BatchCopyResponse is either finished server-side metadata or a relay plan.
type BatchCopyResponse struct {
	RequiresClientSideCopy bool                   `json:"requires_client_side_copy"`
	Entries                []domain.CopyPlanEntry `json:"entries"`
	Copied                 []domain.FileMeta      `json:"copied"`
	Skipped                []string               `json:"skipped"`
}

// RelayedFile is one successfully relayed entry reported at commit time.
type RelayedFile struct {
	TargetPath  string `json:"target_path"`
	StorageKey  string `json:"s3_path"`
	ETag        string `json:"etag"`
	ContentType string `json:"content_type"`
	FileSize    int64  `json:"file_size"`
}

// BatchCopyCommitRequest is the body of POST /copy/batch/commit.
type BatchCopyCommitRequest struct {
	TargetMountID uuid.UUID     `json:"target_mount_id"`
	Files         []RelayedFile `json:"files"`
}

// envelope is the server's standard response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// InitUpload opens a multipart upload session.
func (c *Client) InitUpload(ctx context.Context, req InitRequest) (*InitResponse, error) {
	var out InitResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/uploads/init", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UploadPart streams one raw part body and returns the store's ETag.
func (c *Client) UploadPart(ctx context.Context, req PartRequest, body []byte) (string, error) {
	const op = "upload part"

	query := url.Values{}
	query.Set("path", req.Path)
	query.Set("upload_id", req.UploadID)
	query.Set("part_number", strconv.FormatInt(int64(req.PartNumber), 10))
	query.Set("key", req.StorageKey)
	query.Set("is_last", strconv.FormatBool(req.IsLast))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut,
		c.baseURL+"/api/v1/uploads/part?"+query.Encode(), bytes.NewReader(body))
	if err != nil {
		return "", classifyErr(op, err)
	}
	httpReq.Header.Set("Content-Type", "application/octet-stream")
	httpReq.ContentLength = int64(len(body))
	c.setAuth(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", classifyErr(op, err)
	}
	defer resp.Body.Close()

	var result struct {
		ETag string `json:"etag"`
	}
	if err := decodeEnvelope(op, resp, &result); err != nil {
		return "", err
	}
	return result.ETag, nil
}

// UploadedPart is one store-confirmed part of an in-flight session.
type UploadedPart struct {
	PartNumber int32  `json:"part_number"`
	ETag       string `json:"etag"`
	Size       int64  `json:"size"`
}

// ListUploadedParts fetches the parts the store has already confirmed for a
// session, so an interrupted upload can skip what already landed.
func (c *Client) ListUploadedParts(ctx context.Context, targetPath, uploadID string) ([]UploadedPart, error) {
	query := url.Values{}
	query.Set("path", targetPath)
	query.Set("upload_id", uploadID)

	var out struct {
		Parts []UploadedPart `json:"parts"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/uploads/parts", query, nil, &out); err != nil {
		return nil, err
	}
	return out.Parts, nil
}

// CompleteUpload finalizes a multipart upload with the full ordered part list.
func (c *Client) CompleteUpload(ctx context.Context, req CompleteRequest) (*domain.FileMeta, error) {
	var out domain.FileMeta
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/uploads/complete", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AbortUpload releases an upload session. Safe to call on sessions that are
// already gone.
func (c *Client) AbortUpload(ctx context.Context, req AbortRequest) error {
	return c.doJSON(ctx, http.MethodPost, "/api/v1/uploads/abort", nil, req, nil)
}

// PresignUpload requests a presigned single-shot PUT URL.
func (c *Client) PresignUpload(ctx context.Context, req PresignRequest) (*PresignResponse, error) {
	var out PresignResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/uploads/presign", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CommitUpload commits a presigned single-shot upload.
func (c *Client) CommitUpload(ctx context.Context, req CommitRequest) (*domain.FileMeta, error) {
	var out domain.FileMeta
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/uploads/commit", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UploadDirect streams a small file through the server in one shot. The server
// stores it and records the file immediately; no separate commit is needed.
func (c *Client) UploadDirect(ctx context.Context, targetPath, filename string, body []byte) (*domain.FileMeta, error) {
	const op = "direct upload"

	query := url.Values{}
	query.Set("path", targetPath)
	query.Set("filename", filename)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut,
		c.baseURL+"/api/v1/uploads/direct?"+query.Encode(), bytes.NewReader(body))
	if err != nil {
		return nil, classifyErr(op, err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.ContentLength = int64(len(body))
	c.setAuth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyErr(op, err)
	}
	defer resp.Body.Close()

	var meta domain.FileMeta
	if err := decodeEnvelope(op, resp, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// BatchCopy requests a batch copy; the response says whether the client must
// relay the bytes itself.
func (c *Client) BatchCopy(ctx context.Context, req BatchCopyRequest) (*BatchCopyResponse, error) {
	var out BatchCopyResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/copy/batch", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BatchCopyCommit reports every successfully relayed file in one call.
func (c *Client) BatchCopyCommit(ctx context.Context, req BatchCopyCommitRequest) error {
	return c.doJSON(ctx, http.MethodPost, "/api/v1/copy/batch/commit", nil, req, nil)
}

// GetObject downloads the full body of a presigned GET URL.
func (c *Client) GetObject(ctx context.Context, presignedURL string) ([]byte, error) {
	const op = "get object"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, presignedURL, nil)
	if err != nil {
		return nil, classifyErr(op, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyErr(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, statusError(op, resp.StatusCode, string(detail))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyErr(op, err)
	}
	return data, nil
}

// PutObject uploads a full body to a presigned PUT URL and returns the ETag.
func (c *Client) PutObject(ctx context.Context, presignedURL, contentType string, body []byte) (string, error) {
	const op = "put object"

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, presignedURL, bytes.NewReader(body))
	if err != nil {
		return "", classifyErr(op, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = int64(len(body))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", classifyErr(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", statusError(op, resp.StatusCode, string(detail))
	}
	return resp.Header.Get("ETag"), nil
}

func (c *Client) setAuth(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
		return
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body, out any) error {
	op := method + " " + path

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return classifyErr(op, err)
		}
		reader = bytes.NewReader(encoded)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return classifyErr(op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.setAuth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyErr(op, err)
	}
	defer resp.Body.Close()

	return decodeEnvelope(op, resp, out)
}

func decodeEnvelope(op string, resp *http.Response, out any) error {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return classifyErr(op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var env envelope
		if jsonErr := json.Unmarshal(raw, &env); jsonErr == nil && env.Error != nil {
			return statusError(op, resp.StatusCode, env.Error.Code+": "+env.Error.Message)
		}
		return statusError(op, resp.StatusCode, string(raw))
	}

	if out == nil {
		return nil
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return classifyErr(op, fmt.Errorf("decoding response: %w", err))
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return classifyErr(op, fmt.Errorf("decoding response data: %w", err))
	}
	return nil
}
