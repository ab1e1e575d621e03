package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path"

	"github.com/google/uuid"

	"driftbox/internal/config"
	"driftbox/internal/domain"
	"driftbox/internal/port"
)

// InitInput is the DTO for opening a multipart upload.
type InitInput struct {
	Path     string `json:"path" binding:"required"`
	FileSize int64  `json:"file_size" binding:"required"`
	Filename string `json:"filename" binding:"required"`
}

// InitResult is returned by Init. StorageKey must be echoed back unchanged on
// every part, complete, and abort call for this session.
type InitResult struct {
	UploadID            string `json:"upload_id"`
	StorageKey          string `json:"key"`
	RecommendedPartSize int64  `json:"recommended_part_size"`
}

// PartInput is the DTO for streaming one part to the store.
type PartInput struct {
	Path       string
	UploadID   string
	PartNumber int32
	StorageKey string
	IsLast     bool
	Body       io.Reader
	Size       int64
}

// CompleteInput is the DTO for finalizing a multipart upload.
type CompleteInput struct {
	Path       string                  `json:"path" binding:"required"`
	UploadID   string                  `json:"upload_id" binding:"required"`
	StorageKey string                  `json:"key" binding:"required"`
	Parts      []domain.UploadPartETag `json:"parts"`
	FileSize   int64                   `json:"file_size"`
}

// AbortInput is the DTO for aborting an upload session.
type AbortInput struct {
	Path       string `json:"path" binding:"required"`
	UploadID   string `json:"upload_id" binding:"required"`
	StorageKey string `json:"key" binding:"required"`
}

// PresignInput is the DTO for the single-shot presigned upload variant.
type PresignInput struct {
	Path     string `json:"path" binding:"required"`
	Filename string `json:"filename" binding:"required"`
	FileSize int64  `json:"file_size" binding:"required"`
}

// PresignResult carries the presigned PUT URL and the handle for the later
// commit call.
type PresignResult struct {
	UploadURL  string    `json:"upload_url"`
	FileID     uuid.UUID `json:"file_id"`
	StorageKey string    `json:"storage_key"`
	TargetPath string    `json:"target_path"`
}

// CommitInput is the DTO for committing a presigned single-shot upload.
type CommitInput struct {
	Path       string    `json:"path" binding:"required"`
	FileID     uuid.UUID `json:"file_id" binding:"required"`
	StorageKey string    `json:"key" binding:"required"`
	ETag       string    `json:"etag"`
	FileSize   int64     `json:"file_size"`
}

// UploadedPart is one store-confirmed part of an in-flight session.
type UploadedPart struct {
	PartNumber int32  `json:"part_number"`
	ETag       string `json:"etag"`
	Size       int64  `json:"size"`
}

// DirectInput is the DTO for a small single-shot upload proxied through the
// server.
type DirectInput struct {
	Path     string
	Filename string
	Size     int64
	Body     io.Reader
}

// UploadService is the server half of the transfer orchestrator: it issues and
// finalizes upload sessions, brokering between the caller, the session store,
// and the object store.
type UploadService interface {
	Init(ctx context.Context, principal domain.Principal, input InitInput) (*InitResult, error)
	UploadPart(ctx context.Context, principal domain.Principal, input PartInput) (string, error)
	ListUploadedParts(ctx context.Context, principal domain.Principal, targetPath, uploadID string) ([]UploadedPart, error)
	Complete(ctx context.Context, principal domain.Principal, input CompleteInput) (*domain.FileMeta, error)
	Abort(ctx context.Context, principal domain.Principal, input AbortInput) error
	Presign(ctx context.Context, principal domain.Principal, input PresignInput) (*PresignResult, error)
	Commit(ctx context.Context, principal domain.Principal, input CommitInput) (*domain.FileMeta, error)
	Direct(ctx context.Context, principal domain.Principal, input DirectInput) (*domain.FileMeta, error)
}

type uploadService struct {
	sessions port.UploadSessionRepository
	files    port.FileMetaRepository
	mounts   port.StorageMountRepository
	stores   port.ObjectStoreResolver
	cfg      *config.TransferConfig
}

// NewUploadService creates a new UploadService implementation.
func NewUploadService(
	sessions port.UploadSessionRepository,
	files port.FileMetaRepository,
	mounts port.StorageMountRepository,
	stores port.ObjectStoreResolver,
	cfg *config.TransferConfig,
) UploadService {
	return &uploadService{
		sessions: sessions,
		files:    files,
		mounts:   mounts,
		stores:   stores,
		cfg:      cfg,
	}
}

func (s *uploadService) Init(ctx context.Context, principal domain.Principal, input InitInput) (*InitResult, error) {
	if input.Path == "" || input.Filename == "" {
		return nil, fmt.Errorf("%w: path and filename are required", domain.ErrValidation)
	}
	if input.FileSize <= 0 {
		return nil, fmt.Errorf("%w: file_size must be positive", domain.ErrValidation)
	}
	if !principal.CanAccess(input.Path) {
		return nil, domain.ErrPermissionDenied
	}

	mount, err := mountForPath(ctx, s.mounts, input.Path)
	if err != nil {
		return nil, err
	}
	store, err := s.stores.ForMount(ctx, mount.ID)
	if err != nil {
		return nil, err
	}

	contentType := inferContentType(input.Filename)
	storageKey := storageKeyFor(mount, input.Path)

	uploadID, err := store.CreateMultipartUpload(ctx, storageKey, contentType)
	if err != nil {
		return nil, err
	}

	session := &domain.UploadSession{
		ID:           uuid.New(),
		UploadID:     uploadID,
		StorageKey:   storageKey,
		TargetPath:   path.Clean("/" + input.Path),
		MountID:      mount.ID,
		Kind:         domain.UploadKindMultipart,
		DeclaredSize: input.FileSize,
		ContentType:  contentType,
		OwnerID:      principal.ID,
		OwnerKind:    principal.Kind,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		// The store-side upload must not outlive a session we failed to record.
		if abortErr := store.AbortMultipartUpload(ctx, storageKey, uploadID); abortErr != nil {
			log.Printf("uploadService.Init: failed to abort orphaned upload %s: %v", uploadID, abortErr)
		}
		return nil, err
	}

	log.Printf("uploadService.Init: opened session %s for %s (%d bytes, %s)",
		uploadID, session.TargetPath, input.FileSize, contentType)

	return &InitResult{
		UploadID:            uploadID,
		StorageKey:          storageKey,
		RecommendedPartSize: recommendPartSize(s.cfg, input.FileSize),
	}, nil
}

func (s *uploadService) UploadPart(ctx context.Context, principal domain.Principal, input PartInput) (string, error) {
	if input.PartNumber < 1 {
		return "", fmt.Errorf("%w: part_number must be >= 1", domain.ErrValidation)
	}
	if input.Size <= 0 {
		return "", fmt.Errorf("%w: empty part body", domain.ErrValidation)
	}
	if !principal.CanAccess(input.Path) {
		return "", domain.ErrPermissionDenied
	}

	session, err := s.sessions.GetByPathAndUploadID(ctx, path.Clean("/"+input.Path), input.UploadID)
	if err != nil {
		return "", err
	}
	// A key that disagrees with the session is a stale or forged request.
	// Fail closed before the body reaches the store.
	if input.StorageKey != session.StorageKey {
		return "", domain.ErrStorageKeyMismatch
	}

	store, err := s.stores.ForMount(ctx, session.MountID)
	if err != nil {
		return "", err
	}

	etag, err := store.UploadPart(ctx, session.StorageKey, session.UploadID, input.PartNumber, input.Body, input.Size)
	if err != nil {
		return "", err
	}
	return etag, nil
}

// ListUploadedParts reports the parts the store has confirmed for an in-flight
// session, so a client can resume after a crash instead of restarting.
func (s *uploadService) ListUploadedParts(ctx context.Context, principal domain.Principal, targetPath, uploadID string) ([]UploadedPart, error) {
	if targetPath == "" || uploadID == "" {
		return nil, fmt.Errorf("%w: path and upload_id are required", domain.ErrValidation)
	}
	if !principal.CanAccess(targetPath) {
		return nil, domain.ErrPermissionDenied
	}

	session, err := s.sessions.GetByPathAndUploadID(ctx, path.Clean("/"+targetPath), uploadID)
	if err != nil {
		return nil, err
	}

	store, err := s.stores.ForMount(ctx, session.MountID)
	if err != nil {
		return nil, err
	}

	parts, err := store.ListParts(ctx, session.StorageKey, session.UploadID)
	if err != nil {
		return nil, err
	}

	result := make([]UploadedPart, 0, len(parts))
	for _, p := range parts {
		result = append(result, UploadedPart{PartNumber: p.PartNumber, ETag: p.ETag, Size: p.Size})
	}
	return result, nil
}

func (s *uploadService) Complete(ctx context.Context, principal domain.Principal, input CompleteInput) (*domain.FileMeta, error) {
	if len(input.Parts) == 0 {
		return nil, fmt.Errorf("%w: parts must not be empty", domain.ErrValidation)
	}
	// The client is the source of truth for ordering; a gap or inversion here
	// means it lost track, so fail rather than reorder.
	for i, p := range input.Parts {
		if p.PartNumber != int32(i+1) {
			return nil, fmt.Errorf("%w: parts must be ascending and contiguous (got part %d at position %d)",
				domain.ErrValidation, p.PartNumber, i+1)
		}
	}
	if !principal.CanAccess(input.Path) {
		return nil, domain.ErrPermissionDenied
	}

	session, err := s.sessions.GetByPathAndUploadID(ctx, path.Clean("/"+input.Path), input.UploadID)
	if err != nil {
		return nil, err
	}
	if input.StorageKey != session.StorageKey {
		return nil, domain.ErrStorageKeyMismatch
	}

	store, err := s.stores.ForMount(ctx, session.MountID)
	if err != nil {
		return nil, err
	}

	completed := make([]port.CompletedPart, 0, len(input.Parts))
	for _, p := range input.Parts {
		completed = append(completed, port.CompletedPart{PartNumber: p.PartNumber, ETag: p.ETag})
	}

	etag, err := store.CompleteMultipartUpload(ctx, session.StorageKey, session.UploadID, completed)
	if err != nil {
		return nil, err
	}

	size := input.FileSize
	if size <= 0 {
		size = session.DeclaredSize
	}

	meta := &domain.FileMeta{
		ID:          uuid.New(),
		Path:        session.TargetPath,
		Name:        path.Base(session.TargetPath),
		MountID:     session.MountID,
		StorageKey:  session.StorageKey,
		ContentType: session.ContentType,
		Size:        size,
		ETag:        etag,
		OwnerID:     session.OwnerID,
		OwnerKind:   session.OwnerKind,
		Status:      domain.FileStatusStored,
	}
	if err := s.files.Create(ctx, meta); err != nil {
		return nil, err
	}

	if err := s.sessions.Delete(ctx, session.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		log.Printf("uploadService.Complete: failed to delete session %s: %v", session.ID, err)
	}

	log.Printf("uploadService.Complete: finalized %s (%d parts, %d bytes)",
		session.TargetPath, len(input.Parts), size)
	return meta, nil
}

// Abort is idempotent: aborting a session that is already gone succeeds. It
// always attempts to release store-side resources, even when the session row
// no longer exists.
func (s *uploadService) Abort(ctx context.Context, principal domain.Principal, input AbortInput) error {
	if !principal.CanAccess(input.Path) {
		return domain.ErrPermissionDenied
	}

	cleaned := path.Clean("/" + input.Path)
	storageKey := input.StorageKey

	session, err := s.sessions.GetByPathAndUploadID(ctx, cleaned, input.UploadID)
	var mountID uuid.UUID
	switch {
	case err == nil:
		if input.StorageKey != session.StorageKey {
			return domain.ErrStorageKeyMismatch
		}
		mountID = session.MountID
	case errors.Is(err, domain.ErrNotFound):
		// Session row already gone; resolve the mount from the path so the
		// store-side upload can still be released.
		mount, merr := mountForPath(ctx, s.mounts, input.Path)
		if merr != nil {
			return nil
		}
		mountID = mount.ID
	default:
		return err
	}

	store, err := s.stores.ForMount(ctx, mountID)
	if err != nil {
		return err
	}

	if err := store.AbortMultipartUpload(ctx, storageKey, input.UploadID); err != nil {
		// Nothing to abort is success, not failure.
		if !errors.Is(err, domain.ErrNotFound) && !errors.Is(err, domain.ErrStoreRejected) {
			return err
		}
	}

	// Delete by (path, upload id) directly; a row that is already gone deletes
	// zero rows and stays a success.
	if err := s.sessions.DeleteByUploadID(ctx, cleaned, input.UploadID); err != nil {
		return err
	}

	log.Printf("uploadService.Abort: released session %s for %s", input.UploadID, cleaned)
	return nil
}

func (s *uploadService) Presign(ctx context.Context, principal domain.Principal, input PresignInput) (*PresignResult, error) {
	if input.Path == "" || input.Filename == "" {
		return nil, fmt.Errorf("%w: path and filename are required", domain.ErrValidation)
	}
	if !principal.CanAccess(input.Path) {
		return nil, domain.ErrPermissionDenied
	}

	mount, err := mountForPath(ctx, s.mounts, input.Path)
	if err != nil {
		return nil, err
	}
	store, err := s.stores.ForMount(ctx, mount.ID)
	if err != nil {
		return nil, err
	}

	contentType := inferContentType(input.Filename)
	storageKey := storageKeyFor(mount, input.Path)

	url, err := store.PresignPutObject(ctx, storageKey, contentType, s.cfg.PresignExpiry)
	if err != nil {
		return nil, err
	}

	fileID := uuid.New()
	session := &domain.UploadSession{
		ID:           fileID,
		UploadID:     fileID.String(),
		StorageKey:   storageKey,
		TargetPath:   path.Clean("/" + input.Path),
		MountID:      mount.ID,
		Kind:         domain.UploadKindPresigned,
		DeclaredSize: input.FileSize,
		ContentType:  contentType,
		OwnerID:      principal.ID,
		OwnerKind:    principal.Kind,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	return &PresignResult{
		UploadURL:  url,
		FileID:     fileID,
		StorageKey: storageKey,
		TargetPath: session.TargetPath,
	}, nil
}

func (s *uploadService) Commit(ctx context.Context, principal domain.Principal, input CommitInput) (*domain.FileMeta, error) {
	if !principal.CanAccess(input.Path) {
		return nil, domain.ErrPermissionDenied
	}

	session, err := s.sessions.GetByPathAndUploadID(ctx, path.Clean("/"+input.Path), input.FileID.String())
	if err != nil {
		return nil, err
	}
	if input.StorageKey != session.StorageKey {
		return nil, domain.ErrStorageKeyMismatch
	}

	size := input.FileSize
	if size <= 0 {
		size = session.DeclaredSize
	}

	meta := &domain.FileMeta{
		ID:          session.ID,
		Path:        session.TargetPath,
		Name:        path.Base(session.TargetPath),
		MountID:     session.MountID,
		StorageKey:  session.StorageKey,
		ContentType: session.ContentType,
		Size:        size,
		ETag:        input.ETag,
		OwnerID:     session.OwnerID,
		OwnerKind:   session.OwnerKind,
		Status:      domain.FileStatusStored,
	}
	if err := s.files.Create(ctx, meta); err != nil {
		return nil, err
	}

	if err := s.sessions.Delete(ctx, session.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		log.Printf("uploadService.Commit: failed to delete session %s: %v", session.ID, err)
	}
	return meta, nil
}

// Direct uploads a small file in one shot, streaming the request body through
// the server to the store. No session row is created; the file record is
// written as soon as the store accepts the object.
func (s *uploadService) Direct(ctx context.Context, principal domain.Principal, input DirectInput) (*domain.FileMeta, error) {
	if input.Path == "" || input.Filename == "" {
		return nil, fmt.Errorf("%w: path and filename are required", domain.ErrValidation)
	}
	if input.Size <= 0 {
		return nil, fmt.Errorf("%w: file_size must be positive", domain.ErrValidation)
	}
	if !principal.CanAccess(input.Path) {
		return nil, domain.ErrPermissionDenied
	}

	mount, err := mountForPath(ctx, s.mounts, input.Path)
	if err != nil {
		return nil, err
	}
	store, err := s.stores.ForMount(ctx, mount.ID)
	if err != nil {
		return nil, err
	}

	contentType := inferContentType(input.Filename)
	storageKey := storageKeyFor(mount, input.Path)

	out, err := store.Upload(ctx, port.UploadInput{
		Key:         storageKey,
		Body:        input.Body,
		ContentType: contentType,
		Size:        input.Size,
	})
	if err != nil {
		return nil, err
	}

	meta := &domain.FileMeta{
		ID:          uuid.New(),
		Path:        path.Clean("/" + input.Path),
		Name:        input.Filename,
		MountID:     mount.ID,
		StorageKey:  storageKey,
		ContentType: contentType,
		Size:        input.Size,
		ETag:        out.ETag,
		OwnerID:     principal.ID,
		OwnerKind:   principal.Kind,
		Status:      domain.FileStatusStored,
	}
	if err := s.files.Create(ctx, meta); err != nil {
		return nil, err
	}

	log.Printf("uploadService.Direct: stored %s (%d bytes, %s)", meta.Path, input.Size, contentType)
	return meta, nil
}
