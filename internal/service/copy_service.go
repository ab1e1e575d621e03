package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path"
	"strings"

	"github.com/google/uuid"

	"driftbox/internal/config"
	"driftbox/internal/domain"
	"driftbox/internal/port"
)

// CopyItem is one requested source → target pair. A source that resolves to a
// directory is flattened into one plan entry per contained file.
type CopyItem struct {
	SourcePath string `json:"source_path" binding:"required"`
	TargetPath string `json:"target_path" binding:"required"`
}

// BatchCopyInput is the DTO for planning a batch copy.
type BatchCopyInput struct {
	Items        []CopyItem `json:"items" binding:"required"`
	SkipExisting bool       `json:"skip_existing"`
}

// BatchCopyResult is either a finished server-side copy (same mount) or a plan
// the client must execute entry by entry (cross-storage relay).
type BatchCopyResult struct {
	RequiresClientSideCopy bool                   `json:"requires_client_side_copy"`
	Entries                []domain.CopyPlanEntry `json:"entries,omitempty"`
	Copied                 []domain.FileMeta      `json:"copied,omitempty"`
	Skipped                []string               `json:"skipped,omitempty"`
}

// CommittedFile is one successfully relayed entry reported back at commit time.
type CommittedFile struct {
	TargetPath  string `json:"target_path"`
	StorageKey  string `json:"s3_path"`
	ETag        string `json:"etag"`
	ContentType string `json:"content_type"`
	FileSize    int64  `json:"file_size"`
}

// CommitBatchCopyInput is the DTO for the batched post-relay commit.
type CommitBatchCopyInput struct {
	TargetMountID uuid.UUID       `json:"target_mount_id" binding:"required"`
	Files         []CommittedFile `json:"files" binding:"required"`
}

// CopyService plans batch copies and commits relayed files. Same-mount copies
// use the store's native server-side copy; cross-mount copies hand the client
// a download/re-upload plan since no native copy exists between backends.
type CopyService interface {
	PlanBatchCopy(ctx context.Context, principal domain.Principal, input BatchCopyInput) (*BatchCopyResult, error)
	CommitBatchCopy(ctx context.Context, principal domain.Principal, input CommitBatchCopyInput) error
}

type copyService struct {
	files  port.FileMetaRepository
	mounts port.StorageMountRepository
	stores port.ObjectStoreResolver
	cfg    *config.TransferConfig
}

// NewCopyService creates a new CopyService implementation.
func NewCopyService(
	files port.FileMetaRepository,
	mounts port.StorageMountRepository,
	stores port.ObjectStoreResolver,
	cfg *config.TransferConfig,
) CopyService {
	return &copyService{
		files:  files,
		mounts: mounts,
		stores: stores,
		cfg:    cfg,
	}
}

// resolvedItem is one flattened source file with its target placement.
type resolvedItem struct {
	source domain.FileMeta
	target string
}

func (s *copyService) PlanBatchCopy(ctx context.Context, principal domain.Principal, input BatchCopyInput) (*BatchCopyResult, error) {
	if len(input.Items) == 0 {
		return nil, fmt.Errorf("%w: items must not be empty", domain.ErrValidation)
	}
	for _, item := range input.Items {
		if !principal.CanAccess(item.SourcePath) || !principal.CanAccess(item.TargetPath) {
			return nil, domain.ErrPermissionDenied
		}
	}

	resolved, err := s.flatten(ctx, input.Items)
	if err != nil {
		return nil, err
	}

	result := &BatchCopyResult{}
	if input.SkipExisting {
		kept := resolved[:0]
		for _, item := range resolved {
			exists, err := s.files.ExistsByPath(ctx, item.target)
			if err != nil {
				return nil, err
			}
			if exists {
				result.Skipped = append(result.Skipped, item.target)
				continue
			}
			kept = append(kept, item)
		}
		resolved = kept
	}

	for _, item := range resolved {
		targetMount, err := mountForPath(ctx, s.mounts, item.target)
		if err != nil {
			return nil, err
		}

		if targetMount.ID == item.source.MountID {
			meta, err := s.copyNative(ctx, principal, targetMount, item)
			if err != nil {
				return nil, err
			}
			result.Copied = append(result.Copied, *meta)
			continue
		}

		entry, err := s.planRelay(ctx, targetMount, item)
		if err != nil {
			return nil, err
		}
		result.Entries = append(result.Entries, *entry)
	}

	result.RequiresClientSideCopy = len(result.Entries) > 0
	log.Printf("copyService.PlanBatchCopy: %d native, %d relayed, %d skipped",
		len(result.Copied), len(result.Entries), len(result.Skipped))
	return result, nil
}

// flatten expands directory sources into their contained file records.
func (s *copyService) flatten(ctx context.Context, items []CopyItem) ([]resolvedItem, error) {
	var resolved []resolvedItem
	for _, item := range items {
		src := path.Clean("/" + item.SourcePath)
		dst := path.Clean("/" + item.TargetPath)

		meta, err := s.files.GetByPath(ctx, src)
		if err == nil {
			resolved = append(resolved, resolvedItem{source: *meta, target: dst})
			continue
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}

		// Not a file record: treat as a directory prefix.
		children, _, err := s.files.ListByPrefix(ctx, src+"/", 0, 10000)
		if err != nil {
			return nil, err
		}
		if len(children) == 0 {
			return nil, fmt.Errorf("%w: source %s", domain.ErrNotFound, src)
		}
		for _, child := range children {
			rel := strings.TrimPrefix(child.Path, src)
			resolved = append(resolved, resolvedItem{source: child, target: dst + rel})
		}
	}
	return resolved, nil
}

// copyNative performs a same-mount server-side copy and records the new file.
func (s *copyService) copyNative(ctx context.Context, principal domain.Principal, mount *domain.StorageMount, item resolvedItem) (*domain.FileMeta, error) {
	store, err := s.stores.ForMount(ctx, mount.ID)
	if err != nil {
		return nil, err
	}

	dstKey := storageKeyFor(mount, item.target)
	etag, err := store.CopyObject(ctx, item.source.StorageKey, dstKey, item.source.ContentType)
	if err != nil {
		return nil, err
	}

	meta := &domain.FileMeta{
		ID:          uuid.New(),
		Path:        item.target,
		Name:        path.Base(item.target),
		MountID:     mount.ID,
		StorageKey:  dstKey,
		ContentType: item.source.ContentType,
		Size:        item.source.Size,
		ETag:        etag,
		OwnerID:     principal.ID,
		OwnerKind:   principal.Kind,
		Status:      domain.FileStatusStored,
	}
	if err := s.files.Create(ctx, meta); err != nil {
		return nil, err
	}
	return meta, nil
}

// planRelay builds one cross-storage plan entry: a presigned download from the
// source mount and a presigned upload to the target mount.
func (s *copyService) planRelay(ctx context.Context, targetMount *domain.StorageMount, item resolvedItem) (*domain.CopyPlanEntry, error) {
	sourceStore, err := s.stores.ForMount(ctx, item.source.MountID)
	if err != nil {
		return nil, err
	}
	targetStore, err := s.stores.ForMount(ctx, targetMount.ID)
	if err != nil {
		return nil, err
	}

	downloadURL, err := sourceStore.PresignGetObject(ctx, item.source.StorageKey, s.cfg.PresignExpiry)
	if err != nil {
		return nil, err
	}

	dstKey := storageKeyFor(targetMount, item.target)
	uploadURL, err := targetStore.PresignPutObject(ctx, dstKey, item.source.ContentType, s.cfg.PresignExpiry)
	if err != nil {
		return nil, err
	}

	return &domain.CopyPlanEntry{
		SourceDownloadURL: downloadURL,
		TargetUploadURL:   uploadURL,
		TargetPath:        item.target,
		TargetStorageKey:  dstKey,
		TargetMountID:     targetMount.ID,
		ContentType:       item.source.ContentType,
		FileSize:          item.source.Size,
	}, nil
}

// CommitBatchCopy records every successfully relayed file in one transaction.
func (s *copyService) CommitBatchCopy(ctx context.Context, principal domain.Principal, input CommitBatchCopyInput) error {
	if len(input.Files) == 0 {
		return fmt.Errorf("%w: files must not be empty", domain.ErrValidation)
	}

	records := make([]domain.FileMeta, 0, len(input.Files))
	for _, f := range input.Files {
		if !principal.CanAccess(f.TargetPath) {
			return domain.ErrPermissionDenied
		}
		records = append(records, domain.FileMeta{
			ID:          uuid.New(),
			Path:        path.Clean("/" + f.TargetPath),
			Name:        path.Base(f.TargetPath),
			MountID:     input.TargetMountID,
			StorageKey:  f.StorageKey,
			ContentType: f.ContentType,
			Size:        f.FileSize,
			ETag:        f.ETag,
			OwnerID:     principal.ID,
			OwnerKind:   principal.Kind,
			Status:      domain.FileStatusStored,
		})
	}

	if err := s.files.CreateBatch(ctx, records); err != nil {
		return err
	}
	log.Printf("copyService.CommitBatchCopy: committed %d files to mount %s",
		len(records), input.TargetMountID)
	return nil
}
