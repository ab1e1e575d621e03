package service

import (
	"context"
	"fmt"
	"mime"
	"path"
	"path/filepath"
	"strings"

	"driftbox/internal/config"
	"driftbox/internal/domain"
	"driftbox/internal/port"
)

// mountForPath resolves the storage mount serving a logical path by longest
// mount-path prefix match.
func mountForPath(ctx context.Context, mounts port.StorageMountRepository, target string) (*domain.StorageMount, error) {
	all, err := mounts.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing mounts: %w", err)
	}

	cleaned := path.Clean("/" + target)
	var best *domain.StorageMount
	for i := range all {
		m := &all[i]
		mp := path.Clean("/" + m.MountPath)
		if mp != "/" && cleaned != mp && !strings.HasPrefix(cleaned, mp+"/") {
			continue
		}
		if best == nil || len(m.MountPath) > len(best.MountPath) {
			best = m
		}
	}
	if best == nil {
		return nil, fmt.Errorf("no mount serves path %q: %w", target, domain.ErrNotFound)
	}
	return best, nil
}

// storageKeyFor derives the object-store key for a logical path on a mount.
// The key is the path relative to the mount point, without a leading slash.
func storageKeyFor(mount *domain.StorageMount, target string) string {
	cleaned := path.Clean("/" + target)
	mp := path.Clean("/" + mount.MountPath)
	key := cleaned
	if mp != "/" {
		key = strings.TrimPrefix(cleaned, mp)
	}
	return strings.TrimPrefix(key, "/")
}

// inferContentType derives the content type from the filename extension only.
// Client-declared MIME types are never trusted.
func inferContentType(filename string) string {
	if ct := mime.TypeByExtension(filepath.Ext(filename)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// recommendPartSize picks a part size that keeps the part count near the
// configured target for the declared size, rounded up to a whole MiB and
// clamped to the store's minimum (all but the last part) and the configured
// maximum.
func recommendPartSize(cfg *config.TransferConfig, declaredSize int64) int64 {
	const mib = int64(1 << 20)

	size := declaredSize / cfg.TargetPartCount
	if declaredSize%cfg.TargetPartCount != 0 {
		size++
	}
	if rem := size % mib; rem != 0 {
		size += mib - rem
	}
	if size < cfg.MinPartSize {
		size = cfg.MinPartSize
	}
	if size > cfg.MaxPartSize {
		size = cfg.MaxPartSize
	}
	return size
}
