package s3

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"driftbox/internal/port"
)

// MountCache resolves ObjectStore clients per storage mount, creating one
// client per mount record and reusing it for the life of the process.
type MountCache struct {
	mounts port.StorageMountRepository

	mu      sync.Mutex
	clients map[uuid.UUID]port.ObjectStore
}

// NewMountCache creates an ObjectStoreResolver backed by the mounts repository.
func NewMountCache(mounts port.StorageMountRepository) *MountCache {
	return &MountCache{
		mounts:  mounts,
		clients: make(map[uuid.UUID]port.ObjectStore),
	}
}

// ForMount returns the cached client for the mount, creating it on first use.
func (m *MountCache) ForMount(ctx context.Context, mountID uuid.UUID) (port.ObjectStore, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if client, ok := m.clients[mountID]; ok {
		return client, nil
	}

	mount, err := m.mounts.GetByID(ctx, mountID)
	if err != nil {
		return nil, fmt.Errorf("resolving mount %s: %w", mountID, err)
	}
	client, err := NewClient(mount)
	if err != nil {
		return nil, fmt.Errorf("creating client for mount %s: %w", mountID, err)
	}
	m.clients[mountID] = client
	return client, nil
}
