package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"driftbox/internal/config"
	"driftbox/internal/domain"
)

// stubMountRepo serves a fixed mount list. The shared mocks package cannot be
// used here without an import cycle.
type stubMountRepo struct {
	mounts []domain.StorageMount
}

func (s *stubMountRepo) Create(_ context.Context, _ *domain.StorageMount) error { return nil }

func (s *stubMountRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.StorageMount, error) {
	for i := range s.mounts {
		if s.mounts[i].ID == id {
			return &s.mounts[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *stubMountRepo) List(_ context.Context) ([]domain.StorageMount, error) {
	return s.mounts, nil
}

func TestRecommendPartSize(t *testing.T) {
	cfg := &config.TransferConfig{
		MinPartSize:     5 * 1024 * 1024,
		MaxPartSize:     100 * 1024 * 1024,
		TargetPartCount: 200,
	}

	tests := []struct {
		name string
		size int64
		want int64
	}{
		{"small file clamps to floor", 26 * 1024 * 1024, 5 * 1024 * 1024},
		{"at the floor boundary", 1000 * 1024 * 1024, 5 * 1024 * 1024},
		{"mid-range rounds up to a whole MiB", 10 * 1024 * 1024 * 1024, 52 * 1024 * 1024},
		{"huge file clamps to ceiling", 100 * 1024 * 1024 * 1024 * 1024, 100 * 1024 * 1024},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, recommendPartSize(cfg, tt.size))
		})
	}
}

func TestStorageKeyFor(t *testing.T) {
	root := &domain.StorageMount{MountPath: "/"}
	archive := &domain.StorageMount{MountPath: "/archive"}

	assert.Equal(t, "docs/a.bin", storageKeyFor(root, "/docs/a.bin"))
	assert.Equal(t, "x/y.bin", storageKeyFor(archive, "/archive/x/y.bin"))
	assert.Equal(t, "a.bin", storageKeyFor(root, "a.bin"))
}

func TestMountForPath_LongestPrefixWins(t *testing.T) {
	rootID := uuid.New()
	archiveID := uuid.New()

	repo := &stubMountRepo{mounts: []domain.StorageMount{
		{ID: rootID, MountPath: "/"},
		{ID: archiveID, MountPath: "/archive"},
	}}

	m, err := mountForPath(context.Background(), repo, "/archive/old/f.bin")
	require.NoError(t, err)
	assert.Equal(t, archiveID, m.ID)

	m, err = mountForPath(context.Background(), repo, "/docs/f.bin")
	require.NoError(t, err)
	assert.Equal(t, rootID, m.ID)
}

func TestMountForPath_NoMountServesPath(t *testing.T) {
	repo := &stubMountRepo{mounts: []domain.StorageMount{
		{ID: uuid.New(), MountPath: "/archive"},
	}}

	_, err := mountForPath(context.Background(), repo, "/docs/f.bin")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestInferContentType(t *testing.T) {
	assert.Equal(t, "application/pdf", inferContentType("report.pdf"))
	assert.Equal(t, "application/octet-stream", inferContentType("blob.weirdext"))
	assert.Equal(t, "application/octet-stream", inferContentType("no-extension"))
}
