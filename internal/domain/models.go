package domain

import (
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Principal is the authenticated caller of a transfer operation, resolved by the
// auth middleware from either a bearer token or an API key.
type Principal struct {
	ID         uuid.UUID     `json:"id"`
	Kind       PrincipalKind `json:"kind"`
	Role       UserRole      `json:"role"`
	PathPrefix string        `json:"path_prefix"`
}

// CanAccess reports whether the principal may operate on the given logical path.
// An empty or "/" prefix grants access to everything.
func (p Principal) CanAccess(target string) bool {
	if target == "" {
		return false
	}
	prefix := path.Clean("/" + p.PathPrefix)
	if prefix == "/" {
		return true
	}
	cleaned := path.Clean("/" + target)
	return cleaned == prefix || strings.HasPrefix(cleaned, prefix+"/")
}

// StorageMount is a configured S3-compatible backend serving a logical path subtree.
type StorageMount struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	MountPath string    `db:"mount_path" json:"mount_path"`
	Bucket    string    `db:"bucket" json:"bucket"`
	Region    string    `db:"region" json:"region"`
	Endpoint  string    `db:"endpoint" json:"endpoint"`
	AccessKey string    `db:"access_key" json:"-"`
	SecretKey string    `db:"secret_key" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// UploadSession is one in-flight multipart or presigned upload. It is created by
// Init, read on every part call, and deleted by Complete or Abort; a session must
// never outlive its terminal call.
type UploadSession struct {
	ID           uuid.UUID     `db:"id" json:"id"`
	UploadID     string        `db:"upload_id" json:"upload_id"`
	StorageKey   string        `db:"storage_key" json:"storage_key"`
	TargetPath   string        `db:"target_path" json:"target_path"`
	MountID      uuid.UUID     `db:"mount_id" json:"mount_id"`
	Kind         UploadKind    `db:"kind" json:"kind"`
	DeclaredSize int64         `db:"declared_size" json:"declared_size"`
	ContentType  string        `db:"content_type" json:"content_type"`
	OwnerID      uuid.UUID     `db:"owner_id" json:"owner_id"`
	OwnerKind    PrincipalKind `db:"owner_kind" json:"owner_kind"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
}

// FileMeta is the persisted record of a stored file.
type FileMeta struct {
	ID          uuid.UUID     `db:"id" json:"id"`
	Path        string        `db:"path" json:"path"`
	Name        string        `db:"name" json:"name"`
	MountID     uuid.UUID     `db:"mount_id" json:"mount_id"`
	StorageKey  string        `db:"storage_key" json:"storage_key"`
	ContentType string        `db:"content_type" json:"content_type"`
	Size        int64         `db:"size" json:"size"`
	ETag        string        `db:"etag" json:"etag"`
	OwnerID     uuid.UUID     `db:"owner_id" json:"owner_id"`
	OwnerKind   PrincipalKind `db:"owner_kind" json:"owner_kind"`
	Status      FileStatus    `db:"status" json:"status"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updated_at"`
}

// APIKey is a stored API credential with a path scope. The raw secret is never
// persisted; only its bcrypt hash.
type APIKey struct {
	ID         uuid.UUID `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	Prefix     string    `db:"prefix" json:"prefix"`
	SecretHash string    `db:"secret_hash" json:"-"`
	PathPrefix string    `db:"path_prefix" json:"path_prefix"`
	Role       UserRole  `db:"role" json:"role"`
	IsActive   bool      `db:"is_active" json:"is_active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// UploadPartETag is one client-held part result. ETags come back from the store
// in whatever order part uploads finish; the complete call submits them sorted
// by part number.
type UploadPartETag struct {
	PartNumber int32  `json:"part_number"`
	ETag       string `json:"etag"`
}

// CopyPlanEntry is one file of a cross-storage copy plan: the client downloads
// from the source URL and re-uploads to the target URL.
type CopyPlanEntry struct {
	SourceDownloadURL string    `json:"source_download_url"`
	TargetUploadURL   string    `json:"target_upload_url"`
	TargetPath        string    `json:"target_path"`
	TargetStorageKey  string    `json:"target_storage_key"`
	TargetMountID     uuid.UUID `json:"target_mount_id"`
	ContentType       string    `json:"content_type"`
	FileSize          int64     `json:"file_size"`
}

// TransferTask is the in-memory, UI-facing record of one outstanding transfer.
// Never persisted; lost on restart by design.
type TransferTask struct {
	ID             uuid.UUID  `json:"id"`
	Kind           TaskKind   `json:"kind"`
	Status         TaskStatus `json:"status"`
	ProcessedCount int        `json:"processed_count"`
	TotalCount     int        `json:"total_count"`
	CurrentItem    string     `json:"current_item"`
	Error          string     `json:"error,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
