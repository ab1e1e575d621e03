package domain

// PrincipalKind distinguishes interactive users from API keys.
type PrincipalKind string

const (
	PrincipalUser   PrincipalKind = "user"
	PrincipalAPIKey PrincipalKind = "api_key"
)

// UserRole defines the role hierarchy.
type UserRole string

const (
	RoleAdmin  UserRole = "admin"
	RoleMember UserRole = "member"
)

// UploadKind distinguishes native multipart sessions from single-shot presigned ones.
type UploadKind string

const (
	UploadKindMultipart UploadKind = "multipart"
	UploadKindPresigned UploadKind = "presigned"
)

// FileStatus represents the lifecycle of a stored file record.
type FileStatus string

const (
	FileStatusPending FileStatus = "pending"
	FileStatusStored  FileStatus = "stored"
	FileStatusFailed  FileStatus = "failed"
	FileStatusDeleted FileStatus = "deleted"
)

// TaskKind is the type of a tracked transfer operation.
type TaskKind string

const (
	TaskKindUpload   TaskKind = "upload"
	TaskKindCopy     TaskKind = "copy"
	TaskKindDownload TaskKind = "download"
)

// TaskStatus is the lifecycle state of a tracked transfer operation.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusCancelled TaskStatus = "cancelled"
)
