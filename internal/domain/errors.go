package domain

import "errors"

var (
	ErrNotFound           = errors.New("resource not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrPermissionDenied   = errors.New("permission denied for path")
	ErrValidation         = errors.New("validation failed")
	ErrStorageKeyMismatch = errors.New("storage key does not match upload session")
	ErrStoreRejected      = errors.New("object store rejected the request")
	ErrStoreUnavailable   = errors.New("object store unavailable")
	ErrCancelled          = errors.New("transfer cancelled")
	ErrUploadFailed       = errors.New("upload to storage failed")
	ErrDuplicateFile      = errors.New("file already exists at target path")
	ErrInvalidAPIKey      = errors.New("invalid api key")
)
