package upload

import "errors"

var (
	// ErrFileTooLarge indicates the file exceeds its category ceiling.
	ErrFileTooLarge = errors.New("file too large")
	// ErrUnsupportedType indicates the file's media type does not match the category.
	ErrUnsupportedType = errors.New("unsupported file type for category")
	// ErrUnknownCategory indicates a category outside {videos, pictures}.
	ErrUnknownCategory = errors.New("unknown content category")
	// ErrUploadInProgress indicates Start was called while a task is still running.
	ErrUploadInProgress = errors.New("upload already in progress")
	// ErrTransportFailure wraps network or server failures reported by a Transport.
	ErrTransportFailure = errors.New("upload transport failure")
	// ErrTransportUnavailable indicates the pipeline has no transport configured.
	ErrTransportUnavailable = errors.New("upload transport unavailable")
)
