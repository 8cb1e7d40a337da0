package archive

import "errors"

var (
	// ErrInvalidInput reports a reference date that cannot be parsed.
	ErrInvalidInput = errors.New("invalid input")
	// ErrStoreUnavailable reports a failed listing call.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrFetchFailed reports a failed object download.
	ErrFetchFailed = errors.New("fetch failed")
	// ErrCompressionFailed reports a failure writing the zip archive.
	ErrCompressionFailed = errors.New("compression failed")
	// ErrUploadFailed reports a rejected archive upload.
	ErrUploadFailed = errors.New("upload failed")
)
