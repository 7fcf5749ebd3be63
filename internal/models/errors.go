package models

import "errors"

var (
	// ErrInvalidRequest marks a message missing required fields.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrUnsupportedFileType marks input that is neither an image nor a PDF.
	ErrUnsupportedFileType = errors.New("unsupported file type")
	// ErrObjectNotFound is returned by object stores when the key does not exist.
	ErrObjectNotFound = errors.New("object not found")
	// ErrTransient marks failures that may succeed on a later attempt
	// (connectivity, throttling, 5xx responses).
	ErrTransient = errors.New("transient failure")
	// ErrPageFailed wraps a single page's render or recognition failure.
	ErrPageFailed = errors.New("page processing failed")
)

// IsTransient reports whether err was classified as retryable.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// UnsupportedTypeError describes input that could not be classified.
type UnsupportedTypeError struct {
	ContentType string
	Extension   string
}

func (e *UnsupportedTypeError) Error() string {
	return "unsupported file type: " + e.describe()
}

func (e *UnsupportedTypeError) Is(target error) bool {
	return target == ErrUnsupportedFileType
}

func (e *UnsupportedTypeError) describe() string {
	ct := e.ContentType
	if ct == "" {
		ct = "unknown content type"
	}
	ext := e.Extension
	if ext == "" {
		ext = "none"
	}
	return ct + " (extension: " + ext + ")"
}

// Detail returns the content type and extension without the error prefix.
func (e *UnsupportedTypeError) Detail() string {
	return e.describe()
}
