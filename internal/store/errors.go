package store

import "fmt"

// Kind classifies store failures. Only import failures reach callers; the
// storage kinds are logged and recovered locally.
type Kind string

const (
	KindStorageReadFailed  Kind = "STORAGE_READ_FAILED"
	KindStorageWriteFailed Kind = "STORAGE_WRITE_FAILED"
	KindImportParseFailed  Kind = "IMPORT_PARSE_FAILED"
)

// ImportError is returned by ImportSnapshot when the input cannot be applied.
// The current document is left untouched.
type ImportError struct {
	Cause error
}

// Kind returns KindImportParseFailed.
func (e *ImportError) Kind() Kind {
	return KindImportParseFailed
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("%s: %v", KindImportParseFailed, e.Cause)
}

func (e *ImportError) Unwrap() error {
	return e.Cause
}

// MirrorError records a failed write of the document to storage.
type MirrorError struct {
	Kind  Kind
	Cause error
}

func (e *MirrorError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
}

func (e *MirrorError) Unwrap() error {
	return e.Cause
}
