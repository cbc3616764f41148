package utils

import "errors"

// Error classes. Callers classify failures with errors.Is; the wrapped
// message carries the offending path or value.
var (
	ErrConfiguration   = errors.New("configuration error")
	ErrConsistency     = errors.New("consistency error")
	ErrScaffold        = errors.New("scaffolding error")
	ErrDownload        = errors.New("download error")
	ErrShapeMismatch   = errors.New("shape mismatch")
	ErrIndexOutOfRange = errors.New("index out of range")
)
