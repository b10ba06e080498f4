package pipeline

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is; every pipeline error matches exactly one.
var (
	ErrValidation = errors.New("validation failed")
	ErrUpstream   = errors.New("upstream failed")
	ErrStorage    = errors.New("storage failed")
)

// ValidationError is a missing or empty input. Nothing was written.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// UpstreamError is a failed capability call. Writes made before it stay.
type UpstreamError struct {
	Stage string // "transcribe", "synthesize", "analyze"
	Err   error
}

func (e *UpstreamError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }
func (e *UpstreamError) Unwrap() error { return e.Err }
func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstream
}

// StorageError is a failed filesystem write. Writes made before it stay.
type StorageError struct {
	Op   string // "save artifact", "save report"
	Name string
	Err  error
}

func (e *StorageError) Error() string { return fmt.Sprintf("%s %s: %v", e.Op, e.Name, e.Err) }
func (e *StorageError) Unwrap() error { return e.Err }
func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}
