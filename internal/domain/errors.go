package domain

import (
	"errors"

	"github.com/iconidentify/teardown/pkg/provider"
)

// Domain errors.
var (
	// ErrAnalysisInProgress is returned when a run is already in flight.
	ErrAnalysisInProgress = errors.New("an analysis is already in progress")

	// ErrAnalysisNotFound is returned when an analysis cannot be found.
	ErrAnalysisNotFound = errors.New("analysis not found")

	// ErrEmptyMedia is returned when no video bytes were supplied.
	ErrEmptyMedia = errors.New("video file is empty")

	// ErrMediaTooLarge is returned when the video exceeds the upload limit.
	ErrMediaTooLarge = errors.New("video file too large")

	// ErrUnknownProvider is returned for an unsupported provider name.
	ErrUnknownProvider = provider.ErrUnknownProvider

	// ErrSettingNotFound is returned when a setting has no stored value.
	ErrSettingNotFound = errors.New("setting not found")

	// ErrInvalidSettingKey is returned for a key outside the fixed set.
	ErrInvalidSettingKey = errors.New("invalid setting key")
)

// AnalysisError wraps an error with analysis context.
type AnalysisError struct {
	ID  AnalysisID
	Op  string
	Err error
}

func (e *AnalysisError) Error() string {
	if e.ID != "" {
		return e.Op + " [" + e.ID.String() + "]: " + e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

// NewAnalysisError creates a new AnalysisError.
func NewAnalysisError(id AnalysisID, op string, err error) *AnalysisError {
	return &AnalysisError{
		ID:  id,
		Op:  op,
		Err: err,
	}
}
