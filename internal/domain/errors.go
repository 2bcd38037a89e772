package domain

import "errors"

// Sentinel validation errors returned by the domain types' Validate methods.
// Callers typically wrap these with apperr.Wrap(apperr.InvalidInput, ...) at
// the service boundary rather than returning them raw.
var (
	ErrInvalidArtifact        = errors.New("domain: fillable artifact must declare fill_fields")
	ErrVectorChunkMismatch    = errors.New("domain: vector_ids length must equal chunk_count")
	ErrInvalidPrimaryArtifact = errors.New("domain: primary_artifact_index out of range")
	ErrDuplicateMustBeRejected = errors.New("domain: duplicate pending update must have status rejected")
	ErrInvalidPriority        = errors.New("domain: priority must be between 1 and 10")
)
