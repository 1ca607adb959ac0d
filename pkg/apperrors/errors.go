package apperrors

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrMetadataUnavailable = errors.New("object metadata unavailable")
	ErrUnsupportedKind     = errors.New("unsupported object kind")
	ErrLockHeld            = errors.New("object lock held")
	ErrPreconditionFailed  = errors.New("execution precondition failed")
	ErrPartialApply        = errors.New("composite operation partially applied")
	ErrIntegrityViolation  = errors.New("post-execution integrity violation")
	ErrExecutionInFlight   = errors.New("execution already in flight for object")
)
