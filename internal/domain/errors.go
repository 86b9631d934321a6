package domain

import "errors"

// ErrNotFound is returned when a referenced entity does not exist.
var ErrNotFound = errors.New("entity not found")

// ErrDuplicateContent is returned when an article with the same content
// fingerprint already exists. It is a skip signal, not a failure.
var ErrDuplicateContent = errors.New("duplicate content")

// ErrPreconditionViolation is returned when a lifecycle transition is
// attempted on an article that does not satisfy the transition's gates.
var ErrPreconditionViolation = errors.New("precondition violation")

// ErrVersionConflict is returned when an optimistic save observes a version
// other than the one it loaded. The caller lost a concurrent write race.
var ErrVersionConflict = errors.New("version conflict")

// ErrInvalidArticle is returned when constructing an article with missing or
// out-of-range fields.
var ErrInvalidArticle = errors.New("invalid article")
