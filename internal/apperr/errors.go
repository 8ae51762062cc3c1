// Package apperr defines sentinel errors shared across drctl packages.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	ErrUnknownRepo   = errors.New("unknown repository")
	ErrAmbiguousRepo = errors.New("ambiguous repository")

	ErrDomainRequired    = errors.New("domain required")
	ErrInvalidName       = errors.New("invalid name")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrInvalidVersion    = errors.New("invalid semver")

	ErrNotGitRepo     = errors.New("not a git repository")
	ErrStagedConflict = errors.New("unrelated staged files")
)
