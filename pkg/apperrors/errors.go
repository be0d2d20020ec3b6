package apperrors

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrSnapshotUnavailable  = errors.New("no metadata snapshot published")
	ErrDiscoveryUnavailable = errors.New("catalog discovery unavailable")
)
