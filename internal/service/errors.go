package service

import "errors"

var (
	ErrUnauthorized     = errors.New("authentication required")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidInput     = errors.New("invalid input")
	ErrNotFound         = errors.New("resource not found")
	ErrConflict         = errors.New("conflict with current state")
	ErrNotSupported     = errors.New("operation not supported")
)
