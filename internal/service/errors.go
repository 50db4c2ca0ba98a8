package service

import "errors"

var (
	ErrNotFound     = errors.New("not_found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrStorage      = errors.New("storage_io")
	ErrInvalidInput = errors.New("invalid_input")
)
