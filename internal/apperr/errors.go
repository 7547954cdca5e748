package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrValidation    = errors.New("validation failed")
	ErrPersistence   = errors.New("persistence unavailable")
	ErrAlreadyExists = errors.New("already exists")
)
