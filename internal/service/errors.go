package service

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrValidation     = errors.New("validation failed")
	ErrAdapterFailure = errors.New("platform adapter failure")
)
