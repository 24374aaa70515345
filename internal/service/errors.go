package service

import "errors"

var (
	ErrBadRequest    = errors.New("bad request")
	ErrInvalidWindow = errors.New("invalid window key")
	ErrNotFound      = errors.New("not found")
)
