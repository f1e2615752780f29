package storage

import "errors"

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrFileOperation   = errors.New("file operation failed")
)
