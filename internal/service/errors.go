package service

import "errors"

var (
	// ErrEmptyContent is returned before any stage runs when the message body is blank.
	ErrEmptyContent = errors.New("content is required")
	// ErrClassifierFailed wraps every generative classifier failure, timeouts included.
	ErrClassifierFailed = errors.New("classifier failed")
)
