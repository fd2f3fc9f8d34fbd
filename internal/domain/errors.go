package domain

import "errors"

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrSessionNotFound = errors.New("session not found")
	ErrActiveRequest   = errors.New("active request exists")
	ErrCooldown        = errors.New("request too soon")
	ErrEmptySubmission = errors.New("nothing to submit")
	ErrMessageLimit    = errors.New("message limit exceeded")
)
