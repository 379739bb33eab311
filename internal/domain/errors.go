package domain

import "errors"

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrCompetitionNotFound = errors.New("competition not found")
	ErrCompetitionClosed   = errors.New("competition is not active")
	ErrInvalidChoice       = errors.New("invalid vote choice")
	ErrQueueUnavailable    = errors.New("vote queue unavailable")
	ErrDuplicateVote       = errors.New("duplicate vote submission")
	ErrUserNotFound        = errors.New("user not found")
	ErrUsernameTaken       = errors.New("username or email already exists")
	ErrInvalidCredentials  = errors.New("invalid username or password")
)
