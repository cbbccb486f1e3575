package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrAlreadyExists   = errors.New("already exists")
	ErrTombstoned      = errors.New("id is tombstoned")
	ErrUnknownFormula  = errors.New("unknown custom formula")
	ErrUnknownStrategy = errors.New("unknown strategy type")
	ErrNoCompetitors   = errors.New("no competitor observations")
	ErrInvalidRule     = errors.New("invalid rule definition")
)
