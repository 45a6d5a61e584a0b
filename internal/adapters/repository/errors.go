package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound   = errors.New("team not found")
	ErrRegression = errors.New("score ranks below current best")
	ErrEmptyTeam  = errors.New("team name is empty")
)
