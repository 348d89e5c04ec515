package store

import "errors"

var (
	ErrConfigNotFound = errors.New("store: config.json not found")
	ErrCorruptState   = errors.New("store: state file is corrupt")
)
