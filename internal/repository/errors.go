package repository

import "errors"

// ErrNotFound is returned when a requested record does not exist in the database.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a submission_id is already stored.
var ErrDuplicate = errors.New("duplicate submission id")
