package repository

import "errors"

// ErrExamNotFound is returned when no exam with the requested ID exists.
var ErrExamNotFound = errors.New("exam not found")
