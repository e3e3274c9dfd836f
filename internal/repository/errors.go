package repository

import "errors"

// ErrNotFound is returned when a single-row lookup matches nothing,
// translated from gorm.ErrRecordNotFound so callers outside this package
// never need to import gorm.
var ErrNotFound = errors.New("repository: record not found")
