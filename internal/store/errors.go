package store

import "errors"

// ErrNotFound indicates the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateSite indicates a site with the same name and address already exists.
var ErrDuplicateSite = errors.New("site already exists")

// ErrDuplicateMetadata indicates metadata for the session was already recorded.
var ErrDuplicateMetadata = errors.New("log metadata already recorded")
