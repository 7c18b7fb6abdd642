package domain

import "errors"

// ErrEmptyTitle is returned when a notice has no title to deliver.
var ErrEmptyTitle = errors.New("notice title is empty")

// ErrUnknownLevel is returned when a notice carries a level outside the
// known set.
var ErrUnknownLevel = errors.New("unknown notice level")
