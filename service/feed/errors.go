package feed

import "errors"

var (
	// ErrUnavailable is returned when the upstream record source cannot be read.
	ErrUnavailable = errors.New("record source unavailable")

	// ErrNotFound is returned when the requested post is not among the post candidates.
	ErrNotFound = errors.New("post not found")

	// ErrMalformedRecord is returned when a record lacks the memo its kind requires.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrInvalidCursor is returned for negative page cursors.
	ErrInvalidCursor = errors.New("invalid cursor")
)
