package polls

import "errors"

var (
	// ErrNotFound means the poll id does not resolve.
	ErrNotFound = errors.New("poll not found")
	// ErrForbidden means the actor is neither the poll's creator nor an admin.
	ErrForbidden = errors.New("not allowed")
	// ErrInvalidStatus means the requested status is not open or closed.
	ErrInvalidStatus = errors.New("invalid status")
	// ErrInvalidInput means the poll shape is invalid (empty question,
	// fewer than two options, or an empty option label).
	ErrInvalidInput = errors.New("invalid poll input")
	// ErrRejectedByModeration means the content-moderation oracle
	// classified the poll as unsafe.
	ErrRejectedByModeration = errors.New("rejected by moderation")
)
