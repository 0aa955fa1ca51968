package apptoken

import "errors"

var (
	// ErrServiceUnavailable is returned when the request has no session or the
	// session no longer resolves to a token. Callers cannot tell the two apart.
	ErrServiceUnavailable = errors.New("apptoken: session unavailable")

	// ErrNotFound is returned when a token does not exist or belongs to another user.
	ErrNotFound = errors.New("apptoken: token not found")
)
