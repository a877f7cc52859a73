package middleware

import "errors"

// ErrBadRequest marks client input that could not be read (bad JSON, broken multipart, bad path ids).
// ErrorHandler answers it with 400 and the wrapped message.
var ErrBadRequest = errors.New("invalid request")
