package domain

import "errors"

// ErrNotFound is returned by repo and service functions when the requested
// item does not exist in the store.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned when input fails business rule validation
// (e.g. missing description, missing image, payload that is not an image).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrPermission is returned by mutating service calls when the caller is not
// an administrator. No side effects have happened when it is returned.
// Handlers should map this to HTTP 403.
var ErrPermission = errors.New("permission denied")

// ErrUpload is returned when the photo could not be written to image storage.
// Handlers should map this to HTTP 502.
var ErrUpload = errors.New("upload failed")
