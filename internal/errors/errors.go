package ierr

import (
	"github.com/cockroachdb/errors"
)

// Marker errors. Every error returned across a package boundary should be
// marked with exactly one of these so that callers and the HTTP layer can
// classify it with errors.Is.
var (
	ErrNotFound            = errors.New("not found")
	ErrAlreadyExists       = errors.New("already exists")
	ErrValidation          = errors.New("validation error")
	ErrInvalidOperation    = errors.New("invalid operation")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrHTTPClient          = errors.New("http client error")
	ErrDatabase            = errors.New("database error")
	ErrSystem              = errors.New("system error")
	ErrInternal            = errors.New("internal error")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

func IsDatabase(err error) bool {
	return errors.Is(err, ErrDatabase)
}

func IsUpstreamUnavailable(err error) bool {
	return errors.Is(err, ErrUpstreamUnavailable)
}
