package booking

import (
	"errors"
)

var (
	ErrValidation       = errors.New("validation failed")
	ErrConflict         = errors.New("conflict")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrNotFound         = errors.New("not found")
	ErrStoreUnavailable = errors.New("store unavailable")
)

func IsErrValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

func IsErrConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

func IsErrUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

func IsErrNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsErrStoreUnavailable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}
