package quota

import (
	"errors"
)

// ErrExceeded is returned when an operation would push a user past the
// weekly booking limit.
var ErrExceeded = errors.New("weekly booking limit reached")

func IsErrExceeded(err error) bool {
	return errors.Is(err, ErrExceeded)
}
