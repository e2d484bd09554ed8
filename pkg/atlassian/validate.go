package atlassian

import (
	"github.com/pkg/errors"
)

// ErrInvalidInput is wrapped by every client side validation failure.
var ErrInvalidInput = errors.New("invalid input")

// Invalid wraps ErrInvalidInput with a formatted reason.
func Invalid(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidInput, format, args...)
}
