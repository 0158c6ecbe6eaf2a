package hoyolab

import (
	"errors"
	"fmt"
)

// Upstream failure taxonomy. Invalid cookies are permanent until the user
// re-submits; everything else is transient and retried on the next tick.
var (
	ErrInvalidCookie  = errors.New("hoyolab: invalid or expired cookie")
	ErrAlreadyClaimed = errors.New("hoyolab: daily reward already claimed")
)

// APIError is a non-zero retcode the taxonomy has no special case for.
type APIError struct {
	Retcode int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("hoyolab: retcode %d: %s", e.Retcode, e.Message)
}

func IsInvalidCookie(err error) bool { return errors.Is(err, ErrInvalidCookie) }

func IsAlreadyClaimed(err error) bool { return errors.Is(err, ErrAlreadyClaimed) }

// IsTransient reports whether the error should be retried on the next
// scheduled tick: every failure that is not a credential problem and not
// the already-claimed no-op.
func IsTransient(err error) bool {
	return err != nil && !IsInvalidCookie(err) && !IsAlreadyClaimed(err)
}

// retcode values the upstream API uses for the conditions we care about.
const (
	retOK             = 0
	retInvalidCookie  = -100
	retInvalidCookie2 = 10001
	retAlreadyClaimed = -5003
)

func retcodeError(retcode int, message string) error {
	switch retcode {
	case retOK:
		return nil
	case retInvalidCookie, retInvalidCookie2:
		return ErrInvalidCookie
	case retAlreadyClaimed:
		return ErrAlreadyClaimed
	default:
		return &APIError{Retcode: retcode, Message: message}
	}
}
