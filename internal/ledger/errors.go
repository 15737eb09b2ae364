package ledger

import (
	"errors"
)

// Error kinds. Every rejected call wraps exactly one of them.
var (
	ErrUnauthorized    = errors.New("Unauthorized")
	ErrNotOwner        = errors.New("Not owner")
	ErrNotFound        = errors.New("Invalid message id")
	ErrInvalidArgument = errors.New("Invalid argument")
	ErrAlreadyDeployed = errors.New("Contract already deployed")
	ErrNotDeployed     = errors.New("Contract not deployed")
)

// RevertError is a rejected call with the reason reported to the caller.
type RevertError struct {
	Kind   error
	Reason string
}

func (e *RevertError) Error() string {
	return e.Reason
}

func (e *RevertError) Unwrap() error {
	return e.Kind
}

func revert(kind error, reason string) error {
	return &RevertError{Kind: kind, Reason: reason}
}

// Reason returns the revert reason of err, or "" if err is not a rejection.
func Reason(err error) string {
	var re *RevertError
	if errors.As(err, &re) {
		return re.Reason
	}
	for _, kind := range []error{ErrUnauthorized, ErrNotOwner, ErrNotFound, ErrInvalidArgument, ErrAlreadyDeployed, ErrNotDeployed} {
		if errors.Is(err, kind) {
			return kind.Error()
		}
	}
	return ""
}
