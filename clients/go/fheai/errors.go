package fheai

import (
	"errors"
	"fmt"
	"net/http"
)

// Rejections reported by the node. A *RevertError matches one of them with errors.Is.
var (
	ErrUnauthorized    = errors.New("Unauthorized")
	ErrNotOwner        = errors.New("Not owner")
	ErrNotFound        = errors.New("Invalid message id")
	ErrInvalidArgument = errors.New("Invalid argument")
	ErrAlreadyDeployed = errors.New("Contract already deployed")
	ErrNotDeployed     = errors.New("Contract not deployed")
)

// Client side failures.
var (
	ErrServiceUnavailable = errors.New("Encryption service not ready")
	ErrDecryptionFailed   = errors.New("Failed to decrypt AI response.")
)

// RevertError is a rejection returned by the node.
type RevertError struct {
	Status int
	Reason string
}

func (e *RevertError) Error() string {
	return fmt.Sprintf("fheai error %d: %s", e.Status, e.Reason)
}

// Is maps the HTTP status and reason onto the rejection sentinels.
func (e *RevertError) Is(target error) bool {
	switch e.Status {
	case http.StatusBadRequest:
		return target == ErrInvalidArgument
	case http.StatusUnauthorized:
		return target == ErrUnauthorized
	case http.StatusForbidden:
		if e.Reason == ErrNotOwner.Error() {
			return target == ErrNotOwner
		}
		return target == ErrUnauthorized
	case http.StatusNotFound:
		if e.Reason == ErrNotDeployed.Error() {
			return target == ErrNotDeployed
		}
		return target == ErrNotFound
	case http.StatusConflict:
		return target == ErrAlreadyDeployed
	}
	return false
}
