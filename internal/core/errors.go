package core

import (
	"errors"
	"fmt"

	"github.com/valter-silva-au/limbguide/internal/storage"
)

// ErrNotFound is returned when a topic, parent or level lookup misses.
var ErrNotFound = errors.New("not found")

// FlowErrorKind classifies why handling an event failed.
type FlowErrorKind string

const (
	FlowUnavailable    FlowErrorKind = "unavailable"
	FlowNotFound       FlowErrorKind = "not_found"
	FlowWriteFailed    FlowErrorKind = "write_failed"
	FlowDeliveryFailed FlowErrorKind = "delivery_failed"
)

// FlowError is a handler failure carrying the message shown to the user.
type FlowError struct {
	Kind    FlowErrorKind
	Message string
	Err     error
}

func (e *FlowError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *FlowError) Unwrap() error { return e.Err }

func notFound(message string, err error) *FlowError {
	if err == nil {
		err = ErrNotFound
	}
	return &FlowError{Kind: FlowNotFound, Message: message, Err: err}
}

// AsFlowError maps any handler error to a FlowError. Unknown errors are
// treated as the service being unavailable.
func AsFlowError(err error) *FlowError {
	var fe *FlowError
	if errors.As(err, &fe) {
		return fe
	}
	switch {
	case errors.Is(err, storage.ErrTreeUnavailable):
		return &FlowError{Kind: FlowUnavailable, Message: MsgUnavailable, Err: err}
	case errors.Is(err, storage.ErrWriteFailed):
		return &FlowError{Kind: FlowWriteFailed, Message: MsgSaveFailed, Err: err}
	case errors.Is(err, ErrNotFound):
		return &FlowError{Kind: FlowNotFound, Message: MsgTopicNotFound, Err: err}
	default:
		return &FlowError{Kind: FlowUnavailable, Message: MsgUnavailable, Err: err}
	}
}

// mutationError turns a failed tree mutation into a FlowError, using
// writeMsg when the change could not be persisted.
func mutationError(err error, writeMsg string) error {
	switch {
	case errors.Is(err, storage.ErrWriteFailed):
		return &FlowError{Kind: FlowWriteFailed, Message: writeMsg, Err: err}
	case errors.Is(err, ErrNotFound):
		return notFound(MsgTopicNotFound, err)
	}
	return err
}
