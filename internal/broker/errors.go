package broker

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrTimeout means no reply arrived within the call's deadline.
	ErrTimeout = errors.New("broker: no reply within timeout")
	// ErrUnavailable means the transport is down or the message could not
	// be handed to the broker at all.
	ErrUnavailable = errors.New("broker: transport unavailable")
	// ErrUnknownPattern is replied when a command names no registered handler.
	ErrUnknownPattern = errors.New("broker: unknown command pattern")
)

// RemoteError is a domain failure raised by a remote handler. StatusCode and
// Message are forwarded verbatim end to end: a 409 raised by the auth
// service must still read as a 409 at the gateway.
type RemoteError struct {
	StatusCode int
	Message    ErrorMessage
	Kind       string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote error %d (%s): %s", e.StatusCode, e.Kind, e.Message.String())
}

// Envelope converts the error to its wire shape.
func (e *RemoteError) Envelope() *ErrorEnvelope {
	return &ErrorEnvelope{StatusCode: e.StatusCode, Message: e.Message, Kind: e.Kind}
}

// AsRemote unwraps err into a RemoteError if one is in the chain.
func AsRemote(err error) (*RemoteError, bool) {
	var remote *RemoteError
	ok := errors.As(err, &remote)
	return remote, ok
}

// NewError builds a RemoteError with the conventional kind text for the
// status code. Services raise these from command handlers; everything else
// is flattened to a 500 at the reply boundary.
func NewError(statusCode int, message string) *RemoteError {
	return &RemoteError{
		StatusCode: statusCode,
		Message:    MessageString(message),
		Kind:       http.StatusText(statusCode),
	}
}

func NewBadRequest(message string) *RemoteError {
	return NewError(http.StatusBadRequest, message)
}

func NewUnauthorized(message string) *RemoteError {
	return NewError(http.StatusUnauthorized, message)
}

func NewForbidden(message string) *RemoteError {
	return NewError(http.StatusForbidden, message)
}

func NewNotFound(message string) *RemoteError {
	return NewError(http.StatusNotFound, message)
}

func NewConflict(message string) *RemoteError {
	return NewError(http.StatusConflict, message)
}

// NewValidationError carries one message per failed field, kept as a list
// on the wire.
func NewValidationError(messages ...string) *RemoteError {
	return &RemoteError{
		StatusCode: http.StatusBadRequest,
		Message:    MessageList(messages...),
		Kind:       http.StatusText(http.StatusBadRequest),
	}
}

// errorEnvelopeFor maps any handler error to the envelope sent back over
// the wire. Unknown errors never leak their text's origin as a status.
func errorEnvelopeFor(err error) *ErrorEnvelope {
	if remote, ok := AsRemote(err); ok {
		return remote.Envelope()
	}
	return &ErrorEnvelope{
		StatusCode: http.StatusInternalServerError,
		Message:    MessageString(err.Error()),
		Kind:       http.StatusText(http.StatusInternalServerError),
	}
}
