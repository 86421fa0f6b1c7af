package facade

import (
	"context"
	"errors"
	"net/http"

	"taskhub/internal/broker"
)

// CommandSender is the request/reply surface of broker.Client
type CommandSender interface {
	Send(ctx context.Context, queue, pattern string, payload any, out any) error
}

// HTTPError is a command failure translated to the status and body the
// gateway should answer with
type HTTPError struct {
	StatusCode int    `json:"statusCode"`
	Message    any    `json:"message"`
	Kind       string `json:"error"`
}

func (e *HTTPError) Error() string {
	return e.Kind
}

// MapError keeps a remote service's status and message intact while the
// transport failures collapse to generic gateway answers: a timeout is a
// 504 and a dead broker is a 502, neither leaking internals.
func MapError(err error) *HTTPError {
	if remote, ok := broker.AsRemote(err); ok {
		return &HTTPError{
			StatusCode: remote.StatusCode,
			Message:    remote.Message.Value(),
			Kind:       remote.Kind,
		}
	}
	if errors.Is(err, broker.ErrTimeout) {
		return &HTTPError{
			StatusCode: http.StatusGatewayTimeout,
			Message:    "Upstream service timed out",
			Kind:       http.StatusText(http.StatusGatewayTimeout),
		}
	}
	if errors.Is(err, broker.ErrUnavailable) {
		return &HTTPError{
			StatusCode: http.StatusBadGateway,
			Message:    "Upstream service unavailable",
			Kind:       http.StatusText(http.StatusBadGateway),
		}
	}
	return &HTTPError{
		StatusCode: http.StatusInternalServerError,
		Message:    "Internal server error",
		Kind:       http.StatusText(http.StatusInternalServerError),
	}
}
