package httpclient

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failed exchange.
type Kind string

const (
	KindTimeout    Kind = "timeout"
	KindConnection Kind = "connection"
	KindRequest    Kind = "request"
	KindAuth       Kind = "auth"
	KindNotFound   Kind = "not_found"
	KindRateLimit  Kind = "rate_limit"
	KindServer     Kind = "server"
)

// Error describes a failed exchange. StatusCode is zero when no response
// arrived.
type Error struct {
	Kind       Kind
	StatusCode int
	Message    string
	Retryable  bool
	Body       []byte
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("httpclient: %s (HTTP %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("httpclient: %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func wrap(kind Kind, retryable bool, err error) *Error {
	return &Error{Kind: kind, Message: err.Error(), Retryable: retryable, Err: err}
}

// NewTimeoutError wraps a deadline hit before the response completed.
func NewTimeoutError(err error) *Error { return wrap(KindTimeout, true, err) }

// NewConnectionError wraps a transport failure: refused, reset, DNS or a
// body cut short.
func NewConnectionError(err error) *Error { return wrap(KindConnection, true, err) }

// NewRequestError wraps a request that could not be built or encoded.
func NewRequestError(err error) *Error { return wrap(KindRequest, false, err) }

// NewStatusError classifies a non-2xx response. 408, 429 and 5xx are
// retryable.
func NewStatusError(status int, body []byte) *Error {
	e := &Error{StatusCode: status, Message: http.StatusText(status), Body: body}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e.Kind = KindAuth
	case status == http.StatusNotFound || status == http.StatusGone:
		e.Kind = KindNotFound
	case status == http.StatusTooManyRequests:
		e.Kind, e.Retryable = KindRateLimit, true
	case status == http.StatusRequestTimeout:
		e.Kind, e.Retryable = KindTimeout, true
	case status >= 500:
		e.Kind, e.Retryable = KindServer, true
	default:
		e.Kind = KindRequest
	}
	if e.Message == "" {
		e.Message = fmt.Sprintf("HTTP %d", status)
	}
	return e
}

// checkStatus returns nil for 2xx responses.
func checkStatus(status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}
	return NewStatusError(status, body)
}

// IsNotFound reports whether err is a 404 or 410 response.
func IsNotFound(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindNotFound
}

// IsRetryable reports whether another attempt could succeed.
func IsRetryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable
}
