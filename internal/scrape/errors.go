package scrape

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/xiaocaoooo/screenshot-lambda/internal/browser"
)

// ErrorType is reported to callers as error_type.
type ErrorType string

const (
	ValidationError ErrorType = "ValidationError"
	TimeoutError    ErrorType = "TimeoutError"
	BrowserError    ErrorType = "BrowserError"
	InternalError   ErrorType = "InternalError"
)

// StatusCode is the HTTP status used for the type in gateway and server responses.
func (t ErrorType) StatusCode() int {
	switch t {
	case ValidationError:
		return http.StatusBadRequest
	case TimeoutError:
		return http.StatusGatewayTimeout
	case BrowserError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

var (
	ErrURLRequired   = errors.New("url is required")
	ErrInvalidURL    = errors.New("url must be a valid http/https URL")
	ErrInvalidMethod = errors.New("method must be GET or POST")
	ErrOutputType    = errors.New("output_type must be one of: text, screenshot, both")
	ErrInvalidEvent  = errors.New("invalid event payload")
)

// Error is a classified invocation failure.
type Error struct {
	Type ErrorType
	Err  error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func validationErr(format string, args ...any) *Error {
	return &Error{Type: ValidationError, Err: fmt.Errorf(format, args...)}
}

// Classify maps err onto an ErrorType. Timeouts win over connection failures.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	var launchErr *browser.LaunchError
	switch {
	case browser.IsTimeoutErr(err):
		return &Error{Type: TimeoutError, Err: err}
	case errors.As(err, &launchErr), browser.IsConnectionErr(err):
		return &Error{Type: BrowserError, Err: err}
	default:
		return &Error{Type: InternalError, Err: err}
	}
}
