package browser

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrNoSuchElement is returned by FindElement when nothing matches
	ErrNoSuchElement = errors.New("no such element")
	// ErrEmptyScreenshot is returned when the browser hands back zero bytes
	ErrEmptyScreenshot = errors.New("screenshot data is empty")
	// ErrEndpointNotConfigured is returned when a remote session is requested without an endpoint
	ErrEndpointNotConfigured = errors.New("browserless/chrome endpoint is not configured, set BROWSERLESS_HTTP_URL or CHROME_WS_ENDPOINT")
)

// LaunchError marks failures to start or connect to a browser.
type LaunchError struct {
	Err error
}

func (e *LaunchError) Error() string {
	return "browser launch failed: " + e.Err.Error()
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

func IsTimeoutErr(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || strings.Contains(strings.ToLower(err.Error()), "deadline exceeded")
}

// IsConnectionErr 远程连接类错误（握手/不可达）。
func IsConnectionErr(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "websocket") || strings.Contains(msg, "handshake") || strings.Contains(msg, "connect") || strings.Contains(msg, "dial")
}
