package config

import "errors"

var (
	// ErrInvalidTimeout is returned when a configured timeout is not greater than 0
	ErrInvalidTimeout = errors.New("timeouts must be greater than 0")
	// ErrInvalidViewport is returned when the default viewport is out of range
	ErrInvalidViewport = errors.New("default viewport must be within 100x100 and 4096x10000")
	// ErrNoBrowser is returned when neither a local binary nor a remote endpoint is configured
	ErrNoBrowser = errors.New("chrome_path, chrome_ws_endpoint or browserless_http_url must be set")
	// ErrInvalidPort is returned when the HTTP port is empty
	ErrInvalidPort = errors.New("port cannot be empty")
)
