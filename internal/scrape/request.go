package scrape

import (
	"net/url"
	"strings"
	"time"

	"github.com/xiaocaoooo/screenshot-lambda/internal/browser"
	"github.com/xiaocaoooo/screenshot-lambda/internal/config"
)

// OutputType selects what the response carries.
type OutputType string

const (
	OutputText       OutputType = "text"
	OutputScreenshot OutputType = "screenshot"
	OutputBoth       OutputType = "both"
)

func (o OutputType) WantsText() bool {
	return o == OutputText || o == OutputBoth
}

func (o OutputType) WantsScreenshot() bool {
	return o == OutputScreenshot || o == OutputBoth
}

const (
	DefaultMethod   = "GET"
	DefaultSelector = "html"

	minViewportWidth  = 100
	maxViewportWidth  = 4096
	minViewportHeight = 100
	maxViewportHeight = 10000

	// Lambda 单次调用最长 15 分钟
	maxTimeoutSeconds = 900
)

// Request is one invocation payload. Only URL is required.
type Request struct {
	URL        string     `json:"url"`
	Method     string     `json:"method,omitempty"`
	OutputType OutputType `json:"output_type,omitempty"`
	// CSS selector, or XPath when it starts with "//"
	Selector string `json:"selector,omitempty"`
	WaitFor  string `json:"wait_for,omitempty"`
	// 秒
	WaitTimeout     float64           `json:"wait_timeout,omitempty"`
	PageLoadTimeout float64           `json:"page_load_timeout,omitempty"`
	Viewport        *browser.Viewport `json:"viewport,omitempty"`
	Headers         map[string]string `json:"headers,omitempty"`
	Cookies         []browser.Cookie  `json:"cookies,omitempty"`
	// 仅接收，不提交
	FormData map[string]any `json:"form_data,omitempty"`
}

func (r *Request) applyDefaults(cfg *config.Config) {
	r.URL = strings.TrimSpace(r.URL)
	r.Method = strings.ToUpper(strings.TrimSpace(r.Method))
	if r.Method == "" {
		r.Method = DefaultMethod
	}
	r.OutputType = OutputType(strings.ToLower(strings.TrimSpace(string(r.OutputType))))
	if r.OutputType == "" {
		r.OutputType = OutputText
	}
	if strings.TrimSpace(r.Selector) == "" {
		r.Selector = DefaultSelector
	}
	if r.WaitTimeout == 0 {
		r.WaitTimeout = cfg.DefaultWaitTimeout.Seconds()
	}
	if r.PageLoadTimeout == 0 {
		r.PageLoadTimeout = cfg.DefaultPageLoadTimeout.Seconds()
	}
	if r.Viewport == nil {
		r.Viewport = &browser.Viewport{}
	}
	if r.Viewport.Width == 0 {
		r.Viewport.Width = cfg.DefaultViewportWidth
	}
	if r.Viewport.Height == 0 {
		r.Viewport.Height = cfg.DefaultViewportHeight
	}
}

func (r *Request) validate() error {
	if r.URL == "" {
		return &Error{Type: ValidationError, Err: ErrURLRequired}
	}
	parsedURL, err := url.ParseRequestURI(r.URL)
	if err != nil || (parsedURL.Scheme != "http" && parsedURL.Scheme != "https") || parsedURL.Host == "" {
		return &Error{Type: ValidationError, Err: ErrInvalidURL}
	}

	if r.Method != "GET" && r.Method != "POST" {
		return &Error{Type: ValidationError, Err: ErrInvalidMethod}
	}

	switch r.OutputType {
	case OutputText, OutputScreenshot, OutputBoth:
	default:
		return &Error{Type: ValidationError, Err: ErrOutputType}
	}

	if !validTimeout(r.WaitTimeout) {
		return validationErr("wait_timeout must be between 0 and %d seconds", maxTimeoutSeconds)
	}
	if !validTimeout(r.PageLoadTimeout) {
		return validationErr("page_load_timeout must be between 0 and %d seconds", maxTimeoutSeconds)
	}

	if r.Viewport.Width < minViewportWidth || r.Viewport.Width > maxViewportWidth {
		return validationErr("viewport width must be between %d and %d", minViewportWidth, maxViewportWidth)
	}
	if r.Viewport.Height < minViewportHeight || r.Viewport.Height > maxViewportHeight {
		return validationErr("viewport height must be between %d and %d", minViewportHeight, maxViewportHeight)
	}

	for i, c := range r.Cookies {
		if strings.TrimSpace(c.Name) == "" {
			return validationErr("cookies[%d]: name is required", i)
		}
	}
	return nil
}

// Normalize fills defaults from cfg and validates the result.
func (r *Request) Normalize(cfg *config.Config) error {
	r.applyDefaults(cfg)
	return r.validate()
}

func (r *Request) waitTimeout() time.Duration {
	return seconds(r.WaitTimeout)
}

func (r *Request) pageLoadTimeout() time.Duration {
	return seconds(r.PageLoadTimeout)
}

// validTimeout 同时拒绝 NaN。
func validTimeout(v float64) bool {
	return v >= 0 && v <= maxTimeoutSeconds
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}
