// Package browser wraps a headless Chrome session behind a small driver
// interface: navigate, evaluate named scripts, query elements, capture
// screenshots and release the session.
package browser

import (
	"context"
	"strings"
	"time"
)

// By selects how FindElement interprets a selector.
type By int

const (
	ByCSS By = iota
	ByXPath
)

func (b By) String() string {
	if b == ByXPath {
		return "xpath"
	}
	return "css"
}

// SelectorKind 以 "//" 开头视为 XPath，否则按 CSS 处理。
func SelectorKind(selector string) By {
	if strings.HasPrefix(selector, "//") {
		return ByXPath
	}
	return ByCSS
}

// Element is the extracted content of the first node matching a selector.
type Element struct {
	Text      string
	InnerHTML string
}

// Cookie mirrors the WebDriver cookie object accepted in request payloads.
type Cookie struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Domain   string `json:"domain,omitempty"`
	Path     string `json:"path,omitempty"`
	Secure   bool   `json:"secure,omitempty"`
	HTTPOnly bool   `json:"httpOnly,omitempty"`
	Expiry   int64  `json:"expiry,omitempty"`
	SameSite string `json:"sameSite,omitempty"`
}

// Viewport is the browser window size in CSS pixels.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Driver is one live browser session.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	Title(ctx context.Context) (string, error)
	CurrentURL(ctx context.Context) (string, error)
	// Execute runs script with args passed as JSON values; res may be nil.
	Execute(ctx context.Context, script Script, res any, args ...any) error
	FindElement(ctx context.Context, by By, selector string) (*Element, error)
	// WaitForElement blocks until a CSS selector matches or timeout elapses.
	WaitForElement(ctx context.Context, selector string, timeout time.Duration) error
	BodyText(ctx context.Context) (string, error)
	PageSource(ctx context.Context) (string, error)
	Screenshot(ctx context.Context) ([]byte, error)
	SetWindowSize(ctx context.Context, width, height int) error
	SetPageLoadTimeout(d time.Duration)
	SetExtraHeaders(ctx context.Context, headers map[string]string) error
	AddCookie(ctx context.Context, cookie Cookie) error
	Quit() error
}

// LaunchOptions configures a new session.
type LaunchOptions struct {
	Viewport Viewport
}

// Launcher creates sessions. Each call returns an independent session.
type Launcher interface {
	Launch(ctx context.Context, opts LaunchOptions) (Driver, error)
}
