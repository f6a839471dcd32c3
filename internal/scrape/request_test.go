package scrape

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaocaoooo/screenshot-lambda/internal/browser"
	"github.com/xiaocaoooo/screenshot-lambda/internal/config"
)

func TestRequestDefaults(t *testing.T) {
	cfg := config.DefaultConfig()
	req := Request{URL: " https://example.com "}

	require.NoError(t, req.Normalize(cfg))

	assert.Equal(t, "https://example.com", req.URL)
	assert.Equal(t, "GET", req.Method)
	assert.Equal(t, OutputText, req.OutputType)
	assert.Equal(t, "html", req.Selector)
	assert.Equal(t, 10*time.Second, req.waitTimeout())
	assert.Equal(t, 30*time.Second, req.pageLoadTimeout())
	assert.Equal(t, &browser.Viewport{Width: 1280, Height: 720}, req.Viewport)
}

func TestRequestKeepsExplicitValues(t *testing.T) {
	req := Request{
		URL:             "http://example.com/path?q=1",
		Method:          "post",
		OutputType:      "BOTH",
		Selector:        "//div[@id='x']",
		WaitTimeout:     2.5,
		PageLoadTimeout: 15,
		Viewport:        &browser.Viewport{Width: 1600, Height: 900},
	}

	require.NoError(t, req.Normalize(config.DefaultConfig()))

	assert.Equal(t, "POST", req.Method)
	assert.Equal(t, OutputBoth, req.OutputType)
	assert.Equal(t, "//div[@id='x']", req.Selector)
	assert.Equal(t, 2500*time.Millisecond, req.waitTimeout())
	assert.Equal(t, 15*time.Second, req.pageLoadTimeout())
	assert.Equal(t, 1600, req.Viewport.Width)
}

func TestRequestValidation(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want string
	}{
		{"missing url", Request{}, "url is required"},
		{"relative url", Request{URL: "example.com"}, "url must be a valid http/https URL"},
		{"ftp url", Request{URL: "ftp://example.com"}, "url must be a valid http/https URL"},
		{"bad method", Request{URL: "https://a.com", Method: "DELETE"}, "method must be GET or POST"},
		{"bad output", Request{URL: "https://a.com", OutputType: "pdf"}, "output_type must be one of"},
		{"negative wait", Request{URL: "https://a.com", WaitTimeout: -1}, "wait_timeout must be between 0 and 900 seconds"},
		{"negative load", Request{URL: "https://a.com", PageLoadTimeout: -1}, "page_load_timeout must be between 0 and 900 seconds"},
		{"huge wait", Request{URL: "https://a.com", WaitTimeout: 1e300}, "wait_timeout must be between 0 and 900 seconds"},
		{"huge load", Request{URL: "https://a.com", PageLoadTimeout: 901}, "page_load_timeout must be between 0 and 900 seconds"},
		{"nan wait", Request{URL: "https://a.com", WaitTimeout: math.NaN()}, "wait_timeout must be between 0 and 900 seconds"},
		{"narrow viewport", Request{URL: "https://a.com", Viewport: &browser.Viewport{Width: 50}}, "viewport width"},
		{"tall viewport", Request{URL: "https://a.com", Viewport: &browser.Viewport{Height: 20000}}, "viewport height"},
		{"nameless cookie", Request{URL: "https://a.com", Cookies: []browser.Cookie{{Value: "x"}}}, "cookies[0]: name is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Normalize(config.DefaultConfig())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Equal(t, ValidationError, Classify(err).Type)
		})
	}
}

func TestOutputType(t *testing.T) {
	assert.True(t, OutputText.WantsText())
	assert.False(t, OutputText.WantsScreenshot())
	assert.True(t, OutputScreenshot.WantsScreenshot())
	assert.False(t, OutputScreenshot.WantsText())
	assert.True(t, OutputBoth.WantsText())
	assert.True(t, OutputBoth.WantsScreenshot())
}
