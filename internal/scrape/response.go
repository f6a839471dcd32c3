package scrape

import (
	"bytes"
	"encoding/json"

	"github.com/xiaocaoooo/screenshot-lambda/internal/loading"
)

const ScreenshotFormatPNG = "png"

// Response is returned for every invocation, successful or not.
type Response struct {
	Success   bool   `json:"success"`
	URL       string `json:"url"`
	Title     string `json:"title"`
	Timestamp int64  `json:"timestamp"`

	// 文本输出；指针区分“未请求”与“空字符串”
	Text          *string `json:"text,omitempty"`
	HTML          *string `json:"html,omitempty"`
	SelectorError string  `json:"selector_error,omitempty"`

	Screenshot            string  `json:"screenshot,omitempty"`
	ScreenshotFormat      string  `json:"screenshot_format,omitempty"`
	ScreenshotSize        int     `json:"screenshot_size,omitempty"`
	ScreenshotTime        float64 `json:"screenshot_time,omitempty"`
	FallbackScreenshot    bool    `json:"fallback_screenshot,omitempty"`
	ScreenshotError       string  `json:"screenshot_error,omitempty"`
	FallbackError         string  `json:"fallback_error,omitempty"`
	ScreenshotURL         string  `json:"screenshot_url,omitempty"`
	ScreenshotUploadError string  `json:"screenshot_upload_error,omitempty"`

	LoadingInfo *loading.Info `json:"loading_info,omitempty"`

	Error     string    `json:"error,omitempty"`
	ErrorType ErrorType `json:"error_type,omitempty"`
}

// StatusCode is 200 for successful responses, otherwise derived from ErrorType.
func (r *Response) StatusCode() int {
	if r.Success || r.ErrorType == "" {
		return 200
	}
	return r.ErrorType.StatusCode()
}

// Marshal encodes r without HTML escaping so page text and markup stay readable.
func (r *Response) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func newErrorResponse(e *Error, ts int64) *Response {
	return &Response{
		Success:   false,
		Timestamp: ts,
		Error:     e.Error(),
		ErrorType: e.Type,
	}
}
