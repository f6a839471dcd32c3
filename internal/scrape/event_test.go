package scrape

import (
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEvent(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte(`{"url":"https://b64.example.com"}`))

	tests := []struct {
		name    string
		event   string
		gateway bool
		url     string
	}{
		{"direct", `{"url":"https://example.com","output_type":"both"}`, false, "https://example.com"},
		{"direct with body only", `{"url":"https://example.com","body":"x"}`, false, "https://example.com"},
		{"direct with httpMethod only", `{"url":"https://example.com","httpMethod":"GET"}`, false, "https://example.com"},
		{"gateway string body", `{"httpMethod":"POST","body":"{\"url\":\"https://example.com\"}"}`, true, "https://example.com"},
		{"gateway object body", `{"httpMethod":"POST","body":{"url":"https://example.com"}}`, true, "https://example.com"},
		{"gateway null body", `{"httpMethod":"GET","body":null}`, true, ""},
		{"gateway empty body", `{"httpMethod":"GET","body":""}`, true, ""},
		{"gateway base64 body", `{"httpMethod":"POST","isBase64Encoded":true,"body":"` + encoded + `"}`, true, "https://b64.example.com"},
		{"empty event", ``, false, ""},
		{"null event", `null`, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := ParseEvent([]byte(tt.event))
			require.NoError(t, err)
			assert.Equal(t, tt.gateway, ev.Gateway)
			assert.Equal(t, tt.url, ev.Request.URL)
		})
	}
}

func TestParseEventErrors(t *testing.T) {
	for _, event := range []string{
		`[1,2]`,
		`{"url":42}`,
		`{"httpMethod":"POST","body":"{not json"}`,
		`{"httpMethod":"POST","isBase64Encoded":true,"body":"%%%"}`,
	} {
		ev, err := ParseEvent([]byte(event))
		require.Error(t, err, event)
		assert.True(t, errors.Is(err, ErrInvalidEvent), event)
		_ = ev
	}

	ev, err := ParseEvent([]byte(`{"httpMethod":"POST","body":"{not json"}`))
	require.Error(t, err)
	assert.True(t, ev.Gateway, "gateway shape is known even when the body is invalid")
}

func TestGatewayResponse(t *testing.T) {
	text := "<b>中文</b> & more"
	resp := &Response{Success: true, URL: "https://example.com", Text: &text}

	gw, err := GatewayResponse(resp)
	require.NoError(t, err)

	assert.Equal(t, 200, gw.StatusCode)
	assert.Equal(t, map[string]string{
		"Content-Type":                "application/json",
		"Access-Control-Allow-Origin": "*",
	}, gw.Headers)
	assert.Contains(t, gw.Body, `"text":"<b>中文</b> & more"`)
	assert.NotContains(t, gw.Body, "\n")

	failed := newErrorResponse(&Error{Type: TimeoutError, Err: errors.New("deadline exceeded")}, 1)
	gw, err = GatewayResponse(failed)
	require.NoError(t, err)
	assert.Equal(t, 504, gw.StatusCode)
	assert.JSONEq(t, `{"success":false,"url":"","title":"","timestamp":1,"error":"deadline exceeded","error_type":"TimeoutError"}`, gw.Body)
}

func TestErrorTypeStatusCode(t *testing.T) {
	assert.Equal(t, 400, ValidationError.StatusCode())
	assert.Equal(t, 504, TimeoutError.StatusCode())
	assert.Equal(t, 502, BrowserError.StatusCode())
	assert.Equal(t, 500, InternalError.StatusCode())
	assert.Nil(t, Classify(nil))
}
