package browser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasDevToolsPath(t *testing.T) {
	assert.True(t, hasDevToolsPath("ws://localhost:3000/devtools/browser/abc"))
	assert.True(t, hasDevToolsPath("ws://localhost:3000/devtools/page/abc"))
	assert.False(t, hasDevToolsPath("ws://0.0.0.0:3000"))
	assert.False(t, hasDevToolsPath(""))
}

func TestRewriteDebuggerURL(t *testing.T) {
	base, err := url.Parse("https://chrome.example.com")
	require.NoError(t, err)

	got, err := rewriteDebuggerURL("ws://0.0.0.0:3000/devtools/browser/abc", base)
	require.NoError(t, err)
	assert.Equal(t, "wss://chrome.example.com:443/devtools/browser/abc", got)

	base, _ = url.Parse("http://10.0.0.5:9222")
	got, err = rewriteDebuggerURL("ws://127.0.0.1:3000/devtools/page/1", base)
	require.NoError(t, err)
	assert.Equal(t, "ws://10.0.0.5:9222/devtools/page/1", got)

	_, err = rewriteDebuggerURL("", base)
	assert.Error(t, err)
	_, err = rewriteDebuggerURL("/devtools/browser/x", base)
	assert.Error(t, err)
}

func TestHTTPBaseFromWSEndpoint(t *testing.T) {
	u, err := httpBaseFromWSEndpoint("wss://proxy.example.com/chrome?token=x")
	require.NoError(t, err)
	assert.Equal(t, "https://proxy.example.com/chrome", u.String())

	_, err = httpBaseFromWSEndpoint("http://localhost:9222")
	assert.Error(t, err)
	_, err = httpBaseFromWSEndpoint("ws://")
	assert.Error(t, err)
}

func TestParseHTTPBase(t *testing.T) {
	_, err := parseHTTPBase("localhost:3000")
	assert.Error(t, err)
	_, err = parseHTTPBase("")
	assert.Error(t, err)
	u, err := parseHTTPBase(" http://localhost:3000 ")
	require.NoError(t, err)
	assert.Equal(t, "localhost:3000", u.Host)
}

func TestResolveFullWSEndpoint(t *testing.T) {
	ws := "ws://chrome:9222/devtools/browser/abc"
	got, err := Endpoint{WSEndpoint: ws}.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ws, got)
}

func TestResolveViaJSONVersion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/json/version", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"webSocketDebuggerUrl":"ws://0.0.0.0:3000/devtools/browser/xyz"}`))
	}))
	defer server.Close()

	got, err := Endpoint{HTTPURL: server.URL}.Resolve(context.Background())
	require.NoError(t, err)

	host := strings.TrimPrefix(server.URL, "http://")
	assert.Equal(t, "ws://"+host+"/devtools/browser/xyz", got)
}

func TestResolveFallsBackToJSONList(t *testing.T) {
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		switch r.URL.Path {
		case "/json/version":
			_, _ = w.Write([]byte(`{"webSocketDebuggerUrl":"ws://0.0.0.0:3000"}`))
		case "/json/new":
			w.WriteHeader(http.StatusMethodNotAllowed)
		case "/json/list":
			_, _ = w.Write([]byte(`[{"id":"1","webSocketDebuggerUrl":"ws://0.0.0.0"},{"id":"2","webSocketDebuggerUrl":"ws://0.0.0.0:3000/devtools/page/2"}]`))
		}
	}))
	defer server.Close()

	wsBase := strings.Replace(server.URL, "http://", "ws://", 1)
	got, err := Endpoint{WSEndpoint: wsBase}.Resolve(context.Background())
	require.NoError(t, err)

	host := strings.TrimPrefix(server.URL, "http://")
	assert.Equal(t, "ws://"+host+"/devtools/page/2", got)
	assert.Equal(t, []string{"GET /json/version", "PUT /json/new", "GET /json/list"}, paths)
}

func TestResolveAllFallbacksFail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/json/version":
			_, _ = w.Write([]byte(`{"webSocketDebuggerUrl":"ws://0.0.0.0:3000"}`))
		case "/json/list":
			_, _ = w.Write([]byte(`[]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	_, err := Endpoint{HTTPURL: server.URL}.Resolve(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fallbacks")
}

func TestResolveNotConfigured(t *testing.T) {
	e := Endpoint{}
	assert.False(t, e.Configured())
	_, err := e.Resolve(context.Background())
	assert.ErrorIs(t, err, ErrEndpointNotConfigured)
}
