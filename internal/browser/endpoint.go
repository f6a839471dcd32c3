package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Endpoint describes where a remote DevTools browser can be reached.
type Endpoint struct {
	// WSEndpoint 可以是完整 ws（含 /devtools/browser/<id>），也可以只有 host:port
	WSEndpoint string
	// HTTPURL 是 browserless 的 HTTP 地址，通过 /json/version 解析出 ws
	HTTPURL string
}

func (e Endpoint) Configured() bool {
	return strings.TrimSpace(e.WSEndpoint) != "" || strings.TrimSpace(e.HTTPURL) != ""
}

type cdpVersionResponse struct {
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

type cdpTargetPayload struct {
	Description          string `json:"description"`
	DevtoolsFrontendURL  string `json:"devtoolsFrontendUrl"`
	ID                   string `json:"id"`
	Title                string `json:"title"`
	Type                 string `json:"type"`
	URL                  string `json:"url"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

var endpointClient = &http.Client{Timeout: 5 * time.Second}

func hasDevToolsPath(wsRaw string) bool {
	wsRaw = strings.TrimSpace(wsRaw)
	if wsRaw == "" {
		return false
	}
	u, err := url.Parse(wsRaw)
	if err != nil {
		return false
	}
	// browser endpoint 常见是 /devtools/browser/<id>，page endpoint 常见是 /devtools/page/<id>
	return strings.HasPrefix(strings.TrimSpace(u.Path), "/devtools/")
}

func parseHTTPBase(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("browserless http url is empty")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid browserless http url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid browserless http url %q: scheme must be http/https", raw)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid browserless http url %q: missing host", raw)
	}
	return u, nil
}

func hostPortWithDefault(u *url.URL) (string, error) {
	host := u.Hostname()
	if host == "" {
		return "", fmt.Errorf("invalid http base %q: missing hostname", u.String())
	}

	port := u.Port()
	if port == "" {
		switch u.Scheme {
		case "http":
			port = "80"
		case "https":
			port = "443"
		default:
			return "", fmt.Errorf("invalid http base %q: unsupported scheme %q", u.String(), u.Scheme)
		}
	}
	return net.JoinHostPort(host, port), nil
}

// rewriteDebuggerURL 强制使用对外暴露的 host:port；browserless 常返回容器内部地址（ws://0.0.0.0:3000/...）。
func rewriteDebuggerURL(debuggerURL string, httpBase *url.URL) (string, error) {
	wsRaw := strings.TrimSpace(debuggerURL)
	if wsRaw == "" {
		return "", errors.New("missing webSocketDebuggerUrl")
	}

	wsU, err := url.Parse(wsRaw)
	if err != nil {
		return "", fmt.Errorf("invalid webSocketDebuggerUrl %q: %w", wsRaw, err)
	}
	if wsU.Scheme == "" || wsU.Host == "" {
		return "", fmt.Errorf("invalid webSocketDebuggerUrl %q: missing scheme or host", wsRaw)
	}

	hostPort, err := hostPortWithDefault(httpBase)
	if err != nil {
		return "", err
	}
	wsU.Scheme = "ws"
	if httpBase.Scheme == "https" {
		wsU.Scheme = "wss"
	}
	wsU.Host = hostPort
	return wsU.String(), nil
}

func httpBaseFromWSEndpoint(wsRaw string) (*url.URL, error) {
	wsRaw = strings.TrimSpace(wsRaw)
	if wsRaw == "" {
		return nil, errors.New("ws endpoint is empty")
	}

	u, err := url.Parse(wsRaw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("scheme must be ws/wss, got %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, errors.New("missing host")
	}

	httpScheme := "http"
	if u.Scheme == "wss" {
		httpScheme = "https"
	}
	// 保留 path（支持反向代理 base path），丢弃 query/fragment
	return &url.URL{Scheme: httpScheme, Host: u.Host, Path: u.Path}, nil
}

func devtoolsURL(base *url.URL, suffix string) string {
	u := *base
	u.Path = strings.TrimRight(u.Path, "/") + suffix
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

func getJSON(ctx context.Context, method, target string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return err
	}
	resp, err := endpointClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s returned %d: %s", target, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func resolveViaJSONNew(ctx context.Context, httpBase *url.URL) (string, error) {
	var payload cdpTargetPayload
	if err := getJSON(ctx, http.MethodPut, devtoolsURL(httpBase, "/json/new"), &payload); err != nil {
		return "", err
	}
	if !hasDevToolsPath(payload.WebSocketDebuggerURL) {
		return "", fmt.Errorf("/json/new returned non-devtools ws: %q", strings.TrimSpace(payload.WebSocketDebuggerURL))
	}
	return rewriteDebuggerURL(payload.WebSocketDebuggerURL, httpBase)
}

func resolveViaJSONList(ctx context.Context, httpBase *url.URL) (string, error) {
	var payloads []cdpTargetPayload
	if err := getJSON(ctx, http.MethodGet, devtoolsURL(httpBase, "/json/list"), &payloads); err != nil {
		return "", err
	}
	for _, p := range payloads {
		if !hasDevToolsPath(p.WebSocketDebuggerURL) {
			continue
		}
		rewritten, err := rewriteDebuggerURL(p.WebSocketDebuggerURL, httpBase)
		if err != nil {
			continue
		}
		return rewritten, nil
	}
	return "", fmt.Errorf("/json/list returned %d targets, but none has a usable devtools ws", len(payloads))
}

func resolveViaJSONVersion(ctx context.Context, httpBase *url.URL) (string, error) {
	log := zerolog.Ctx(ctx)

	var vr cdpVersionResponse
	if err := getJSON(ctx, http.MethodGet, devtoolsURL(httpBase, "/json/version"), &vr); err != nil {
		return "", err
	}

	raw := strings.TrimSpace(vr.WebSocketDebuggerURL)
	if hasDevToolsPath(raw) {
		return rewriteDebuggerURL(raw, httpBase)
	}

	// /json/version 可能只返回 ws://0.0.0.0:3000（无 /devtools/...），无法升级为 websocket，
	// 必须 fallback 到 /json/new 或 /json/list
	log.Debug().Str("ws", raw).Msg("json/version ws missing devtools path, trying json/new and json/list")

	resolved, err := resolveViaJSONNew(ctx, httpBase)
	if err == nil {
		return resolved, nil
	}
	log.Debug().Err(err).Msg("json/new fallback failed")

	resolved, err = resolveViaJSONList(ctx, httpBase)
	if err == nil {
		return resolved, nil
	}
	log.Debug().Err(err).Msg("json/list fallback failed")

	return "", fmt.Errorf("/json/version returned non-devtools ws (%q) and fallbacks (/json/new,/json/list) failed", raw)
}

// Resolve returns a DevTools websocket URL usable by chromedp.NewRemoteAllocator.
func (e Endpoint) Resolve(ctx context.Context) (string, error) {
	log := zerolog.Ctx(ctx)

	if ws := strings.TrimSpace(e.WSEndpoint); ws != "" {
		if u, err := url.Parse(ws); err == nil && strings.HasPrefix(u.Path, "/devtools/browser/") {
			return ws, nil
		}

		httpBase, err := httpBaseFromWSEndpoint(ws)
		if err != nil {
			return "", fmt.Errorf("invalid chrome ws endpoint %q: %w", ws, err)
		}
		resolved, err := resolveViaJSONVersion(ctx, httpBase)
		if err != nil {
			return "", err
		}
		log.Debug().Str("endpoint", ws).Str("resolved", resolved).Msg("resolved chrome ws endpoint")
		return resolved, nil
	}

	if strings.TrimSpace(e.HTTPURL) == "" {
		return "", ErrEndpointNotConfigured
	}

	httpBase, err := parseHTTPBase(e.HTTPURL)
	if err != nil {
		return "", err
	}
	resolved, err := resolveViaJSONVersion(ctx, httpBase)
	if err != nil {
		return "", err
	}
	log.Debug().Str("endpoint", e.HTTPURL).Str("resolved", resolved).Msg("resolved browserless endpoint")
	return resolved, nil
}
