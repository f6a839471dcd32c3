// Package server exposes the scrape handler over HTTP with gin, for running
// outside Lambda (containers, local development).
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/xiaocaoooo/screenshot-lambda/internal/browser"
	"github.com/xiaocaoooo/screenshot-lambda/internal/config"
	"github.com/xiaocaoooo/screenshot-lambda/internal/scrape"
)

const healthTimeout = 2 * time.Second

// Handler is implemented by scrape.Service.
type Handler interface {
	Fetch(ctx context.Context, req scrape.Request) *scrape.Response
	Invoke(ctx context.Context, event json.RawMessage) (any, error)
}

type Server struct {
	cfg     *config.Config
	handler Handler
	log     zerolog.Logger
	fs      afero.Fs
	now     func() time.Time
}

type Option func(*Server)

func WithLogger(log zerolog.Logger) Option {
	return func(s *Server) { s.log = log }
}

// WithFs sets the filesystem used to look up the local Chrome binary.
func WithFs(fs afero.Fs) Option {
	return func(s *Server) { s.fs = fs }
}

func New(cfg *config.Config, h Handler, opts ...Option) *Server {
	s := &Server{
		cfg:     cfg,
		handler: h,
		log:     zerolog.Nop(),
		fs:      afero.NewOsFs(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the gin engine.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/health", s.health)
	r.GET("/fetch", s.fetch)
	r.POST("/fetch", s.fetch)
	r.POST("/invoke", s.invoke)
	return r
}

// Run listens on cfg.Port until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", srv.Addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server start failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.log.Info().Msg("shutting down http server")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Request = c.Request.WithContext(s.log.WithContext(c.Request.Context()))
		c.Next()
		s.log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("http request")
	}
}

func (s *Server) fetch(c *gin.Context) {
	req, err := parseRequest(c)
	if err != nil {
		c.PureJSON(http.StatusBadRequest, gin.H{
			"success":    false,
			"error":      err.Error(),
			"error_type": scrape.ValidationError,
			"timestamp":  s.now().Unix(),
		})
		return
	}
	resp := s.handler.Fetch(c.Request.Context(), req)
	c.PureJSON(resp.StatusCode(), resp)
}

// invoke 接收原始 Lambda 事件，返回与 Lambda 完全相同的结果。
func (s *Server) invoke(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.PureJSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return
	}
	out, err := s.handler.Invoke(c.Request.Context(), body)
	if err != nil {
		c.PureJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.PureJSON(http.StatusOK, out)
}

func (s *Server) health(c *gin.Context) {
	// 没有可用浏览器时返回 503
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	payload := gin.H{"time": s.now().UTC().Format(time.RFC3339)}
	var err error
	if s.cfg.RemoteBrowser() {
		endpoint := browser.Endpoint{WSEndpoint: s.cfg.ChromeWSEndpoint, HTTPURL: s.cfg.BrowserlessHTTPURL}
		var wsURL string
		wsURL, err = endpoint.Resolve(ctx)
		payload["mode"] = "remote"
		payload["chrome_ws_endpoint"] = wsURL
		payload["browserless_http_url"] = s.cfg.BrowserlessHTTPURL
	} else {
		_, err = s.fs.Stat(s.cfg.ChromePath)
		payload["mode"] = "local"
		payload["chrome_path"] = s.cfg.ChromePath
	}

	status, state := http.StatusOK, "ok"
	if err != nil {
		status, state = http.StatusServiceUnavailable, "degraded"
		payload["details"] = err.Error()
	}
	payload["status"] = state
	payload["browser_available"] = err == nil
	c.JSON(status, payload)
}

func parseRequest(c *gin.Context) (scrape.Request, error) {
	if c.Request.Method == http.MethodGet {
		return parseRequestFromGET(c)
	}

	var req scrape.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		return req, errors.New("invalid JSON body")
	}
	return req, nil
}

func parseIntQuery(c *gin.Context, key string, defaultValue int) (int, error) {
	v := c.Query(key)
	if v == "" {
		return defaultValue, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be integer", key)
	}
	return i, nil
}

func parseFloatQuery(c *gin.Context, key string, defaultValue float64) (float64, error) {
	v := c.Query(key)
	if v == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be number", key)
	}
	return f, nil
}

func parseRequestFromGET(c *gin.Context) (scrape.Request, error) {
	req := scrape.Request{
		URL:        c.Query("url"),
		Method:     http.MethodGet,
		OutputType: scrape.OutputType(c.Query("output_type")),
		Selector:   c.Query("selector"),
		WaitFor:    c.Query("wait_for"),
	}

	var err error
	req.WaitTimeout, err = parseFloatQuery(c, "wait_timeout", 0)
	if err != nil {
		return req, err
	}
	req.PageLoadTimeout, err = parseFloatQuery(c, "page_load_timeout", 0)
	if err != nil {
		return req, err
	}

	// 0 表示使用默认值
	var vp browser.Viewport
	vp.Width, err = parseIntQuery(c, "viewport_width", 0)
	if err != nil {
		return req, err
	}
	vp.Height, err = parseIntQuery(c, "viewport_height", 0)
	if err != nil {
		return req, err
	}
	if vp.Width != 0 || vp.Height != 0 {
		req.Viewport = &vp
	}

	if raw := strings.TrimSpace(c.Query("headers")); raw != "" {
		headers := map[string]string{}
		if err := json.Unmarshal([]byte(raw), &headers); err != nil {
			return req, errors.New("headers must be a valid JSON object")
		}
		req.Headers = headers
	}
	if raw := strings.TrimSpace(c.Query("cookies")); raw != "" {
		var cookies []browser.Cookie
		if err := json.Unmarshal([]byte(raw), &cookies); err != nil {
			return req, errors.New("cookies must be a valid JSON array")
		}
		req.Cookies = cookies
	}

	return req, nil
}
