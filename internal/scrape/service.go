// Package scrape turns one invocation payload into a response: it opens a
// browser session, loads the page, normalizes fonts, extracts text and
// captures a screenshot.
package scrape

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/xiaocaoooo/screenshot-lambda/internal/browser"
	"github.com/xiaocaoooo/screenshot-lambda/internal/config"
	"github.com/xiaocaoooo/screenshot-lambda/internal/fonts"
	"github.com/xiaocaoooo/screenshot-lambda/internal/loading"
	"github.com/xiaocaoooo/screenshot-lambda/internal/screenshot"
	"github.com/xiaocaoooo/screenshot-lambda/internal/storage"
)

type Service struct {
	cfg      *config.Config
	launcher browser.Launcher
	fonts    *fonts.Handler
	loading  *loading.Strategy
	shots    *screenshot.Handler
	uploader storage.Uploader
	log      zerolog.Logger
	now      func() time.Time
}

type Option func(*Service)

func WithLauncher(l browser.Launcher) Option {
	return func(s *Service) { s.launcher = l }
}

func WithFonts(f *fonts.Handler) Option {
	return func(s *Service) { s.fonts = f }
}

func WithLoadingStrategy(l *loading.Strategy) Option {
	return func(s *Service) { s.loading = l }
}

func WithScreenshotHandler(h *screenshot.Handler) Option {
	return func(s *Service) { s.shots = h }
}

// WithUploader enables copying screenshots to object storage.
func WithUploader(u storage.Uploader) Option {
	return func(s *Service) { s.uploader = u }
}

func WithLogger(log zerolog.Logger) Option {
	return func(s *Service) { s.log = log }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService wires the default Chrome launcher and handlers from cfg; options override them.
func NewService(cfg *config.Config, opts ...Option) *Service {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	s := &Service{
		cfg: cfg,
		log: zerolog.Nop(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.launcher == nil {
		endpoint := browser.Endpoint{WSEndpoint: cfg.ChromeWSEndpoint, HTTPURL: cfg.BrowserlessHTTPURL}
		s.launcher = browser.NewChromeLauncher(cfg.ChromePath, endpoint, cfg.RemoteDialTimeout)
	}
	if s.fonts == nil {
		s.fonts = fonts.NewHandler(cfg.WebFontsURL, cfg.FontCSSPath, nil)
	}
	if s.loading == nil {
		s.loading = loading.NewStrategy()
	}
	if s.shots == nil {
		s.shots = screenshot.NewHandler(s.fonts, screenshot.WithGracePeriod(cfg.FontGracePeriod))
	}
	return s
}

// Invoke is the Lambda entry point. It accepts direct payloads and API
// Gateway events, and never returns an error for a request-level failure.
func (s *Service) Invoke(ctx context.Context, event json.RawMessage) (any, error) {
	ev, err := ParseEvent(event)
	var resp *Response
	if err != nil {
		resp = newErrorResponse(&Error{Type: ValidationError, Err: err}, s.now().Unix())
	} else {
		resp = s.Fetch(ctx, ev.Request)
	}

	if !ev.Gateway {
		return resp, nil
	}
	return GatewayResponse(resp)
}

func requestID(ctx context.Context) string {
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		return lc.AwsRequestID
	}
	return uuid.NewString()
}

// Fetch runs one request end to end. The browser session is always released.
func (s *Service) Fetch(ctx context.Context, req Request) (resp *Response) {
	log := s.log.With().Str("request_id", requestID(ctx)).Logger()
	ctx = log.WithContext(ctx)

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered from panic")
			resp = newErrorResponse(&Error{Type: InternalError, Err: fmt.Errorf("panic: %v", r)}, s.now().Unix())
		}
	}()

	if err := req.Normalize(s.cfg); err != nil {
		log.Warn().Err(err).Msg("invalid request")
		return newErrorResponse(Classify(err), s.now().Unix())
	}
	log = log.With().Str("url", req.URL).Logger()
	ctx = log.WithContext(ctx)
	log.Info().
		Str("output_type", string(req.OutputType)).
		Str("selector", req.Selector).
		Str("wait_for", req.WaitFor).
		Msg("fetch started")

	d, err := s.launcher.Launch(ctx, browser.LaunchOptions{Viewport: *req.Viewport})
	if err != nil {
		log.Error().Err(err).Msg("failed to start browser")
		return newErrorResponse(Classify(err), s.now().Unix())
	}
	defer func() {
		if err := d.Quit(); err != nil {
			log.Warn().Err(err).Msg("failed to quit browser")
		}
	}()

	resp, err = s.fetch(ctx, d, &req)
	if err != nil {
		e := Classify(err)
		log.Error().Err(err).Str("error_type", string(e.Type)).Msg("fetch failed")
		return newErrorResponse(e, s.now().Unix())
	}
	return resp
}

func (s *Service) fetch(ctx context.Context, d browser.Driver, req *Request) (*Response, error) {
	log := zerolog.Ctx(ctx)

	s.configure(ctx, d, req)

	if req.Method != DefaultMethod {
		log.Warn().Str("method", req.Method).Msg("only GET navigation is supported, form_data is ignored")
	}
	if len(req.Cookies) > 0 {
		// cookie 需要先进入目标域名
		if err := d.Navigate(ctx, req.URL); err != nil {
			log.Warn().Err(err).Msg("initial navigation for cookies failed")
		}
		for _, c := range req.Cookies {
			if err := d.AddCookie(ctx, c); err != nil {
				log.Warn().Err(err).Str("cookie", c.Name).Msg("failed to add cookie")
			}
		}
	}
	if err := d.Navigate(ctx, req.URL); err != nil {
		log.Warn().Err(err).Msg("navigation failed, continuing with current page")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info := s.loading.Execute(ctx, d, req.WaitFor, req.waitTimeout())
	enhanced := s.fonts.ApplyEnhanced(ctx, d)
	enhanced.Log(log)
	ready := s.fonts.WaitReady(ctx, d, s.cfg.FontsReadyTimeout)
	ready.Log(log)
	info.Steps = append(info.Steps, enhanced, ready)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp := &Response{
		Success:     true,
		URL:         req.URL,
		Timestamp:   s.now().Unix(),
		LoadingInfo: &info,
	}
	if u, err := d.CurrentURL(ctx); err == nil && u != "" {
		resp.URL = u
	}
	if title, err := d.Title(ctx); err == nil {
		resp.Title = title
	} else {
		log.Warn().Err(err).Msg("failed to read title")
	}

	if req.OutputType.WantsText() {
		s.extract(ctx, d, req.Selector, resp)
	}
	if req.OutputType.WantsScreenshot() {
		s.screenshot(ctx, d, resp)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log.Info().
		Str("title", resp.Title).
		Bool("content_loaded", info.ContentLoaded).
		Int("screenshot_size", resp.ScreenshotSize).
		Msg("fetch finished")
	return resp, nil
}

// configure 应用会话级设置；失败只记录日志。
func (s *Service) configure(ctx context.Context, d browser.Driver, req *Request) {
	log := zerolog.Ctx(ctx)
	d.SetPageLoadTimeout(req.pageLoadTimeout())
	if err := d.SetWindowSize(ctx, req.Viewport.Width, req.Viewport.Height); err != nil {
		log.Warn().Err(err).Msg("failed to set viewport")
	}
	if len(req.Headers) > 0 {
		if err := d.SetExtraHeaders(ctx, req.Headers); err != nil {
			log.Warn().Err(err).Msg("failed to set extra headers")
		}
	}
}

// extract reads the first element matching selector, falling back to the
// whole body text and page source when it cannot be found.
func (s *Service) extract(ctx context.Context, d browser.Driver, selector string, resp *Response) {
	log := zerolog.Ctx(ctx)
	by := browser.SelectorKind(selector)

	el, err := d.FindElement(ctx, by, selector)
	if err == nil {
		resp.Text = &el.Text
		resp.HTML = &el.InnerHTML
		return
	}

	log.Warn().Err(err).Str("selector", selector).Str("by", by.String()).Msg("selector lookup failed, using whole page")
	resp.SelectorError = err.Error()

	text, err := d.BodyText(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to read body text")
	}
	html, err := d.PageSource(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to read page source")
	}
	resp.Text = &text
	resp.HTML = &html
}

func (s *Service) screenshot(ctx context.Context, d browser.Driver, resp *Response) {
	res := s.shots.Capture(ctx, d)
	resp.ScreenshotTime = res.Elapsed.Seconds()
	if !res.Success {
		resp.ScreenshotError = res.Error
		resp.FallbackError = res.FallbackError
		return
	}

	resp.Screenshot = base64.StdEncoding.EncodeToString(res.Data)
	resp.ScreenshotFormat = ScreenshotFormatPNG
	resp.ScreenshotSize = res.Size
	resp.FallbackScreenshot = res.Fallback

	if s.uploader == nil {
		return
	}
	key := storage.ScreenshotKey(s.cfg.ScreenshotPrefix, s.now())
	url, err := s.uploader.Upload(ctx, key, res.Data, storage.ContentTypePNG)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("screenshot upload failed")
		resp.ScreenshotUploadError = err.Error()
		return
	}
	resp.ScreenshotURL = url
}
