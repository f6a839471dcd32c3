package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"

	"github.com/xiaocaoooo/screenshot-lambda/internal/logging"
)

// ChromeLauncher starts a local Chrome binary or connects to a remote one.
type ChromeLauncher struct {
	ExecPath    string
	Flags       []string
	Endpoint    Endpoint
	DialTimeout time.Duration
	// TempDir is the parent for per-session scratch directories; empty means os.TempDir.
	TempDir string
}

// NewChromeLauncher uses the optimized flag catalog.
func NewChromeLauncher(execPath string, endpoint Endpoint, dialTimeout time.Duration) *ChromeLauncher {
	return &ChromeLauncher{
		ExecPath:    execPath,
		Flags:       AllOptimizedFlags(),
		Endpoint:    endpoint,
		DialTimeout: dialTimeout,
	}
}

func (l *ChromeLauncher) Launch(ctx context.Context, opts LaunchOptions) (Driver, error) {
	log := zerolog.Ctx(ctx)
	s := &chromeSession{pageLoadTimeout: 30 * time.Second}

	var allocCtx context.Context
	if l.Endpoint.Configured() {
		wsURL, err := l.Endpoint.Resolve(ctx)
		if err != nil {
			return nil, &LaunchError{Err: err}
		}
		log.Info().Str("ws", wsURL).Msg("using remote chrome")
		allocCtx, s.allocCancel = chromedp.NewRemoteAllocator(ctx, wsURL)
	} else {
		for _, dir := range []*string{&s.userDataDir, &s.dataPath, &s.diskCacheDir} {
			d, err := os.MkdirTemp(l.TempDir, "chrome-")
			if err != nil {
				s.removeTempDirs()
				return nil, &LaunchError{Err: fmt.Errorf("create temp dir: %w", err)}
			}
			*dir = d
		}
		flags := append(append([]string{}, l.Flags...), SessionFlags(opts.Viewport, s.userDataDir, s.dataPath, s.diskCacheDir)...)
		allocCtx, s.allocCancel = chromedp.NewExecAllocator(ctx, ExecAllocatorOptions(l.ExecPath, flags)...)
	}

	chromeLog := log.With().Str("component", "chromedp").Logger()
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithErrorf(logging.Printf(chromeLog, zerolog.DebugLevel)),
	)
	var once sync.Once
	s.ctx, s.cancel = tabCtx, func() { once.Do(tabCancel) }

	// 首次 Run 会分配浏览器，必须用会话本身的 ctx；超时改由 timer 取消整个会话
	dialTimeout := l.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 30 * time.Second
	}
	timer := time.AfterFunc(dialTimeout, s.cancel)
	err := chromedp.Run(s.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := page.GetFrameTree().Do(ctx)
		return err
	}))
	if !timer.Stop() {
		err = fmt.Errorf("chrome did not respond within %s: %w", dialTimeout, context.DeadlineExceeded)
	}
	if err != nil {
		_ = s.Quit()
		return nil, &LaunchError{Err: err}
	}

	return s, nil
}

type chromeSession struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc

	pageLoadTimeout time.Duration

	userDataDir  string
	dataPath     string
	diskCacheDir string
}

// run 在会话上下文中执行 actions，同时遵守调用方 ctx 的取消。
func (s *chromeSession) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

func (s *chromeSession) Navigate(ctx context.Context, url string) error {
	navCtx, cancel := context.WithTimeout(ctx, s.pageLoadTimeout)
	defer cancel()
	return s.run(navCtx, chromedp.Navigate(url))
}

func (s *chromeSession) Title(ctx context.Context) (string, error) {
	var title string
	err := s.run(ctx, chromedp.Title(&title))
	return title, err
}

func (s *chromeSession) CurrentURL(ctx context.Context) (string, error) {
	var loc string
	err := s.run(ctx, chromedp.Location(&loc))
	return loc, err
}

func awaitPromise(p *runtime.EvaluateParams) *runtime.EvaluateParams {
	return p.WithAwaitPromise(true)
}

func (s *chromeSession) Execute(ctx context.Context, script Script, res any, args ...any) error {
	expr, err := script.Expression(args...)
	if err != nil {
		return err
	}
	if err := s.run(ctx, chromedp.Evaluate(expr, res, awaitPromise)); err != nil {
		return fmt.Errorf("script %s: %w", script.Name, err)
	}
	return nil
}

var findElementScript = Script{
	Name: "find-element",
	Source: `function(kind, selector) {
		let el = null;
		if (kind === "xpath") {
			el = document.evaluate(selector, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue;
		} else {
			el = document.querySelector(selector);
		}
		if (!el) {
			return { found: false };
		}
		const text = typeof el.innerText === "string" ? el.innerText : (el.textContent || "");
		return { found: true, text: text, html: el.innerHTML || "" };
	}`,
}

type foundElement struct {
	Found bool   `json:"found"`
	Text  string `json:"text"`
	HTML  string `json:"html"`
}

// FindElement 不等待元素出现；非法选择器会让 querySelector/evaluate 抛错并作为 error 返回。
func (s *chromeSession) FindElement(ctx context.Context, by By, selector string) (*Element, error) {
	var res foundElement
	if err := s.Execute(ctx, findElementScript, &res, by.String(), selector); err != nil {
		return nil, fmt.Errorf("find %s %q: %w", by, selector, err)
	}
	if !res.Found {
		return nil, fmt.Errorf("find %s %q: %w", by, selector, ErrNoSuchElement)
	}
	return &Element{Text: res.Text, InnerHTML: res.HTML}, nil
}

func (s *chromeSession) WaitForElement(ctx context.Context, selector string, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.run(waitCtx, chromedp.WaitReady(selector, chromedp.ByQuery))
}

var bodyTextScript = Script{
	Name:   "body-text",
	Source: `function() { return document.body ? document.body.innerText : ""; }`,
}

func (s *chromeSession) BodyText(ctx context.Context) (string, error) {
	var text string
	err := s.Execute(ctx, bodyTextScript, &text)
	return text, err
}

var pageSourceScript = Script{
	Name:   "page-source",
	Source: `function() { return document.documentElement ? document.documentElement.outerHTML : ""; }`,
}

func (s *chromeSession) PageSource(ctx context.Context) (string, error) {
	var html string
	err := s.Execute(ctx, pageSourceScript, &html)
	return html, err
}

func (s *chromeSession) Screenshot(ctx context.Context) ([]byte, error) {
	var img []byte
	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		buf, err := page.CaptureScreenshot().
			WithFromSurface(true).
			WithFormat(page.CaptureScreenshotFormatPng).
			Do(ctx)
		if err != nil {
			return err
		}
		img = buf
		return nil
	}))
	if err != nil {
		return nil, err
	}
	if len(img) == 0 {
		return nil, ErrEmptyScreenshot
	}
	return img, nil
}

func (s *chromeSession) SetWindowSize(ctx context.Context, width, height int) error {
	return s.run(ctx, emulation.SetDeviceMetricsOverride(int64(width), int64(height), 1, false))
}

func (s *chromeSession) SetPageLoadTimeout(d time.Duration) {
	if d > 0 {
		s.pageLoadTimeout = d
	}
}

func (s *chromeSession) SetExtraHeaders(ctx context.Context, headers map[string]string) error {
	if len(headers) == 0 {
		return nil
	}
	h := make(network.Headers, len(headers))
	for k, v := range headers {
		h[k] = v
	}
	return s.run(ctx, network.Enable(), network.SetExtraHTTPHeaders(h))
}

func sameSite(v string) (network.CookieSameSite, bool) {
	switch strings.ToLower(v) {
	case "strict":
		return network.CookieSameSiteStrict, true
	case "lax":
		return network.CookieSameSiteLax, true
	case "none":
		return network.CookieSameSiteNone, true
	}
	return "", false
}

func (s *chromeSession) AddCookie(ctx context.Context, c Cookie) error {
	if c.Name == "" {
		return errors.New("cookie name is required")
	}
	return s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		p := network.SetCookie(c.Name, c.Value)
		if c.Domain != "" {
			p = p.WithDomain(c.Domain)
		} else {
			// 与 WebDriver 一致：未指定 domain 时作用于当前页面
			var loc string
			if err := chromedp.Location(&loc).Do(ctx); err != nil {
				return err
			}
			p = p.WithURL(loc)
		}
		if c.Path != "" {
			p = p.WithPath(c.Path)
		}
		if c.Secure {
			p = p.WithSecure(true)
		}
		if c.HTTPOnly {
			p = p.WithHTTPOnly(true)
		}
		if c.Expiry > 0 {
			exp := cdp.TimeSinceEpoch(time.Unix(c.Expiry, 0))
			p = p.WithExpires(&exp)
		}
		if ss, ok := sameSite(c.SameSite); ok {
			p = p.WithSameSite(ss)
		}
		return p.Do(ctx)
	}))
}

func (s *chromeSession) removeTempDirs() {
	for _, d := range []string{s.userDataDir, s.dataPath, s.diskCacheDir} {
		if d != "" {
			_ = os.RemoveAll(d)
		}
	}
}

// Quit closes the tab and browser and removes scratch directories. Safe to call twice.
func (s *chromeSession) Quit() error {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.allocCancel != nil {
		s.allocCancel()
		s.allocCancel = nil
	}
	s.removeTempDirs()
	return nil
}
