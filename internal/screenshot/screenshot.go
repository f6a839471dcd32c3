// Package screenshot captures a PNG of the current page after switching it
// to the screenshot font stack.
package screenshot

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/xiaocaoooo/screenshot-lambda/internal/browser"
	"github.com/xiaocaoooo/screenshot-lambda/internal/fonts"
	"github.com/xiaocaoooo/screenshot-lambda/internal/loading"
	"github.com/xiaocaoooo/screenshot-lambda/internal/step"
)

const (
	StepGrace     = "font-grace"
	StepScrollTop = "scroll-top"

	DefaultGracePeriod = 2 * time.Second
)

var ScrollTopScript = browser.Script{
	Name: "scroll-top",
	Source: `function() {
		window.scrollTo(0, 0);
		return true;
	}`,
}

// Result describes one capture. Data is nil unless Success.
type Result struct {
	Success  bool
	Data     []byte
	Size     int
	Elapsed  time.Duration
	Fallback bool

	// 失败时：原始错误与兜底截图错误
	Error         string
	FallbackError string

	Steps []step.Outcome
}

type Handler struct {
	fonts *fonts.Handler
	grace time.Duration
	sleep loading.SleepFunc
	now   func() time.Time
}

type Option func(*Handler)

func WithGracePeriod(d time.Duration) Option {
	return func(h *Handler) { h.grace = d }
}

func WithSleep(fn loading.SleepFunc) Option {
	return func(h *Handler) { h.sleep = fn }
}

func WithClock(now func() time.Time) Option {
	return func(h *Handler) { h.now = now }
}

func NewHandler(f *fonts.Handler, opts ...Option) *Handler {
	h := &Handler{
		fonts: f,
		grace: DefaultGracePeriod,
		sleep: loading.Sleep,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Capture applies the screenshot fonts, waits for glyphs and captures the
// page. A failed or empty capture gets exactly one bare retry without CSS.
func (h *Handler) Capture(ctx context.Context, d browser.Driver) Result {
	log := zerolog.Ctx(ctx)
	start := h.now()
	res := Result{}

	record := func(o step.Outcome) {
		o.Log(log)
		res.Steps = append(res.Steps, o)
	}

	record(h.fonts.ApplyScreenshot(ctx, d))
	record(h.fonts.ForceRerender(ctx, d))

	if h.grace > 0 {
		if err := h.sleep(ctx, h.grace); err != nil {
			record(step.Fail(StepGrace, err))
		} else {
			record(step.Ok(StepGrace))
		}
	}

	if err := d.Execute(ctx, ScrollTopScript, nil); err != nil {
		record(step.Fail(StepScrollTop, err))
	} else {
		record(step.Ok(StepScrollTop))
	}

	data, err := capture(ctx, d)
	if err == nil {
		res.Success = true
		res.Data = data
		res.Size = len(data)
		res.Elapsed = h.now().Sub(start)
		log.Info().Int("size", res.Size).Dur("elapsed", res.Elapsed).Msg("screenshot captured")
		return res
	}

	log.Warn().Err(err).Msg("screenshot failed, trying fallback capture")
	res.Error = err.Error()

	data, fbErr := capture(ctx, d)
	res.Elapsed = h.now().Sub(start)
	if fbErr != nil {
		res.FallbackError = fbErr.Error()
		log.Error().Err(fbErr).Str("original_error", res.Error).Msg("fallback screenshot failed")
		return res
	}

	res.Success = true
	res.Fallback = true
	res.Data = data
	res.Size = len(data)
	log.Info().Int("size", res.Size).Msg("fallback screenshot captured")
	return res
}

func capture(ctx context.Context, d browser.Driver) ([]byte, error) {
	data, err := d.Screenshot(ctx)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, browser.ErrEmptyScreenshot
	}
	return data, nil
}
