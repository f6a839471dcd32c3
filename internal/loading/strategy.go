// Package loading decides, with as little blocking as possible, whether a
// page has rendered enough content to be extracted.
package loading

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/xiaocaoooo/screenshot-lambda/internal/browser"
	"github.com/xiaocaoooo/screenshot-lambda/internal/step"
)

const (
	StepPageInfo   = "page-info"
	StepProbe      = "content-probe"
	StepMinimal    = "minimal-wait"
	StepWaitForElt = "wait-for-element"
)

const (
	// 内容充足阈值
	minTextLength = 500
	minImageCount = 3
	minLinkCount  = 5

	minimalWaitTimeout = 2 * time.Second
	minimalWaitText    = 200
	settleDelay        = 1 * time.Second
	pollInterval       = 100 * time.Millisecond
)

var ProbeScript = browser.Script{
	Name: "content-probe",
	Source: `function() {
		const body = document.body;
		return {
			textLength: body ? body.textContent.length : 0,
			imageCount: document.querySelectorAll("img").length,
			linkCount: document.querySelectorAll("a").length,
			hasMainContent: !!(
				document.querySelector("main") ||
				document.querySelector('[class*="content"]') ||
				document.querySelector("article") ||
				document.querySelector(".news") ||
				document.querySelector("#content")
			),
			readyState: document.readyState
		};
	}`,
}

// Snapshot is the content probe result. It is read once and discarded.
type Snapshot struct {
	TextLength     int    `json:"textLength"`
	ImageCount     int    `json:"imageCount"`
	LinkCount      int    `json:"linkCount"`
	HasMainContent bool   `json:"hasMainContent"`
	ReadyState     string `json:"readyState"`
}

// Sufficient is the fixed content-sufficiency rule.
func (s Snapshot) Sufficient() bool {
	return s.TextLength > minTextLength ||
		(s.ImageCount > minImageCount && s.LinkCount > minLinkCount) ||
		s.HasMainContent
}

// Info is reported back to the caller as loading_info.
type Info struct {
	PageLoaded    bool           `json:"page_loaded"`
	ContentLoaded bool           `json:"content_loaded"`
	TotalTime     float64        `json:"total_time"`
	Steps         []step.Outcome `json:"steps,omitempty"`
}

// SleepFunc pauses for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type Strategy struct {
	sleep SleepFunc
	now   func() time.Time
}

type Option func(*Strategy)

// WithSleep replaces the fixed delays, mainly for tests.
func WithSleep(fn SleepFunc) Option {
	return func(s *Strategy) { s.sleep = fn }
}

func WithClock(now func() time.Time) Option {
	return func(s *Strategy) { s.now = now }
}

func NewStrategy(opts ...Option) *Strategy {
	s := &Strategy{sleep: Sleep, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Execute runs the heuristics in order. It never fails; every problem is
// recorded as a degraded or failed step.
func (s *Strategy) Execute(ctx context.Context, d browser.Driver, waitFor string, waitTimeout time.Duration) Info {
	log := zerolog.Ctx(ctx)
	start := s.now()
	info := Info{}

	record := func(o step.Outcome) step.Outcome {
		o.Log(log)
		info.Steps = append(info.Steps, o)
		return o
	}

	info.PageLoaded = record(s.checkPageInfo(ctx, d)).OK()

	probe := record(s.probeContent(ctx, d))
	info.ContentLoaded = probe.OK()

	if !info.ContentLoaded {
		record(s.minimalWait(ctx, d))
	}

	if strings.TrimSpace(waitFor) != "" {
		record(s.waitForElement(ctx, d, waitFor, waitTimeout))
	}

	info.TotalTime = s.now().Sub(start).Seconds()
	log.Info().
		Bool("page_loaded", info.PageLoaded).
		Bool("content_loaded", info.ContentLoaded).
		Float64("total_time", info.TotalTime).
		Msg("page loading finished")
	return info
}

func (s *Strategy) checkPageInfo(ctx context.Context, d browser.Driver) step.Outcome {
	url, err := d.CurrentURL(ctx)
	if err != nil {
		return step.Fail(StepPageInfo, err)
	}
	title, err := d.Title(ctx)
	if err != nil {
		return step.Fail(StepPageInfo, err)
	}
	zerolog.Ctx(ctx).Debug().Str("url", url).Str("title", truncate(title, 50)).Msg("page info")
	return step.Ok(StepPageInfo)
}

func (s *Strategy) probeContent(ctx context.Context, d browser.Driver) step.Outcome {
	var snap Snapshot
	if err := d.Execute(ctx, ProbeScript, &snap); err != nil {
		return step.Fail(StepProbe, err)
	}
	zerolog.Ctx(ctx).Debug().
		Int("text_length", snap.TextLength).
		Int("images", snap.ImageCount).
		Int("links", snap.LinkCount).
		Bool("main_content", snap.HasMainContent).
		Str("ready_state", snap.ReadyState).
		Msg("content probe")
	if !snap.Sufficient() {
		return step.Degrade(StepProbe, "insufficient content: text=%d images=%d links=%d", snap.TextLength, snap.ImageCount, snap.LinkCount)
	}
	return step.Ok(StepProbe)
}

// minimalWait 最多等 2s 让 body 文字超过 200 字，然后无论结果如何再等 1s。
func (s *Strategy) minimalWait(ctx context.Context, d browser.Driver) step.Outcome {
	waitErr := s.poll(ctx, minimalWaitTimeout, func(ctx context.Context) (bool, error) {
		text, err := d.BodyText(ctx)
		if err != nil {
			return false, err
		}
		return len([]rune(strings.TrimSpace(text))) > minimalWaitText, nil
	})

	if err := s.sleep(ctx, settleDelay); err != nil && waitErr == nil {
		waitErr = err
	}
	if waitErr != nil {
		return step.Degrade(StepMinimal, "body text not ready: %v", waitErr)
	}
	return step.Ok(StepMinimal)
}

func (s *Strategy) waitForElement(ctx context.Context, d browser.Driver, selector string, timeout time.Duration) step.Outcome {
	if err := d.WaitForElement(ctx, selector, timeout); err != nil {
		return step.Degrade(StepWaitForElt, "%s not found within %s: %v", selector, timeout, err)
	}
	return step.Ok(StepWaitForElt)
}

var errPollTimeout = errors.New("condition not met before timeout")

// poll 按固定间隔检查 cond，直到满足或超过 timeout。cond 返回的错误只视为“尚未满足”。
func (s *Strategy) poll(ctx context.Context, timeout time.Duration, cond func(context.Context) (bool, error)) error {
	pollCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	deadline := s.now().Add(timeout)

	for {
		ok, err := cond(pollCtx)
		if ok {
			return nil
		}
		if !s.now().Before(deadline) || pollCtx.Err() != nil {
			if err != nil {
				return fmt.Errorf("%w: %v", errPollTimeout, err)
			}
			return errPollTimeout
		}
		if err := s.sleep(pollCtx, pollInterval); err != nil {
			return fmt.Errorf("%w: %v", errPollTimeout, err)
		}
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
