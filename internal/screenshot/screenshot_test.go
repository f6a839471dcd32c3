package screenshot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaocaoooo/screenshot-lambda/internal/browser"
	"github.com/xiaocaoooo/screenshot-lambda/internal/browser/browsertest"
	"github.com/xiaocaoooo/screenshot-lambda/internal/fonts"
	"github.com/xiaocaoooo/screenshot-lambda/internal/step"
)

type recorder struct {
	slept []time.Duration
}

func (r *recorder) Sleep(_ context.Context, d time.Duration) error {
	r.slept = append(r.slept, d)
	return nil
}

func newHandler(r *recorder, opts ...Option) *Handler {
	f := fonts.NewHandler("https://fonts.example.com/css", "/missing.css", afero.NewMemMapFs())
	opts = append([]Option{WithSleep(r.Sleep)}, opts...)
	return NewHandler(f, opts...)
}

func scriptOrder(d *browsertest.Driver) []string {
	var names []string
	for _, c := range d.Calls {
		names = append(names, c.Script)
	}
	return names
}

func TestCaptureSuccess(t *testing.T) {
	r := &recorder{}
	d := browsertest.NewDriver("<html><body><h1>Hello</h1></body></html>")

	res := newHandler(r).Capture(context.Background(), d)

	require.True(t, res.Success)
	assert.False(t, res.Fallback)
	assert.Equal(t, browsertest.PNG, res.Data)
	assert.Equal(t, len(browsertest.PNG), res.Size)
	assert.Empty(t, res.Error)
	assert.Equal(t, 1, d.ShotCalls)
	assert.Equal(t, []time.Duration{DefaultGracePeriod}, r.slept)
	assert.Equal(t, []string{fonts.InstallFontsScript.Name, fonts.RerenderScript.Name, ScrollTopScript.Name}, scriptOrder(d))

	for _, o := range res.Steps {
		assert.True(t, o.OK(), o.Step)
	}
}

func TestCaptureInstallsScreenshotSheets(t *testing.T) {
	d := browsertest.NewDriver("<html><body></body></html>")
	newHandler(&recorder{}).Capture(context.Background(), d)

	calls := d.ScriptCalls(fonts.InstallFontsScript.Name)
	require.Len(t, calls, 1)
	sheets, ok := calls[0].Args[3].([]fonts.StyleSheet)
	require.True(t, ok)
	require.Len(t, sheets, 2)
	assert.Equal(t, fonts.MarkerFontFix, sheets[0].Marker)
	assert.Equal(t, fonts.MarkerIconFix, sheets[1].Marker)
	assert.Equal(t, true, calls[0].Args[4])
}

func TestCaptureFallbackOnError(t *testing.T) {
	d := browsertest.NewDriver("<html><body></body></html>")
	d.ShotErrs = []error{errors.New("target crashed")}

	res := newHandler(&recorder{}).Capture(context.Background(), d)

	require.True(t, res.Success)
	assert.True(t, res.Fallback)
	assert.Equal(t, "target crashed", res.Error)
	assert.Empty(t, res.FallbackError)
	assert.Equal(t, 2, d.ShotCalls)
	// 兜底截图不重新注入 CSS
	assert.Len(t, d.ScriptCalls(fonts.InstallFontsScript.Name), 1)
}

func TestCaptureFallbackOnEmptyData(t *testing.T) {
	d := browsertest.NewDriver("<html><body></body></html>")
	d.Screenshots = [][]byte{{}}

	res := newHandler(&recorder{}).Capture(context.Background(), d)

	require.True(t, res.Success)
	assert.True(t, res.Fallback)
	assert.Equal(t, browser.ErrEmptyScreenshot.Error(), res.Error)
	assert.Equal(t, 2, d.ShotCalls)
}

func TestCaptureBothAttemptsFail(t *testing.T) {
	d := browsertest.NewDriver("<html><body></body></html>")
	d.ShotErrs = []error{errors.New("first"), errors.New("second")}

	res := newHandler(&recorder{}).Capture(context.Background(), d)

	assert.False(t, res.Success)
	assert.Nil(t, res.Data)
	assert.Equal(t, "first", res.Error)
	assert.Equal(t, "second", res.FallbackError)
	assert.Equal(t, 2, d.ShotCalls, "exactly one fallback attempt")
}

func TestCaptureContinuesWhenFontsFail(t *testing.T) {
	d := browsertest.NewDriver("<html><body></body></html>")
	d.ScriptErrs[fonts.InstallFontsScript.Name] = errors.New("csp blocked")
	d.ScriptErrs[ScrollTopScript.Name] = errors.New("no window")

	res := newHandler(&recorder{}).Capture(context.Background(), d)

	require.True(t, res.Success)
	require.NotEmpty(t, res.Steps)
	assert.Equal(t, fonts.StepScreenshot, res.Steps[0].Step)
	assert.Equal(t, step.Failed, res.Steps[0].Status)
	assert.Equal(t, step.Failed, res.Steps[len(res.Steps)-1].Status)
}

func TestCaptureGracePeriod(t *testing.T) {
	r := &recorder{}
	d := browsertest.NewDriver("<html><body></body></html>")
	newHandler(r, WithGracePeriod(0)).Capture(context.Background(), d)
	assert.Empty(t, r.slept)

	r = &recorder{}
	newHandler(r, WithGracePeriod(500*time.Millisecond)).Capture(context.Background(), d)
	assert.Equal(t, []time.Duration{500 * time.Millisecond}, r.slept)
}

func TestCaptureElapsed(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ticks := 0
	clock := func() time.Time {
		ticks++
		return base.Add(time.Duration(ticks) * time.Second)
	}
	d := browsertest.NewDriver("<html><body></body></html>")

	res := newHandler(&recorder{}, WithClock(clock)).Capture(context.Background(), d)
	assert.Equal(t, time.Second, res.Elapsed)
}
