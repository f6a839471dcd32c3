// Package fonts injects Traditional Chinese web-font CSS into a live page
// while keeping icon-font glyphs (Font Awesome, Material Icons, iconfont)
// on their own font stacks.
package fonts

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/xiaocaoooo/screenshot-lambda/internal/browser"
	"github.com/xiaocaoooo/screenshot-lambda/internal/step"
)

// 注入的 <style> 标记属性，用于后续查找与移除
const (
	MarkerBasic      = "data-font-basic"
	MarkerEnhanced   = "data-font-enhanced"
	MarkerFontFix    = "data-font-fix"
	MarkerIconFix    = "data-icon-fix"
	MarkerScreenshot = "data-screenshot-fonts"
)

const (
	StepBasic      = "fonts-basic"
	StepEnhanced   = "fonts-enhanced"
	StepScreenshot = "fonts-screenshot"
	StepRerender   = "force-rerender"
	StepFontsReady = "fonts-ready"
)

const (
	enhancedRemoveSelector   = "style[" + MarkerFontFix + "], style[" + MarkerBasic + "], style[" + MarkerEnhanced + "]"
	screenshotRemoveSelector = "style[" + MarkerFontFix + "], style[" + MarkerScreenshot + "], style[" + MarkerIconFix + "]"
)

var (
	InjectStyleScript = browser.Script{
		Name: "inject-style",
		Source: `function(marker, css) {
			const style = document.createElement("style");
			style.setAttribute(marker, "true");
			style.textContent = css;
			(document.head || document.documentElement).appendChild(style);
			return true;
		}`,
	}

	InstallFontsScript = browser.Script{
		Name: "install-fonts",
		Source: `function(removeSelector, fontsHost, fontsURL, sheets, reflow) {
			document.querySelectorAll(removeSelector).forEach(function(s) { s.remove(); });
			const head = document.head || document.documentElement;
			if (fontsURL) {
				const present = Array.prototype.some.call(document.querySelectorAll("link"), function(l) {
					return (l.href || "").indexOf(fontsHost) !== -1;
				});
				if (!present) {
					const link = document.createElement("link");
					link.rel = "stylesheet";
					link.href = fontsURL;
					head.appendChild(link);
				}
			}
			sheets.forEach(function(sheet) {
				const style = document.createElement("style");
				style.setAttribute(sheet.marker, "true");
				style.textContent = sheet.css;
				head.appendChild(style);
			});
			if (reflow && document.body) {
				void document.body.offsetHeight;
			}
			return true;
		}`,
	}

	RerenderScript = browser.Script{
		Name: "force-rerender",
		Source: `function() {
			document.body.style.display = "none";
			void document.body.offsetHeight;
			document.body.style.display = "";
			return true;
		}`,
	}

	FontsReadyScript = browser.Script{
		Name: "fonts-ready",
		Source: `function() {
			if (document.fonts && document.fonts.ready) {
				return document.fonts.ready.then(function() { return true; });
			}
			return true;
		}`,
	}
)

// StyleSheet is one <style> element to inject.
type StyleSheet struct {
	Marker string `json:"marker"`
	CSS    string `json:"css"`
}

// Handler builds font CSS and applies it to a page.
type Handler struct {
	fontsURL       string
	fontsHost      string
	defaultCSSPath string
	fs             afero.Fs
}

// NewHandler returns a Handler. fs is used to read the default CSS file; nil means the OS filesystem.
func NewHandler(fontsURL, defaultCSSPath string, fs afero.Fs) *Handler {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	host := fontsURL
	if u, err := url.Parse(fontsURL); err == nil && u.Host != "" {
		host = u.Host
	}
	return &Handler{
		fontsURL:       fontsURL,
		fontsHost:      host,
		defaultCSSPath: defaultCSSPath,
		fs:             fs,
	}
}

// ApplyBasic injects the default CSS file, or the built-in basic CSS when the file cannot be read.
func (h *Handler) ApplyBasic(ctx context.Context, d browser.Driver) step.Outcome {
	css, fileErr := h.readDefaultCSS()
	if fileErr != nil {
		css = h.BasicCSS()
	}

	if err := d.Execute(ctx, InjectStyleScript, nil, MarkerBasic, css); err != nil {
		return step.Fail(StepBasic, err)
	}
	if fileErr != nil {
		return step.Degrade(StepBasic, "default css unavailable, used built-in: %v", fileErr)
	}
	return step.Ok(StepBasic)
}

func (h *Handler) readDefaultCSS() (string, error) {
	if h.defaultCSSPath == "" {
		return "", fmt.Errorf("no default css path configured")
	}
	data, err := afero.ReadFile(h.fs, h.defaultCSSPath)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ApplyEnhanced replaces earlier font styles with the enhanced CSS and web-font link.
// On failure it falls back to ApplyBasic.
func (h *Handler) ApplyEnhanced(ctx context.Context, d browser.Driver) step.Outcome {
	sheets := []StyleSheet{{Marker: MarkerEnhanced, CSS: h.EnhancedCSS()}}
	err := d.Execute(ctx, InstallFontsScript, nil, enhancedRemoveSelector, h.fontsHost, h.fontsURL, sheets, false)
	if err == nil {
		return step.Ok(StepEnhanced)
	}

	zerolog.Ctx(ctx).Warn().Err(err).Msg("enhanced fonts failed, falling back to basic")
	basic := h.ApplyBasic(ctx, d)
	if !basic.Usable() {
		return step.Outcome{Step: StepEnhanced, Status: step.Failed, Reason: fmt.Sprintf("%v; basic fallback: %s", err, basic.Reason)}
	}
	return step.Degrade(StepEnhanced, "fell back to basic fonts: %v", err)
}

// ApplyScreenshot injects the screenshot CSS and icon-fix CSS as two style tags, then forces a reflow.
func (h *Handler) ApplyScreenshot(ctx context.Context, d browser.Driver) step.Outcome {
	sheets := []StyleSheet{
		{Marker: MarkerFontFix, CSS: h.ScreenshotCSS()},
		{Marker: MarkerIconFix, CSS: h.IconFixCSS()},
	}
	if err := d.Execute(ctx, InstallFontsScript, nil, screenshotRemoveSelector, h.fontsHost, h.fontsURL, sheets, true); err != nil {
		return step.Fail(StepScreenshot, err)
	}
	return step.Ok(StepScreenshot)
}

// ForceRerender hides and re-shows the body so newly loaded glyphs are repainted.
func (h *Handler) ForceRerender(ctx context.Context, d browser.Driver) step.Outcome {
	if err := d.Execute(ctx, RerenderScript, nil); err != nil {
		return step.Fail(StepRerender, err)
	}
	return step.Ok(StepRerender)
}

// WaitReady waits up to timeout for document.fonts.ready.
func (h *Handler) WaitReady(ctx context.Context, d browser.Driver, timeout time.Duration) step.Outcome {
	if timeout <= 0 {
		return step.Degrade(StepFontsReady, "skipped")
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	var ready bool
	if err := d.Execute(waitCtx, FontsReadyScript, &ready); err != nil {
		return step.Degrade(StepFontsReady, "fonts not ready: %v", err)
	}
	return step.Ok(StepFontsReady)
}
