// Package browsertest provides an in-memory browser.Driver for tests. The DOM
// is a goquery document; script results are scripted per script name.
package browsertest

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/xiaocaoooo/screenshot-lambda/internal/browser"
)

// PNG is returned by Screenshot when no explicit screenshot is scripted.
var PNG = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

// Call records one Execute invocation.
type Call struct {
	Script string
	Args   []any
}

type Driver struct {
	mu  sync.Mutex
	doc *goquery.Document

	URL       string
	PageTitle string

	// 按脚本名返回的结果、错误或自定义函数
	Results     map[string]any
	ScriptErrs  map[string]error
	ScriptFuncs map[string]func(args []any) (any, error)

	NavigateErr error
	TitleErr    error
	URLErr      error
	BodyTextErr error
	PageErr     error
	CookieErr   error
	HeaderErr   error
	WindowErr   error

	Screenshots [][]byte
	ShotErrs    []error
	ShotCalls   int

	Calls       []Call
	Navigations []string
	Finds       []string
	Waits       []string
	Cookies     []browser.Cookie
	Headers     map[string]string
	Viewport    browser.Viewport
	LoadTimeout time.Duration
	QuitCalls   int
}

// NewDriver parses html as the current page.
func NewDriver(html string) *Driver {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		panic(fmt.Sprintf("browsertest: parse html: %v", err))
	}
	return &Driver{
		doc:         doc,
		Results:     map[string]any{},
		ScriptErrs:  map[string]error{},
		ScriptFuncs: map[string]func([]any) (any, error){},
	}
}

// ScriptCalls returns the recorded calls of one script.
func (d *Driver) ScriptCalls(name string) []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []Call
	for _, c := range d.Calls {
		if c.Script == name {
			out = append(out, c)
		}
	}
	return out
}

func (d *Driver) Navigate(_ context.Context, url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Navigations = append(d.Navigations, url)
	if d.NavigateErr != nil {
		return d.NavigateErr
	}
	d.URL = url
	return nil
}

func (d *Driver) Title(context.Context) (string, error) {
	if d.TitleErr != nil {
		return "", d.TitleErr
	}
	if d.PageTitle != "" {
		return d.PageTitle, nil
	}
	return strings.TrimSpace(d.doc.Find("title").First().Text()), nil
}

func (d *Driver) CurrentURL(context.Context) (string, error) {
	if d.URLErr != nil {
		return "", d.URLErr
	}
	return d.URL, nil
}

func (d *Driver) Execute(_ context.Context, script browser.Script, res any, args ...any) error {
	d.mu.Lock()
	d.Calls = append(d.Calls, Call{Script: script.Name, Args: args})
	fn := d.ScriptFuncs[script.Name]
	err := d.ScriptErrs[script.Name]
	value, ok := d.Results[script.Name]
	d.mu.Unlock()

	if err != nil {
		return err
	}
	if fn != nil {
		v, err := fn(args)
		if err != nil {
			return err
		}
		value, ok = v, true
	}
	if !ok || res == nil {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, res)
}

func (d *Driver) FindElement(_ context.Context, by browser.By, selector string) (*browser.Element, error) {
	d.mu.Lock()
	d.Finds = append(d.Finds, by.String()+":"+selector)
	d.mu.Unlock()

	query := selector
	if by == browser.ByXPath {
		css, ok := xpathToCSS(selector)
		if !ok {
			return nil, fmt.Errorf("xpath %q: unsupported expression", selector)
		}
		query = css
	}
	sel := d.doc.Find(query).First()
	if sel.Length() == 0 {
		return nil, fmt.Errorf("%s %q: %w", by, selector, browser.ErrNoSuchElement)
	}
	html, err := sel.Html()
	if err != nil {
		return nil, err
	}
	return &browser.Element{Text: strings.TrimSpace(sel.Text()), InnerHTML: html}, nil
}

var xpathStep = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9-]*|\*)(?:\[@([A-Za-z][A-Za-z0-9_-]*)=['"]([^'"]*)['"]\])?$`)

// xpathToCSS 只支持由 //tag 或 //tag[@attr='v'] 组成的后代路径。
func xpathToCSS(expr string) (string, bool) {
	if !strings.HasPrefix(expr, "//") {
		return "", false
	}
	var parts []string
	for _, stepExpr := range strings.Split(expr[2:], "//") {
		m := xpathStep.FindStringSubmatch(stepExpr)
		if m == nil {
			return "", false
		}
		part := m[1]
		if m[2] != "" {
			part += fmt.Sprintf("[%s=%q]", m[2], m[3])
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, " "), true
}

// WaitForElement 不真正等待：元素不存在时直接返回超时。
func (d *Driver) WaitForElement(_ context.Context, selector string, _ time.Duration) error {
	d.mu.Lock()
	d.Waits = append(d.Waits, selector)
	d.mu.Unlock()
	if d.doc.Find(selector).Length() == 0 {
		return context.DeadlineExceeded
	}
	return nil
}

func (d *Driver) BodyText(context.Context) (string, error) {
	if d.BodyTextErr != nil {
		return "", d.BodyTextErr
	}
	return strings.TrimSpace(d.doc.Find("body").Text()), nil
}

func (d *Driver) PageSource(context.Context) (string, error) {
	if d.PageErr != nil {
		return "", d.PageErr
	}
	return goquery.OuterHtml(d.doc.Children())
}

func (d *Driver) Screenshot(context.Context) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	i := d.ShotCalls
	d.ShotCalls++
	if i < len(d.ShotErrs) && d.ShotErrs[i] != nil {
		return nil, d.ShotErrs[i]
	}
	if i < len(d.Screenshots) {
		return d.Screenshots[i], nil
	}
	return PNG, nil
}

func (d *Driver) SetWindowSize(_ context.Context, width, height int) error {
	if d.WindowErr != nil {
		return d.WindowErr
	}
	d.Viewport = browser.Viewport{Width: width, Height: height}
	return nil
}

func (d *Driver) SetPageLoadTimeout(t time.Duration) {
	d.LoadTimeout = t
}

func (d *Driver) SetExtraHeaders(_ context.Context, headers map[string]string) error {
	if d.HeaderErr != nil {
		return d.HeaderErr
	}
	d.Headers = headers
	return nil
}

func (d *Driver) AddCookie(_ context.Context, c browser.Cookie) error {
	if d.CookieErr != nil {
		return d.CookieErr
	}
	d.Cookies = append(d.Cookies, c)
	return nil
}

func (d *Driver) Quit() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.QuitCalls++
	return nil
}

// Launcher hands out the same Driver on every Launch.
type Launcher struct {
	Driver   *Driver
	Err      error
	Launches []browser.LaunchOptions
}

func (l *Launcher) Launch(_ context.Context, opts browser.LaunchOptions) (browser.Driver, error) {
	l.Launches = append(l.Launches, opts)
	if l.Err != nil {
		return nil, l.Err
	}
	return l.Driver, nil
}

var (
	_ browser.Driver   = (*Driver)(nil)
	_ browser.Launcher = (*Launcher)(nil)
)
