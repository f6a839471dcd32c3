package browser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllOptimizedFlagsOrder(t *testing.T) {
	all := AllOptimizedFlags()

	assert.Len(t, all, len(BaseFlags())+len(PerformanceFlags())+len(FontFlags())+len(NetworkFlags()))
	assert.Equal(t, "--headless", all[0])
	assert.Equal(t, "--no-first-run", all[len(BaseFlags())+len(PerformanceFlags())-1])
	assert.Equal(t, "--allow-running-insecure-content", all[len(all)-1])

	for _, f := range all {
		assert.True(t, strings.HasPrefix(f, "--"), f)
	}
	assert.NotContains(t, all, "--remote-debugging-port=9222")
}

func TestFontFlagsHaveNoLocale(t *testing.T) {
	for _, f := range FontFlags() {
		assert.NotContains(t, f, "lang")
	}
}

func TestSessionFlags(t *testing.T) {
	flags := SessionFlags(Viewport{Width: 1280, Height: 720}, "/tmp/a", "/tmp/b", "/tmp/c")
	assert.Equal(t, []string{
		"--window-size=1280,720",
		"--user-data-dir=/tmp/a",
		"--data-path=/tmp/b",
		"--disk-cache-dir=/tmp/c",
	}, flags)
}

func TestParseFlag(t *testing.T) {
	name, value := ParseFlag("--headless")
	assert.Equal(t, "headless", name)
	assert.Equal(t, true, value)

	name, value = ParseFlag("--font-render-hinting=full")
	assert.Equal(t, "font-render-hinting", name)
	assert.Equal(t, "full", value)

	name, value = ParseFlag("--window-size=1280,720")
	assert.Equal(t, "window-size", name)
	assert.Equal(t, "1280,720", value)
}

func TestExecAllocatorOptions(t *testing.T) {
	flags := append(AllOptimizedFlags(), SessionFlags(Viewport{Width: 800, Height: 600}, "/tmp/u", "/tmp/d", "/tmp/c")...)
	opts := ExecAllocatorOptions("/opt/chrome/chrome", append(flags, ""))
	// ExecPath + every non-empty flag
	assert.Len(t, opts, len(flags)+1)

	opts = ExecAllocatorOptions("", BaseFlags())
	assert.Len(t, opts, len(BaseFlags()))
}
