package browser

import (
	"fmt"
	"strings"

	"github.com/chromedp/chromedp"
)

// BaseFlags are required to run Chrome inside a Lambda sandbox.
func BaseFlags() []string {
	return []string{
		"--headless",
		"--no-sandbox",
		"--disable-gpu",
		"--single-process",
		"--disable-dev-shm-usage",
		"--disable-dev-tools",
		"--no-zygote",
	}
}

func PerformanceFlags() []string {
	return []string{
		"--disable-background-timer-throttling",
		"--disable-renderer-backgrounding",
		"--disable-backgrounding-occluded-windows",
		"--disable-ipc-flooding-protection",
		"--disable-hang-monitor",
		"--disable-prompt-on-repost",
		"--disable-background-networking",
		"--disable-sync",
		"--metrics-recording-only",
		"--no-first-run",
	}
}

// FontFlags 只影响字体渲染，不设置语系。
func FontFlags() []string {
	return []string{
		"--enable-font-antialiasing",
		"--force-device-scale-factor=1",
		"--font-render-hinting=full",
		"--enable-lcd-text",
		"--disable-font-subpixel-positioning",
	}
}

func NetworkFlags() []string {
	return []string{
		"--aggressive-cache-discard",
		"--disable-extensions",
		"--disable-plugins",
		"--allow-running-insecure-content",
	}
}

// AllOptimizedFlags concatenates base, performance, font and network flags in that order.
func AllOptimizedFlags() []string {
	flags := make([]string, 0, 32)
	flags = append(flags, BaseFlags()...)
	flags = append(flags, PerformanceFlags()...)
	flags = append(flags, FontFlags()...)
	flags = append(flags, NetworkFlags()...)
	return flags
}

// SessionFlags are the per-invocation flags: window size and the three scratch directories.
func SessionFlags(viewport Viewport, userDataDir, dataPath, diskCacheDir string) []string {
	return []string{
		fmt.Sprintf("--window-size=%d,%d", viewport.Width, viewport.Height),
		"--user-data-dir=" + userDataDir,
		"--data-path=" + dataPath,
		"--disk-cache-dir=" + diskCacheDir,
	}
}

// ParseFlag splits "--name=value" into ("name", "value"); bare "--name" yields (name, true).
func ParseFlag(flag string) (string, any) {
	flag = strings.TrimLeft(strings.TrimSpace(flag), "-")
	name, value, ok := strings.Cut(flag, "=")
	if !ok {
		return name, true
	}
	return name, value
}

// ExecAllocatorOptions converts command-line flags into chromedp allocator options.
func ExecAllocatorOptions(execPath string, flags []string) []chromedp.ExecAllocatorOption {
	opts := make([]chromedp.ExecAllocatorOption, 0, len(flags)+1)
	if execPath != "" {
		opts = append(opts, chromedp.ExecPath(execPath))
	}
	for _, f := range flags {
		name, value := ParseFlag(f)
		if name == "" {
			continue
		}
		// chromedp 用 user-data-dir 选项管理临时目录，单独处理以免被覆盖
		if name == "user-data-dir" {
			if dir, ok := value.(string); ok {
				opts = append(opts, chromedp.UserDataDir(dir))
				continue
			}
		}
		opts = append(opts, chromedp.Flag(name, value))
	}
	return opts
}
