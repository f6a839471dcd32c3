// Package config loads process configuration from defaults, an optional
// YAML file, environment variables and command-line flags.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultChromePath  = "/opt/chrome/chrome"
	DefaultFontCSSPath = "/opt/css/default-fonts.css"
	DefaultWebFontsURL = "https://fonts.googleapis.com/css2?" +
		"family=Noto+Sans+TC:wght@300;400;500;700&" +
		"family=Noto+Serif+TC:wght@300;400;500;700&" +
		"display=swap"
)

// Config holds process-wide settings. Per-request values live in scrape.Request.
type Config struct {
	// 浏览器
	ChromePath         string        `mapstructure:"chrome_path" yaml:"chrome_path"`
	ChromeWSEndpoint   string        `mapstructure:"chrome_ws_endpoint" yaml:"chrome_ws_endpoint"`
	BrowserlessHTTPURL string        `mapstructure:"browserless_http_url" yaml:"browserless_http_url"`
	RemoteDialTimeout  time.Duration `mapstructure:"remote_dial_timeout" yaml:"remote_dial_timeout"`

	// 字体
	FontCSSPath       string        `mapstructure:"font_css_path" yaml:"font_css_path"`
	WebFontsURL       string        `mapstructure:"web_fonts_url" yaml:"web_fonts_url"`
	FontGracePeriod   time.Duration `mapstructure:"font_grace_period" yaml:"font_grace_period"`
	FontsReadyTimeout time.Duration `mapstructure:"fonts_ready_timeout" yaml:"fonts_ready_timeout"`

	// 请求默认值
	DefaultWaitTimeout     time.Duration `mapstructure:"default_wait_timeout" yaml:"default_wait_timeout"`
	DefaultPageLoadTimeout time.Duration `mapstructure:"default_page_load_timeout" yaml:"default_page_load_timeout"`
	DefaultViewportWidth   int           `mapstructure:"default_viewport_width" yaml:"default_viewport_width"`
	DefaultViewportHeight  int           `mapstructure:"default_viewport_height" yaml:"default_viewport_height"`

	// 截图上传，bucket 为空时关闭
	ScreenshotBucket string `mapstructure:"screenshot_bucket" yaml:"screenshot_bucket"`
	ScreenshotPrefix string `mapstructure:"screenshot_prefix" yaml:"screenshot_prefix"`

	Port      string `mapstructure:"port" yaml:"port"`
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		ChromePath:             DefaultChromePath,
		RemoteDialTimeout:      30 * time.Second,
		FontCSSPath:            DefaultFontCSSPath,
		WebFontsURL:            DefaultWebFontsURL,
		FontGracePeriod:        2 * time.Second,
		FontsReadyTimeout:      3 * time.Second,
		DefaultWaitTimeout:     10 * time.Second,
		DefaultPageLoadTimeout: 30 * time.Second,
		DefaultViewportWidth:   1280,
		DefaultViewportHeight:  720,
		ScreenshotPrefix:       "screenshots/",
		Port:                   "8080",
		LogLevel:               "info",
		LogFormat:              "json",
	}
}

// SetDefaults registers every key on v so AutomaticEnv can resolve it during Unmarshal.
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("chrome_path", d.ChromePath)
	v.SetDefault("chrome_ws_endpoint", d.ChromeWSEndpoint)
	v.SetDefault("browserless_http_url", d.BrowserlessHTTPURL)
	v.SetDefault("remote_dial_timeout", d.RemoteDialTimeout)
	v.SetDefault("font_css_path", d.FontCSSPath)
	v.SetDefault("web_fonts_url", d.WebFontsURL)
	v.SetDefault("font_grace_period", d.FontGracePeriod)
	v.SetDefault("fonts_ready_timeout", d.FontsReadyTimeout)
	v.SetDefault("default_wait_timeout", d.DefaultWaitTimeout)
	v.SetDefault("default_page_load_timeout", d.DefaultPageLoadTimeout)
	v.SetDefault("default_viewport_width", d.DefaultViewportWidth)
	v.SetDefault("default_viewport_height", d.DefaultViewportHeight)
	v.SetDefault("screenshot_bucket", d.ScreenshotBucket)
	v.SetDefault("screenshot_prefix", d.ScreenshotPrefix)
	v.SetDefault("port", d.Port)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)
}

// NewViper returns a viper instance wired for environment lookups.
// 环境变量不加前缀，与 Lambda 控制台里配置的 CHROME_PATH / SCREENSHOT_BUCKET 等保持一致。
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return v
}

// Load unmarshals v into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.ChromePath = strings.TrimSpace(c.ChromePath)
	c.ChromeWSEndpoint = strings.TrimSpace(c.ChromeWSEndpoint)
	c.BrowserlessHTTPURL = strings.TrimSpace(c.BrowserlessHTTPURL)
	c.ScreenshotBucket = strings.TrimSpace(c.ScreenshotBucket)
	if c.ScreenshotPrefix != "" && !strings.HasSuffix(c.ScreenshotPrefix, "/") {
		c.ScreenshotPrefix += "/"
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.RemoteDialTimeout <= 0 || c.DefaultWaitTimeout < 0 || c.DefaultPageLoadTimeout <= 0 ||
		c.FontGracePeriod < 0 || c.FontsReadyTimeout < 0 {
		return ErrInvalidTimeout
	}
	if c.DefaultViewportWidth < 100 || c.DefaultViewportWidth > 4096 ||
		c.DefaultViewportHeight < 100 || c.DefaultViewportHeight > 10000 {
		return ErrInvalidViewport
	}
	if !c.RemoteBrowser() && c.ChromePath == "" {
		return ErrNoBrowser
	}
	if strings.TrimSpace(c.Port) == "" {
		return ErrInvalidPort
	}
	return nil
}

// RemoteBrowser reports whether sessions connect to a remote DevTools endpoint
// instead of launching the local binary.
func (c *Config) RemoteBrowser() bool {
	return c.ChromeWSEndpoint != "" || c.BrowserlessHTTPURL != ""
}

// UploadEnabled reports whether screenshots are copied to S3.
func (c *Config) UploadEnabled() bool {
	return c.ScreenshotBucket != ""
}
