package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, DefaultChromePath, cfg.ChromePath)
	assert.Equal(t, 10*time.Second, cfg.DefaultWaitTimeout)
	assert.Equal(t, 30*time.Second, cfg.DefaultPageLoadTimeout)
	assert.Equal(t, 1280, cfg.DefaultViewportWidth)
	assert.Equal(t, 720, cfg.DefaultViewportHeight)
	assert.False(t, cfg.RemoteBrowser())
	assert.False(t, cfg.UploadEnabled())
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"valid", func(*Config) {}, nil},
		{"zero page load timeout", func(c *Config) { c.DefaultPageLoadTimeout = 0 }, ErrInvalidTimeout},
		{"negative wait timeout", func(c *Config) { c.DefaultWaitTimeout = -time.Second }, ErrInvalidTimeout},
		{"tiny viewport", func(c *Config) { c.DefaultViewportWidth = 50 }, ErrInvalidViewport},
		{"huge viewport", func(c *Config) { c.DefaultViewportHeight = 20000 }, ErrInvalidViewport},
		{"no browser", func(c *Config) { c.ChromePath = "" }, ErrNoBrowser},
		{"remote only", func(c *Config) { c.ChromePath = ""; c.ChromeWSEndpoint = "ws://chrome:9222" }, nil},
		{"empty port", func(c *Config) { c.Port = " " }, ErrInvalidPort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CHROME_WS_ENDPOINT", " ws://browserless:3000 ")
	t.Setenv("SCREENSHOT_BUCKET", "shots")
	t.Setenv("SCREENSHOT_PREFIX", "captures")
	t.Setenv("DEFAULT_WAIT_TIMEOUT", "3s")
	t.Setenv("DEFAULT_VIEWPORT_WIDTH", "1600")

	cfg, err := Load(NewViper())
	require.NoError(t, err)

	assert.Equal(t, "ws://browserless:3000", cfg.ChromeWSEndpoint)
	assert.True(t, cfg.RemoteBrowser())
	assert.True(t, cfg.UploadEnabled())
	assert.Equal(t, "captures/", cfg.ScreenshotPrefix)
	assert.Equal(t, 3*time.Second, cfg.DefaultWaitTimeout)
	assert.Equal(t, 1600, cfg.DefaultViewportWidth)
	assert.Equal(t, 720, cfg.DefaultViewportHeight)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
chrome_path: /usr/bin/chromium
font_grace_period: 500ms
log_level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	v := NewViper()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/chromium", cfg.ChromePath)
	assert.Equal(t, 500*time.Millisecond, cfg.FontGracePeriod)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadInvalid(t *testing.T) {
	t.Setenv("DEFAULT_PAGE_LOAD_TIMEOUT", "0s")
	_, err := Load(NewViper())
	assert.ErrorIs(t, err, ErrInvalidTimeout)
}
