package browsertest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaocaoooo/screenshot-lambda/internal/browser"
)

func TestXPathToCSS(t *testing.T) {
	tests := []struct {
		expr string
		want string
		ok   bool
	}{
		{"//h1", "h1", true},
		{"//div//p", "div p", true},
		{"//div[@id='main']//a", `div[id="main"] a`, true},
		{`//*[@class="post"]`, `*[class="post"]`, true},
		{"/html/body", "", false},
		{"//p[1]", "", false},
		{"//p/text()", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, ok := xpathToCSS(tt.expr)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFindElementXPath(t *testing.T) {
	d := NewDriver(`<html><body><div id="main"><a href="/x">Link <b>one</b></a></div></body></html>`)

	el, err := d.FindElement(context.Background(), browser.ByXPath, "//div[@id='main']//a")
	require.NoError(t, err)
	assert.Equal(t, "Link one", el.Text)
	assert.Equal(t, "Link <b>one</b>", el.InnerHTML)

	_, err = d.FindElement(context.Background(), browser.ByXPath, "//table")
	assert.ErrorIs(t, err, browser.ErrNoSuchElement)

	assert.Equal(t, []string{"xpath://div[@id='main']//a", "xpath://table"}, d.Finds)
}
