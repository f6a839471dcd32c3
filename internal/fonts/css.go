package fonts

import "strings"

// 正文文字元素：统一使用繁体中文字体栈
const textSelectors = `body, div, span, p, h1, h2, h3, h4, h5, h6, a, li, td, th,
article, section, header, footer, nav, aside, main,
.title, .content, .text, .news, .article`

const textFontStack = `'Noto Sans TC', 'Noto Sans CJK TC', 'Microsoft JhengHei',
    '微軟正黑體', 'PingFang TC', 'Helvetica Neue', Arial, sans-serif`

// 截图版本不带 Helvetica/Arial，避免西文字体抢先匹配
const screenshotFontStack = `'Noto Sans TC', 'Noto Sans CJK TC', 'Microsoft JhengHei',
    '微軟正黑體', 'PingFang TC', sans-serif`

const iconFontStack = `'Font Awesome 5 Free', 'Font Awesome 5 Pro', 'Font Awesome 6 Free', 'Font Awesome 6 Pro',
    'Material Icons', 'Material Symbols Outlined', 'iconfont',
    -webkit-pictograph, serif`

const textRendering = `    text-rendering: optimizeLegibility !important;
    -webkit-font-smoothing: antialiased !important;
    -moz-osx-font-smoothing: grayscale !important;`

const basicIconSelectors = `[class*="ico"], [class*="icon"], [class*="fa-"],
.fa, .fas, .far, .fal, .fad, .fab,
[data-icon], [class*="material-icons"],
.glyphicon, [class*="glyphicon"],
.iconfont, [class*="iconfont"],
select, .select, [class*="select"],
.dropdown, [class*="dropdown"], [class*="arrow"], [class*="chevron"]`

const basicIconPseudoSelectors = `[class*="ico"]::before, [class*="ico"]::after,
[class*="icon"]::before, [class*="icon"]::after,
[class*="fa-"]::before, [class*="fa-"]::after,
.fa::before, .fa::after, .fas::before, .fas::after,
select::before, select::after,
.dropdown::before, .dropdown::after,
[class*="arrow"]::before, [class*="arrow"]::after`

const enhancedIconSelectors = `[class*="ico"], [class*="icon"], [class*="fa-"],
.fa, .fas, .far, .fal, .fad, .fab, .fass, .fasr, .fasl,
[data-icon], [class*="material-icons"], [class*="material-symbols"],
.glyphicon, [class*="glyphicon"],
.iconfont, [class*="iconfont"],
[class*="sprite"], [class*="symbol"],
select, .select, [class*="select"],
.dropdown, [class*="dropdown"], [class*="arrow"], [class*="chevron"], [class*="caret"],
.nav, [class*="nav"], [class*="menu"]`

const enhancedIconPseudoSelectors = `[class*="ico"]::before, [class*="ico"]::after,
[class*="icon"]::before, [class*="icon"]::after,
[class*="fa-"]::before, [class*="fa-"]::after,
.fa::before, .fa::after, .fas::before, .fas::after,
.far::before, .far::after, .fal::before, .fal::after,
.fad::before, .fad::after, .fab::before, .fab::after,
select::before, select::after,
.dropdown::before, .dropdown::after,
[class*="arrow"]::before, [class*="arrow"]::after,
[class*="chevron"]::before, [class*="chevron"]::after`

// notIcon 以 :not() 链排除图示元素，而不是重新声明图示字体
const notIcon = `:not([class*="ico"]):not([class*="icon"]):not([class*="fa-"]):not(.fa):not(.fas):not(.far):not(.fal):not(.fad):not(.fab)`

const iconFixCSS = `/* 只处理显示属性，不修改字体 */
.ico, [class*="ico"], .icon, [class*="icon"],
[class^="fa-"], [class*=" fa-"], .fa, .fas, .far, .fal, .fad, .fab {
    display: inline-block !important;
    visibility: visible !important;
    opacity: 1 !important;
    text-indent: 0 !important;
    letter-spacing: normal !important;
    word-spacing: normal !important;
    text-decoration: none !important;
}

.ico::before, .ico::after, [class*="ico"]::before, [class*="ico"]::after,
.icon::before, .icon::after, [class*="icon"]::before, [class*="icon"]::after,
[class^="fa-"]::before, [class*=" fa-"]::before, [class^="fa-"]::after, [class*=" fa-"]::after,
.fa::before, .fa::after, .fas::before, .fas::after, .far::before, .far::after,
.fal::before, .fal::after, .fad::before, .fad::after, .fab::before, .fab::after {
    display: inline-block !important;
    visibility: visible !important;
    opacity: 1 !important;
    text-decoration: none !important;
}

/* 导航选单图示：最小干预 */
.masthead__nav-link .ico,
.masthead__nav-item .ico,
.masthead__nav .ico,
.masthead__nav-link .ico::before,
.masthead__nav-item .ico::before,
.masthead__nav .ico::before {
    display: inline-block !important;
    visibility: visible !important;
    opacity: 1 !important;
}
`

func rule(selectors, body string) string {
	return selectors + " {\n" + body + "\n}\n"
}

func fontFamily(stack string) string {
	return "    font-family: " + stack + " !important;"
}

func importRule(fontsURL string) string {
	if fontsURL == "" {
		return ""
	}
	// CSS 字符串内转义引号与反斜杠
	escaped := strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(fontsURL)
	return "@import url('" + escaped + "');\n\n"
}

// BasicCSS overrides text fonts and re-declares the icon font stack on icon-pattern elements.
func (h *Handler) BasicCSS() string {
	var b strings.Builder
	b.WriteString(rule(textSelectors, fontFamily(textFontStack)+"\n"+textRendering))
	b.WriteString("\n/* 保留图示字体 */\n")
	b.WriteString(rule(basicIconSelectors, fontFamily(iconFontStack)))
	b.WriteString("\n")
	b.WriteString(rule(basicIconPseudoSelectors, fontFamily(iconFontStack)))
	b.WriteString("\n* { visibility: visible !important; }\n")
	return b.String()
}

// EnhancedCSS is BasicCSS with the web-font import and a wider icon-pattern list.
func (h *Handler) EnhancedCSS() string {
	var b strings.Builder
	b.WriteString(importRule(h.fontsURL))
	b.WriteString(rule(textSelectors, fontFamily(textFontStack)+"\n"+textRendering))
	b.WriteString("\n/* 保留图示字体 */\n")
	b.WriteString(rule(enhancedIconSelectors, fontFamily(iconFontStack)))
	b.WriteString("\n")
	b.WriteString(rule(enhancedIconPseudoSelectors, fontFamily(iconFontStack)))
	b.WriteString("\n* { visibility: visible !important; }\n")
	return b.String()
}

// ScreenshotCSS excludes icon-pattern elements with :not() instead of re-declaring icon fonts.
func (h *Handler) ScreenshotCSS() string {
	var b strings.Builder
	b.WriteString(importRule(h.fontsURL))
	b.WriteString(rule(textSelectors+",\n"+notIcon, fontFamily(screenshotFontStack)+"\n"+textRendering))
	b.WriteString("\n")
	b.WriteString(rule(notIcon, "    visibility: visible !important;"))
	return b.String()
}

// IconFixCSS normalises display/visibility/opacity of icons and never sets font-family.
func (h *Handler) IconFixCSS() string {
	return iconFixCSS
}
