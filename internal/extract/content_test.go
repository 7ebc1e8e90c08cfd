package extract

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/harvest/internal/common"
)

func newTestExtractor() *Extractor {
	return NewExtractor(200, common.GetLogger())
}

func articleHTML(body string) string {
	return fmt.Sprintf(`<html><head><title>Site Title</title></head><body>
		<header><h1>Site Banner</h1><nav><a href="/">Home</a></nav></header>
		<article><h1>Article Heading</h1><p>%s</p></article>
		<footer>Copyright</footer>
	</body></html>`, body)
}

func TestExtract_TitleFromFirstHeading(t *testing.T) {
	longBody := strings.Repeat("Paragraph text with enough substance to score well. ", 10)
	page, err := newTestExtractor().Extract(articleHTML(longBody), "https://example.com/a")
	require.NoError(t, err)

	// The header element is stripped before title extraction, so the
	// article heading wins over the site banner.
	assert.Equal(t, "Article Heading", page.Title)
}

func TestExtract_TitleFallsBackToH2ThenTitle(t *testing.T) {
	html := `<html><head><title>Doc Title</title></head><body>
		<h2>Secondary Heading</h2><p>body</p></body></html>`
	page, err := newTestExtractor().Extract(html, "https://example.com/a")
	require.NoError(t, err)
	assert.Equal(t, "Secondary Heading", page.Title)

	html = `<html><head><title>Doc Title</title></head><body><p>body</p></body></html>`
	page, err = newTestExtractor().Extract(html, "https://example.com/a")
	require.NoError(t, err)
	assert.Equal(t, "Doc Title", page.Title)
}

func TestExtract_DateFromMetadata(t *testing.T) {
	html := `<html><head>
		<meta property="article:published_time" content="2023-05-10T08:00:00Z">
	</head><body><p>text</p></body></html>`
	page, err := newTestExtractor().Extract(html, "https://example.com/a")
	require.NoError(t, err)
	assert.Equal(t, "2023-05-10T08:00:00Z", page.PublishedDate)
}

func TestExtract_DateFromVisibleText(t *testing.T) {
	html := `<html><body><p>发布时间：2023年5月10日 来源：办公室</p></body></html>`
	page, err := newTestExtractor().Extract(html, "https://example.com/a")
	require.NoError(t, err)
	assert.Equal(t, "2023年5月10日", page.PublishedDate)
}

func TestExtract_DateFromEnglishTextualMonth(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{"Published 12 May 2023 by the press office", "12 May 2023"},
		{"Jakarta, 3 September 2021 - statement follows", "3 September 2021"},
		{"Published May 12, 2023 by the press office", "May 12, 2023"},
		{"Updated Sep. 3, 2021 and archived later", "Sep. 3, 2021"},
	}

	for _, tt := range tests {
		html := fmt.Sprintf("<html><body><p>%s</p></body></html>", tt.body)
		page, err := newTestExtractor().Extract(html, "https://example.com/a")
		require.NoError(t, err)
		assert.Equal(t, tt.want, page.PublishedDate, tt.body)
	}
}

func TestExtract_MissingDateIsEmpty(t *testing.T) {
	page, err := newTestExtractor().Extract("<html><body><p>no date here</p></body></html>", "https://example.com/a")
	require.NoError(t, err)
	assert.Empty(t, page.PublishedDate)
}

func TestExtract_CandidatePrefersContentOverNavigation(t *testing.T) {
	longBody := strings.Repeat("Substantial article prose continues for a while here. ", 10)
	html := fmt.Sprintf(`<html><body>
		<div class="sidebar"><a href="/x1">one</a><a href="/x2">two</a><a href="/x3">three</a></div>
		<article>%s</article>
	</body></html>`, longBody)

	page, err := newTestExtractor().Extract(html, "https://example.com/a")
	require.NoError(t, err)
	assert.Contains(t, page.BodyText, "Substantial article prose")
	assert.NotContains(t, page.BodyText, "one")
}

func TestExtract_LinkDensityIsOneForEmptyNode(t *testing.T) {
	page, err := newTestExtractor().Extract("<html><body></body></html>", "https://example.com/a")
	require.NoError(t, err)
	assert.Equal(t, 1.0, page.LinkDensity)
	assert.Zero(t, page.BodyChars())
}

func TestExtract_OutboundLinksResolvedAndDeduplicated(t *testing.T) {
	html := `<html><body>
		<a href="/news/1.html">a</a>
		<a href="https://EXAMPLE.com/news/1.html#section">dup</a>
		<a href="https://example.com/news/2.html">b</a>
		<a href="javascript:void(0)">js</a>
		<a href="mailto:x@example.com">mail</a>
		<a href="#top">frag</a>
		<a href="tel:+1234">tel</a>
	</body></html>`

	page, err := newTestExtractor().Extract(html, "https://example.com/dir/")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://example.com/news/1.html",
		"https://example.com/news/2.html",
	}, page.OutboundLinks)
}

func TestExtract_BoilerplateLinesDropped(t *testing.T) {
	html := `<html><body><div>
		<p>首页</p>
		<p>下一页</p>
		<p>Home</p>
		<p>这一行是真正的正文内容，应当保留在输出里。</p>
	</div></body></html>`

	page, err := newTestExtractor().Extract(html, "https://example.com/a")
	require.NoError(t, err)
	assert.NotContains(t, page.BodyText, "首页")
	assert.NotContains(t, page.BodyText, "下一页")
	assert.NotContains(t, page.BodyText, "Home")
	assert.Contains(t, page.BodyText, "这一行是真正的正文内容")
}

func TestExtract_BlankRunsCollapsed(t *testing.T) {
	html := `<html><body><article>
		<p>First paragraph of the article body with plenty of words.</p>
		<div></div><div></div><div></div>
		<p>Second paragraph of the article body with plenty of words.</p>
	</article></body></html>`

	page, err := newTestExtractor().Extract(html, "https://example.com/a")
	require.NoError(t, err)
	assert.NotContains(t, page.BodyText, "\n\n\n")
	assert.Contains(t, page.BodyText, "First paragraph")
	assert.Contains(t, page.BodyText, "Second paragraph")
}

func TestExtract_MalformedHTMLStillReturnsPage(t *testing.T) {
	// html.Parse is permissive; truncated markup yields a best-effort tree
	page, err := newTestExtractor().Extract("<html><body><p>unclosed paragraph", "https://example.com/a")
	require.NoError(t, err)
	assert.Contains(t, page.BodyText, "unclosed paragraph")
}
