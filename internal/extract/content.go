// -----------------------------------------------------------------------
// Main-Content Extractor - candidate scoring and plain-text rendering
// -----------------------------------------------------------------------

package extract

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"golang.org/x/net/html"

	"github.com/ternarybob/harvest/internal/common"
	"github.com/ternarybob/harvest/internal/models"
)

// Elements stripped from the document before any extraction. Navigation,
// chrome and decorative markup never contribute to body text or links.
const boilerplateSelector = "script, style, noscript, nav, footer, header, aside, iframe, frame, form, button, svg, menu"

// Content-container signatures tried before falling back to generic blocks.
const candidateSelector = "article, main, [role='main'], [class*='content'], [id*='content'], [class*='article'], [id*='article'], [class*='main'], [id*='main'], [class*='post'], [class*='body'], [class*='text']"

// Metadata fields consulted for the publication date, in priority order.
var dateMetaSelectors = []string{
	"meta[property='article:published_time']",
	"meta[itemprop='datePublished']",
	"meta[name='publishdate']",
	"meta[name='pubdate']",
	"meta[name='publish-date']",
	"meta[name='date']",
	"meta[name='dc.date']",
	"meta[name='dcterms.date']",
}

var (
	// Matches ISO-style, CJK and English textual-month date forms in
	// visible text ("2023-05-10", "2023年5月10日", "12 May 2023",
	// "May 12, 2023").
	datePattern = regexp.MustCompile(`(19|20)\d{2}[-/年.]\s?\d{1,2}[-/月.]\s?\d{1,2}日?` +
		`|\b\d{1,2}\s+[A-Za-z]{3,9}\s+(19|20)\d{2}\b` +
		`|\b[A-Za-z]{3,9}\.?\s+\d{1,2},\s*(19|20)\d{2}\b`)

	blankRunPattern = regexp.MustCompile(`\n{3,}`)
)

// Lines exactly matching one of these are navigation boilerplate. The
// Chinese set mirrors the navigation vocabulary of the harvested sites.
var navigationWords = map[string]bool{
	"home": true, "menu": true, "search": true, "next": true,
	"previous": true, "prev": true, "archive": true, "archives": true,
	"more": true, "share": true, "print": true, "top": true,
	"back": true, "login": true, "register": true,
	"首页": true, "导航": true, "搜索": true, "下一页": true,
	"上一页": true, "更多": true, "分享": true, "打印": true,
	"返回": true, "菜单": true, "登录": true, "注册": true,
	"网站导航": true, "友情链接": true, "关于我们": true,
}

// Extractor turns fetched HTML into a normalized ExtractedPage.
type Extractor struct {
	minCandidateChars int
	logger            arbor.ILogger
}

// NewExtractor creates a main-content extractor. minCandidateChars is the
// minimum rune length a scored candidate node must reach before it is
// preferred over the document body.
func NewExtractor(minCandidateChars int, logger arbor.ILogger) *Extractor {
	return &Extractor{
		minCandidateChars: minCandidateChars,
		logger:            logger,
	}
}

// Extract parses html, strips boilerplate, selects the best content node
// and returns title, date, normalized body text, link density and the
// outbound link list.
func (e *Extractor) Extract(htmlContent, baseURL string) (*models.ExtractedPage, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find(boilerplateSelector).Remove()

	title := extractTitle(doc)
	date := extractDate(doc)
	candidate := e.selectCandidate(doc)

	totalChars := textRunes(candidate)
	anchorChars := textRunes(candidate.Find("a"))
	linkDensity := 1.0
	if totalChars > 0 {
		linkDensity = float64(anchorChars) / float64(totalChars)
	}

	bodyText := normalizeBodyText(blockText(candidate))
	outboundLinks := extractOutboundLinks(doc, baseURL)

	page := &models.ExtractedPage{
		Title:         title,
		PublishedDate: date,
		BodyText:      bodyText,
		LinkDensity:   linkDensity,
		OutboundLinks: outboundLinks,
	}

	e.logger.Debug().
		Str("url", baseURL).
		Str("title", title).
		Int("body_chars", page.BodyChars()).
		Int("links", len(outboundLinks)).
		Str("link_density", fmt.Sprintf("%.2f", linkDensity)).
		Msg("Page extracted")

	return page, nil
}

// extractTitle returns the first non-empty heading text, falling back to
// the document title element. Runs after boilerplate removal so site
// banner headings inside header chrome do not shadow the article heading.
func extractTitle(doc *goquery.Document) string {
	for _, selector := range []string{"h1", "h2"} {
		title := ""
		doc.Find(selector).EachWithBreak(func(i int, s *goquery.Selection) bool {
			text := strings.TrimSpace(s.Text())
			if text != "" {
				title = text
				return false
			}
			return true
		})
		if title != "" {
			return title
		}
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

// extractDate resolves the publication date: metadata fields first, then a
// time element, then a date pattern over the visible text. Absence is not
// an error; the empty string is a valid result.
func extractDate(doc *goquery.Document) string {
	for _, selector := range dateMetaSelectors {
		if content, exists := doc.Find(selector).First().Attr("content"); exists {
			if date := strings.TrimSpace(content); date != "" {
				return date
			}
		}
	}

	timeEl := doc.Find("time").First()
	if datetime, exists := timeEl.Attr("datetime"); exists && strings.TrimSpace(datetime) != "" {
		return strings.TrimSpace(datetime)
	}
	if text := strings.TrimSpace(timeEl.Text()); text != "" {
		return text
	}

	return datePattern.FindString(doc.Text())
}

// selectCandidate picks the content node with the highest score, where
// score = textLength - 2*anchorTextLength. Candidates below the minimum
// text length are rejected; the fallback is the body, then the document.
func (e *Extractor) selectCandidate(doc *goquery.Document) *goquery.Selection {
	candidates := doc.Find(candidateSelector)
	if candidates.Length() == 0 {
		candidates = doc.Find("div, section, td")
	}

	var best *goquery.Selection
	bestScore := 0
	candidates.Each(func(i int, s *goquery.Selection) {
		textLen := textRunes(s)
		if textLen < e.minCandidateChars {
			return
		}
		score := textLen - 2*textRunes(s.Find("a"))
		if best == nil || score > bestScore {
			best = s
			bestScore = score
		}
	})
	if best != nil {
		return best
	}

	if body := doc.Find("body"); body.Length() > 0 {
		return body
	}
	return doc.Selection
}

// extractOutboundLinks collects every anchor with a usable href, resolves
// it against the base URL, normalizes and deduplicates preserving
// first-seen order.
func extractOutboundLinks(doc *goquery.Document, baseURL string) []string {
	base, err := url.Parse(baseURL)
	if err != nil {
		base = nil
	}

	seen := make(map[string]bool)
	links := []string{}

	doc.Find("a[href]").Each(func(i int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if shouldSkipHref(href) {
			return
		}

		resolved := resolveHref(href, base)
		if resolved == "" {
			return
		}

		normalized := common.NormalizeURL(resolved)
		if normalized == "" || seen[normalized] {
			return
		}
		seen[normalized] = true
		links = append(links, normalized)
	})

	return links
}

// shouldSkipHref filters non-navigable anchor targets.
func shouldSkipHref(href string) bool {
	href = strings.ToLower(strings.TrimSpace(href))
	if href == "" || strings.HasPrefix(href, "#") {
		return true
	}
	for _, scheme := range []string{"javascript:", "mailto:", "tel:", "sms:", "ftp:", "data:"} {
		if strings.HasPrefix(href, scheme) {
			return true
		}
	}
	return false
}

func resolveHref(href string, base *url.URL) string {
	if base == nil {
		if parsed, err := url.Parse(href); err == nil && parsed.IsAbs() {
			return parsed.String()
		}
		return ""
	}
	resolved, err := base.Parse(href)
	if err != nil {
		return ""
	}
	return resolved.String()
}

// textRunes returns the rune length of the selection's text with
// whitespace runs collapsed, so markup indentation does not inflate scores.
func textRunes(s *goquery.Selection) int {
	return utf8.RuneCountInString(strings.Join(strings.Fields(s.Text()), " "))
}

// blockText renders the selection as plain text with line breaks at block
// boundaries, the way a browser would lay paragraphs out.
func blockText(s *goquery.Selection) string {
	var b strings.Builder
	for _, node := range s.Nodes {
		writeNodeText(&b, node)
	}
	return b.String()
}

var blockElements = map[string]bool{
	"p": true, "div": true, "section": true, "article": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"li": true, "tr": true, "blockquote": true, "pre": true,
	"ul": true, "ol": true, "table": true, "dd": true, "dt": true,
}

func writeNodeText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		if n.Data == "br" {
			b.WriteString("\n")
			return
		}
		if blockElements[n.Data] {
			b.WriteString("\n")
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeNodeText(b, c)
	}

	if n.Type == html.ElementNode && blockElements[n.Data] {
		b.WriteString("\n")
	}
}

// normalizeBodyText trims line whitespace, collapses runs of three or more
// blank lines to exactly one blank line, and drops boilerplate lines: very
// short fragments and lines exactly matching navigation vocabulary.
func normalizeBodyText(text string) string {
	lines := strings.Split(text, "\n")
	trimmed := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed = append(trimmed, strings.TrimSpace(line))
	}
	text = blankRunPattern.ReplaceAllString(strings.Join(trimmed, "\n"), "\n\n")

	var kept []string
	for _, line := range strings.Split(text, "\n") {
		if line == "" {
			kept = append(kept, line)
			continue
		}
		if isBoilerplateLine(line) {
			continue
		}
		kept = append(kept, line)
	}

	result := strings.Join(kept, "\n")
	result = blankRunPattern.ReplaceAllString(result, "\n\n")
	return strings.TrimSpace(result)
}

// isBoilerplateLine drops navigation fragments that survive markup
// stripping. Single characters and bare separators carry no content;
// navigation words are matched whole, case-insensitively.
func isBoilerplateLine(line string) bool {
	if utf8.RuneCountInString(line) <= 1 {
		return true
	}
	return navigationWords[strings.ToLower(line)]
}
