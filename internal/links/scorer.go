// -----------------------------------------------------------------------
// Link Scorer - ranks outbound links from directory pages for following
// -----------------------------------------------------------------------

package links

import (
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/harvest/internal/common"
)

// Path keywords that signal an article section. Includes pinyin
// equivalents used by the harvested Chinese sites.
var articleKeywords = []string{
	"news", "press", "speech", "statement", "release", "view",
	"post", "detail", "article", "story",
	"xinwen", "zixun", "dongtai", "gonggao", "jianghua", "shengming", "fabu",
}

// Path keywords that signal a listing or navigation page.
var listingKeywords = []string{
	"list", "index", "category", "categories", "tag", "tags",
	"search", "archive", "channel", "column", "topics",
	"liebiao", "lanmu", "pindao", "zhuanti",
}

// Query parameters that indicate pagination.
var paginationParams = []string{"page", "p", "pn", "pageno", "pagenum", "offset", "start"}

// Extensions never followed: binary documents and media assets.
var excludedExtensions = []string{
	".pdf", ".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx",
	".zip", ".tar", ".gz", ".rar", ".7z", ".exe", ".dmg", ".iso",
	".jpg", ".jpeg", ".png", ".gif", ".svg", ".webp", ".ico",
	".mp3", ".mp4", ".avi", ".mov", ".wmv", ".flv",
	".css", ".js", ".xml", ".rss",
}

var (
	pathDatePattern  = regexp.MustCompile(`(19|20)\d{2}[-/_.]\d{1,2}([-/_.]\d{1,2})?|(19|20)\d{2}(0[1-9]|1[0-2])`)
	numericIDPattern = regexp.MustCompile(`\d{4,}`)
)

// Scorer selects a bounded set of promising outbound links from a
// directory-like page. Following is single-level: the pipeline never
// expands the children it returns.
type Scorer struct {
	maxFollows int
	logger     arbor.ILogger
}

// NewScorer creates a link scorer that returns at most maxFollows links.
func NewScorer(maxFollows int, logger arbor.ILogger) *Scorer {
	return &Scorer{
		maxFollows: maxFollows,
		logger:     logger,
	}
}

// scoredLink pairs a link with its score and encounter position for the
// stable ordering.
type scoredLink struct {
	url   string
	score int
	order int
}

// PickLinks scores the eligible outbound links of seedURL and returns the
// top links in descending score order. Ties keep their original encounter
// order. Only same-host http(s) links are eligible; binary and media
// extensions and the seed itself are excluded.
func (s *Scorer) PickLinks(seedURL string, outboundLinks []string) []string {
	normalizedSeed := common.NormalizeURL(seedURL)

	var scored []scoredLink
	for i, link := range outboundLinks {
		if !s.eligible(normalizedSeed, link) {
			continue
		}
		scored = append(scored, scoredLink{
			url:   link,
			score: scoreLink(link),
			order: i,
		})
	}

	sort.SliceStable(scored, func(a, b int) bool {
		return scored[a].score > scored[b].score
	})

	limit := s.maxFollows
	if limit > len(scored) {
		limit = len(scored)
	}

	picked := make([]string, 0, limit)
	for _, sl := range scored[:limit] {
		picked = append(picked, sl.url)
	}

	s.logger.Debug().
		Str("seed", seedURL).
		Int("eligible", len(scored)).
		Int("picked", len(picked)).
		Msg("Follow links selected")

	return picked
}

// eligible applies the hard filters that precede scoring.
func (s *Scorer) eligible(normalizedSeed, link string) bool {
	if !common.IsHTTPURL(link) {
		return false
	}
	if !common.SameHost(normalizedSeed, link) {
		return false
	}
	if common.NormalizeURL(link) == normalizedSeed {
		return false
	}

	parsed, err := url.Parse(link)
	if err != nil {
		return false
	}
	path := strings.ToLower(parsed.Path)
	for _, ext := range excludedExtensions {
		if strings.HasSuffix(path, ext) {
			return false
		}
	}
	return true
}

// scoreLink computes the additive URL-path score.
func scoreLink(link string) int {
	parsed, err := url.Parse(link)
	if err != nil {
		return 0
	}

	path := strings.ToLower(parsed.Path)
	score := 0

	for _, keyword := range articleKeywords {
		if strings.Contains(path, keyword) {
			score += 5
			break
		}
	}

	if pathDatePattern.MatchString(path) {
		score += 4
	}

	if numericIDPattern.MatchString(path) {
		score += 2
	}

	if len(pathSegments(path)) >= 3 {
		score++
	}

	query := parsed.Query()
	for _, param := range paginationParams {
		if query.Has(param) {
			score -= 3
			break
		}
	}

	for _, keyword := range listingKeywords {
		if strings.Contains(path, keyword) {
			score -= 4
			break
		}
	}

	return score
}

func pathSegments(path string) []string {
	var segments []string
	for _, segment := range strings.Split(path, "/") {
		if segment != "" {
			segments = append(segments, segment)
		}
	}
	return segments
}
