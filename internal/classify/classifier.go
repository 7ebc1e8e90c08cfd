// -----------------------------------------------------------------------
// Page Classifier - directory/listing page detection
// -----------------------------------------------------------------------

package classify

import (
	"regexp"
	"strings"

	"github.com/ternarybob/harvest/internal/common"
	"github.com/ternarybob/harvest/internal/models"
)

// Pagination vocabulary that marks verbose navigation hubs. Covers English
// and Chinese pagination terms.
var paginationPattern = regexp.MustCompile(`(?i)page\s*\d+|pagination|\bnext\b|\bprevious\b|\bolder\b|\bnewer\b|\barchives?\b|下一页|上一页|分页|尾页|共\s*\d+\s*页`)

// Classifier decides whether an extracted page is a navigation/listing hub
// rather than a content article. The classification is total: every page
// is either directory-like or not, never unknown.
type Classifier struct {
	config common.ClassifierConfig
}

// NewClassifier creates a classifier with the given thresholds.
func NewClassifier(config common.ClassifierConfig) *Classifier {
	return &Classifier{config: config}
}

// IsDirectoryLike is a pure function of the extracted page. A page is
// directory-like if any rule holds:
//   - short body and either many links or high link density
//   - tiny body and a moderate link count
//   - pagination vocabulary in the body and many links
func (c *Classifier) IsDirectoryLike(page *models.ExtractedPage) bool {
	bodyChars := page.BodyChars()
	linkCount := len(page.OutboundLinks)

	if bodyChars < c.config.ShortTextChars &&
		(linkCount > c.config.ShortTextMinLinks || page.LinkDensity > c.config.ShortTextLinkDensity) {
		return true
	}

	if bodyChars < c.config.TinyTextChars && linkCount > c.config.TinyTextMinLinks {
		return true
	}

	if linkCount > c.config.PaginationMinLinks &&
		paginationPattern.MatchString(strings.ToLower(page.BodyText)) {
		return true
	}

	return false
}
