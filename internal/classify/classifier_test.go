package classify

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ternarybob/harvest/internal/common"
	"github.com/ternarybob/harvest/internal/models"
)

func newTestClassifier() *Classifier {
	return NewClassifier(common.DefaultConfig().Classifier)
}

// page builds an ExtractedPage with a body of exactly bodyChars runes.
func page(bodyChars, linkCount int, density float64) *models.ExtractedPage {
	links := make([]string, linkCount)
	for i := range links {
		links[i] = "https://example.com/x"
	}
	return &models.ExtractedPage{
		BodyText:      strings.Repeat("文", bodyChars),
		LinkDensity:   density,
		OutboundLinks: links,
	}
}

func TestIsDirectoryLike_ShortTextManyLinks(t *testing.T) {
	c := newTestClassifier()

	assert.True(t, c.IsDirectoryLike(page(299, 61, 0.1)))
	// Boundary: 300 runes is not "shorter than 300"
	assert.False(t, c.IsDirectoryLike(page(300, 61, 0.1)))
	// Boundary: 60 links is not "more than 60"
	assert.False(t, c.IsDirectoryLike(page(299, 60, 0.1)))
}

func TestIsDirectoryLike_ShortTextHighDensity(t *testing.T) {
	c := newTestClassifier()

	assert.True(t, c.IsDirectoryLike(page(299, 0, 0.36)))
	assert.False(t, c.IsDirectoryLike(page(299, 0, 0.35)))
}

func TestIsDirectoryLike_TinyTextModerateLinks(t *testing.T) {
	c := newTestClassifier()

	assert.True(t, c.IsDirectoryLike(page(179, 21, 0.1)))
	assert.False(t, c.IsDirectoryLike(page(180, 21, 0.1)))
	assert.False(t, c.IsDirectoryLike(page(179, 20, 0.1)))
}

func TestIsDirectoryLike_PaginationVocabulary(t *testing.T) {
	c := newTestClassifier()

	body := strings.Repeat("正文", 250) + " 上一页 下一页 共 12 页"
	p := page(0, 51, 0.1)
	p.BodyText = body
	assert.True(t, c.IsDirectoryLike(p))

	// Same vocabulary but not enough links
	p = page(0, 50, 0.1)
	p.BodyText = body
	assert.False(t, c.IsDirectoryLike(p))

	// Many links but no pagination vocabulary
	p = page(500, 51, 0.1)
	assert.False(t, c.IsDirectoryLike(p))
}

func TestIsDirectoryLike_EnglishPaginationTerms(t *testing.T) {
	c := newTestClassifier()

	body := strings.Repeat("body text ", 60) + "Page 2 of 14 next previous"
	p := page(0, 51, 0.1)
	p.BodyText = body
	assert.True(t, c.IsDirectoryLike(p))
}

func TestIsDirectoryLike_LongArticleIsNotDirectory(t *testing.T) {
	c := newTestClassifier()
	assert.False(t, c.IsDirectoryLike(page(2000, 15, 0.05)))
}

func TestIsDirectoryLike_Deterministic(t *testing.T) {
	c := newTestClassifier()
	p := page(299, 61, 0.1)

	first := c.IsDirectoryLike(p)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, c.IsDirectoryLike(p))
	}
}
