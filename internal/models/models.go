// -----------------------------------------------------------------------
// Core data model for the harvest pipeline
// -----------------------------------------------------------------------

package models

import (
	"time"
	"unicode/utf8"
)

// FetchTier identifies which fetch strategy produced a result.
type FetchTier string

const (
	TierHTTP    FetchTier = "http"
	TierBrowser FetchTier = "browser"
	TierNone    FetchTier = "none"
)

// SeedEntry is one candidate URL read from the seed ledger. Identity is the
// normalized URL string; the provenance fields are carried through to the
// output ledger so every article can be traced back to its input line.
type SeedEntry struct {
	URL        string `json:"url"`
	Provenance string `json:"provenance"`
	LineNumber int    `json:"line_number"`
}

// FetchResult is the uniform envelope returned by every fetch strategy,
// regardless of tier. Body holds decoded text for HTML/text responses and
// raw bytes for binary documents.
type FetchResult struct {
	OK          bool
	FinalURL    string
	HTTPStatus  int
	ContentType string
	Body        string
	BinaryBody  []byte
	Binary      bool
	Tier        FetchTier
}

// ExtractedPage is the output of the main-content extractor for one HTML
// document.
type ExtractedPage struct {
	Title         string
	PublishedDate string
	BodyText      string
	// LinkDensity is anchor-text length over total text length within the
	// selected candidate node; defined as 1.0 when the node has no text.
	LinkDensity   float64
	OutboundLinks []string
}

// BodyChars returns the rune length of the body text. Thresholds throughout
// the pipeline count runes, not bytes: the corpus mixes CJK and Latin text.
func (p *ExtractedPage) BodyChars() int {
	return utf8.RuneCountInString(p.BodyText)
}

// ArticleRecord is a qualifying content page. Created only when the page is
// not directory-like and its body meets the minimum length; persisted once,
// never mutated.
type ArticleRecord struct {
	SeedURL               string    `json:"seed_url"`
	FinalURL              string    `json:"final_url"`
	Title                 string    `json:"title"`
	Date                  string    `json:"date"`
	BodyText              string    `json:"body_text"`
	Via                   FetchTier `json:"via"`
	HTTPStatus            int       `json:"http_status"`
	ContentType           string    `json:"content_type"`
	Note                  string    `json:"note"`
	FollowedFromDirectory bool      `json:"followed_from_directory"`
}

// AuditRecord is written for every fetch attempt, successful or not. It is
// a strict superset of ArticleRecord; ordering in the audit log is
// chronological attempt order.
type AuditRecord struct {
	RunID         string    `json:"run_id"`
	Timestamp     time.Time `json:"timestamp"`
	Provenance    string    `json:"provenance"`
	OK            bool      `json:"ok"`
	DirectoryLike bool      `json:"directory_like"`
	BodyChars     int       `json:"body_chars"`
	ArticleRecord
}
