// -----------------------------------------------------------------------
// Pipeline - fetch, extract, classify, follow, commit
// -----------------------------------------------------------------------

package pipeline

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/harvest/internal/classify"
	"github.com/ternarybob/harvest/internal/common"
	"github.com/ternarybob/harvest/internal/extract"
	"github.com/ternarybob/harvest/internal/fetcher"
	"github.com/ternarybob/harvest/internal/ledger"
	"github.com/ternarybob/harvest/internal/links"
	"github.com/ternarybob/harvest/internal/models"
	"github.com/ternarybob/harvest/internal/storage"
)

// Fetcher is the fetch surface the pipeline depends on. Tests substitute
// fake strategies behind the same envelope.
type Fetcher interface {
	Fetch(ctx context.Context, url string) *models.FetchResult
}

// Stats summarizes one pipeline run.
type Stats struct {
	Attempted   int
	Articles    int
	Directories int
	Followed    int
	Failures    int
	Skipped     int
}

// Pipeline processes seeds strictly sequentially: one URL is fetched,
// extracted, classified and committed before the next, with a single level
// of link-following out of directory pages. No per-URL failure is fatal.
type Pipeline struct {
	config     *common.Config
	fetcher    Fetcher
	limiter    *fetcher.RateLimiter
	extractor  *extract.Extractor
	classifier *classify.Classifier
	scorer     *links.Scorer
	writer     *ledger.Writer
	visited    *storage.VisitedStore
	logger     arbor.ILogger
	runID      string
	stats      Stats
}

// New wires the pipeline from its components. All mutable session state
// (visited set, ledger handles, browser process) lives behind these
// explicit dependencies; there are no ambient globals.
func New(
	config *common.Config,
	f Fetcher,
	limiter *fetcher.RateLimiter,
	extractor *extract.Extractor,
	classifier *classify.Classifier,
	scorer *links.Scorer,
	writer *ledger.Writer,
	visited *storage.VisitedStore,
	logger arbor.ILogger,
) *Pipeline {
	return &Pipeline{
		config:     config,
		fetcher:    f,
		limiter:    limiter,
		extractor:  extractor,
		classifier: classifier,
		scorer:     scorer,
		writer:     writer,
		visited:    visited,
		logger:     logger,
		runID:      uuid.NewString(),
	}
}

// Run processes every seed and returns run statistics. A run over zero
// usable seeds ends immediately with empty logs.
func (p *Pipeline) Run(ctx context.Context, seeds []models.SeedEntry) (*Stats, error) {
	if len(seeds) == 0 {
		p.logger.Warn().Msg("No usable seed URLs, ending run")
		return &p.stats, nil
	}

	p.logger.Info().
		Str("run_id", p.runID).
		Int("seeds", len(seeds)).
		Msg("Pipeline run started")

	for i, seed := range seeds {
		if ctx.Err() != nil {
			p.logger.Warn().Int("processed", i).Msg("Run cancelled")
			break
		}

		page, directoryLike := p.processURL(ctx, seed.URL, seed.Provenance, false)

		// Single non-recursive follow: children are fetched and classified
		// but their own links are never scored or followed.
		if directoryLike && page != nil {
			for _, child := range p.scorer.PickLinks(seed.URL, page.OutboundLinks) {
				if ctx.Err() != nil {
					break
				}
				p.stats.Followed++
				p.processURL(ctx, child, seed.Provenance, true)
			}
		}

		if (i+1)%25 == 0 {
			p.logger.Info().
				Int("processed", i+1).
				Int("total", len(seeds)).
				Int("articles", p.stats.Articles).
				Msg("Run progress")
		}
	}

	p.logger.Info().
		Str("run_id", p.runID).
		Int("attempted", p.stats.Attempted).
		Int("articles", p.stats.Articles).
		Int("directories", p.stats.Directories).
		Int("followed", p.stats.Followed).
		Int("failures", p.stats.Failures).
		Int("skipped", p.stats.Skipped).
		Msg("Pipeline run finished")

	return &p.stats, nil
}

// processURL handles one fetch attempt end to end and returns the
// extracted page (nil for failures and binary documents) and whether it
// was classified directory-like.
func (p *Pipeline) processURL(ctx context.Context, rawURL, provenance string, followed bool) (*models.ExtractedPage, bool) {
	normalized := common.NormalizeURL(rawURL)
	if normalized == "" {
		return nil, false
	}

	// Mark visited before the fetch begins; a URL is claimed exactly once.
	already, err := p.visited.MarkVisited(normalized, provenance)
	if err != nil {
		p.logger.Warn().Err(err).Str("url", normalized).Msg("Visited store error, processing anyway")
	}
	if already {
		p.stats.Skipped++
		p.logger.Debug().Str("url", normalized).Msg("Already visited, skipping")
		return nil, false
	}

	if err := p.limiter.Wait(ctx, normalized); err != nil {
		return nil, false
	}

	p.stats.Attempted++
	result := p.fetcher.Fetch(ctx, normalized)

	record := &models.AuditRecord{
		RunID:      p.runID,
		Timestamp:  time.Now().UTC(),
		Provenance: provenance,
		ArticleRecord: models.ArticleRecord{
			SeedURL:               normalized,
			FinalURL:              result.FinalURL,
			Via:                   result.Tier,
			HTTPStatus:            result.HTTPStatus,
			ContentType:           result.ContentType,
			FollowedFromDirectory: followed,
		},
	}

	if !result.OK {
		record.Note = "fetch_failed"
		if followed {
			record.Note = "follow_fetch_failed"
		}
		p.stats.Failures++
		p.writeAudit(record)
		return nil, false
	}
	record.OK = true

	if kind := binaryKind(normalized, result); kind != "" {
		p.processBinary(kind, result, record)
		p.writeAudit(record)
		p.commitIfQualifying(record, provenance)
		return nil, false
	}

	page, ok := p.extractPage(result)
	if !ok {
		record.OK = false
		record.Note = "extract_failed"
		p.stats.Failures++
		p.writeAudit(record)
		return nil, false
	}

	directoryLike := p.classifier.IsDirectoryLike(page)

	record.Title = page.Title
	record.Date = page.PublishedDate
	record.BodyText = page.BodyText
	record.BodyChars = page.BodyChars()
	record.DirectoryLike = directoryLike

	switch {
	case directoryLike:
		record.Note = "directory"
		p.stats.Directories++
	case record.BodyChars >= p.config.Output.MinArticleChars:
		record.Note = "article"
	default:
		record.Note = "too_short"
	}

	p.writeAudit(record)
	p.commitIfQualifying(record, provenance)

	return page, directoryLike
}

// extractPage runs the main-content extractor with a panic boundary: a
// malformed document must produce a failure record, never end the run.
func (p *Pipeline) extractPage(result *models.FetchResult) (page *models.ExtractedPage, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Warn().
				Str("url", result.FinalURL).
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("Extraction panicked")
			page, ok = nil, false
		}
	}()

	page, err := p.extractor.Extract(result.Body, result.FinalURL)
	if err != nil {
		p.logger.Warn().Err(err).Str("url", result.FinalURL).Msg("Extraction failed")
		return nil, false
	}
	return page, true
}

// processBinary routes PDF and Word documents through the best-effort text
// extractors and notes the outcome so empty-by-failure is distinguishable
// from empty-by-content. Other binary formats are audited with an empty
// body and never reach the HTML extractor, whose output for them would be
// garbage long enough to pass the article gate.
func (p *Pipeline) processBinary(kind string, result *models.FetchResult, record *models.AuditRecord) {
	if kind == kindUnsupported {
		record.Note = "binary_unsupported"
		return
	}

	data := result.BinaryBody
	if len(data) == 0 {
		data = []byte(result.Body)
	}

	var text string
	switch kind {
	case "pdf":
		text = extract.PDFText(data)
	case "docx":
		text = extract.DocxText(data)
	}

	if text == "" {
		record.Note = kind + "_no_text"
	} else {
		record.Note = kind + "_extracted"
	}
	record.BodyText = text
	record.BodyChars = len([]rune(text))
}

const kindUnsupported = "unsupported"

// Document extensions handled by the binary path. PDF and Word get text
// extraction; the rest are recorded and dropped.
var binaryExtensions = map[string]string{
	".pdf":  "pdf",
	".doc":  "docx",
	".docx": "docx",
	".ppt":  kindUnsupported,
	".pptx": kindUnsupported,
	".xls":  kindUnsupported,
	".xlsx": kindUnsupported,
	".zip":  kindUnsupported,
	".rar":  kindUnsupported,
	".7z":   kindUnsupported,
	".mp3":  kindUnsupported,
	".mp4":  kindUnsupported,
}

// binaryKind classifies a fetch as a binary document by URL extension or
// by the fetch result itself; "" means HTML/text.
func binaryKind(url string, result *models.FetchResult) string {
	ext := strings.ToLower(path.Ext(strippedPath(url)))
	if kind, ok := binaryExtensions[ext]; ok {
		return kind
	}
	if result.Binary {
		return "pdf"
	}
	return ""
}

// strippedPath drops the query so extension detection sees the real path.
func strippedPath(url string) string {
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		return url[:i]
	}
	return url
}

func (p *Pipeline) writeAudit(record *models.AuditRecord) {
	if err := p.writer.WriteAudit(record); err != nil {
		p.logger.Error().Err(err).Str("url", record.SeedURL).Msg("Failed to append audit record")
	}
}

func (p *Pipeline) commitIfQualifying(record *models.AuditRecord, provenance string) {
	if !p.writer.Qualifies(record) {
		return
	}
	if _, err := p.writer.CommitArticle(&record.ArticleRecord, provenance); err != nil {
		p.logger.Error().Err(err).Str("url", record.FinalURL).Msg("Failed to commit article")
		return
	}
	p.stats.Articles++
}
