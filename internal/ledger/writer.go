// -----------------------------------------------------------------------
// Output Ledger Writer - audit log, article log and per-article text files
// -----------------------------------------------------------------------

package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/harvest/internal/common"
	"github.com/ternarybob/harvest/internal/models"
)

// Header keys of the per-article text file, in the fixed order consumed by
// the downstream analysis stage. Readers skip exactly these eight lines.
var headerKeys = [8]string{
	"seed_url", "final_url", "title", "date",
	"via", "http_status", "content_type", "note",
}

var illegalFilenameChars = regexp.MustCompile(`[\\/*?:"<>|\s]+`)

// Writer persists the run's output: an append-only audit log covering every
// fetch attempt, an article log holding only qualifying records, and one
// text file per article. File handles live for one pipeline run.
type Writer struct {
	auditFile   *os.File
	articleFile *os.File
	articlesDir string
	config      common.OutputConfig
	logger      arbor.ILogger
}

// NewWriter opens the output ledger under config.Dir, creating directories
// and opening both logs in append mode so interrupted runs can resume.
func NewWriter(config common.OutputConfig, logger arbor.ILogger) (*Writer, error) {
	articlesDir := filepath.Join(config.Dir, config.ArticlesDir)
	if err := os.MkdirAll(articlesDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create articles directory: %w", err)
	}

	auditFile, err := os.OpenFile(filepath.Join(config.Dir, config.AuditLog),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}

	articleFile, err := os.OpenFile(filepath.Join(config.Dir, config.ArticleLog),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		auditFile.Close()
		return nil, fmt.Errorf("failed to open article log: %w", err)
	}

	return &Writer{
		auditFile:   auditFile,
		articleFile: articleFile,
		articlesDir: articlesDir,
		config:      config,
		logger:      logger,
	}, nil
}

// WriteAudit appends one JSON line to the audit log. Every fetch attempt
// passes through here regardless of outcome.
func (w *Writer) WriteAudit(record *models.AuditRecord) error {
	return appendJSONLine(w.auditFile, record)
}

// Qualifies reports whether a record meets the article bar: not
// directory-like and body at least the minimum rune length.
func (w *Writer) Qualifies(record *models.AuditRecord) bool {
	return !record.DirectoryLike && record.BodyChars >= w.config.MinArticleChars
}

// CommitArticle persists a qualifying record to the article log and writes
// its per-article text file. Returns the text file path.
func (w *Writer) CommitArticle(record *models.ArticleRecord, provenance string) (string, error) {
	if err := appendJSONLine(w.articleFile, record); err != nil {
		return "", err
	}

	path := filepath.Join(w.articlesDir, w.articleFilename(record, provenance))
	if err := os.WriteFile(path, []byte(renderArticleFile(record)), 0644); err != nil {
		return "", fmt.Errorf("failed to write article file: %w", err)
	}

	w.logger.Info().
		Str("url", record.FinalURL).
		Str("file", filepath.Base(path)).
		Msg("Article committed")

	return path, nil
}

// Close flushes and closes both log handles.
func (w *Writer) Close() error {
	var firstErr error
	if err := w.auditFile.Close(); err != nil {
		firstErr = err
	}
	if err := w.articleFile.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// articleFilename derives a deterministic, collision-free file name from
// the provenance stem, a short hash of the final URL, and the truncated
// title. The hash guarantees distinct files even when titles repeat.
func (w *Writer) articleFilename(record *models.ArticleRecord, provenance string) string {
	stem := strings.TrimSuffix(filepath.Base(provenance), filepath.Ext(provenance))
	if stem == "" {
		stem = "article"
	}

	sum := sha256.Sum256([]byte(record.FinalURL))
	hash := hex.EncodeToString(sum[:])[:8]

	title := sanitizeFilename(record.Title, w.config.TitleMaxChars)
	if title == "" {
		title = "untitled"
	}

	return fmt.Sprintf("%s_%s_%s.txt", sanitizeFilename(stem, w.config.TitleMaxChars), hash, title)
}

// sanitizeFilename removes characters that are illegal or awkward in file
// names and truncates to maxRunes.
func sanitizeFilename(s string, maxRunes int) string {
	s = illegalFilenameChars.ReplaceAllString(strings.TrimSpace(s), "_")
	s = strings.Trim(s, "._")

	runes := []rune(s)
	if len(runes) > maxRunes {
		runes = runes[:maxRunes]
	}
	return string(runes)
}

// renderArticleFile produces the text file body: eight "key: value" header
// lines in fixed order, one blank line, then the body text.
func renderArticleFile(record *models.ArticleRecord) string {
	values := map[string]string{
		"seed_url":     record.SeedURL,
		"final_url":    record.FinalURL,
		"title":        record.Title,
		"date":         record.Date,
		"via":          string(record.Via),
		"http_status":  fmt.Sprintf("%d", record.HTTPStatus),
		"content_type": record.ContentType,
		"note":         record.Note,
	}

	var b strings.Builder
	for _, key := range headerKeys {
		b.WriteString(key)
		b.WriteString(": ")
		// Header values must stay on one line to keep the 8-line contract
		b.WriteString(strings.ReplaceAll(values[key], "\n", " "))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(record.BodyText)
	b.WriteString("\n")
	return b.String()
}

func appendJSONLine(file *os.File, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	data = append(data, '\n')
	if _, err := file.Write(data); err != nil {
		return fmt.Errorf("failed to append record: %w", err)
	}
	return nil
}
