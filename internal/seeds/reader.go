// -----------------------------------------------------------------------
// Seed Ledger Reader - parses candidate URLs from loosely structured text
// -----------------------------------------------------------------------

package seeds

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/harvest/internal/common"
	"github.com/ternarybob/harvest/internal/models"
)

// Reader ingests a directory of seed text files. Each line may carry a
// "URL:"-prefixed value or a bare http(s) URL; everything else is ignored.
type Reader struct {
	excludeFile string
	logger      arbor.ILogger
}

// NewReader creates a seed reader. excludeFile names the one summary file
// that is never ingested.
func NewReader(excludeFile string, logger arbor.ILogger) *Reader {
	return &Reader{
		excludeFile: excludeFile,
		logger:      logger,
	}
}

// ReadDir scans every regular file in dir and returns the ordered,
// deduplicated seed entries. Duplicate URLs keep their first occurrence;
// unreadable files are skipped without affecting the rest.
func (r *Reader) ReadDir(dir string) ([]models.SeedEntry, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	// Deterministic ingestion order regardless of filesystem ordering
	names := make([]string, 0, len(dirEntries))
	for _, entry := range dirEntries {
		if entry.IsDir() {
			continue
		}
		if entry.Name() == r.excludeFile {
			r.logger.Debug().Str("file", entry.Name()).Msg("Skipping excluded summary file")
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	seen := make(map[string]bool)
	var entries []models.SeedEntry

	for _, name := range names {
		path := filepath.Join(dir, name)
		fileEntries, err := r.readFile(path, name, seen)
		if err != nil {
			r.logger.Warn().Err(err).Str("file", name).Msg("Skipping unreadable seed file")
			continue
		}
		entries = append(entries, fileEntries...)
	}

	r.logger.Info().
		Int("files", len(names)).
		Int("seeds", len(entries)).
		Str("dir", dir).
		Msg("Seed ledger loaded")

	return entries, nil
}

// readFile extracts seed entries from a single file, deduplicating against
// URLs already seen across the whole ingestion.
func (r *Reader) readFile(path, name string, seen map[string]bool) ([]models.SeedEntry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var entries []models.SeedEntry
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		rawURL := extractURL(scanner.Text())
		if rawURL == "" {
			continue
		}

		normalized := common.NormalizeURL(rawURL)
		if normalized == "" || !common.IsHTTPURL(normalized) {
			continue
		}
		if seen[normalized] {
			continue
		}
		seen[normalized] = true

		entries = append(entries, models.SeedEntry{
			URL:        normalized,
			Provenance: name,
			LineNumber: lineNumber,
		})
	}

	if err := scanner.Err(); err != nil {
		return entries, err
	}
	return entries, nil
}

// urlLabelPattern matches a leading "URL:" label in any casing. Anchored
// so a URL that merely contains "url:" is not mistaken for a labeled line.
var urlLabelPattern = regexp.MustCompile(`(?i)^url:`)

// extractURL pulls a URL out of a single seed line. Accepted forms are
// "URL: <url>" (any leading label casing) and a bare line starting with
// http:// or https://. Anything else yields "".
func extractURL(line string) string {
	line = strings.TrimSpace(line)
	if line == "" {
		return ""
	}

	if loc := urlLabelPattern.FindStringIndex(line); loc != nil {
		return strings.TrimSpace(line[loc[1]:])
	}

	lower := strings.ToLower(line)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		// A bare URL line may still carry trailing annotations after whitespace
		if fields := strings.Fields(line); len(fields) > 0 {
			return fields[0]
		}
	}

	return ""
}
