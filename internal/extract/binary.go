// -----------------------------------------------------------------------
// Binary Content Extractors - best-effort PDF and DOCX plain text
// -----------------------------------------------------------------------

package extract

import (
	"bytes"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

// PDFText extracts plain text from PDF bytes. Extraction is best-effort:
// corrupt documents, unsupported encodings and parser panics all yield an
// empty string rather than an error, so the caller can distinguish the
// outcome with a note instead of aborting the run.
func PDFText(content []byte) (text string) {
	defer func() {
		// The PDF parser panics on some malformed cross-reference tables
		if recover() != nil {
			text = ""
		}
	}()

	if len(content) < 4 || string(content[:4]) != "%PDF" {
		return ""
	}

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return ""
	}

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(pageText)
		b.WriteString("\n\n")
	}

	return strings.TrimSpace(b.String())
}

// DocxText extracts plain text from DOCX bytes. Like PDFText it degrades
// to an empty string on any internal failure. Legacy binary .doc files
// fail the ZIP signature check and degrade the same way.
func DocxText(content []byte) (text string) {
	defer func() {
		if recover() != nil {
			text = ""
		}
	}()

	// DOCX is a ZIP container; legacy .doc is not
	if len(content) < 4 || content[0] != 0x50 || content[1] != 0x4B {
		return ""
	}

	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return ""
	}

	text = doc.Editable().GetContent()
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.TrimSpace(stripTags(text))
}

// stripTags removes residual XML markup from extracted DOCX content.
func stripTags(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return b.String()
}
