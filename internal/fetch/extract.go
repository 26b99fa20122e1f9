package fetch

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
)

// ExtractText parses an HTML document and returns its visible text, one
// phrase per line. script and style elements are dropped, every line is
// trimmed and split again on double spaces, and empty phrases are
// discarded. contentType selects the source charset; the body is
// converted to UTF-8 before parsing.
func ExtractText(r io.Reader, contentType string) (string, error) {
	utf8Body, err := charset.NewReader(r, contentType)
	if err != nil {
		return "", fmt.Errorf("decode charset: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(utf8Body)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	doc.Find("script, style").Remove()

	return chunkText(doc.Text()), nil
}

// chunkText reflows raw document text into non-empty trimmed phrases
// joined by newlines.
func chunkText(raw string) string {
	var chunks []string
	for _, line := range splitLines(raw) {
		line = strings.TrimSpace(line)
		for _, phrase := range strings.Split(line, "  ") {
			if phrase = strings.TrimSpace(phrase); phrase != "" {
				chunks = append(chunks, phrase)
			}
		}
	}
	return strings.Join(chunks, "\n")
}

// splitLines splits on every line boundary, including \r, form feeds and
// the Unicode line and paragraph separators.
func splitLines(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		switch r {
		case '\n', '\r', '\v', '\f', 0x1c, 0x1d, 0x1e, 0x85, 0x2028, 0x2029:
			return true
		}
		return false
	})
}
