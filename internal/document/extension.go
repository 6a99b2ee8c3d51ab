package document

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Extension is a file extension the pipeline knows how to process.
type Extension string

const (
	ExtPDF  Extension = "pdf"
	ExtDocx Extension = "docx"
	ExtDoc  Extension = "doc"
	ExtXlsx Extension = "xlsx"
	ExtHTML Extension = "html"
	ExtMD   Extension = "md"
	ExtTxt  Extension = "txt"
	ExtMP3  Extension = "mp3"
)

var knownExtensions = map[Extension]struct{}{
	ExtPDF:  {},
	ExtDocx: {},
	ExtDoc:  {},
	ExtXlsx: {},
	ExtHTML: {},
	ExtMD:   {},
	ExtTxt:  {},
	ExtMP3:  {},
}

// ParseExtension validates a normalized extension string.
func ParseExtension(value string) (Extension, bool) {
	ext := Extension(value)
	_, ok := knownExtensions[ext]
	return ext, ok
}

// RectifyExtension normalizes scraper-supplied extensions into a known value.
// Scrapers send values like ".PDF" or "pdf (148 KB)"; the size suffix and
// leading dot are stripped before validation.
func RectifyExtension(raw string) (Extension, bool) {
	cleaned := strings.ToLower(strings.TrimSpace(raw))
	if idx := strings.Index(cleaned, "("); idx >= 0 {
		cleaned = strings.TrimSpace(cleaned[:idx])
	}
	cleaned = strings.TrimPrefix(cleaned, ".")
	return ParseExtension(cleaned)
}

// VerifyContent checks that the bytes on disk plausibly match the declared
// extension. A mismatch means the scrape fetched the wrong payload (commonly
// an HTML error page saved as .pdf) and the document must not be processed.
func VerifyContent(path string, ext Extension) (bool, string, error) {
	detected, err := mimetype.DetectFile(path)
	if err != nil {
		return false, "", err
	}
	switch ext {
	case ExtPDF:
		if !detected.Is("application/pdf") {
			return false, "invalid mime type for pdf: " + detected.String(), nil
		}
	case ExtXlsx:
		if !detected.Is("application/vnd.openxmlformats-officedocument.spreadsheetml.sheet") {
			return false, "invalid mime type for xlsx: " + detected.String(), nil
		}
	case ExtHTML, ExtMD, ExtTxt:
		if !isTextMIME(detected) {
			return false, "invalid mime type for text file: " + detected.String(), nil
		}
	case ExtMP3:
		if !detected.Is("audio/mpeg") {
			return false, "invalid mime type for mp3: " + detected.String(), nil
		}
	}
	return true, "", nil
}

func isTextMIME(detected *mimetype.MIME) bool {
	for m := detected; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "text/") {
			return true
		}
	}
	return false
}
