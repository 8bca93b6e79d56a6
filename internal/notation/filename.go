package notation

import (
	"regexp"
	"strings"
)

// DefaultExportName is used when a score has no usable title.
const DefaultExportName = "string-scribe-export.pdf"

var (
	parenthetical  = regexp.MustCompile(`\([^)]*\)`)
	audioExtension = regexp.MustCompile(`(?i)\.(mid|midi|mp3|wav|m4a|flac|ogg|aac)\s*$`)
	whitespace     = regexp.MustCompile(`\s+`)
)

// ExportFilename derives the document name from a score title.
//
// Parenthetical annotations and a trailing audio extension are removed and whitespace is collapsed,
// so "Song (live) .mp3" becomes "Song.pdf".
func ExportFilename(title string) string {
	name := parenthetical.ReplaceAllString(title, "")
	name = whitespace.ReplaceAllString(name, " ")
	name = audioExtension.ReplaceAllString(strings.TrimSpace(name), "")
	name = strings.TrimSpace(whitespace.ReplaceAllString(name, " "))
	name = strings.Trim(name, "/\\")
	name = strings.NewReplacer("/", "-", "\\", "-").Replace(name)

	if name == "" {
		return DefaultExportName
	}
	return name + ".pdf"
}
