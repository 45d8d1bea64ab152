// Package htmltext flattens the presentation markup found in exported
// note fields into plain text suitable for card faces.
package htmltext

import (
	"regexp"
	"strings"
)

var (
	lineBreakTags = regexp.MustCompile(`(?i)<br\s*/?\s*>`)
	// Horizontal rules and paragraph closers become a blank line.
	blockBreakTags = regexp.MustCompile(`(?i)(</p\s*>|<hr[^>]*>)`)
	paragraphOpen  = regexp.MustCompile(`(?i)<p(\s[^>]*)?>`)
	remainingTags  = regexp.MustCompile(`<[^>]+>`)
	soundRefs      = regexp.MustCompile(`\[sound:[^\]]*\]`)
	spaceRuns      = regexp.MustCompile(`[ \t]{2,}`)
	newlinePadding = regexp.MustCompile(`[ \t]*\n[ \t]*`)
	blankLineRuns  = regexp.MustCompile(`\n{3,}`)
)

var entityReplacer = strings.NewReplacer(
	"&nbsp;", " ",
	"&lt;", "<",
	"&gt;", ">",
	"&amp;", "&",
)

// Normalize strips markup, entities and audio references from a field
// value and collapses the remaining whitespace. The rewrite is ordered,
// pure and idempotent: applying it twice yields the same result as once.
func Normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	s = lineBreakTags.ReplaceAllString(s, "\n")
	s = blockBreakTags.ReplaceAllString(s, "\n\n")
	s = paragraphOpen.ReplaceAllString(s, "")

	s = entityReplacer.Replace(s)

	s = remainingTags.ReplaceAllString(s, " ")
	s = soundRefs.ReplaceAllString(s, "")

	s = spaceRuns.ReplaceAllString(s, " ")
	s = newlinePadding.ReplaceAllString(s, "\n")
	s = blankLineRuns.ReplaceAllString(s, "\n\n")

	return strings.TrimSpace(s)
}
