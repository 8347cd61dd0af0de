package assistant

import (
	"regexp"
	"strings"
)

var (
	citationMarker = regexp.MustCompile(`\[\d+\]`)
	sourceLine     = regexp.MustCompile(`(?mi)^\s*(sources?|references?):.*$`)
	blankRun       = regexp.MustCompile(`\n{3,}`)
	spaceRun       = regexp.MustCompile(`[ \t]{2,}`)
	spacePunct     = regexp.MustCompile(`[ \t]+([.,!?;:])`)
)

// StripCitations removes numbered citation markers and trailing source lists
// that search-backed models append to replies.
func StripCitations(reply string) string {
	out := citationMarker.ReplaceAllString(reply, "")
	out = sourceLine.ReplaceAllString(out, "")
	out = spaceRun.ReplaceAllString(out, " ")
	out = spacePunct.ReplaceAllString(out, "$1")
	out = blankRun.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}
