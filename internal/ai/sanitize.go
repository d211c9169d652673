package ai

import (
	"regexp"
	"strings"
)

var (
	// a fence opener with an optional language tag, or a bare closer
	fenceMarker = regexp.MustCompile("```[\\w+-]*\\n?")
	firstFenced = regexp.MustCompile("(?is)```(?:html)?\\s*(.*?)```")
	leadFence   = regexp.MustCompile("(?i)^```(?:html)?")
	trailFence  = regexp.MustCompile("```$")
)

// StripFences removes every code-fence marker and trims surrounding whitespace.
func StripFences(raw string) string {
	return strings.TrimSpace(fenceMarker.ReplaceAllString(raw, ""))
}

// ExtractDocument returns the body of the first fenced block, or the text with
// a dangling leading/trailing fence removed when no complete block exists.
func ExtractDocument(raw string) string {
	text := strings.TrimSpace(raw)
	if m := firstFenced.FindStringSubmatch(text); m != nil && m[1] != "" {
		return strings.TrimSpace(m[1])
	}
	text = leadFence.ReplaceAllString(text, "")
	text = trailFence.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// LooksLikeDocument reports whether s carries a doctype or root element marker.
func LooksLikeDocument(s string) bool {
	lower := strings.ToLower(s)
	return strings.Contains(lower, "<!doctype") || strings.Contains(lower, "<html")
}
