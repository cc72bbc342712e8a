package textutil

import "strings"

// Truncate caps text at limit runes and reports whether anything was cut.
// Vendor character ceilings must never be applied silently; callers use the
// returned flag to mark the job as truncated.
func Truncate(text string, limit int) (string, bool) {
	if limit <= 0 {
		return text, false
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text, false
	}
	return strings.TrimSpace(string(runes[:limit])), true
}

// TruncateAtBoundary caps text at limit runes, preferring to cut at the last
// sentence or word boundary inside the window so narration does not stop
// mid-word.
func TruncateAtBoundary(text string, limit int) (string, bool) {
	capped, truncated := Truncate(text, limit)
	if !truncated {
		return capped, false
	}
	if idx := strings.LastIndexAny(capped, ".!?"); idx > limit/2 {
		return strings.TrimSpace(capped[:idx+1]), true
	}
	if idx := strings.LastIndexAny(capped, " \n\t"); idx > limit/2 {
		return strings.TrimSpace(capped[:idx]), true
	}
	return capped, true
}
