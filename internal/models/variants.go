package models

import "strings"

var suffixOrder = []string{"-maxthinking", "-nothinking", "-search"}

// BaseName strips variant suffixes in the fixed order -maxthinking,
// -nothinking, -search, returning the underlying catalog name. Stripping is
// idempotent: calling it again on its own result is a no-op.
func BaseName(modelName string) string {
	for _, suffix := range suffixOrder {
		if strings.HasSuffix(modelName, suffix) {
			return modelName[:len(modelName)-len(suffix)]
		}
	}
	return modelName
}

// IsSearch reports whether modelName requests Google Search grounding.
func IsSearch(modelName string) bool {
	return strings.Contains(modelName, "-search")
}

// IsNoThinking reports whether modelName requests the thinking budget be
// minimized.
func IsNoThinking(modelName string) bool {
	return strings.Contains(modelName, "-nothinking")
}

// IsMaxThinking reports whether modelName requests the maximum thinking
// budget.
func IsMaxThinking(modelName string) bool {
	return strings.Contains(modelName, "-maxthinking")
}

// ThinkingBudget returns the thinking budget to send upstream for
// modelName, or -1 for "default, let the model decide" (every non-thinking
// variant).
func ThinkingBudget(modelName string) int {
	base := BaseName(modelName)
	switch {
	case IsNoThinking(modelName):
		switch {
		case strings.Contains(base, "gemini-2.5-flash"):
			return 0
		case strings.Contains(base, "gemini-2.5-pro"):
			return 128
		case strings.Contains(base, "gemini-3-pro"):
			return 128
		}
	case IsMaxThinking(modelName):
		switch {
		case strings.Contains(base, "gemini-2.5-flash"):
			return 24576
		case strings.Contains(base, "gemini-2.5-pro"):
			return 32768
		case strings.Contains(base, "gemini-3-pro"):
			return 45000
		}
	}
	return -1
}

// ShouldIncludeThoughts reports whether the upstream response should surface
// thought parts. Nothinking mode still surfaces thoughts for pro-family
// models; every other mode always does.
func ShouldIncludeThoughts(modelName string) bool {
	if IsNoThinking(modelName) {
		base := BaseName(modelName)
		return strings.Contains(base, "gemini-2.5-pro") || strings.Contains(base, "gemini-3-pro")
	}
	return true
}
