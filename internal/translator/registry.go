// Package translator converts between the four public request/response
// schemas (OpenAI Chat Completions, OpenAI Responses, Anthropic Messages,
// native Gemini) and the upstream Code Assist envelope.
package translator

import (
	"strings"

	"gemini-gateway/internal/models"
	"gemini-gateway/internal/upstream/codeassist"
)

// safetyCategories is the full permissive category list the upstream Code
// Assist deployment understands, taken from the original service's default
// settings (image-content categories included).
var safetyCategories = []string{
	"HARM_CATEGORY_HARASSMENT",
	"HARM_CATEGORY_HATE_SPEECH",
	"HARM_CATEGORY_SEXUALLY_EXPLICIT",
	"HARM_CATEGORY_DANGEROUS_CONTENT",
	"HARM_CATEGORY_CIVIC_INTEGRITY",
	"HARM_CATEGORY_IMAGE_DANGEROUS_CONTENT",
	"HARM_CATEGORY_IMAGE_HARASSMENT",
	"HARM_CATEGORY_IMAGE_HATE",
	"HARM_CATEGORY_IMAGE_SEXUALLY_EXPLICIT",
	"HARM_CATEGORY_UNSPECIFIED",
	"HARM_CATEGORY_JAILBREAK",
}

// SafetySettings is the permissive default set every translated request
// carries upstream (spec.md 4.7).
func SafetySettings() []codeassist.SafetySetting {
	out := make([]codeassist.SafetySetting, 0, len(safetyCategories))
	for _, cat := range safetyCategories {
		out = append(out, codeassist.SafetySetting{Category: cat, Threshold: "BLOCK_NONE"})
	}
	return out
}

// ApplySearchVariant injects a googleSearch tool into inner.Tools when
// modelName carries the -search suffix (spec.md 4.6), unless a googleSearch
// tool is already present (e.g. an explicit OpenAI Responses web_search
// tool entry).
func ApplySearchVariant(inner *codeassist.RequestInner, modelName string) {
	if !models.IsSearch(modelName) {
		return
	}
	for _, t := range inner.Tools {
		if t.GoogleSearch != nil {
			return
		}
	}
	inner.Tools = append(inner.Tools, codeassist.Tool{GoogleSearch: &struct{}{}})
}

// ApplyThinking sets thinkingConfig on cfg per the model-name variant,
// unless the caller already supplied an explicit thinking budget (native
// Gemini passthrough may have one already).
func ApplyThinking(cfg *codeassist.GenerationConfig, modelName string) {
	if cfg.ThinkingConfig != nil && cfg.ThinkingConfig.ThinkingBudget != nil {
		return
	}
	budget := models.ThinkingBudget(modelName)
	include := models.ShouldIncludeThoughts(modelName)
	cfg.ThinkingConfig = &codeassist.ThinkingConfig{
		ThinkingBudget:  &budget,
		IncludeThoughts: include,
	}
}

// Envelope wraps a translated request body for the given base model and
// project, per spec.md 4.7's final step.
func Envelope(baseModel, project string, req codeassist.RequestInner) codeassist.Envelope {
	return codeassist.Envelope{Model: baseModel, Project: project, Request: req}
}

// ReasoningEffortBudget maps OpenAI's reasoning_effort enum to a thinking
// budget for a base model, used when the caller didn't pick a model-name
// variant (spec.md 4.7).
func ReasoningEffortBudget(effort, baseModel string) int {
	switch effort {
	case "minimal":
		return models.ThinkingBudget(baseModel + "-nothinking")
	case "low":
		if strings.Contains(baseModel, "gemini-2.5-flash") {
			return 1024
		}
		return 2048
	case "medium":
		if strings.Contains(baseModel, "gemini-2.5-flash") {
			return 8192
		}
		return 16384
	case "high":
		return models.ThinkingBudget(baseModel + "-maxthinking")
	default:
		return -1
	}
}
