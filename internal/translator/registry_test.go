package translator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gemini-gateway/internal/upstream/codeassist"
)

func TestSafetySettings_AllBlockNone(t *testing.T) {
	settings := SafetySettings()
	require.Len(t, settings, len(safetyCategories))
	for _, s := range settings {
		assert.Equal(t, "BLOCK_NONE", s.Threshold)
	}
}

func TestApplySearchVariant_InjectsGoogleSearchForSearchModel(t *testing.T) {
	inner := codeassist.RequestInner{}
	ApplySearchVariant(&inner, "gemini-2.5-flash-search")
	require.Len(t, inner.Tools, 1)
	assert.NotNil(t, inner.Tools[0].GoogleSearch)
}

func TestApplySearchVariant_NoOpForNonSearchModel(t *testing.T) {
	inner := codeassist.RequestInner{}
	ApplySearchVariant(&inner, "gemini-2.5-flash")
	assert.Empty(t, inner.Tools)
}

func TestApplySearchVariant_IdempotentAcrossRepeatedCalls(t *testing.T) {
	inner := codeassist.RequestInner{}
	ApplySearchVariant(&inner, "gemini-2.5-flash-search")
	ApplySearchVariant(&inner, "gemini-2.5-flash-search")
	ApplySearchVariant(&inner, "gemini-2.5-flash-search")
	assert.Len(t, inner.Tools, 1, "must not add a second googleSearch tool")
}

func TestApplySearchVariant_RespectsPreexistingGoogleSearchTool(t *testing.T) {
	inner := codeassist.RequestInner{Tools: []codeassist.Tool{{GoogleSearch: &struct{}{}}}}
	ApplySearchVariant(&inner, "gemini-2.5-flash-search")
	assert.Len(t, inner.Tools, 1)
}

func TestApplyThinking_SetsBudgetFromModelVariant(t *testing.T) {
	cfg := &codeassist.GenerationConfig{}
	ApplyThinking(cfg, "gemini-2.5-flash-nothinking")
	require.NotNil(t, cfg.ThinkingConfig)
	require.NotNil(t, cfg.ThinkingConfig.ThinkingBudget)
	assert.Equal(t, 0, *cfg.ThinkingConfig.ThinkingBudget)
	assert.False(t, cfg.ThinkingConfig.IncludeThoughts)
}

func TestApplyThinking_DoesNotOverrideExplicitBudget(t *testing.T) {
	explicit := 4096
	cfg := &codeassist.GenerationConfig{ThinkingConfig: &codeassist.ThinkingConfig{ThinkingBudget: &explicit, IncludeThoughts: true}}
	ApplyThinking(cfg, "gemini-2.5-flash-nothinking")
	assert.Equal(t, 4096, *cfg.ThinkingConfig.ThinkingBudget)
	assert.True(t, cfg.ThinkingConfig.IncludeThoughts)
}

func TestEnvelope_WrapsModelProjectRequest(t *testing.T) {
	inner := codeassist.RequestInner{}
	env := Envelope("gemini-2.5-flash", "proj-1", inner)
	assert.Equal(t, "gemini-2.5-flash", env.Model)
	assert.Equal(t, "proj-1", env.Project)
}

func TestReasoningEffortBudget_Minimal(t *testing.T) {
	assert.Equal(t, 0, ReasoningEffortBudget("minimal", "gemini-2.5-flash"))
}

func TestReasoningEffortBudget_LowVariesByModel(t *testing.T) {
	assert.Equal(t, 1024, ReasoningEffortBudget("low", "gemini-2.5-flash"))
	assert.Equal(t, 2048, ReasoningEffortBudget("low", "gemini-2.5-pro"))
}

func TestReasoningEffortBudget_MediumVariesByModel(t *testing.T) {
	assert.Equal(t, 8192, ReasoningEffortBudget("medium", "gemini-2.5-flash"))
	assert.Equal(t, 16384, ReasoningEffortBudget("medium", "gemini-2.5-pro"))
}

func TestReasoningEffortBudget_HighUsesMaxThinking(t *testing.T) {
	assert.Equal(t, 24576, ReasoningEffortBudget("high", "gemini-2.5-flash"))
}

func TestReasoningEffortBudget_UnknownIsUnset(t *testing.T) {
	assert.Equal(t, -1, ReasoningEffortBudget("", "gemini-2.5-flash"))
	assert.Equal(t, -1, ReasoningEffortBudget("bogus", "gemini-2.5-flash"))
}
