package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBaseName_StripsKnownSuffixes(t *testing.T) {
	assert.Equal(t, "gemini-2.5-flash", BaseName("gemini-2.5-flash-search"))
	assert.Equal(t, "gemini-2.5-flash", BaseName("gemini-2.5-flash-nothinking"))
	assert.Equal(t, "gemini-2.5-flash", BaseName("gemini-2.5-flash-maxthinking"))
	assert.Equal(t, "gemini-2.5-flash", BaseName("gemini-2.5-flash"))
}

func TestBaseName_Idempotent(t *testing.T) {
	for _, name := range Catalog() {
		base := BaseName(name)
		assert.Equal(t, base, BaseName(base), "stripping twice must be a no-op for %s", name)
	}
}

func TestIsSearch(t *testing.T) {
	assert.True(t, IsSearch("gemini-2.5-flash-search"))
	assert.True(t, IsSearch("gemini-2.5-flash-search-maxthinking"))
	assert.False(t, IsSearch("gemini-2.5-flash"))
}

func TestThinkingBudget_NoThinking(t *testing.T) {
	assert.Equal(t, 0, ThinkingBudget("gemini-2.5-flash-nothinking"))
	assert.Equal(t, 128, ThinkingBudget("gemini-2.5-pro-nothinking"))
	assert.Equal(t, 128, ThinkingBudget("gemini-3-pro-preview-nothinking"))
}

func TestThinkingBudget_MaxThinking(t *testing.T) {
	assert.Equal(t, 24576, ThinkingBudget("gemini-2.5-flash-maxthinking"))
	assert.Equal(t, 32768, ThinkingBudget("gemini-2.5-pro-maxthinking"))
	assert.Equal(t, 45000, ThinkingBudget("gemini-3-pro-preview-maxthinking"))
}

func TestThinkingBudget_DefaultIsUnset(t *testing.T) {
	assert.Equal(t, -1, ThinkingBudget("gemini-2.5-flash"))
	assert.Equal(t, -1, ThinkingBudget("gemini-2.5-flash-search"))
}

func TestShouldIncludeThoughts(t *testing.T) {
	assert.True(t, ShouldIncludeThoughts("gemini-2.5-flash"))
	assert.False(t, ShouldIncludeThoughts("gemini-2.5-flash-nothinking"))
	assert.True(t, ShouldIncludeThoughts("gemini-2.5-pro-nothinking"))
	assert.True(t, ShouldIncludeThoughts("gemini-3-pro-preview-nothinking"))
}

func TestBaseByName_Found(t *testing.T) {
	d, ok := BaseByName("gemini-3-flash-preview")
	assert.True(t, ok)
	assert.Equal(t, "Gemini 3.0 Flash Preview", d.DisplayName)
}

func TestBaseByName_Missing(t *testing.T) {
	_, ok := BaseByName("not-a-real-model")
	assert.False(t, ok)
}

func TestCatalog_Sorted(t *testing.T) {
	names := Catalog()
	for i := 1; i < len(names); i++ {
		assert.LessOrEqual(t, names[i-1], names[i])
	}
}
