package translator

import (
	"encoding/json"

	"gemini-gateway/internal/upstream/codeassist"
)

// NativeToEnvelopeRequest decodes a native Gemini generateContent/
// streamGenerateContent body into the upstream RequestInner, passing
// contents/tools/generationConfig through unchanged except that safety
// settings are force-set to the permissive default and thinkingConfig is
// populated per the model-name variant unless the caller already supplied
// a thinkingBudget of their own (spec.md 4.7's native-passthrough rule).
func NativeToEnvelopeRequest(body []byte, modelName string) (codeassist.RequestInner, error) {
	var inner codeassist.RequestInner
	if err := json.Unmarshal(body, &inner); err != nil {
		return inner, err
	}
	ApplySearchVariant(&inner, modelName)
	inner.SafetySettings = SafetySettings()
	if inner.GenerationConfig == nil {
		inner.GenerationConfig = &codeassist.GenerationConfig{}
	}
	ApplyThinking(inner.GenerationConfig, modelName)
	return inner, nil
}
