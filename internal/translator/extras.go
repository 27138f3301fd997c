package translator

import (
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// knownOpenAIChatFields are the top-level keys OpenAIChatRequest already
// binds. Anything else present on the wire is an extra (spec.md 9: "Dynamic
// schemas ... should map to a typed struct plus a captured extras map").
var knownOpenAIChatFields = map[string]bool{
	"model": true, "messages": true, "stream": true, "temperature": true,
	"top_p": true, "max_tokens": true, "stop": true, "frequency_penalty": true,
	"presence_penalty": true, "n": true, "seed": true, "response_format": true,
	"reasoning_effort": true, "tools": true, "tool_choice": true,
}

var knownOpenAIResponsesFields = map[string]bool{
	"model": true, "input": true, "instructions": true, "stream": true,
	"temperature": true, "top_p": true, "max_output_tokens": true, "tools": true,
}

var knownAnthropicFields = map[string]bool{
	"model": true, "messages": true, "max_tokens": true, "system": true,
	"stop_sequences": true, "stream": true, "temperature": true, "top_p": true,
	"top_k": true, "tools": true, "tool_choice": true, "thinking": true,
}

// openAIChatForwardedExtras, openAIResponsesForwardedExtras, and
// anthropicForwardedExtras name the caller-supplied extras each translator
// is willing to relay upstream, and the RequestEnvelope.request path they
// land on (spec.md 3/45's "and other passthrough fields"). Every other
// extra CaptureExtras finds is read but never forwarded — the translator is
// explicitly deciding, not passing everything through blind.
var openAIChatForwardedExtras = map[string]string{
	"user":     "user",
	"metadata": "labels",
}

var openAIResponsesForwardedExtras = map[string]string{
	"metadata": "labels",
}

var anthropicForwardedExtras = map[string]string{
	"metadata": "labels",
}

// CaptureOpenAIChatExtras and ApplyOpenAIChatExtras, CaptureOpenAIResponsesExtras
// and ApplyOpenAIResponsesExtras, and CaptureAnthropicExtras and
// ApplyAnthropicExtras are the per-schema entry points internal/server calls;
// each pins CaptureExtras/ApplyRequestExtras to the field tables above so
// callers outside this package never need to name an extras table directly.

func CaptureOpenAIChatExtras(rawBody []byte) map[string]gjson.Result {
	return CaptureExtras(rawBody, knownOpenAIChatFields)
}

func ApplyOpenAIChatExtras(payload []byte, extras map[string]gjson.Result) []byte {
	return ApplyRequestExtras(payload, extras, openAIChatForwardedExtras)
}

func CaptureOpenAIResponsesExtras(rawBody []byte) map[string]gjson.Result {
	return CaptureExtras(rawBody, knownOpenAIResponsesFields)
}

func ApplyOpenAIResponsesExtras(payload []byte, extras map[string]gjson.Result) []byte {
	return ApplyRequestExtras(payload, extras, openAIResponsesForwardedExtras)
}

func CaptureAnthropicExtras(rawBody []byte) map[string]gjson.Result {
	return CaptureExtras(rawBody, knownAnthropicFields)
}

func ApplyAnthropicExtras(payload []byte, extras map[string]gjson.Result) []byte {
	return ApplyRequestExtras(payload, extras, anthropicForwardedExtras)
}

// CaptureExtras reads rawBody's top-level fields that aren't named in
// known into a map keyed by field name, leaving each value as the raw
// gjson.Result so ApplyRequestExtras can re-encode it without a lossy
// round-trip through a Go map.
func CaptureExtras(rawBody []byte, known map[string]bool) map[string]gjson.Result {
	if !gjson.ValidBytes(rawBody) {
		return nil
	}
	var extras map[string]gjson.Result
	gjson.ParseBytes(rawBody).ForEach(func(key, value gjson.Result) bool {
		k := key.String()
		if !known[k] {
			if extras == nil {
				extras = make(map[string]gjson.Result)
			}
			extras[k] = value
		}
		return true
	})
	return extras
}

// ApplyRequestExtras writes the subset of extras named in forward into the
// already-marshaled envelope payload's "request.<dest>" path via sjson,
// leaving everything else in payload untouched.
func ApplyRequestExtras(payload []byte, extras map[string]gjson.Result, forward map[string]string) []byte {
	for src, dest := range forward {
		v, ok := extras[src]
		if !ok {
			continue
		}
		updated, err := sjson.SetBytes(payload, "request."+dest, v.Value())
		if err != nil {
			continue
		}
		payload = updated
	}
	return payload
}
