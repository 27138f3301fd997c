package translator

import (
	"encoding/json"
	"io"

	"gemini-gateway/internal/sse"
	"gemini-gateway/internal/upstream/codeassist"
)

// NativeUnaryResponse renders the upstream unary body as a bare Gemini
// response object, unwrapping the `{response: {...}}` envelope when present
// (spec.md 4.9).
func NativeUnaryResponse(upstream *codeassist.Response) ([]byte, error) {
	inner, ok := upstream.Unwrap()
	if !ok {
		return json.Marshal(map[string]any{"candidates": []any{}})
	}
	return json.Marshal(inner)
}

// NativeStreamPump forwards the upstream SSE stream to the caller verbatim
// (spec.md 4.9/6): each upstream `data:` frame is unwrapped from its
// `{response: {...}}` envelope, if present, and re-emitted unchanged
// otherwise. Blank, non-data, and unparseable lines are dropped rather than
// terminating the stream.
func NativeStreamPump(upstream io.Reader, w io.Writer) error {
	scanner := sse.NewScanner(upstream)
	for {
		ev, done, err := scanner.Next()
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		payload := ev.Data
		if inner, ok := payload["response"].(map[string]any); ok {
			payload = inner
		}
		b, err := json.Marshal(payload)
		if err != nil {
			continue
		}
		if _, err := w.Write([]byte("data: ")); err != nil {
			return err
		}
		if _, err := w.Write(b); err != nil {
			return err
		}
		if _, err := w.Write([]byte("\n\n")); err != nil {
			return err
		}
	}
}
