package translator

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"gemini-gateway/internal/sse"
	"gemini-gateway/internal/upstream/codeassist"
)

// OpenAIResponsesResponse builds a non-streaming Responses API response
// object from the upstream unary body.
func OpenAIResponsesResponse(model string, upstream *codeassist.Response) ([]byte, error) {
	id := fmt.Sprintf("resp_%d", time.Now().UnixNano())
	resp := map[string]any{
		"id":     id,
		"object": "response",
		"model":  model,
		"status": "completed",
	}
	inner, ok := upstream.Unwrap()
	if !ok {
		resp["output"] = []any{}
		return json.Marshal(resp)
	}

	var output []map[string]any
	for _, cand := range inner.Candidates {
		text, reasoning, calls := splitCandidateParts(cand)
		if reasoning != "" {
			output = append(output, map[string]any{
				"type":    "reasoning",
				"summary": []map[string]any{{"type": "summary_text", "text": reasoning}},
			})
		}
		if text != "" {
			output = append(output, map[string]any{
				"type": "message",
				"role": "assistant",
				"content": []map[string]any{
					{"type": "output_text", "text": text},
				},
			})
		}
		for _, c := range calls {
			output = append(output, map[string]any{
				"type":      "function_call",
				"call_id":   c.ID,
				"name":      c.Function.Name,
				"arguments": c.Function.Arguments,
			})
		}
	}
	resp["output"] = output
	if inner.UsageMetadata != nil {
		resp["usage"] = map[string]any{
			"input_tokens":  inner.UsageMetadata.PromptTokenCount,
			"output_tokens": inner.UsageMetadata.CandidatesTokenCount,
			"total_tokens":  inner.UsageMetadata.TotalTokenCount,
		}
	}
	return json.Marshal(resp)
}

func writeNamedEvent(w io.Writer, event string, payload any) error {
	if _, err := w.Write([]byte("event: " + event + "\n")); err != nil {
		return err
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte("data: ")); err != nil {
		return err
	}
	if _, err := w.Write(b); err != nil {
		return err
	}
	_, err = w.Write([]byte("\n\n"))
	return err
}

// OpenAIResponsesStream pumps upstream SSE frames into the Responses API's
// named-event stream, emitting response.created, output_text.delta,
// function_call_arguments.done, response.completed, and a final done event
// (spec.md 4.9 / 6).
func OpenAIResponsesStream(upstream io.Reader, w io.Writer, model string) error {
	id := fmt.Sprintf("resp_%d", time.Now().UnixNano())
	scanner := sse.NewScanner(upstream)

	if err := writeNamedEvent(w, "response.created", map[string]any{
		"type":     "response.created",
		"response": map[string]any{"id": id, "object": "response", "model": model, "status": "in_progress"},
	}); err != nil {
		return err
	}

	for {
		ev, done, err := scanner.Next()
		if err != nil {
			return err
		}
		if done {
			break
		}
		var resp codeassist.Response
		if err := json.Unmarshal(ev.Raw, &resp); err != nil {
			continue
		}
		inner, ok := resp.Unwrap()
		if !ok {
			continue
		}
		for _, cand := range inner.Candidates {
			text, reasoning, calls := splitCandidateParts(cand)
			if reasoning != "" {
				if err := writeNamedEvent(w, "response.reasoning_summary_text.delta", map[string]any{"type": "response.reasoning_summary_text.delta", "delta": reasoning}); err != nil {
					return err
				}
			}
			if text != "" {
				if err := writeNamedEvent(w, "response.output_text.delta", map[string]any{"type": "response.output_text.delta", "delta": text}); err != nil {
					return err
				}
			}
			for _, c := range calls {
				if err := writeNamedEvent(w, "response.function_call_arguments.done", map[string]any{
					"type": "response.function_call_arguments.done", "call_id": c.ID, "name": c.Function.Name, "arguments": c.Function.Arguments,
				}); err != nil {
					return err
				}
			}
		}
	}

	if err := writeNamedEvent(w, "response.completed", map[string]any{
		"type":     "response.completed",
		"response": map[string]any{"id": id, "object": "response", "model": model, "status": "completed"},
	}); err != nil {
		return err
	}
	return writeNamedEvent(w, "done", map[string]any{"type": "done"})
}
