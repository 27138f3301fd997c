package translator

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"gemini-gateway/internal/sse"
	"gemini-gateway/internal/upstream/codeassist"
)

func mapFinishReason(fr string, hasToolCall bool) string {
	if hasToolCall {
		return "tool_calls"
	}
	switch fr {
	case "STOP":
		return "stop"
	case "MAX_TOKENS":
		return "length"
	case "SAFETY", "RECITATION":
		return "content_filter"
	case "":
		return ""
	default:
		return "stop"
	}
}

type chatMessageOut struct {
	Role             string          `json:"role"`
	Content          string          `json:"content"`
	ReasoningContent string          `json:"reasoning_content,omitempty"`
	ToolCalls        []OpenAIToolCall `json:"tool_calls,omitempty"`
}

// splitCandidateParts separates a candidate's parts into main text,
// reasoning text, and tool calls, in arrival order (spec.md 4.9).
func splitCandidateParts(cand codeassist.Candidate) (text, reasoning string, calls []OpenAIToolCall) {
	if cand.Content == nil {
		return
	}
	for i, p := range cand.Content.Parts {
		switch {
		case p.Thought:
			reasoning += p.Text
		case p.FunctionCall != nil:
			argsJSON, _ := json.Marshal(p.FunctionCall.Args)
			tc := OpenAIToolCall{ID: fmt.Sprintf("call_%s_%d", p.FunctionCall.Name, i), Type: "function"}
			tc.Function.Name = p.FunctionCall.Name
			tc.Function.Arguments = string(argsJSON)
			calls = append(calls, tc)
		case p.InlineData != nil:
			text += fmt.Sprintf("![image](data:%s;base64,%s)", p.InlineData.MimeType, p.InlineData.Data)
		default:
			text += p.Text
		}
	}
	return
}

// OpenAIChatResponse builds a non-streaming Chat Completions response from
// the upstream unary body.
func OpenAIChatResponse(model string, upstream *codeassist.Response) ([]byte, error) {
	inner, ok := upstream.Unwrap()
	id := fmt.Sprintf("chatcmpl-%d", time.Now().UnixNano())

	type choice struct {
		Index        int             `json:"index"`
		Message      chatMessageOut  `json:"message"`
		FinishReason string          `json:"finish_reason"`
	}
	resp := map[string]any{
		"id":      id,
		"object":  "chat.completion",
		"created": time.Now().Unix(),
		"model":   model,
	}
	if !ok {
		resp["choices"] = []choice{}
		return json.Marshal(resp)
	}

	choices := make([]choice, 0, len(inner.Candidates))
	for _, cand := range inner.Candidates {
		text, reasoning, calls := splitCandidateParts(cand)
		msg := chatMessageOut{Role: "assistant", Content: text, ReasoningContent: reasoning, ToolCalls: calls}
		choices = append(choices, choice{
			Index:        cand.Index,
			Message:      msg,
			FinishReason: mapFinishReason(cand.FinishReason, len(calls) > 0),
		})
	}
	resp["choices"] = choices
	if inner.UsageMetadata != nil {
		resp["usage"] = map[string]any{
			"prompt_tokens":     inner.UsageMetadata.PromptTokenCount,
			"completion_tokens": inner.UsageMetadata.CandidatesTokenCount,
			"total_tokens":      inner.UsageMetadata.TotalTokenCount,
		}
	}
	return json.Marshal(resp)
}

// OpenAIChatStream pumps upstream SSE frames into OpenAI chat.completion.chunk
// events, preserving arrival order, and writes the trailing [DONE] line.
func OpenAIChatStream(upstream io.Reader, w io.Writer, model string) error {
	id := fmt.Sprintf("chatcmpl-%d", time.Now().UnixNano())
	scanner := sse.NewScanner(upstream)
	chunkIndex := 0

	writeChunk := func(delta map[string]any, finishReason *string) error {
		chunk := map[string]any{
			"id":      id,
			"object":  "chat.completion.chunk",
			"created": time.Now().Unix(),
			"model":   model,
			"choices": []map[string]any{{"index": 0, "delta": delta, "finish_reason": finishReason}},
		}
		b, err := json.Marshal(chunk)
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
			delta := map[string]any{}
			if chunkIndex == 0 {
				delta["role"] = "assistant"
			}
			if text != "" {
				delta["content"] = text
			}
			if reasoning != "" {
				delta["reasoning_content"] = reasoning
			}
			if len(calls) > 0 {
				tcs := make([]map[string]any, len(calls))
				for i, c := range calls {
					tcs[i] = map[string]any{"index": i, "id": c.ID, "type": "function", "function": map[string]any{"name": c.Function.Name, "arguments": c.Function.Arguments}}
				}
				delta["tool_calls"] = tcs
			}
			var finishReason *string
			if cand.FinishReason != "" {
				fr := mapFinishReason(cand.FinishReason, len(calls) > 0)
				finishReason = &fr
			}
			if err := writeChunk(delta, finishReason); err != nil {
				return err
			}
			chunkIndex++
		}
	}
	_, err := w.Write([]byte("data: [DONE]\n\n"))
	return err
}
