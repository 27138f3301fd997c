package translator

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"gemini-gateway/internal/sse"
	"gemini-gateway/internal/upstream/codeassist"
)

// mapAnthropicStopReason maps a Gemini finishReason onto Anthropic's
// stop_reason vocabulary, which is narrower than OpenAI's (spec.md 4.9).
func mapAnthropicStopReason(fr string, hasToolCall bool) string {
	if hasToolCall {
		return "tool_use"
	}
	switch fr {
	case "MAX_TOKENS":
		return "max_tokens"
	case "SAFETY", "RECITATION":
		return "stop_sequence"
	case "":
		return ""
	default:
		return "end_turn"
	}
}

type anthropicContentBlock struct {
	Type  string `json:"type"`
	Text  string `json:"text,omitempty"`
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Input any    `json:"input,omitempty"`
}

// blocksFromCandidate converts a candidate's parts into Anthropic content
// blocks, preserving arrival order: thought parts become "thinking" blocks,
// plain text becomes "text" blocks, and function calls become "tool_use"
// blocks (spec.md 4.9).
func blocksFromCandidate(cand codeassist.Candidate) []anthropicContentBlock {
	if cand.Content == nil {
		return nil
	}
	var blocks []anthropicContentBlock
	for i, p := range cand.Content.Parts {
		switch {
		case p.Thought:
			blocks = append(blocks, anthropicContentBlock{Type: "thinking", Text: p.Text})
		case p.FunctionCall != nil:
			blocks = append(blocks, anthropicContentBlock{
				Type:  "tool_use",
				ID:    fmt.Sprintf("toolu_%s_%d", p.FunctionCall.Name, i),
				Name:  p.FunctionCall.Name,
				Input: p.FunctionCall.Args,
			})
		case p.InlineData != nil:
			blocks = append(blocks, anthropicContentBlock{Type: "text", Text: fmt.Sprintf("![image](data:%s;base64,%s)", p.InlineData.MimeType, p.InlineData.Data)})
		default:
			blocks = append(blocks, anthropicContentBlock{Type: "text", Text: p.Text})
		}
	}
	return blocks
}

// AnthropicMessagesResponse builds a non-streaming Messages response from
// the upstream unary body.
func AnthropicMessagesResponse(model string, upstream *codeassist.Response) ([]byte, error) {
	id := fmt.Sprintf("msg_%d", time.Now().UnixNano())
	resp := map[string]any{
		"id":    id,
		"type":  "message",
		"role":  "assistant",
		"model": model,
	}
	inner, ok := upstream.Unwrap()
	if !ok || len(inner.Candidates) == 0 {
		resp["content"] = []anthropicContentBlock{}
		resp["stop_reason"] = "end_turn"
		return json.Marshal(resp)
	}

	cand := inner.Candidates[0]
	blocks := blocksFromCandidate(cand)
	hasToolCall := false
	for _, b := range blocks {
		if b.Type == "tool_use" {
			hasToolCall = true
			break
		}
	}
	resp["content"] = blocks
	resp["stop_reason"] = mapAnthropicStopReason(cand.FinishReason, hasToolCall)
	if inner.UsageMetadata != nil {
		resp["usage"] = map[string]any{
			"input_tokens":  inner.UsageMetadata.PromptTokenCount,
			"output_tokens": inner.UsageMetadata.CandidatesTokenCount,
		}
	}
	return json.Marshal(resp)
}

// AnthropicMessagesStream pumps upstream SSE frames into the Anthropic
// Messages streaming event sequence: message_start, one content_block_start/
// content_block_delta+/content_block_stop triplet per block, message_delta,
// then message_stop (spec.md 4.9/6).
func AnthropicMessagesStream(upstream io.Reader, w io.Writer, model string) error {
	id := fmt.Sprintf("msg_%d", time.Now().UnixNano())
	scanner := sse.NewScanner(upstream)

	write := func(event string, payload any) error {
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

	if err := write("message_start", map[string]any{
		"type": "message_start",
		"message": map[string]any{
			"id": id, "type": "message", "role": "assistant", "model": model,
			"content": []any{}, "stop_reason": nil, "usage": map[string]any{"input_tokens": 0, "output_tokens": 0},
		},
	}); err != nil {
		return err
	}

	blockIndex := -1
	blockOpen := false
	openType := ""
	lastStopReason := "end_turn"
	var usage *codeassist.UsageMetadata

	closeBlock := func() error {
		if !blockOpen {
			return nil
		}
		blockOpen = false
		return write("content_block_stop", map[string]any{"type": "content_block_stop", "index": blockIndex})
	}

	// openBlock starts a new block, closing whatever was open before it. A
	// tool_use block always gets its own block since consecutive calls must
	// not merge; text/thinking runs of the same type stay in one block
	// across frames (see the dispatch loop below).
	openBlock := func(b anthropicContentBlock) error {
		if err := closeBlock(); err != nil {
			return err
		}
		blockIndex++
		blockOpen = true
		openType = b.Type
		start := map[string]any{"type": b.Type}
		switch b.Type {
		case "text":
			start["text"] = ""
		case "thinking":
			start["thinking"] = ""
		case "tool_use":
			start["id"] = b.ID
			start["name"] = b.Name
			start["input"] = map[string]any{}
		}
		return write("content_block_start", map[string]any{"type": "content_block_start", "index": blockIndex, "content_block": start})
	}

	deltaBlock := func(b anthropicContentBlock) error {
		var delta map[string]any
		switch b.Type {
		case "text":
			delta = map[string]any{"type": "text_delta", "text": b.Text}
		case "thinking":
			delta = map[string]any{"type": "thinking_delta", "thinking": b.Text}
		case "tool_use":
			argsJSON, _ := json.Marshal(b.Input)
			delta = map[string]any{"type": "input_json_delta", "partial_json": string(argsJSON)}
		}
		return write("content_block_delta", map[string]any{"type": "content_block_delta", "index": blockIndex, "delta": delta})
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
		if !ok || len(inner.Candidates) == 0 {
			continue
		}
		if inner.UsageMetadata != nil {
			usage = inner.UsageMetadata
		}
		cand := inner.Candidates[0]
		blocks := blocksFromCandidate(cand)
		hasToolCall := false
		for _, b := range blocks {
			if b.Type == "tool_use" {
				hasToolCall = true
			}
			// A run of same-type parts (e.g. consecutive text deltas across
			// frames) stays in one block; anything else, including a second
			// tool_use, starts a fresh one.
			if !blockOpen || openType != b.Type || b.Type == "tool_use" {
				if err := openBlock(b); err != nil {
					return err
				}
			}
			if err := deltaBlock(b); err != nil {
				return err
			}
		}
		if cand.FinishReason != "" {
			lastStopReason = mapAnthropicStopReason(cand.FinishReason, hasToolCall)
		}
	}

	if err := closeBlock(); err != nil {
		return err
	}

	deltaMsg := map[string]any{"stop_reason": lastStopReason, "stop_sequence": nil}
	usageOut := map[string]any{"output_tokens": 0}
	if usage != nil {
		usageOut["output_tokens"] = usage.CandidatesTokenCount
	}
	if err := write("message_delta", map[string]any{"type": "message_delta", "delta": deltaMsg, "usage": usageOut}); err != nil {
		return err
	}
	return write("message_stop", map[string]any{"type": "message_stop"})
}
