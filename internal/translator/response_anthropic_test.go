package translator

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gemini-gateway/internal/upstream/codeassist"
)

func TestMapAnthropicStopReason(t *testing.T) {
	assert.Equal(t, "tool_use", mapAnthropicStopReason("STOP", true))
	assert.Equal(t, "max_tokens", mapAnthropicStopReason("MAX_TOKENS", false))
	assert.Equal(t, "stop_sequence", mapAnthropicStopReason("SAFETY", false))
	assert.Equal(t, "stop_sequence", mapAnthropicStopReason("RECITATION", false))
	assert.Equal(t, "", mapAnthropicStopReason("", false))
	assert.Equal(t, "end_turn", mapAnthropicStopReason("STOP", false))
}

func TestAnthropicMessagesResponse_NoCandidates(t *testing.T) {
	upstream := &codeassist.Response{}
	b, err := AnthropicMessagesResponse("claude-stand-in", upstream)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, "end_turn", out["stop_reason"])
	assert.Equal(t, []any{}, out["content"])
}

func TestAnthropicMessagesResponse_TextBlock(t *testing.T) {
	upstream := &codeassist.Response{
		Response: &codeassist.ResponseInner{
			Candidates: []codeassist.Candidate{{
				Content:      &codeassist.Content{Role: "model", Parts: []codeassist.Part{{Text: "hello"}}},
				FinishReason: "STOP",
			}},
			UsageMetadata: &codeassist.UsageMetadata{PromptTokenCount: 5, CandidatesTokenCount: 2},
		},
	}
	b, err := AnthropicMessagesResponse("claude-stand-in", upstream)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, "end_turn", out["stop_reason"])
	content := out["content"].([]any)
	require.Len(t, content, 1)
	block := content[0].(map[string]any)
	assert.Equal(t, "text", block["type"])
	assert.Equal(t, "hello", block["text"])
	usage := out["usage"].(map[string]any)
	assert.EqualValues(t, 5, usage["input_tokens"])
	assert.EqualValues(t, 2, usage["output_tokens"])
}

func TestAnthropicMessagesResponse_ToolUseSetsStopReason(t *testing.T) {
	upstream := &codeassist.Response{
		Response: &codeassist.ResponseInner{
			Candidates: []codeassist.Candidate{{
				Content: &codeassist.Content{Role: "model", Parts: []codeassist.Part{
					{FunctionCall: &codeassist.FunctionCall{Name: "get_weather", Args: map[string]any{"city": "nyc"}}},
				}},
				FinishReason: "STOP",
			}},
		},
	}
	b, err := AnthropicMessagesResponse("claude-stand-in", upstream)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, "tool_use", out["stop_reason"])
	content := out["content"].([]any)
	block := content[0].(map[string]any)
	assert.Equal(t, "tool_use", block["type"])
	assert.Equal(t, "get_weather", block["name"])
}

func sseFrame(payload map[string]any) string {
	b, _ := json.Marshal(payload)
	return "data: " + string(b) + "\n\n"
}

func TestAnthropicMessagesStream_TextRunStaysInOneBlock(t *testing.T) {
	upstream := strings.NewReader(
		sseFrame(map[string]any{"candidates": []any{map[string]any{
			"content": map[string]any{"parts": []any{map[string]any{"text": "hel"}}},
		}}}) +
			sseFrame(map[string]any{"candidates": []any{map[string]any{
				"content":      map[string]any{"parts": []any{map[string]any{"text": "lo"}}},
				"finishReason": "STOP",
			}}}),
	)
	var buf bytes.Buffer
	require.NoError(t, AnthropicMessagesStream(upstream, &buf, "claude-stand-in"))

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "content_block_start"), "consecutive text deltas must share one block")
	assert.Equal(t, 1, strings.Count(out, "content_block_stop"))
	assert.Equal(t, 2, strings.Count(out, "content_block_delta"))
	assert.Contains(t, out, "message_start")
	assert.Contains(t, out, "message_stop")
	assert.Contains(t, out, `"stop_reason":"end_turn"`)
}

func TestAnthropicMessagesStream_ConsecutiveToolUseBlocksNeverMerge(t *testing.T) {
	upstream := strings.NewReader(
		sseFrame(map[string]any{"candidates": []any{map[string]any{
			"content": map[string]any{"parts": []any{map[string]any{"functionCall": map[string]any{"name": "a"}}}},
		}}}) +
			sseFrame(map[string]any{"candidates": []any{map[string]any{
				"content":      map[string]any{"parts": []any{map[string]any{"functionCall": map[string]any{"name": "b"}}}},
				"finishReason": "STOP",
			}}}),
	)
	var buf bytes.Buffer
	require.NoError(t, AnthropicMessagesStream(upstream, &buf, "claude-stand-in"))

	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, "content_block_start"), "each tool_use call must open its own block")
	assert.Equal(t, 2, strings.Count(out, "content_block_stop"))
	assert.Contains(t, out, `"stop_reason":"tool_use"`)
}

func TestAnthropicMessagesStream_SkipsUnparseableFrames(t *testing.T) {
	upstream := strings.NewReader("data: not json\n\n" + sseFrame(map[string]any{"candidates": []any{map[string]any{
		"content":      map[string]any{"parts": []any{map[string]any{"text": "ok"}}},
		"finishReason": "STOP",
	}}}))
	var buf bytes.Buffer
	require.NoError(t, AnthropicMessagesStream(upstream, &buf, "claude-stand-in"))
	assert.Contains(t, buf.String(), "ok")
}
