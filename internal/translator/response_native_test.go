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

func TestNativeUnaryResponse_UnwrapsResponseKey(t *testing.T) {
	upstream := &codeassist.Response{
		Response: &codeassist.ResponseInner{
			Candidates: []codeassist.Candidate{{FinishReason: "STOP"}},
		},
	}
	b, err := NativeUnaryResponse(upstream)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(b, &out))
	_, hasResponseKey := out["response"]
	assert.False(t, hasResponseKey, "native callers expect the bare candidate shape, not the response wrapper")
	assert.Contains(t, out, "candidates")
}

func TestNativeUnaryResponse_BareCandidatesPassthrough(t *testing.T) {
	upstream := &codeassist.Response{Candidates: []codeassist.Candidate{{FinishReason: "STOP"}}}
	b, err := NativeUnaryResponse(upstream)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Contains(t, out, "candidates")
}

func TestNativeUnaryResponse_EmptyWhenUnwrapFails(t *testing.T) {
	upstream := &codeassist.Response{}
	b, err := NativeUnaryResponse(upstream)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, []any{}, out["candidates"])
}

func TestNativeStreamPump_UnwrapsEachFrame(t *testing.T) {
	upstream := strings.NewReader(
		sseFrame(map[string]any{"response": map[string]any{"candidates": []any{map[string]any{"finishReason": "STOP"}}}}),
	)
	var buf bytes.Buffer
	require.NoError(t, NativeStreamPump(upstream, &buf))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "data: "))
	assert.NotContains(t, out, `"response":`)
	assert.Contains(t, out, "candidates")
}

func TestNativeStreamPump_PassesThroughBareFrames(t *testing.T) {
	upstream := strings.NewReader(sseFrame(map[string]any{"candidates": []any{map[string]any{"finishReason": "STOP"}}}))
	var buf bytes.Buffer
	require.NoError(t, NativeStreamPump(upstream, &buf))
	assert.Contains(t, buf.String(), "candidates")
}

func TestNativeStreamPump_SkipsUnparseableFrames(t *testing.T) {
	upstream := strings.NewReader("data: not json\n\n" + sseFrame(map[string]any{"candidates": []any{map[string]any{"finishReason": "STOP"}}}))
	var buf bytes.Buffer
	require.NoError(t, NativeStreamPump(upstream, &buf))
	assert.Contains(t, buf.String(), "candidates")
}
