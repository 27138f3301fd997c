package translator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaptureOpenAIChatExtras_OnlyUnknownFields(t *testing.T) {
	raw := []byte(`{"model":"gemini-2.5-flash","messages":[],"user":"u-123","metadata":{"team":"payments"},"logit_bias":{"50256":-100}}`)
	extras := CaptureOpenAIChatExtras(raw)
	require.Len(t, extras, 3)
	assert.Equal(t, "u-123", extras["user"].String())
	assert.True(t, extras["metadata"].IsObject())
	_, known := extras["model"]
	assert.False(t, known, "known fields must not be captured as extras")
}

func TestApplyOpenAIChatExtras_ForwardsAllowlistedFieldsOnly(t *testing.T) {
	payload := []byte(`{"model":"gemini-2.5-flash","project":"p","request":{"contents":[]}}`)
	extras := CaptureOpenAIChatExtras([]byte(`{"user":"u-123","metadata":{"team":"payments"},"logit_bias":{"50256":-100}}`))
	out := ApplyOpenAIChatExtras(payload, extras)

	assert.Contains(t, string(out), `"user":"u-123"`)
	assert.Contains(t, string(out), `"labels":{"team":"payments"}`)
	assert.NotContains(t, string(out), "logit_bias", "non-forwarded extras must be dropped, not relayed upstream")
}

func TestApplyOpenAIChatExtras_NoExtrasIsNoOp(t *testing.T) {
	payload := []byte(`{"model":"gemini-2.5-flash","project":"p","request":{"contents":[]}}`)
	out := ApplyOpenAIChatExtras(payload, nil)
	assert.JSONEq(t, string(payload), string(out))
}

func TestCaptureAnthropicExtras_IgnoresKnownFields(t *testing.T) {
	raw := []byte(`{"model":"claude-x","messages":[],"max_tokens":1024,"metadata":{"user_id":"u-9"}}`)
	extras := CaptureAnthropicExtras(raw)
	require.Len(t, extras, 1)
	assert.True(t, extras["metadata"].IsObject())
}
