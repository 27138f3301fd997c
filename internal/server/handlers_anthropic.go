package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"gemini-gateway/internal/models"
	"gemini-gateway/internal/sse"
	"gemini-gateway/internal/translator"
	"gemini-gateway/internal/upstream/codeassist"
)

// Messages handles POST /v1/messages.
func (h *Handlers) Messages(c *gin.Context) {
	rawBody, err := io.ReadAll(c.Request.Body)
	if err != nil {
		writeError(c, err)
		return
	}
	var req translator.AnthropicMessagesRequest
	if err := json.Unmarshal(rawBody, &req); err != nil {
		writeError(c, err)
		return
	}

	ready, err := h.core.EnsureReady(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	baseModel := models.BaseName(req.Model)
	inner := translator.AnthropicToEnvelopeRequest(&req, baseModel)
	envelope := translator.Envelope(baseModel, ready.ProjectID, inner)
	payload, err := json.Marshal(envelope)
	if err != nil {
		writeError(c, err)
		return
	}
	payload = translator.ApplyAnthropicExtras(payload, translator.CaptureAnthropicExtras(rawBody))

	bound := h.core.Bound(ready.AccessToken)

	if !req.Stream {
		resp, err := bound.Generate(c.Request.Context(), payload)
		if err != nil {
			writeError(c, err)
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 400 {
			writeUpstreamError(c, resp)
			return
		}
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			writeError(c, err)
			return
		}
		var upstream codeassist.Response
		if err := json.Unmarshal(body, &upstream); err != nil {
			writeError(c, err)
			return
		}
		out, err := translator.AnthropicMessagesResponse(req.Model, &upstream)
		if err != nil {
			writeError(c, err)
			return
		}
		c.Data(http.StatusOK, "application/json", out)
		return
	}

	resp, err := bound.Stream(c.Request.Context(), payload)
	if err != nil {
		writeError(c, err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		writeUpstreamError(c, resp)
		return
	}

	w, flusher := sse.Prepare(c)
	if err := translator.AnthropicMessagesStream(resp.Body, w, req.Model); err != nil {
		logEntryFor(c).WithError(err).Warn("stream terminated early")
	}
	if flusher != nil {
		flusher.Flush()
	}
}
