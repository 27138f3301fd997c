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

// ChatCompletions handles POST /v1/chat/completions.
func (h *Handlers) ChatCompletions(c *gin.Context) {
	rawBody, err := io.ReadAll(c.Request.Body)
	if err != nil {
		writeError(c, err)
		return
	}
	var req translator.OpenAIChatRequest
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
	inner := translator.OpenAIChatToEnvelopeRequest(&req, baseModel)
	envelope := translator.Envelope(baseModel, ready.ProjectID, inner)
	payload, err := json.Marshal(envelope)
	if err != nil {
		writeError(c, err)
		return
	}
	payload = translator.ApplyOpenAIChatExtras(payload, translator.CaptureOpenAIChatExtras(rawBody))

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
		out, err := translator.OpenAIChatResponse(req.Model, &upstream)
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
	if err := translator.OpenAIChatStream(resp.Body, w, req.Model); err != nil {
		logEntryFor(c).WithError(err).Warn("stream terminated early")
	}
	if flusher != nil {
		flusher.Flush()
	}
}

// Responses handles POST /v1/responses.
func (h *Handlers) Responses(c *gin.Context) {
	rawBody, err := io.ReadAll(c.Request.Body)
	if err != nil {
		writeError(c, err)
		return
	}
	var req translator.OpenAIResponsesRequest
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
	inner := translator.OpenAIResponsesToEnvelopeRequest(&req, baseModel)
	envelope := translator.Envelope(baseModel, ready.ProjectID, inner)
	payload, err := json.Marshal(envelope)
	if err != nil {
		writeError(c, err)
		return
	}
	payload = translator.ApplyOpenAIResponsesExtras(payload, translator.CaptureOpenAIResponsesExtras(rawBody))

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
		out, err := translator.OpenAIResponsesResponse(req.Model, &upstream)
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
	if err := translator.OpenAIResponsesStream(resp.Body, w, req.Model); err != nil {
		logEntryFor(c).WithError(err).Warn("stream terminated early")
	}
	if flusher != nil {
		flusher.Flush()
	}
}
