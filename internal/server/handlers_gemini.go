package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "gemini-gateway/internal/errors"
	"gemini-gateway/internal/models"
	"gemini-gateway/internal/sse"
	"gemini-gateway/internal/translator"
	"gemini-gateway/internal/upstream/codeassist"
)

// splitModelAction splits a gin `:modelAction` path param of the form
// "gemini-2.5-flash:generateContent" into its model name and action.
func splitModelAction(raw string) (model, action string) {
	model, action, _ = strings.Cut(raw, ":")
	return
}

// dispatchModelAction routes POST /v1beta/models/{model}:{action} to the
// right handler; gin's router can't express the literal ":action" suffix as
// a separate path segment, so the whole "model:action" token arrives as one
// param and is split here.
func (h *Handlers) dispatchModelAction(c *gin.Context) {
	_, action := splitModelAction(c.Param("modelAction"))
	if strings.EqualFold(action, "countTokens") {
		h.CountTokens(c)
		return
	}
	h.GenerateContent(c)
}

// GenerateContent handles POST /v1beta/models/{model}:generateContent and
// POST /v1beta/models/{model}:streamGenerateContent.
func (h *Handlers) GenerateContent(c *gin.Context) {
	modelName, action := splitModelAction(c.Param("modelAction"))
	if modelName == "" {
		writeError(c, apperrors.New(http.StatusNotFound, "not_found", "invalid_request_error", "model not specified"))
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		writeError(c, err)
		return
	}

	ready, err := h.core.EnsureReady(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	baseModel := models.BaseName(modelName)
	inner, err := translator.NativeToEnvelopeRequest(body, modelName)
	if err != nil {
		writeError(c, apperrors.New(http.StatusBadRequest, "invalid_request_error", "invalid_request_error", err.Error()))
		return
	}
	envelope := translator.Envelope(baseModel, ready.ProjectID, inner)
	payload, err := json.Marshal(envelope)
	if err != nil {
		writeError(c, err)
		return
	}

	bound := h.core.Bound(ready.AccessToken)

	streaming := strings.EqualFold(action, "streamGenerateContent")
	if !streaming {
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
		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			writeError(c, err)
			return
		}
		var upstream codeassist.Response
		if err := json.Unmarshal(respBody, &upstream); err != nil {
			writeError(c, err)
			return
		}
		out, err := translator.NativeUnaryResponse(&upstream)
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
	if err := translator.NativeStreamPump(resp.Body, w); err != nil {
		logEntryFor(c).WithError(err).Warn("stream terminated early")
	}
	if flusher != nil {
		flusher.Flush()
	}
}

// CountTokens handles POST /v1beta/models/{model}:countTokens.
func (h *Handlers) CountTokens(c *gin.Context) {
	modelName, _ := splitModelAction(c.Param("modelAction"))
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		writeError(c, err)
		return
	}

	ready, err := h.core.EnsureReady(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	baseModel := models.BaseName(modelName)
	inner, err := translator.NativeToEnvelopeRequest(body, modelName)
	if err != nil {
		writeError(c, apperrors.New(http.StatusBadRequest, "invalid_request_error", "invalid_request_error", err.Error()))
		return
	}
	envelope := translator.Envelope(baseModel, ready.ProjectID, inner)
	payload, err := json.Marshal(envelope)
	if err != nil {
		writeError(c, err)
		return
	}

	resp, err := h.core.Bound(ready.AccessToken).CountTokens(c.Request.Context(), payload)
	if err != nil {
		writeError(c, err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		writeUpstreamError(c, resp)
		return
	}
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", respBody)
}

type modelListEntry struct {
	Name              string `json:"name"`
	DisplayName       string `json:"displayName"`
	Description       string `json:"description"`
	InputTokenLimit   int    `json:"inputTokenLimit"`
	OutputTokenLimit  int    `json:"outputTokenLimit"`
	SupportedActions  []string `json:"supportedGenerationMethods"`
}

// ListModelsGemini handles GET /v1beta/models.
func (h *Handlers) ListModelsGemini(c *gin.Context) {
	entries := make([]modelListEntry, 0, len(models.BaseModels))
	for _, d := range models.BaseModels {
		actions := []string{"generateContent", "countTokens"}
		if d.SupportsStreaming {
			actions = append(actions, "streamGenerateContent")
		}
		entries = append(entries, modelListEntry{
			Name:             "models/" + d.Name,
			DisplayName:      d.DisplayName,
			Description:      d.Description,
			InputTokenLimit:  d.InputTokenLimit,
			OutputTokenLimit: d.OutputTokenLimit,
			SupportedActions: actions,
		})
	}
	c.JSON(http.StatusOK, gin.H{"models": entries})
}

// ListModelsOpenAI handles GET /v1/models.
func (h *Handlers) ListModelsOpenAI(c *gin.Context) {
	names := models.Catalog()
	data := make([]gin.H, 0, len(names))
	for _, name := range names {
		data = append(data, gin.H{"id": name, "object": "model", "owned_by": "google"})
	}
	c.JSON(http.StatusOK, gin.H{"object": "list", "data": data})
}
