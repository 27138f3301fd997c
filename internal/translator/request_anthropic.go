package translator

import (
	"encoding/json"

	"gemini-gateway/internal/upstream/codeassist"
)

// AnthropicMessage is a single Anthropic Messages API message.
type AnthropicMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

type AnthropicTool struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InputSchema any    `json:"input_schema"`
}

type AnthropicThinking struct {
	Type         string `json:"type"`
	BudgetTokens *int   `json:"budget_tokens"`
}

// AnthropicMessagesRequest is the body of POST /v1/messages.
type AnthropicMessagesRequest struct {
	Model         string             `json:"model"`
	Messages      []AnthropicMessage `json:"messages"`
	MaxTokens     int                `json:"max_tokens"`
	System        json.RawMessage    `json:"system"`
	StopSequences []string           `json:"stop_sequences"`
	Stream        bool               `json:"stream"`
	Temperature   *float64           `json:"temperature"`
	TopP          *float64           `json:"top_p"`
	TopK          *int               `json:"top_k"`
	Tools         []AnthropicTool    `json:"tools"`
	ToolChoice    json.RawMessage    `json:"tool_choice"`
	Thinking      *AnthropicThinking `json:"thinking"`
}

// anthropicContentPartsFromBlocks converts Anthropic content blocks (or a
// bare string) into Gemini parts (spec.md 4.7).
func anthropicContentPartsFromBlocks(raw json.RawMessage) []codeassist.Part {
	if len(raw) == 0 {
		return nil
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return splitMarkdownImages(asString)
	}

	var blocks []map[string]any
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return nil
	}
	var parts []codeassist.Part
	for _, b := range blocks {
		switch b["type"] {
		case "text":
			if t, ok := b["text"].(string); ok {
				parts = append(parts, splitMarkdownImages(t)...)
			}
		case "image":
			src, _ := b["source"].(map[string]any)
			switch src["type"] {
			case "base64":
				mime, _ := src["media_type"].(string)
				data, _ := src["data"].(string)
				parts = append(parts, codeassist.Part{InlineData: &codeassist.InlineData{MimeType: mime, Data: data}})
			case "url":
				if url, ok := src["url"].(string); ok {
					parts = append(parts, codeassist.Part{Text: url})
				}
			}
		case "tool_use":
			name, _ := b["name"].(string)
			input, _ := b["input"].(map[string]any)
			parts = append(parts, codeassist.Part{FunctionCall: &codeassist.FunctionCall{Name: name, Args: input}})
		case "tool_result":
			content := b["content"]
			var respMap map[string]any
			switch v := content.(type) {
			case string:
				respMap = map[string]any{"result": v}
			case map[string]any:
				respMap = v
			default:
				respMap = map[string]any{"result": content}
			}
			parts = append(parts, codeassist.Part{FunctionResponse: &codeassist.FunctionResponse{Response: respMap}})
		case "thinking":
			if t, ok := b["thinking"].(string); ok {
				parts = append(parts, codeassist.Part{Text: t, Thought: true})
			}
		case "redacted_thinking":
			// Redacted thinking carries no usable text; dropped.
		}
	}
	return parts
}

// AnthropicToEnvelopeRequest builds the upstream RequestInner from an
// Anthropic Messages request (spec.md 4.7).
func AnthropicToEnvelopeRequest(req *AnthropicMessagesRequest, baseModel string) codeassist.RequestInner {
	var inner codeassist.RequestInner

	if len(req.System) > 0 {
		if parts := anthropicContentPartsFromBlocks(req.System); len(parts) > 0 {
			inner.SystemInstruction = &codeassist.SystemInstruction{Parts: parts}
		}
	}

	for _, m := range req.Messages {
		role := m.Role
		if role == "assistant" {
			role = "model"
		}
		inner.Contents = append(inner.Contents, codeassist.Content{Role: role, Parts: anthropicContentPartsFromBlocks(m.Content)})
	}

	for _, t := range req.Tools {
		inner.Tools = append(inner.Tools, codeassist.Tool{
			FunctionDeclarations: []codeassist.FunctionDeclaration{{Name: t.Name, Description: t.Description, Parameters: t.InputSchema}},
		})
	}
	inner.ToolConfig = anthropicToolConfig(req.ToolChoice)
	ApplySearchVariant(&inner, req.Model)

	inner.SafetySettings = SafetySettings()
	maxTokens := req.MaxTokens
	cfg := &codeassist.GenerationConfig{
		Temperature:     req.Temperature,
		TopP:            req.TopP,
		TopK:            req.TopK,
		MaxOutputTokens: &maxTokens,
		StopSequences:   req.StopSequences,
	}
	if req.Thinking != nil && req.Thinking.Type == "enabled" {
		budget := -1
		if req.Thinking.BudgetTokens != nil {
			budget = *req.Thinking.BudgetTokens
		}
		cfg.ThinkingConfig = &codeassist.ThinkingConfig{ThinkingBudget: &budget, IncludeThoughts: true}
	}
	ApplyThinking(cfg, req.Model)
	inner.GenerationConfig = cfg
	_ = baseModel
	return inner
}

func anthropicToolConfig(raw json.RawMessage) *codeassist.ToolConfig {
	if len(raw) == 0 {
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil
	}
	switch obj["type"] {
	case "auto":
		return &codeassist.ToolConfig{FunctionCallingConfig: &codeassist.FunctionCallingConfig{Mode: "AUTO"}}
	case "any":
		return &codeassist.ToolConfig{FunctionCallingConfig: &codeassist.FunctionCallingConfig{Mode: "ANY"}}
	case "tool":
		name, _ := obj["name"].(string)
		return &codeassist.ToolConfig{FunctionCallingConfig: &codeassist.FunctionCallingConfig{Mode: "ANY", AllowedFunctionNames: []string{name}}}
	default:
		return nil
	}
}
