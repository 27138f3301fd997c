package translator

import (
	"encoding/json"
	"regexp"

	"gemini-gateway/internal/upstream/codeassist"
)

// OpenAIMessage is a single Chat Completions message. Content is either a
// plain string or a list of content parts (text/image_url).
type OpenAIMessage struct {
	Role      string          `json:"role"`
	Content   json.RawMessage `json:"content"`
	Name      string          `json:"name,omitempty"`
	ToolCalls []OpenAIToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
}

type OpenAIToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type OpenAIChatRequest struct {
	Model            string           `json:"model"`
	Messages         []OpenAIMessage  `json:"messages"`
	Stream           bool             `json:"stream"`
	Temperature      *float64         `json:"temperature"`
	TopP             *float64         `json:"top_p"`
	MaxTokens        *int             `json:"max_tokens"`
	Stop             json.RawMessage  `json:"stop"`
	FrequencyPenalty *float64         `json:"frequency_penalty"`
	PresencePenalty  *float64         `json:"presence_penalty"`
	N                *int             `json:"n"`
	Seed             *int             `json:"seed"`
	ResponseFormat   *OpenAIRespFmt   `json:"response_format"`
	ReasoningEffort  string           `json:"reasoning_effort"`
	Tools            []OpenAITool     `json:"tools"`
	ToolChoice       json.RawMessage  `json:"tool_choice"`
}

type OpenAIRespFmt struct {
	Type string `json:"type"`
}

type OpenAITool struct {
	Type     string `json:"type"`
	Function struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Parameters  any    `json:"parameters"`
	} `json:"function"`
}

var markdownImageRE = regexp.MustCompile(`!\[[^\]]*\]\(([^)]+)\)`)
var dataURIRE = regexp.MustCompile(`^data:([^;]+);base64,(.+)$`)

// splitMarkdownImages splits text on Markdown image syntax, turning any
// data: URI into an inlineData part and leaving everything else as text
// (spec.md 4.7).
func splitMarkdownImages(text string) []codeassist.Part {
	matches := markdownImageRE.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		// An explicit empty string is still a text part, not an absent one
		// (spec.md 8: "empty message content translates to an empty text
		// part, not absence").
		return []codeassist.Part{{Text: text}}
	}
	var parts []codeassist.Part
	last := 0
	for _, m := range matches {
		if m[0] > last {
			if chunk := text[last:m[0]]; chunk != "" {
				parts = append(parts, codeassist.Part{Text: chunk})
			}
		}
		uri := text[m[2]:m[3]]
		if dm := dataURIRE.FindStringSubmatch(uri); dm != nil {
			parts = append(parts, codeassist.Part{InlineData: &codeassist.InlineData{MimeType: dm[1], Data: dm[2]}})
		} else {
			parts = append(parts, codeassist.Part{Text: uri})
		}
		last = m[1]
	}
	if last < len(text) {
		if chunk := text[last:]; chunk != "" {
			parts = append(parts, codeassist.Part{Text: chunk})
		}
	}
	return parts
}

// contentPartsFromOpenAI converts an OpenAI message's content (string or
// multi-part array) into Gemini parts.
func contentPartsFromOpenAI(raw json.RawMessage) []codeassist.Part {
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
		case "image_url":
			urlObj, _ := b["image_url"].(map[string]any)
			url, _ := urlObj["url"].(string)
			if dm := dataURIRE.FindStringSubmatch(url); dm != nil {
				parts = append(parts, codeassist.Part{InlineData: &codeassist.InlineData{MimeType: dm[1], Data: dm[2]}})
			} else if url != "" {
				parts = append(parts, codeassist.Part{Text: url})
			}
		}
	}
	return parts
}

// OpenAIChatToEnvelopeRequest builds the upstream RequestInner from an
// OpenAI Chat Completions request (spec.md 4.7).
func OpenAIChatToEnvelopeRequest(req *OpenAIChatRequest, baseModel string) codeassist.RequestInner {
	var inner codeassist.RequestInner
	var systemParts []codeassist.Part

	for _, m := range req.Messages {
		switch m.Role {
		case "system", "developer":
			systemParts = append(systemParts, contentPartsFromOpenAI(m.Content)...)
		case "assistant":
			content := codeassist.Content{Role: "model", Parts: contentPartsFromOpenAI(m.Content)}
			for _, tc := range m.ToolCalls {
				var args map[string]any
				_ = json.Unmarshal([]byte(tc.Function.Arguments), &args)
				content.Parts = append(content.Parts, codeassist.Part{
					FunctionCall: &codeassist.FunctionCall{Name: tc.Function.Name, Args: args},
				})
			}
			inner.Contents = append(inner.Contents, content)
		case "tool":
			var respVal any
			if err := json.Unmarshal(m.Content, &respVal); err != nil {
				var s string
				_ = json.Unmarshal(m.Content, &s)
				respVal = s
			}
			respMap, ok := respVal.(map[string]any)
			if !ok {
				respMap = map[string]any{"result": respVal}
			}
			inner.Contents = append(inner.Contents, codeassist.Content{
				Role: "user",
				Parts: []codeassist.Part{{
					FunctionResponse: &codeassist.FunctionResponse{Name: m.Name, Response: respMap},
				}},
			})
		default: // "user"
			inner.Contents = append(inner.Contents, codeassist.Content{Role: "user", Parts: contentPartsFromOpenAI(m.Content)})
		}
	}

	if len(systemParts) > 0 {
		inner.SystemInstruction = &codeassist.SystemInstruction{Parts: systemParts}
	}

	if len(req.Tools) > 0 {
		var decls []codeassist.FunctionDeclaration
		for _, t := range req.Tools {
			if t.Type != "function" {
				continue
			}
			decls = append(decls, codeassist.FunctionDeclaration{
				Name:        t.Function.Name,
				Description: t.Function.Description,
				Parameters:  t.Function.Parameters,
			})
		}
		if len(decls) > 0 {
			inner.Tools = append(inner.Tools, codeassist.Tool{FunctionDeclarations: decls})
		}
	}
	inner.ToolConfig = toolConfigFromChoice(req.ToolChoice)
	ApplySearchVariant(&inner, req.Model)

	inner.SafetySettings = SafetySettings()
	inner.GenerationConfig = generationConfigFromOpenAI(req, baseModel)
	return inner
}

func toolConfigFromChoice(raw json.RawMessage) *codeassist.ToolConfig {
	if len(raw) == 0 {
		return nil
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		switch asString {
		case "none":
			return &codeassist.ToolConfig{FunctionCallingConfig: &codeassist.FunctionCallingConfig{Mode: "NONE"}}
		case "required":
			return &codeassist.ToolConfig{FunctionCallingConfig: &codeassist.FunctionCallingConfig{Mode: "ANY"}}
		default: // "auto"
			return &codeassist.ToolConfig{FunctionCallingConfig: &codeassist.FunctionCallingConfig{Mode: "AUTO"}}
		}
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil
	}
	fn, _ := obj["function"].(map[string]any)
	name, _ := fn["name"].(string)
	if name == "" {
		return nil
	}
	return &codeassist.ToolConfig{FunctionCallingConfig: &codeassist.FunctionCallingConfig{
		Mode:                 "ANY",
		AllowedFunctionNames: []string{name},
	}}
}

func generationConfigFromOpenAI(req *OpenAIChatRequest, baseModel string) *codeassist.GenerationConfig {
	cfg := &codeassist.GenerationConfig{
		Temperature:      req.Temperature,
		TopP:             req.TopP,
		MaxOutputTokens:  req.MaxTokens,
		FrequencyPenalty: req.FrequencyPenalty,
		PresencePenalty:  req.PresencePenalty,
		CandidateCount:   req.N,
		Seed:             req.Seed,
	}
	if len(req.Stop) > 0 {
		var s string
		if err := json.Unmarshal(req.Stop, &s); err == nil && s != "" {
			cfg.StopSequences = []string{s}
		} else {
			var list []string
			if err := json.Unmarshal(req.Stop, &list); err == nil {
				cfg.StopSequences = list
			}
		}
	}
	if req.ResponseFormat != nil && req.ResponseFormat.Type == "json_object" {
		cfg.ResponseMimeType = "application/json"
	}
	if req.ReasoningEffort != "" {
		budget := ReasoningEffortBudget(req.ReasoningEffort, baseModel)
		cfg.ThinkingConfig = &codeassist.ThinkingConfig{ThinkingBudget: &budget, IncludeThoughts: true}
	}
	ApplyThinking(cfg, req.Model)
	return cfg
}
