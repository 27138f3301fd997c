package translator

import (
	"encoding/json"

	"gemini-gateway/internal/upstream/codeassist"
)

// OpenAIResponsesRequest is the OpenAI Responses API request body.
type OpenAIResponsesRequest struct {
	Model        string          `json:"model"`
	Input        json.RawMessage `json:"input"`
	Instructions string          `json:"instructions"`
	Stream       bool            `json:"stream"`
	Temperature  *float64        `json:"temperature"`
	TopP         *float64        `json:"top_p"`
	MaxOutputTokens *int         `json:"max_output_tokens"`
	Tools        []responsesTool `json:"tools"`
}

type responsesTool struct {
	Type     string `json:"type"`
	Name     string `json:"name"`
	Description string `json:"description"`
	Parameters  any `json:"parameters"`
}

type responsesInputItem struct {
	Type    string          `json:"type"`
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
	CallID  string          `json:"call_id"`
	Output  string          `json:"output"`
	Name    string          `json:"name"`
}

// OpenAIResponsesToEnvelopeRequest builds the upstream RequestInner from an
// OpenAI Responses API request (spec.md 4.7).
func OpenAIResponsesToEnvelopeRequest(req *OpenAIResponsesRequest, baseModel string) codeassist.RequestInner {
	var inner codeassist.RequestInner

	if req.Instructions != "" {
		inner.SystemInstruction = &codeassist.SystemInstruction{Parts: splitMarkdownImages(req.Instructions)}
	}

	if len(req.Input) > 0 {
		var asString string
		if err := json.Unmarshal(req.Input, &asString); err == nil {
			inner.Contents = append(inner.Contents, codeassist.Content{Role: "user", Parts: splitMarkdownImages(asString)})
		} else {
			var items []responsesInputItem
			if err := json.Unmarshal(req.Input, &items); err == nil {
				for _, item := range items {
					if item.Type == "function_call_output" || item.CallID != "" {
						var respVal any
						_ = json.Unmarshal([]byte(item.Output), &respVal)
						respMap, ok := respVal.(map[string]any)
						if !ok {
							respMap = map[string]any{"result": item.Output}
						}
						inner.Contents = append(inner.Contents, codeassist.Content{
							Role:  "user",
							Parts: []codeassist.Part{{FunctionResponse: &codeassist.FunctionResponse{Name: item.Name, Response: respMap}}},
						})
						continue
					}
					role := item.Role
					if role == "" {
						role = "user"
					}
					if role == "assistant" {
						role = "model"
					}
					inner.Contents = append(inner.Contents, codeassist.Content{Role: role, Parts: contentPartsFromOpenAI(item.Content)})
				}
			}
		}
	}

	for _, t := range req.Tools {
		switch t.Type {
		case "function":
			inner.Tools = append(inner.Tools, codeassist.Tool{
				FunctionDeclarations: []codeassist.FunctionDeclaration{{Name: t.Name, Description: t.Description, Parameters: t.Parameters}},
			})
		case "web_search":
			inner.Tools = append(inner.Tools, codeassist.Tool{GoogleSearch: &struct{}{}})
		}
	}

	ApplySearchVariant(&inner, req.Model)

	inner.SafetySettings = SafetySettings()
	cfg := &codeassist.GenerationConfig{Temperature: req.Temperature, TopP: req.TopP, MaxOutputTokens: req.MaxOutputTokens}
	ApplyThinking(cfg, req.Model)
	inner.GenerationConfig = cfg
	return inner
}
