package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"disclosurecore/pkg/core/errs"
)

// OpenAIProvider reaches OpenAI's chat completions endpoint, text-only and
// vision (image_url content parts for scanned pages). The teacher's
// OpenAIProvider was an unimplemented stub; this fills it in using the
// same raw net/http style the teacher uses for DeepSeek and Qwen.
type OpenAIProvider struct{}

var _ Provider = (*OpenAIProvider)(nil)

type openAIChatRequest struct {
	Model          string              `json:"model"`
	Messages       []openAIMessage     `json:"messages"`
	Temperature    float64             `json:"temperature"`
	ResponseFormat *openAIRespFormat   `json:"response_format,omitempty"`
}

type openAIRespFormat struct {
	Type string `json:"type"`
}

type openAIMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type openAIContentPart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *openAIImageURL `json:"image_url,omitempty"`
}

type openAIImageURL struct {
	URL string `json:"url"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (p *OpenAIProvider) apiKey(options map[string]interface{}) (string, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if val, ok := options["api_key"].(string); ok && val != "" {
		apiKey = val
	}
	if apiKey == "" {
		return "", fmt.Errorf("OPENAI_API_KEY not set: %w", errs.Config)
	}
	return apiKey, nil
}

func (p *OpenAIProvider) call(ctx context.Context, apiKey string, req openAIChatRequest) (string, error) {
	jsonBody, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("openai: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", "https://api.openai.com/v1/chat/completions", bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", fmt.Errorf("openai: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	client := &http.Client{}
	resp, err := client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("openai: call failed: %w", errs.Model)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("openai: read body: %w", err)
	}

	var parsed openAIChatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("openai: unmarshal response: %w", errs.Model)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("openai: api error %s: %w", parsed.Error.Message, errs.Model)
	}
	if resp.StatusCode != http.StatusOK || len(parsed.Choices) == 0 {
		return "", fmt.Errorf("openai: status=%d body=%s: %w", resp.StatusCode, string(body), errs.Model)
	}
	return parsed.Choices[0].Message.Content, nil
}

func (p *OpenAIProvider) GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error) {
	apiKey, err := p.apiKey(options)
	if err != nil {
		return "", err
	}
	model := "gpt-4o-mini"
	if val, ok := options["model"].(string); ok && val != "" {
		model = val
	}

	req := openAIChatRequest{
		Model: model,
		Messages: []openAIMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.2,
	}
	switch val := options["response_format"].(type) {
	case string:
		if val == "json_object" {
			req.ResponseFormat = &openAIRespFormat{Type: "json_object"}
		}
	case map[string]interface{}:
		if val["type"] == "json_object" {
			req.ResponseFormat = &openAIRespFormat{Type: "json_object"}
		}
	}
	return p.call(ctx, apiKey, req)
}

// GenerateVisionResponse attaches each page image as a base64 data-URL
// image_url content part alongside the prompt, per OpenAI's multimodal
// chat message format.
func (p *OpenAIProvider) GenerateVisionResponse(ctx context.Context, prompt string, systemPrompt string, images [][]byte, options map[string]interface{}) (string, error) {
	apiKey, err := p.apiKey(options)
	if err != nil {
		return "", err
	}
	model := "gpt-4o"
	if val, ok := options["model"].(string); ok && val != "" {
		model = val
	}
	mimeType := "image/png"
	if val, ok := options["image_mime_type"].(string); ok && val != "" {
		mimeType = val
	}

	parts := make([]openAIContentPart, 0, len(images)+1)
	parts = append(parts, openAIContentPart{Type: "text", Text: prompt})
	for _, img := range images {
		encoded := base64.StdEncoding.EncodeToString(img)
		parts = append(parts, openAIContentPart{
			Type:     "image_url",
			ImageURL: &openAIImageURL{URL: fmt.Sprintf("data:%s;base64,%s", mimeType, encoded)},
		})
	}

	req := openAIChatRequest{
		Model: model,
		Messages: []openAIMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: parts},
		},
		Temperature: 0.1,
	}
	return p.call(ctx, apiKey, req)
}

func (p *OpenAIProvider) AdaptInstructions(raw string) string {
	return raw
}
