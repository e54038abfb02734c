package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"disclosurecore/pkg/core/errs"
)

// DoubaoProvider reaches ByteDance's Doubao models over the Volcengine
// Ark OpenAI-compatible chat completions endpoint. The teacher's
// DoubaoProvider was an unimplemented stub; this fills it in.
type DoubaoProvider struct {
	unimplementedVision
}

var _ Provider = (*DoubaoProvider)(nil)

func (p *DoubaoProvider) GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error) {
	apiKey := os.Getenv("ARK_API_KEY")
	if val, ok := options["api_key"].(string); ok && val != "" {
		apiKey = val
	}
	if apiKey == "" {
		return "", fmt.Errorf("ARK_API_KEY not set: %w", errs.Config)
	}

	model := "doubao-pro-32k"
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

	jsonBody, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("doubao: marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, "POST", "https://ark.cn-beijing.volces.com/api/v3/chat/completions", bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", fmt.Errorf("doubao: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	client := &http.Client{}
	resp, err := client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("doubao: call failed: %w", errs.Model)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("doubao: read body: %w", err)
	}
	var parsed openAIChatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("doubao: unmarshal response: %w", errs.Model)
	}
	if resp.StatusCode != http.StatusOK || len(parsed.Choices) == 0 {
		return "", fmt.Errorf("doubao: status=%d body=%s: %w", resp.StatusCode, string(body), errs.Model)
	}
	return parsed.Choices[0].Message.Content, nil
}

func (p *DoubaoProvider) AdaptInstructions(raw string) string {
	return raw // Doubao performs well on localized Chinese-language filings
}
