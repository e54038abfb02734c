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

// KimiProvider reaches Moonshot AI's Kimi models over their OpenAI-
// compatible chat completions endpoint. The teacher's KimiProvider was an
// unimplemented stub noting Kimi's long-context strength; this fills it
// in using the same request shape as OpenAIProvider.
type KimiProvider struct {
	unimplementedVision
}

var _ Provider = (*KimiProvider)(nil)

func (p *KimiProvider) GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error) {
	apiKey := os.Getenv("MOONSHOT_API_KEY")
	if val, ok := options["api_key"].(string); ok && val != "" {
		apiKey = val
	}
	if apiKey == "" {
		return "", fmt.Errorf("MOONSHOT_API_KEY not set: %w", errs.Config)
	}

	model := "moonshot-v1-128k"
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
	if val, ok := options["response_format"].(map[string]interface{}); ok && val["type"] == "json_object" {
		req.ResponseFormat = &openAIRespFormat{Type: "json_object"}
	}

	jsonBody, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("kimi: marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, "POST", "https://api.moonshot.cn/v1/chat/completions", bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", fmt.Errorf("kimi: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	client := &http.Client{}
	resp, err := client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("kimi: call failed: %w", errs.Model)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("kimi: read body: %w", err)
	}
	var parsed openAIChatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("kimi: unmarshal response: %w", errs.Model)
	}
	if resp.StatusCode != http.StatusOK || len(parsed.Choices) == 0 {
		return "", fmt.Errorf("kimi: status=%d body=%s: %w", resp.StatusCode, string(body), errs.Model)
	}
	return parsed.Choices[0].Message.Content, nil
}

func (p *KimiProvider) AdaptInstructions(raw string) string {
	return raw // Kimi handles long-context financial documents without extra scaffolding
}
