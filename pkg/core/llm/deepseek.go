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

// DeepSeekProvider is a text-only backend reached via DeepSeek's OpenAI-
// compatible chat completions endpoint. Grounded on the teacher's
// pkg/core/llm/deepseek.go request/response shapes.
type DeepSeekProvider struct {
	unimplementedVision
}

var _ Provider = (*DeepSeekProvider)(nil)

type deepSeekRequest struct {
	Messages         []chatMessage  `json:"messages"`
	Model            string         `json:"model"`
	Thinking         *thinkingParam `json:"thinking,omitempty"`
	FrequencyPenalty float64        `json:"frequency_penalty"`
	MaxTokens        int            `json:"max_tokens"`
	PresencePenalty  float64        `json:"presence_penalty"`
	ResponseFormat   responseFormat `json:"response_format"`
	Stream           bool           `json:"stream"`
	Temperature      float64        `json:"temperature"`
	TopP             float64        `json:"top_p"`
	ToolChoice       string         `json:"tool_choice"`
}

type chatMessage struct {
	Content string `json:"content"`
	Role    string `json:"role"`
}

type thinkingParam struct {
	Type string `json:"type"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type deepSeekResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (p *DeepSeekProvider) GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error) {
	apiKey := os.Getenv("DEEPSEEK_API_KEY")
	if val, ok := options["api_key"].(string); ok && val != "" {
		apiKey = val
	}
	if apiKey == "" {
		return "", fmt.Errorf("DEEPSEEK_API_KEY not set: %w", errs.Config)
	}

	model := "deepseek-chat"
	if val, ok := options["model"].(string); ok && val != "" {
		model = val
	}

	responseType := "text"
	if val, ok := options["response_format"].(map[string]interface{}); ok && val["type"] == "json_object" {
		responseType = "json_object"
	}

	reqBody := deepSeekRequest{
		Messages: []chatMessage{
			{Content: systemPrompt, Role: "system"},
			{Content: prompt, Role: "user"},
		},
		Model:            model,
		Thinking:         &thinkingParam{Type: "disabled"},
		FrequencyPenalty: 0,
		MaxTokens:        4096,
		PresencePenalty:  0,
		ResponseFormat:   responseFormat{Type: responseType},
		Stream:           false,
		Temperature:      0.2,
		TopP:             1.0,
		ToolChoice:       "none",
	}

	jsonBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("deepseek: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", "https://api.deepseek.com/chat/completions", bytes.NewBuffer(jsonBytes))
	if err != nil {
		return "", fmt.Errorf("deepseek: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	client := &http.Client{}
	res, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("deepseek: call failed: %w", errs.Model)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("deepseek: read body: %w", err)
	}

	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("deepseek: status=%d body=%s: %w", res.StatusCode, string(body), errs.Model)
	}

	var response deepSeekResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("deepseek: unmarshal response: %w", errs.Model)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("deepseek: empty choices: %w", errs.Model)
	}
	return response.Choices[0].Message.Content, nil
}

func (p *DeepSeekProvider) AdaptInstructions(raw string) string {
	return raw
}
