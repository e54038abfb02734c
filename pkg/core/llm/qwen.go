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

// QwenProvider reaches Alibaba's DashScope-hosted Qwen models over their
// native text-generation endpoint. Grounded on the teacher's
// pkg/core/llm/qwen.go.
type QwenProvider struct {
	unimplementedVision
}

var _ Provider = (*QwenProvider)(nil)

func (p *QwenProvider) GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error) {
	apiKey := os.Getenv("DASHSCOPE_API_KEY")
	if val, ok := options["api_key"].(string); ok && val != "" {
		apiKey = val
	}
	if apiKey == "" {
		apiKey = os.Getenv("QWEN_API_KEY")
	}
	if apiKey == "" {
		return "", fmt.Errorf("DASHSCOPE_API_KEY/QWEN_API_KEY not set: %w", errs.Config)
	}

	model := "qwen-max"
	if val, ok := options["model"].(string); ok && val != "" {
		model = val
	}

	reqBody := map[string]interface{}{
		"model": model,
		"input": map[string]interface{}{
			"messages": []map[string]string{
				{"role": "system", "content": systemPrompt},
				{"role": "user", "content": prompt},
			},
		},
		"parameters": map[string]interface{}{
			"result_format": "message",
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("qwen: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", "https://dashscope.aliyuncs.com/api/v1/services/aigc/text-generation/generation", bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", fmt.Errorf("qwen: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("qwen: call failed: %w", errs.Model)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("qwen: status=%d body=%s: %w", resp.StatusCode, string(bodyBytes), errs.Model)
	}

	var result struct {
		Output struct {
			Choices []struct {
				Message struct {
					Content string `json:"content"`
				} `json:"message"`
			} `json:"choices"`
			Text string `json:"text"`
		} `json:"output"`
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("qwen: decode response: %w", errs.Model)
	}
	if result.Code != "" {
		return "", fmt.Errorf("qwen: api error %s - %s: %w", result.Code, result.Message, errs.Model)
	}
	if len(result.Output.Choices) > 0 {
		return result.Output.Choices[0].Message.Content, nil
	}
	if result.Output.Text != "" {
		return result.Output.Text, nil
	}
	return "", fmt.Errorf("qwen: empty response: %w", errs.Model)
}

func (p *QwenProvider) AdaptInstructions(raw string) string {
	return raw
}
