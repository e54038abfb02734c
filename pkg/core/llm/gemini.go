package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	"google.golang.org/genai"
)

// GeminiProvider implements Provider against Google's Gemini models,
// grounded on the teacher's pkg/core/llm/gemini.go. Extended with
// GenerateVisionResponse for the scanned-page fallback path (§4.3).
type GeminiProvider struct {
	Model string // e.g. "gemini-2.0-flash-exp"
}

var _ Provider = (*GeminiProvider)(nil)

func (p *GeminiProvider) client(ctx context.Context) (*genai.Client, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}
	return genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
}

func (p *GeminiProvider) resolveModel(options map[string]interface{}) string {
	model := p.Model
	if model == "" {
		model = "gemini-2.0-flash-exp"
	}
	if val, ok := options["model"].(string); ok && val != "" {
		model = val
	}
	return model
}

func (p *GeminiProvider) buildConfig(systemPrompt, prompt string, options map[string]interface{}) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(0.1)),
	}
	if val, ok := options["response_format"].(map[string]interface{}); ok {
		if val["type"] == "json_object" {
			config.ResponseMIMEType = "application/json"
		}
	} else if strings.Contains(strings.ToLower(systemPrompt), "json") || strings.Contains(strings.ToLower(prompt), "json") {
		config.ResponseMIMEType = "application/json"
	}
	if systemPrompt != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: systemPrompt}},
		}
	}
	return config
}

func withCitations(result *genai.GenerateContentResponse) string {
	text := result.Text()
	if len(result.Candidates) == 0 {
		return text
	}
	cand := result.Candidates[0]
	if cand.GroundingMetadata == nil || len(cand.GroundingMetadata.GroundingChunks) == 0 {
		return text
	}
	var citations []string
	for _, chunk := range cand.GroundingMetadata.GroundingChunks {
		if chunk.Web != nil {
			citations = append(citations, fmt.Sprintf("[%s](%s)", chunk.Web.Title, chunk.Web.URI))
		}
	}
	if len(citations) == 0 {
		return text
	}
	return fmt.Sprintf("%s\n\n**Sources:**\n%s", text, strings.Join(citations, "\n"))
}

// GenerateResponse sends a text-only generateContent request.
func (p *GeminiProvider) GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error) {
	client, err := p.client(ctx)
	if err != nil {
		return "", err
	}
	model := p.resolveModel(options)
	config := p.buildConfig(systemPrompt, prompt, options)

	result, err := client.Models.GenerateContent(ctx, model, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}
	return withCitations(result), nil
}

// GenerateVisionResponse sends a prompt alongside one or more page images
// as inline data parts, for the Vision Extractor's scanned-page path.
func (p *GeminiProvider) GenerateVisionResponse(ctx context.Context, prompt string, systemPrompt string, images [][]byte, options map[string]interface{}) (string, error) {
	client, err := p.client(ctx)
	if err != nil {
		return "", err
	}
	model := p.resolveModel(options)
	config := p.buildConfig(systemPrompt, prompt, options)

	mimeType := "image/png"
	if val, ok := options["image_mime_type"].(string); ok && val != "" {
		mimeType = val
	}

	parts := make([]*genai.Part, 0, len(images)+1)
	for _, img := range images {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{MIMEType: mimeType, Data: img},
		})
	}
	parts = append(parts, &genai.Part{Text: prompt})

	content := []*genai.Content{{Role: "user", Parts: parts}}

	result, err := client.Models.GenerateContent(ctx, model, content, config)
	if err != nil {
		return "", fmt.Errorf("gemini vision generation failed: %w", err)
	}
	return withCitations(result), nil
}

func (p *GeminiProvider) AdaptInstructions(raw string) string {
	return raw
}
