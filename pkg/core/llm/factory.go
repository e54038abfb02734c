package llm

import "fmt"

// NewProvider constructs the named backend. name is one of "gemini",
// "openai", "deepseek", "qwen", "kimi", "doubao" — the six backends the
// teacher's agent manager config recognizes.
func NewProvider(name string, model string) (Provider, error) {
	switch name {
	case "gemini":
		return &GeminiProvider{Model: model}, nil
	case "openai":
		return &OpenAIProvider{}, nil
	case "deepseek":
		return &DeepSeekProvider{}, nil
	case "qwen":
		return &QwenProvider{}, nil
	case "kimi":
		return &KimiProvider{}, nil
	case "doubao":
		return &DoubaoProvider{}, nil
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", name)
	}
}
