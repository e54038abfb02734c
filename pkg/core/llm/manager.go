package llm

import (
	"context"
	"fmt"

	"disclosurecore/pkg/core/logging"
)

// Config is the per-process provider routing table, loaded from
// config/models.yaml. Grounded on the teacher's pkg/core/agent.Config.
type Config struct {
	ActiveProvider string                     `yaml:"active_provider"`
	RateLimitRPS   float64                    `yaml:"rate_limit_rps"`
	RateLimitBurst int                        `yaml:"rate_limit_burst"`
	Components     map[string]ComponentConfig `yaml:"components"`
}

// ComponentConfig optionally overrides the provider and model for one
// pipeline component (section_detector, section_content,
// vision_extractor, comparison_metadata, comparison_analysis,
// comparison_search, classifier) independent of the process-wide active
// provider.
type ComponentConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
}

// Manager routes each pipeline component's LLM calls to the right
// provider, applying a separate rate limiter per provider. Grounded on the teacher's
// pkg/core/agent.Manager.
type Manager struct {
	config    Config
	providers map[string]Provider
}

// NewManager constructs every known provider and wraps each with the
// configured rate limit.
func NewManager(cfg Config) *Manager {
	rps := cfg.RateLimitRPS
	if rps <= 0 {
		rps = 2.0
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = 4
	}

	raw := map[string]Provider{
		"openai":   &OpenAIProvider{},
		"gemini":   &GeminiProvider{},
		"deepseek": &DeepSeekProvider{},
		"qwen":     &QwenProvider{},
		"kimi":     &KimiProvider{},
		"doubao":   &DoubaoProvider{},
	}
	wrapped := make(map[string]Provider, len(raw))
	for name, p := range raw {
		wrapped[name] = NewRateLimited(p, rps, burst)
	}

	return &Manager{config: cfg, providers: wrapped}
}

// ForComponent returns the provider assigned to a pipeline component,
// falling back to the process-wide active provider, then to openai.
func (m *Manager) ForComponent(component string) Provider {
	if cc, ok := m.config.Components[component]; ok && cc.Provider != "" {
		if p, ok := m.providers[cc.Provider]; ok {
			return p
		}
	}
	if p, ok := m.providers[m.config.ActiveProvider]; ok {
		return p
	}
	return m.providers["openai"]
}

// ModelFor returns the model override configured for a component, if any.
func (m *Manager) ModelFor(component string) string {
	if cc, ok := m.config.Components[component]; ok {
		return cc.Model
	}
	return ""
}

// ByName retrieves a provider instance directly by its registry name.
func (m *Manager) ByName(name string) (Provider, error) {
	if p, ok := m.providers[name]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("llm: provider %q not registered", name)
}

// Execute adapts the system prompt for the routed provider and generates
// a text response.
func (m *Manager) Execute(ctx context.Context, component, prompt, systemPrompt string, options map[string]interface{}) (string, error) {
	provider := m.ForComponent(component)
	adapted := provider.AdaptInstructions(systemPrompt)
	if options == nil {
		options = map[string]interface{}{}
	}
	if model := m.ModelFor(component); model != "" {
		options["model"] = model
	}
	logging.Named("llm").Debugw("executing prompt", "component", component)
	return provider.GenerateResponse(ctx, prompt, adapted, options)
}

// ExecuteVision is Execute's vision-capable counterpart for the Vision
// Extractor's page-batch calls.
func (m *Manager) ExecuteVision(ctx context.Context, component, prompt, systemPrompt string, images [][]byte, options map[string]interface{}) (string, error) {
	provider := m.ForComponent(component)
	adapted := provider.AdaptInstructions(systemPrompt)
	if options == nil {
		options = map[string]interface{}{}
	}
	if model := m.ModelFor(component); model != "" {
		options["model"] = model
	}
	return provider.GenerateVisionResponse(ctx, prompt, adapted, images, options)
}

// SetActiveProvider changes the process-wide default provider.
func (m *Manager) SetActiveProvider(name string) error {
	if _, ok := m.providers[name]; !ok {
		return fmt.Errorf("llm: provider %q not registered", name)
	}
	m.config.ActiveProvider = name
	return nil
}

// ActiveProvider returns the process-wide default provider name.
func (m *Manager) ActiveProvider() string {
	return m.config.ActiveProvider
}
