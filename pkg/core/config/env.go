// Package config loads the three layers of process configuration: .env
// secrets, a TOML service-tuning file, and the YAML LLM routing table.
// Grounded on the teacher's cmd/api/main.go wiring (godotenv.Load then
// yaml.Unmarshal of config/models.yaml), generalized to add a TOML layer
// for the numeric knobs this spec introduces (pool widths, thresholds,
// cadences) that the teacher kept as code constants.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Secrets holds process-wide values sourced from the environment,
// typically populated via a .env file in development.
type Secrets struct {
	OpenAIAPIKey      string
	OpenAIModel       string
	OpenAITimeoutSecs int
	GeminiAPIKey      string
	DeepSeekAPIKey    string
	DashscopeAPIKey   string
	MoonshotAPIKey    string
	ArkAPIKey         string
	ActiveProvider    string
}

// LoadSecrets reads .env (if present; absence is not an error) and
// populates Secrets from the environment, applying spec.md §6 defaults.
func LoadSecrets() (*Secrets, error) {
	_ = godotenv.Load()

	s := &Secrets{
		OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:       envOr("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAITimeoutSecs: envIntOr("OPENAI_TIMEOUT_SECONDS", 30),
		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		DeepSeekAPIKey:    os.Getenv("DEEPSEEK_API_KEY"),
		DashscopeAPIKey:   os.Getenv("DASHSCOPE_API_KEY"),
		MoonshotAPIKey:    os.Getenv("MOONSHOT_API_KEY"),
		ArkAPIKey:         os.Getenv("ARK_API_KEY"),
		ActiveProvider:    envOr("OPENAI_PROVIDER", "openai"),
	}

	return s, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
