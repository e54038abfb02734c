package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"disclosurecore/pkg/core/errs"
	"disclosurecore/pkg/core/llm"
)

// LoadModelsConfig reads config/models.yaml into an llm.Config, grounded
// on the teacher's cmd/api/main.go reading config/models.yaml via
// yaml.Unmarshal into agent.Config.
func LoadModelsConfig(path string) (llm.Config, error) {
	var cfg llm.Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, errs.Config)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, errs.Config)
	}
	if cfg.ActiveProvider == "" {
		cfg.ActiveProvider = "openai"
	}
	return cfg, nil
}
