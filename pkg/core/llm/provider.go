// Package llm abstracts over the model backends the Section Detector,
// Section Content Extractor, Vision Extractor and Comparison Orchestrator
// call through. Grounded on the teacher's pkg/core/llm/provider.go
// Provider interface, extended with a vision-capable call for §4.3's
// scanned-page fallback path.
package llm

import (
	"context"
	"fmt"

	"disclosurecore/pkg/core/errs"
)

// Provider is the interface every model backend implements.
type Provider interface {
	// GenerateResponse sends a single text prompt with an optional system
	// instruction and returns the raw model text.
	GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error)

	// GenerateVisionResponse sends a prompt plus one or more page images
	// (raw bytes extracted from a scanned PDF page) for the Vision
	// Extractor fallback path. Providers without vision support return
	// errs.Model.
	GenerateVisionResponse(ctx context.Context, prompt string, systemPrompt string, images [][]byte, options map[string]interface{}) (string, error)

	// AdaptInstructions transforms raw instructions into model-specific
	// phrasing before they're sent as a system prompt.
	AdaptInstructions(rawInstructions string) string
}

// unimplementedVision is embedded by text-only providers so they satisfy
// Provider without duplicating the errs.Model stub everywhere.
type unimplementedVision struct{ name string }

func (u unimplementedVision) GenerateVisionResponse(ctx context.Context, prompt, systemPrompt string, images [][]byte, options map[string]interface{}) (string, error) {
	return "", fmt.Errorf("%s: vision not supported: %w", u.name, errs.Model)
}
