// Package comparison implements the Comparison Orchestrator's section
// mapping, numerical diffing, and text diffing stages (spec.md §4.10).
// Grounded on the teacher's pkg/core/agent.Manager-routed LLM call
// pattern for the per-section analysis dispatch (in
// pkg/core/orchestrator/comparison.go) and
// on the embedding package's Cosine for the mapping fallback.
package comparison

import (
	"context"
	"sort"
	"strings"

	"disclosurecore/pkg/core/embedding"
	"disclosurecore/pkg/core/models"
)

// MapSections pairs side-A sections to side-B sections: exact-name
// matches first, then embedding similarity above threshold for whatever
// remains (spec.md §4.10). Sections below threshold are dropped.
func MapSections(ctx context.Context, embedder *embedding.Service, a, b map[string]models.SectionInfo, threshold float64) ([]models.SectionMapping, error) {
	var mappings []models.SectionMapping

	unmappedA, unmappedB := make(map[string]bool), make(map[string]bool)
	for name := range a {
		unmappedA[name] = true
	}
	for name := range b {
		unmappedB[name] = true
	}

	// Step 1: exact-name matches, one-to-one since names are unique keys
	// on each side.
	for nameA := range a {
		if _, ok := b[nameA]; ok {
			mappings = append(mappings, models.SectionMapping{
				Doc1Section:     nameA,
				Doc2Section:     nameA,
				ConfidenceScore: 1.0,
				MappingMethod:   models.MappingExact,
			})
			delete(unmappedA, nameA)
			delete(unmappedB, nameA)
		}
	}

	remainingA := sortedKeys(unmappedA)
	remainingB := sortedKeys(unmappedB)
	if len(remainingA) == 0 || len(remainingB) == 0 {
		return mappings, nil
	}

	textsA := make([]string, len(remainingA))
	for i, name := range remainingA {
		textsA[i] = projection(name, a[name])
	}
	textsB := make([]string, len(remainingB))
	for i, name := range remainingB {
		textsB[i] = projection(name, b[name])
	}

	vecsA, err := embedder.Embed(ctx, textsA)
	if err != nil {
		return nil, err
	}
	vecsB, err := embedder.Embed(ctx, textsB)
	if err != nil {
		return nil, err
	}

	// Step 3: for each unmapped A section, pick the max-similarity B
	// section; accept if similarity >= threshold.
	for i, nameA := range remainingA {
		bestIdx := -1
		bestScore := 0.0
		for j := range remainingB {
			score := embedding.Cosine(vecsA[i], vecsB[j])
			if score > bestScore {
				bestScore = score
				bestIdx = j
			}
		}
		if bestIdx >= 0 && bestScore >= threshold {
			mappings = append(mappings, models.SectionMapping{
				Doc1Section:     nameA,
				Doc2Section:     remainingB[bestIdx],
				ConfidenceScore: bestScore,
				MappingMethod:   models.MappingEmbedding,
			})
		}
	}

	return mappings, nil
}

// projection renders a section's name plus a compact textual summary of
// its ExtractedContent for embedding (spec.md §4.10). Falls back to the
// name alone when content is absent.
func projection(name string, info models.SectionInfo) string {
	if info.Content == nil || info.Content.IsEmpty() {
		return name
	}
	var sb strings.Builder
	sb.WriteString(name)
	for _, fd := range info.Content.FinancialData {
		sb.WriteString(" ")
		sb.WriteString(fd.Item)
	}
	for _, fi := range info.Content.FactualInfo {
		sb.WriteString(" ")
		sb.WriteString(fi.Item)
	}
	for _, n := range info.Content.AccountingNotes {
		sb.WriteString(" ")
		sb.WriteString(n.Topic)
	}
	return sb.String()
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
