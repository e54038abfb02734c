// Package template loads and serves the per-document-type DocumentTemplate
// schema (expected sections, keywords). Grounded on the teacher's
// pkg/core/prompt registry/loader pattern, adapted from prompt templates
// to document section schemas per spec.md §4.1 and §6.
package template

import "disclosurecore/pkg/core/models"

// Section is one expected section entry in a DocumentTemplate.
type Section struct {
	ID               string    `yaml:"id" json:"id"`
	Name             string    `yaml:"name" json:"name"`
	Required         bool      `yaml:"required" json:"required"`
	AlternativeNames []string  `yaml:"alternative_names,omitempty" json:"alternative_names,omitempty"`
	Items            []string  `yaml:"items,omitempty" json:"items,omitempty"`
	Tables           []string  `yaml:"tables,omitempty" json:"tables,omitempty"`
	Subsections      []Section `yaml:"subsections,omitempty" json:"subsections,omitempty"`
}

// DocumentTemplate is the immutable per-document-type schema loaded once
// at process start (spec.md §4.1).
type DocumentTemplate struct {
	DocumentType         models.DocumentType `yaml:"document_type" json:"document_type"`
	DisplayName          string              `yaml:"display_name" json:"display_name"`
	Description          string              `yaml:"description" json:"description"`
	Sections             []Section           `yaml:"sections" json:"sections"`
	ImportantSectionIDs  []string            `yaml:"important_sections" json:"important_sections"`
	KeywordsForDetection []string            `yaml:"keywords_for_detection" json:"keywords_for_detection"`
}

// AllSectionNames flattens canonical + alternative names across the
// template's top-level sections.
func (t *DocumentTemplate) AllSectionNames() map[string][]string {
	out := make(map[string][]string, len(t.Sections))
	for _, s := range t.Sections {
		out[s.Name] = s.AlternativeNames
	}
	return out
}

// degenerate is returned for unknown document types: it carries no
// expected sections, so Section Detection simply finds nothing to map
// against a template and the Structuring Orchestrator skips §4.8 steps
// 4-5.
func degenerate(docType models.DocumentType) *DocumentTemplate {
	return &DocumentTemplate{
		DocumentType: docType,
		DisplayName:  string(docType),
	}
}
