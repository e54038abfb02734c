// Package classifier implements the Classifier Adapter (spec.md §1, §6):
// a thin keyword + single-LLM-call front-door that assigns a Document's
// DocumentType from its earliest extracted text. The classifier proper
// (training, model choice) is an external collaborator per spec.md's
// Non-goals; this package is only the boundary the core calls through.
// Grounded on the teacher's agent.Manager component-routed LLM dispatch,
// reused here for a single "classifier" component call.
package classifier

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"

	"disclosurecore/pkg/core/jsonutil"
	"disclosurecore/pkg/core/llm"
	"disclosurecore/pkg/core/models"
	"disclosurecore/pkg/core/template"
)

const component = "classifier"

// minKeywordMargin is the number of keyword matches a single document type
// must lead by before the keyword pass decides the type outright,
// skipping the LLM call entirely.
const minKeywordMargin = 2

// Adapter classifies a document's type from its earliest page text.
type Adapter struct {
	Templates *template.Registry
	Manager   *llm.Manager
}

type llmClassification struct {
	DocumentType string `json:"document_type"`
	Reason       string `json:"reason"`
}

// Classify returns the best-guess DocumentType and a human-readable
// reason. It never errors on an inconclusive result — an inconclusive
// keyword pass and a failed or inconclusive LLM call both fall through
// to TypeUnknown, which halts the document at pending_classification
// (spec.md §4's status transition table) rather than failing the
// upload.
func (a *Adapter) Classify(ctx context.Context, text string) (models.DocumentType, string) {
	if docType, reason, ok := a.classifyByKeyword(text); ok {
		return docType, reason
	}
	if docType, reason, ok := a.classifyByLLM(ctx, text); ok {
		return docType, reason
	}
	return models.TypeUnknown, "no keyword or model match"
}

func (a *Adapter) classifyByKeyword(text string) (models.DocumentType, string, bool) {
	lower := strings.ToLower(text)
	templates := a.Templates.All()
	sort.Slice(templates, func(i, j int) bool { return templates[i].DocumentType < templates[j].DocumentType })

	type score struct {
		docType models.DocumentType
		hits    int
		matched []string
	}
	var scores []score
	for _, tpl := range templates {
		var matched []string
		for _, kw := range tpl.KeywordsForDetection {
			if kw == "" {
				continue
			}
			if strings.Contains(lower, strings.ToLower(kw)) {
				matched = append(matched, kw)
			}
		}
		if len(matched) > 0 {
			scores = append(scores, score{docType: tpl.DocumentType, hits: len(matched), matched: matched})
		}
	}
	if len(scores) == 0 {
		return "", "", false
	}
	sort.Slice(scores, func(i, j int) bool { return scores[i].hits > scores[j].hits })

	best := scores[0]
	if len(scores) > 1 && best.hits-scores[1].hits < minKeywordMargin {
		return "", "", false
	}
	reason := fmt.Sprintf("keyword match: %s", strings.Join(best.matched, ", "))
	return best.docType, reason, true
}

func (a *Adapter) classifyByLLM(ctx context.Context, text string) (models.DocumentType, string, bool) {
	if a.Manager == nil {
		return "", "", false
	}
	templates := a.Templates.All()
	if len(templates) == 0 {
		return "", "", false
	}
	sort.Slice(templates, func(i, j int) bool { return templates[i].DocumentType < templates[j].DocumentType })

	var candidates strings.Builder
	for _, tpl := range templates {
		fmt.Fprintf(&candidates, "- %s: %s\n", tpl.DocumentType, tpl.Description)
	}

	systemPrompt := "You classify Japanese disclosure documents into one of a fixed set of types. Respond with JSON: {\"document_type\": string, \"reason\": string}. If none fit, use \"unknown\"."
	userPrompt := fmt.Sprintf("Candidate types:\n%s\nDocument excerpt:\n%s", candidates.String(), capChars(text, 4000))

	resp, err := a.Manager.Execute(ctx, component, userPrompt, systemPrompt, nil)
	if err != nil {
		return "", "", false
	}

	var parsed llmClassification
	if err := jsonutil.SmartParse(resp, &parsed); err != nil {
		return "", "", false
	}
	docType := models.DocumentType(parsed.DocumentType)
	if docType == "" || docType == models.TypeUnknown {
		return "", "", false
	}
	known := lo.SomeBy(templates, func(tpl *template.DocumentTemplate) bool { return tpl.DocumentType == docType })
	if !known {
		return "", "", false
	}
	return docType, parsed.Reason, true
}

func capChars(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
