package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"disclosurecore/pkg/core/comparison"
	"disclosurecore/pkg/core/config"
	"disclosurecore/pkg/core/embedding"
	"disclosurecore/pkg/core/errs"
	"disclosurecore/pkg/core/jsonutil"
	"disclosurecore/pkg/core/llm"
	"disclosurecore/pkg/core/logging"
	"disclosurecore/pkg/core/models"
	"disclosurecore/pkg/core/progress"
	"disclosurecore/pkg/core/prompt"
	"disclosurecore/pkg/core/store"
)

const (
	metadataComponent = "comparison_metadata" // company/fiscal-year extraction
	analysisComponent = "comparison_analysis" // per-section mode-specific analysis
	searchComponent   = "comparison_search"   // iterative re-exploration keyword proposal
)

// ComparisonOrchestrator sequences mode selection, section mapping,
// numerical/text diffing and per-section LLM analysis into one durable
// Comparison artifact (spec.md §4.10).
type ComparisonOrchestrator struct {
	Comparisons *store.ComparisonStore
	Metadata    *store.MetadataStore
	Progress    *progress.Reporter
	Manager     *llm.Manager
	Embedder    *embedding.Service
	Config      config.ComparisonConfig
}

// RunComparison resolves document snapshots, selects a mode, maps
// sections, and dispatches per-section analyses. Idempotent on re-entry:
// an already-completed comparison returns immediately (spec.md §6).
func (o *ComparisonOrchestrator) RunComparison(ctx context.Context, comparisonID string, documentIDs []string, iterativeMode models.IterativeSearchMode, cancel CancelFunc) error {
	cmp, err := o.loadOrCreate(comparisonID, documentIDs)
	if err != nil {
		return fmt.Errorf("comparison: load %s: %w", comparisonID, err)
	}
	if cmp.Status == models.CompCompleted {
		return nil
	}

	o.Progress.UpdateComparison(comparisonID, models.Progress{Status: models.ProgressRunning, PercentComplete: 5, Step: "resolving_documents"})

	docs := make([]*models.Document, 0, len(documentIDs))
	for _, id := range documentIDs {
		doc, err := o.Metadata.Load(id)
		if err != nil {
			return o.fail(comparisonID, fmt.Sprintf("load document %s: %v", id, err))
		}
		docs = append(docs, doc)
	}

	infos := make([]models.DocumentInfo, len(docs))
	for i, doc := range docs {
		infos[i] = o.resolveDocumentInfo(ctx, doc)
	}

	mode := SelectMode(infos)
	if err := o.Comparisons.Mutate(comparisonID, func(c *models.Comparison) error {
		c.DocumentInfos = infos
		c.Mode = mode
		return nil
	}); err != nil {
		return o.fail(comparisonID, fmt.Sprintf("persist mode: %v", err))
	}

	if o.cancelled(cancel) {
		return nil
	}

	if len(docs) < 2 {
		return o.complete(comparisonID)
	}

	// The general N-way case (mode=multi_document) maps and analyzes each
	// later document against the first; true N-way section alignment is
	// out of scope here (see DESIGN.md).
	sectionsA := sectionsOf(docs[0])
	dataA := docs[0].StructuredData

	o.Progress.UpdateComparison(comparisonID, models.Progress{Status: models.ProgressRunning, PercentComplete: 20, Step: "mapping_sections"})

	var allMappings []models.SectionMapping
	var allNumerical []models.NumericalDifference
	var allText []models.TextDifference
	var detailed []models.SectionDetailedComparison

	for i := 1; i < len(docs); i++ {
		sectionsB := sectionsOf(docs[i])
		dataB := docs[i].StructuredData

		mappings, err := comparison.MapSections(ctx, o.Embedder, sectionsA, sectionsB, o.Config.EmbeddingThreshold)
		if err != nil {
			return o.fail(comparisonID, fmt.Sprintf("section mapping: %v", err))
		}
		allMappings = append(allMappings, mappings...)

		numerical := comparison.DiffNumerical(mappings, sectionsA, sectionsB, o.Config.SignificantDiffPct)
		allNumerical = append(allNumerical, numerical...)

		if o.cancelled(cancel) {
			return o.savePartialAndStop(comparisonID, allMappings, allNumerical, allText, detailed)
		}

		o.Progress.UpdateComparison(comparisonID, models.Progress{Status: models.ProgressRunning, PercentComplete: 40, Step: "analyzing_sections"})

		for _, m := range mappings {
			if o.cancelled(cancel) {
				return o.savePartialAndStop(comparisonID, allMappings, allNumerical, allText, detailed)
			}
			secA, secB := sectionsA[m.Doc1Section], sectionsB[m.Doc2Section]
			td := comparison.DiffText(renderSectionText(secA, dataA), renderSectionText(secB, dataB))
			allText = append(allText, td)

			numericalChanges := filterBySection(numerical, m.Doc1Section)
			result, err := o.analyzeSection(ctx, mode, m, secA, secB, dataA, dataB, numericalChanges)
			if err != nil {
				logging.Named("orchestrator").Warnw("section analysis failed", "comparison", comparisonID, "section", m.Doc1Section, "error", err)
				continue
			}

			if iterativeMode != models.IterativeOff && (iterativeMode == models.IterativeAll || result.Importance == models.ImportanceHigh) {
				o.reexplore(ctx, mode, result, secA, secB, dataA, dataB)
			}
			detailed = append(detailed, *result)
		}
	}

	sort.Slice(detailed, func(i, j int) bool {
		return detailed[i].Doc1PageRange[0] < detailed[j].Doc1PageRange[0]
	})

	if err := o.Comparisons.Mutate(comparisonID, func(c *models.Comparison) error {
		c.SectionMappings = allMappings
		c.NumericalDifferences = allNumerical
		c.TextDifferences = allText
		c.SectionDetailedComparisons = detailed
		c.OverallPriority = overallPriority(detailed)
		return nil
	}); err != nil {
		return o.fail(comparisonID, fmt.Sprintf("persist results: %v", err))
	}

	return o.complete(comparisonID)
}

// SelectMode is the deterministic mode-selection function of spec.md
// §4.10. More than two snapshots always yield multi_document without
// inspecting any of them; otherwise the first two snapshots decide.
func SelectMode(infos []models.DocumentInfo) models.ComparisonMode {
	if len(infos) > 2 {
		return models.ModeMultiDocument
	}
	if len(infos) < 2 {
		return models.ModeDiffAnalysisCompany
	}
	a, b := infos[0], infos[1]
	switch {
	case a.CompanyName == b.CompanyName && a.DocumentType != b.DocumentType:
		return models.ModeConsistencyCheck
	case a.CompanyName == b.CompanyName && a.DocumentType == b.DocumentType && a.FiscalYear != b.FiscalYear:
		return models.ModeDiffAnalysisYear
	case a.CompanyName != b.CompanyName && a.DocumentType == b.DocumentType:
		return models.ModeDiffAnalysisCompany
	default:
		return models.ModeDiffAnalysisCompany
	}
}

func (o *ComparisonOrchestrator) loadOrCreate(id string, documentIDs []string) (*models.Comparison, error) {
	c, err := o.Comparisons.Load(id)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, errs.NotFound) {
		return nil, err
	}
	fresh := models.NewComparison(id, documentIDs, nil, "")
	if err := o.Comparisons.Save(fresh); err != nil {
		return nil, err
	}
	return fresh, nil
}

type companyFiscalResponse struct {
	CompanyName string `json:"company_name"`
	FiscalYear  int    `json:"fiscal_year"`
}

// resolveDocumentInfo copies the document's manually-set company/fiscal
// year when present (manual override takes precedence per spec.md
// §4.10); otherwise it asks the model to read them off the first ~4,000
// characters of the structured text.
func (o *ComparisonOrchestrator) resolveDocumentInfo(ctx context.Context, doc *models.Document) models.DocumentInfo {
	info := models.DocumentInfo{
		DocumentID:            doc.ID,
		Filename:              doc.OriginalFilename,
		DocumentType:          doc.DocumentType,
		CompanyName:           doc.CompanyName,
		FiscalYear:            doc.FiscalYear,
		StructuredDataPresent: doc.StructuredData != nil,
	}
	if doc.StructuredData != nil {
		info.ExtractionConfidence = 1.0
	}
	if info.CompanyName != "" && info.FiscalYear != 0 {
		return info
	}
	if doc.StructuredData == nil {
		return info
	}
	snippet := capChars(doc.StructuredData.FullText, o.Config.CompanySnippetChars)
	if snippet == "" {
		return info
	}

	raw, err := o.Manager.Execute(ctx, metadataComponent, snippet, companyFiscalSystemPrompt, map[string]interface{}{"response_format": "json_object"})
	if err != nil {
		logging.Named("orchestrator").Warnw("company/fiscal year extraction failed", "document", doc.ID, "error", err)
		return info
	}
	var resp companyFiscalResponse
	if err := jsonutil.SmartParse(raw, &resp); err != nil {
		logging.Named("orchestrator").Warnw("company/fiscal year parse failed", "document", doc.ID, "error", err)
		return info
	}
	if info.CompanyName == "" {
		info.CompanyName = resp.CompanyName
	}
	if info.FiscalYear == 0 {
		info.FiscalYear = resp.FiscalYear
	}
	return info
}

const companyFiscalSystemPrompt = "You read the company name and fiscal year covered by a disclosure document from its opening pages. Respond with JSON {\"company_name\", \"fiscal_year\"} only."

type analysisResponse struct {
	Contradictions    []string `json:"contradictions,omitempty"`
	NormalDifferences []string `json:"normal_differences,omitempty"`
	ComplementaryInfo []string `json:"complementary_info,omitempty"`
	ConsistencyScore  int      `json:"consistency_score,omitempty"`
	ConsistencyReason string   `json:"consistency_reason,omitempty"`

	Added    []string              `json:"added,omitempty"`
	Removed  []string              `json:"removed,omitempty"`
	Modified []models.ModifiedPair `json:"modified,omitempty"`

	OnlyInCompany1      []string                    `json:"only_in_company1,omitempty"`
	OnlyInCompany2      []string                    `json:"only_in_company2,omitempty"`
	DifferentApproaches []models.DifferentApproach  `json:"different_approaches,omitempty"`

	ToneAnalysis     string            `json:"tone_analysis"`
	Importance       models.Importance `json:"importance"`
	ImportanceReason string            `json:"importance_reason"`
	Summary          string            `json:"summary"`
}

func (o *ComparisonOrchestrator) analyzeSection(ctx context.Context, mode models.ComparisonMode, m models.SectionMapping, secA, secB models.SectionInfo, dataA, dataB *models.StructuredData, numericalChanges []models.NumericalDifference) (*models.SectionDetailedComparison, error) {
	systemPrompt, err := prompt.GetComparisonPrompt(string(mode))
	if err != nil {
		systemPrompt = defaultComparisonSystemPrompt(mode)
	}
	userPrompt := buildAnalysisPrompt(mode, m, secA, secB, dataA, dataB, "")

	resp, err := o.callAnalysis(ctx, userPrompt, systemPrompt)
	if err != nil {
		return nil, err
	}

	result := &models.SectionDetailedComparison{
		SectionName:       m.Doc1Section,
		Doc1PageRange:     [2]int{secA.StartPage, secA.EndPage},
		Doc2PageRange:     [2]int{secB.StartPage, secB.EndPage},
		Doc1SectionName:   m.Doc1Section,
		Doc2SectionName:   m.Doc2Section,
		MappingConfidence: m.ConfidenceScore,
		MappingMethod:     m.MappingMethod,
		TextChanges: models.TextChanges{
			Contradictions:      resp.Contradictions,
			NormalDifferences:   resp.NormalDifferences,
			ComplementaryInfo:   resp.ComplementaryInfo,
			ConsistencyScore:    resp.ConsistencyScore,
			ConsistencyReason:   resp.ConsistencyReason,
			Added:               resp.Added,
			Removed:             resp.Removed,
			Modified:            resp.Modified,
			OnlyInCompany1:      resp.OnlyInCompany1,
			OnlyInCompany2:      resp.OnlyInCompany2,
			DifferentApproaches: resp.DifferentApproaches,
		},
		NumericalChanges: numericalChanges,
		ToneAnalysis:     resp.ToneAnalysis,
		Importance:       resp.Importance,
		ImportanceReason: resp.ImportanceReason,
		Summary:          resp.Summary,
	}
	applyImportancePromotion(result)
	return result, nil
}

func (o *ComparisonOrchestrator) callAnalysis(ctx context.Context, userPrompt, systemPrompt string) (*analysisResponse, error) {
	raw, err := o.Manager.Execute(ctx, analysisComponent, userPrompt, systemPrompt, map[string]interface{}{"response_format": "json_object"})
	if err != nil {
		return nil, fmt.Errorf("comparison analysis: %w", err)
	}
	var resp analysisResponse
	if err := jsonutil.SmartParse(raw, &resp); err != nil {
		// Single retry per spec.md §4.6's analogous rule, then propagate —
		// the caller logs and skips this section rather than failing the
		// whole comparison.
		raw, err = o.Manager.Execute(ctx, analysisComponent, userPrompt, systemPrompt, map[string]interface{}{"response_format": "json_object"})
		if err != nil {
			return nil, fmt.Errorf("comparison analysis retry: %w", err)
		}
		if err := jsonutil.SmartParse(raw, &resp); err != nil {
			return nil, fmt.Errorf("comparison analysis: parse response: %w", err)
		}
	}
	return &resp, nil
}

// applyImportancePromotion implements spec.md §4.10's importance
// promotion rule: a medium/low verdict is overridden to high when
// consistency-mode contradictions or year-mode modifications are
// non-empty, and importance_reason gains a leading count.
func applyImportancePromotion(r *models.SectionDetailedComparison) {
	if r.Importance == models.ImportanceHigh {
		return
	}
	count := len(r.TextChanges.Contradictions)
	if count == 0 {
		count = len(r.TextChanges.Modified)
	}
	if count == 0 {
		return
	}
	r.Importance = models.ImportanceHigh
	r.ImportanceReason = fmt.Sprintf("%d material change(s) detected. %s", count, r.ImportanceReason)
}

// reexplore runs up to Config.IterativeMaxRounds additional search-and-
// reanalyze passes over result in place (spec.md §4.10).
func (o *ComparisonOrchestrator) reexplore(ctx context.Context, mode models.ComparisonMode, result *models.SectionDetailedComparison, secA, secB models.SectionInfo, dataA, dataB *models.StructuredData) {
	rounds := o.Config.IterativeMaxRounds
	if rounds <= 0 {
		rounds = 2
	}
	gate := o.Config.IterativeSimilarityGate
	if gate <= 0 {
		gate = 0.6
	}
	var accumulated strings.Builder

	for iteration := 1; iteration <= rounds; iteration++ {
		keywords, err := o.proposeSearchKeywords(ctx, result)
		if err != nil || len(keywords) == 0 {
			break
		}

		var found []string
		for _, text := range []string{textOf(dataA), textOf(dataB)} {
			for _, passage := range findPassages(text, keywords, o.Config.IterativeMinKeywordLen) {
				if embeddingRelevant(ctx, o.Embedder, passage, secA, secB, gate) {
					found = append(found, truncate(passage, 200))
				}
			}
		}

		round := models.SearchRound{Iteration: iteration, SearchKeywords: keywords, FoundSections: found}
		if len(found) == 0 {
			result.AdditionalSearches = append(result.AdditionalSearches, round)
			break
		}

		for _, f := range found {
			accumulated.WriteString(f)
			accumulated.WriteString("\n")
		}

		systemPrompt, err := prompt.GetComparisonPrompt(string(mode))
		if err != nil {
			systemPrompt = defaultComparisonSystemPrompt(mode)
		}
		userPrompt := buildAnalysisPrompt(mode, models.SectionMapping{Doc1Section: result.Doc1SectionName, Doc2Section: result.Doc2SectionName}, secA, secB, dataA, dataB, accumulated.String())
		resp, err := o.callAnalysis(ctx, userPrompt, systemPrompt)
		if err == nil {
			round.Analysis = resp.Summary
			result.Summary = resp.Summary
			result.HasAdditionalContext = true
		}
		result.AdditionalSearches = append(result.AdditionalSearches, round)
	}
}

func (o *ComparisonOrchestrator) proposeSearchKeywords(ctx context.Context, result *models.SectionDetailedComparison) ([]string, error) {
	minLen := o.Config.IterativeMinKeywordLen
	if minLen <= 0 {
		minLen = 4
	}
	userPrompt := fmt.Sprintf("Section %q analysis so far: %s\nPropose up to 5 short search phrases (each at least %d characters) that would help confirm or refute what remains unexplained. Respond with JSON {\"search_keywords\": []}.",
		result.SectionName, result.Summary, minLen)
	raw, err := o.Manager.Execute(ctx, searchComponent, userPrompt, searchSystemPrompt, map[string]interface{}{"response_format": "json_object"})
	if err != nil {
		return nil, err
	}
	var resp struct {
		SearchKeywords []string `json:"search_keywords"`
	}
	if err := jsonutil.SmartParse(raw, &resp); err != nil {
		return nil, err
	}
	return resp.SearchKeywords, nil
}

const searchSystemPrompt = "You propose short search phrases to find additional supporting passages in a disclosure document. Respond with JSON only."

func (o *ComparisonOrchestrator) complete(comparisonID string) error {
	if err := o.Comparisons.Mutate(comparisonID, func(c *models.Comparison) error {
		c.Status = models.CompCompleted
		return nil
	}); err != nil {
		return o.fail(comparisonID, fmt.Sprintf("mark completed: %v", err))
	}
	o.Progress.UpdateComparison(comparisonID, models.Progress{Status: models.ProgressCompleted, PercentComplete: 100, Step: "completed"})
	return nil
}

func (o *ComparisonOrchestrator) savePartialAndStop(comparisonID string, mappings []models.SectionMapping, numerical []models.NumericalDifference, text []models.TextDifference, detailed []models.SectionDetailedComparison) error {
	return o.Comparisons.Mutate(comparisonID, func(c *models.Comparison) error {
		c.SectionMappings = mappings
		c.NumericalDifferences = numerical
		c.TextDifferences = text
		c.SectionDetailedComparisons = detailed
		return nil
	})
}

func (o *ComparisonOrchestrator) fail(comparisonID string, reason string) error {
	if err := o.Comparisons.Mutate(comparisonID, func(c *models.Comparison) error {
		c.Status = models.CompFailed
		return nil
	}); err != nil {
		logging.Named("orchestrator").Errorw("mark comparison failed also failed", "comparison", comparisonID, "error", err)
	}
	o.Progress.UpdateComparison(comparisonID, models.Progress{Status: models.ProgressFailed, Error: reason})
	return fmt.Errorf("comparison %s: %s", comparisonID, reason)
}

func (o *ComparisonOrchestrator) cancelled(cancel CancelFunc) bool {
	return cancel != nil && cancel()
}

func sectionsOf(doc *models.Document) map[string]models.SectionInfo {
	if doc.StructuredData == nil {
		return map[string]models.SectionInfo{}
	}
	return doc.StructuredData.Sections
}

func textOf(data *models.StructuredData) string {
	if data == nil {
		return ""
	}
	return data.FullText
}

// renderSectionText returns a section's page text, falling back to its
// name alone when the page records are unavailable.
func renderSectionText(sec models.SectionInfo, data *models.StructuredData) string {
	if data == nil {
		return sec.Name
	}
	return data.PageText(sec.StartPage, sec.EndPage)
}

// buildAnalysisPrompt renders ExtractedContent compactly for both sides
// when present; it falls back to raw section text when ExtractedContent
// is absent on either side (spec.md §4.10 and the boundary behavior in
// §8). extra carries accumulated iterative re-exploration context.
func buildAnalysisPrompt(mode models.ComparisonMode, m models.SectionMapping, secA, secB models.SectionInfo, dataA, dataB *models.StructuredData, extra string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Mode: %s\nSection: %q vs %q\n\n", mode, m.Doc1Section, m.Doc2Section)

	if secA.Content != nil && !secA.Content.IsEmpty() && secB.Content != nil && !secB.Content.IsEmpty() {
		sb.WriteString("Document 1 extracted content:\n")
		sb.WriteString(renderContent(secA.Content))
		sb.WriteString("\nDocument 2 extracted content:\n")
		sb.WriteString(renderContent(secB.Content))
	} else {
		sb.WriteString("Document 1 raw text:\n")
		sb.WriteString(renderSectionText(secA, dataA))
		sb.WriteString("\nDocument 2 raw text:\n")
		sb.WriteString(renderSectionText(secB, dataB))
	}

	if extra != "" {
		sb.WriteString("\nAdditional context from re-exploration:\n")
		sb.WriteString(extra)
	}

	sb.WriteString("\n\nRespond with JSON matching the mode's schema plus tone_analysis, importance, importance_reason, summary.")
	return sb.String()
}

func renderContent(c *models.ExtractedContent) string {
	var sb strings.Builder
	for _, fd := range c.FinancialData {
		fmt.Fprintf(&sb, "- %s: %s %s\n", fd.Item, scalarString(fd.Value), fd.Unit)
	}
	for _, n := range c.AccountingNotes {
		fmt.Fprintf(&sb, "- note(%s): %s\n", n.Topic, n.Content)
	}
	for _, fi := range c.FactualInfo {
		fmt.Fprintf(&sb, "- %s/%s: %s\n", fi.Category, fi.Item, scalarString(fi.Value))
	}
	for _, msg := range c.Messages {
		fmt.Fprintf(&sb, "- message(%s): %s\n", msg.Type, msg.Content)
	}
	return sb.String()
}

func scalarString(v models.ScalarOrSeries) string {
	if v.Scalar != nil {
		return *v.Scalar
	}
	var parts []string
	for k, val := range v.Series {
		parts = append(parts, k+"="+val)
	}
	return strings.Join(parts, ", ")
}

func filterBySection(diffs []models.NumericalDifference, section string) []models.NumericalDifference {
	var out []models.NumericalDifference
	for _, d := range diffs {
		if d.Section == section {
			out = append(out, d)
		}
	}
	return out
}

func overallPriority(detailed []models.SectionDetailedComparison) models.Importance {
	hasMedium := false
	for _, d := range detailed {
		if d.Importance == models.ImportanceHigh {
			return models.ImportanceHigh
		}
		if d.Importance == models.ImportanceMedium {
			hasMedium = true
		}
	}
	if hasMedium {
		return models.ImportanceMedium
	}
	return models.ImportanceLow
}

// findPassages returns paragraphs of text containing any keyword of at
// least minLen characters, matched case-folded (spec.md §4.10).
func findPassages(text string, keywords []string, minLen int) []string {
	var matches []string
	paragraphs := strings.Split(text, "\n\n")
	folded := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if len(k) >= minLen {
			folded = append(folded, strings.ToLower(k))
		}
	}
	if len(folded) == 0 {
		return nil
	}
	for _, p := range paragraphs {
		lower := strings.ToLower(p)
		for _, k := range folded {
			if strings.Contains(lower, k) {
				matches = append(matches, p)
				break
			}
		}
	}
	return matches
}

// embeddingRelevant reports whether passage is similar enough to either
// section's projection to be worth including (spec.md §4.10's
// similarity-gated re-exploration filter).
func embeddingRelevant(ctx context.Context, embedder *embedding.Service, passage string, secA, secB models.SectionInfo, gate float64) bool {
	vecs, err := embedder.Embed(ctx, []string{passage, secA.Name, secB.Name})
	if err != nil || len(vecs) < 3 {
		return false
	}
	return embedding.Cosine(vecs[0], vecs[1]) >= gate || embedding.Cosine(vecs[0], vecs[2]) >= gate
}

func capChars(s string, limit int) string {
	if limit <= 0 {
		limit = 4000
	}
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}

func defaultComparisonSystemPrompt(mode models.ComparisonMode) string {
	return fmt.Sprintf("You compare disclosure document sections in %s mode. Respond with JSON only; never compute derivative metrics.", mode)
}
