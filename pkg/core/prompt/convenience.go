package prompt

// Convenience functions for the prompt IDs the structuring and
// comparison pipelines look up by fixed name.

// GetSectionDetectionPrompt returns the system prompt for a document type's
// section detector.
func GetSectionDetectionPrompt(docType string) (string, error) {
	return Get().GetSystemPrompt("section_detection." + docType)
}

// GetSectionContentPrompt returns the system prompt used by the Section
// Content Extractor.
func GetSectionContentPrompt() (string, error) {
	return Get().GetSystemPrompt(PromptIDs.SectionContentExtraction)
}

// GetComparisonPrompt returns the system prompt for one comparison mode.
func GetComparisonPrompt(mode string) (string, error) {
	return Get().GetSystemPrompt("comparison." + mode)
}

// MustGetComparisonPrompt is like GetComparisonPrompt but panics on error —
// used at startup wiring where a missing prompt is a configuration fault.
func MustGetComparisonPrompt(mode string) string {
	p, err := GetComparisonPrompt(mode)
	if err != nil {
		panic(err)
	}
	return p
}

// PromptIDs contains every fixed prompt identifier the pipelines reference.
var PromptIDs = struct {
	SectionDetectionSecuritiesReport string
	SectionDetectionEarningsReport   string
	SectionContentExtraction         string

	ComparisonConsistencyCheck    string
	ComparisonDiffAnalysisYear    string
	ComparisonDiffAnalysisCompany string
	ComparisonMultiDocument       string
}{
	SectionDetectionSecuritiesReport: "section_detection.securities_report",
	SectionDetectionEarningsReport:   "section_detection.earnings_report",
	SectionContentExtraction:         "section_content.extract",

	ComparisonConsistencyCheck:    "comparison.consistency_check",
	ComparisonDiffAnalysisYear:    "comparison.diff_analysis_year",
	ComparisonDiffAnalysisCompany: "comparison.diff_analysis_company",
	ComparisonMultiDocument:       "comparison.multi_document",
}
