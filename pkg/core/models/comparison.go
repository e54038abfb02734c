package models

import "time"

// ComparisonMode selects which prompt family the Comparison Orchestrator
// applies; section mapping uses the same acceptance threshold in every
// mode.
type ComparisonMode string

const (
	ModeConsistencyCheck     ComparisonMode = "consistency_check"
	ModeDiffAnalysisYear     ComparisonMode = "diff_analysis_year"
	ModeDiffAnalysisCompany  ComparisonMode = "diff_analysis_company"
	ModeMultiDocument        ComparisonMode = "multi_document"
)

// MappingMethod records how a SectionMapping was produced.
type MappingMethod string

const (
	MappingExact     MappingMethod = "exact"
	MappingEmbedding MappingMethod = "embedding"
)

// Importance is the tri-valued label attached to each analyzed section pair.
type Importance string

const (
	ImportanceHigh   Importance = "high"
	ImportanceMedium Importance = "medium"
	ImportanceLow    Importance = "low"
)

// IterativeSearchMode controls optional re-exploration rounds.
type IterativeSearchMode string

const (
	IterativeOff      IterativeSearchMode = "off"
	IterativeHighOnly IterativeSearchMode = "high_only"
	IterativeAll      IterativeSearchMode = "all"
)

// DocumentInfo is the immutable snapshot of one input document copied
// into a Comparison so a later document delete cannot corrupt the artifact.
type DocumentInfo struct {
	DocumentID          string       `json:"document_id"`
	Filename            string       `json:"filename"`
	DocumentType        DocumentType `json:"document_type"`
	CompanyName         string       `json:"company_name"`
	FiscalYear          int          `json:"fiscal_year"`
	ExtractionConfidence float64     `json:"extraction_confidence"`
	// StructuredDataPresent is cleared by the Retention Sweeper when the
	// source document expires; the snapshot fields above remain.
	StructuredDataPresent bool `json:"structured_data_present"`
}

// SectionMapping pairs one section on side A with one section on side B.
type SectionMapping struct {
	Doc1Section     string        `json:"doc1_section"`
	Doc2Section     string        `json:"doc2_section"`
	ConfidenceScore float64       `json:"confidence_score"`
	MappingMethod   MappingMethod `json:"mapping_method"`
}

// NumericalDifference is one matched financial-data-point delta.
type NumericalDifference struct {
	Section         string   `json:"section"`
	ItemName        string   `json:"item_name"`
	Value1          float64  `json:"value1"`
	Value2          float64  `json:"value2"`
	Difference      float64  `json:"difference"`
	DifferencePct   *float64 `json:"difference_pct,omitempty"`
	Unit1           string   `json:"unit1,omitempty"`
	Unit2           string   `json:"unit2,omitempty"`
	NormalizedUnit  string   `json:"normalized_unit,omitempty"`
	IsSignificant   bool     `json:"is_significant"`
}

// TextDifference is a coarse, line-level delta used only for summary stats.
type TextDifference struct {
	AddedText   []string `json:"added_text,omitempty"`
	RemovedText []string `json:"removed_text,omitempty"`
	ChangedText []string `json:"changed_text,omitempty"`
	MatchRatio  float64  `json:"match_ratio"`
}

// ModifiedPair is a before/after pair for diff_analysis_year mode.
type ModifiedPair struct {
	Before string `json:"before"`
	After  string `json:"after"`
}

// DifferentApproach is an {aspect, company1, company2} triple for
// diff_analysis_company mode.
type DifferentApproach struct {
	Aspect            string `json:"aspect"`
	Company1Approach  string `json:"company1_approach"`
	Company2Approach  string `json:"company2_approach"`
}

// TextChanges is the mode-dependent tagged union returned by the per-section
// LLM analysis. Only the fields relevant to the active mode are populated.
type TextChanges struct {
	// consistency_check
	Contradictions    []string `json:"contradictions,omitempty"`
	NormalDifferences []string `json:"normal_differences,omitempty"`
	ComplementaryInfo []string `json:"complementary_info,omitempty"`
	ConsistencyScore  int      `json:"consistency_score,omitempty"` // 1..5
	ConsistencyReason string   `json:"consistency_reason,omitempty"`

	// diff_analysis_year
	Added    []string       `json:"added,omitempty"`
	Removed  []string       `json:"removed,omitempty"`
	Modified []ModifiedPair `json:"modified,omitempty"`

	// diff_analysis_company
	OnlyInCompany1     []string            `json:"only_in_company1,omitempty"`
	OnlyInCompany2     []string            `json:"only_in_company2,omitempty"`
	DifferentApproaches []DifferentApproach `json:"different_approaches,omitempty"`
}

// SearchRound is one iteration of the optional re-exploration loop.
type SearchRound struct {
	Iteration      int      `json:"iteration"`
	SearchKeywords []string `json:"search_keywords"`
	FoundSections  []string `json:"found_sections"`
	Analysis       string   `json:"analysis"`
}

// SectionDetailedComparison is the full per-section analysis result.
type SectionDetailedComparison struct {
	SectionName        string                `json:"section_name"`
	Doc1PageRange       [2]int               `json:"doc1_page_range"`
	Doc2PageRange       [2]int               `json:"doc2_page_range"`
	Doc1SectionName     string               `json:"doc1_section_name"`
	Doc2SectionName     string               `json:"doc2_section_name"`
	MappingConfidence   float64              `json:"mapping_confidence"`
	MappingMethod       MappingMethod        `json:"mapping_method"`
	TextChanges         TextChanges          `json:"text_changes"`
	NumericalChanges    []NumericalDifference `json:"numerical_changes,omitempty"`
	ToneAnalysis        string               `json:"tone_analysis,omitempty"`
	Importance          Importance           `json:"importance"`
	ImportanceReason    string               `json:"importance_reason,omitempty"`
	Summary             string               `json:"summary"`
	AdditionalSearches  []SearchRound        `json:"additional_searches,omitempty"`
	HasAdditionalContext bool                `json:"has_additional_context"`
}

// ComparisonStatus mirrors Progress.Status for the comparison lifecycle.
type ComparisonStatus string

const (
	CompQueued    ComparisonStatus = "queued"
	CompRunning   ComparisonStatus = "running"
	CompCompleted ComparisonStatus = "completed"
	CompFailed    ComparisonStatus = "failed"
)

// Comparison is the durable artifact produced by the Comparison Orchestrator.
type Comparison struct {
	ID                        string                      `json:"id"`
	SchemaVersion             int                         `json:"schema_version"`
	Mode                      ComparisonMode              `json:"mode"`
	DocumentIDs               []string                    `json:"document_ids"`
	DocumentInfos             []DocumentInfo              `json:"document_infos"`
	SectionMappings           []SectionMapping            `json:"section_mappings"`
	NumericalDifferences      []NumericalDifference       `json:"numerical_differences"`
	TextDifferences           []TextDifference            `json:"text_differences"`
	SectionDetailedComparisons []SectionDetailedComparison `json:"section_detailed_comparisons"`
	OverallPriority           Importance                  `json:"overall_priority"`
	CreatedAt                 time.Time                   `json:"created_at"`
	UpdatedAt                 time.Time                   `json:"updated_at"`
	Status                    ComparisonStatus            `json:"status"`
	Progress                  Progress                    `json:"progress"`
}

// Descriptor is the lightweight listing shape returned by list_comparisons.
type Descriptor struct {
	ID           string         `json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	Mode         ComparisonMode `json:"mode"`
	Filenames    []string       `json:"filenames"`
	SectionCount int            `json:"section_count"`
}

func NewComparison(id string, documentIDs []string, infos []DocumentInfo, mode ComparisonMode) *Comparison {
	now := time.Now().UTC()
	return &Comparison{
		ID:            id,
		SchemaVersion: CurrentSchemaVersion,
		Mode:          mode,
		DocumentIDs:   documentIDs,
		DocumentInfos: infos,
		CreatedAt:     now,
		UpdatedAt:     now,
		Status:        CompQueued,
		Progress:      Progress{Status: ProgressQueued},
	}
}
