// Package models defines the data shapes shared by the structuring and
// comparison pipelines: Document, StructuredData, Comparison, and their
// nested types.
package models

import "time"

// DocumentStatus is the per-stage processing status of a Document.
type DocumentStatus string

const (
	StatusQueued               DocumentStatus = "queued"
	StatusProcessing            DocumentStatus = "processing"
	StatusPendingClassification DocumentStatus = "pending_classification"
	StatusExtractingText        DocumentStatus = "extracting_text"
	StatusExtractingVision      DocumentStatus = "extracting_vision"
	StatusExtractingTables      DocumentStatus = "extracting_tables"
	StatusDetectingSections     DocumentStatus = "detecting_sections"
	StatusExtractingSectionData DocumentStatus = "extracting_section_content"
	StatusStructured            DocumentStatus = "structured"
	StatusFailed                DocumentStatus = "failed"
)

// ExtractionMethod tags how a document's text was ultimately obtained.
type ExtractionMethod string

const (
	MethodText   ExtractionMethod = "text"
	MethodVision ExtractionMethod = "vision"
	MethodHybrid ExtractionMethod = "hybrid"
)

// DocumentType is one of the supported disclosure document kinds, or
// TypeUnknown before classification.
type DocumentType string

const (
	TypeUnknown           DocumentType = "unknown"
	TypeSecuritiesReport   DocumentType = "securities_report"
	TypeEarningsReport     DocumentType = "earnings_report"
	TypeIntegratedReport   DocumentType = "integrated_report"
	TypeFinancialStatements DocumentType = "financial_statements"
)

// StageRecord captures the outcome of one pipeline stage for
// ExtractionMetadata's per-stage error/annotation ledger.
type StageRecord struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Notes   string `json:"notes,omitempty"`
}

// ExtractionMetadata records per-stage success/failure annotations so
// stage errors are never swallowed silently (spec.md §7 propagation rule).
type ExtractionMetadata struct {
	TextExtraction    *StageRecord `json:"text_extraction,omitempty"`
	VisionExtraction  *StageRecord `json:"vision_extraction,omitempty"`
	TableExtraction   *StageRecord `json:"table_extraction,omitempty"`
	SectionDetection  *StageRecord `json:"section_detection,omitempty"`
	SectionContent    *StageRecord `json:"section_content,omitempty"`
	VisionTokensUsed  int          `json:"vision_tokens_used,omitempty"`
}

// Document is the durable per-document record owned by the Metadata Store.
type Document struct {
	ID                 string              `json:"id"`
	SchemaVersion       int                 `json:"schema_version"`
	OriginalFilename    string              `json:"original_filename"`
	SizeBytes           int64               `json:"size_bytes"`
	UploadedAt          time.Time           `json:"uploaded_at"`
	RetentionDeadline   time.Time           `json:"retention_deadline"`
	DocumentType        DocumentType        `json:"document_type"`
	ClassificationReason string             `json:"classification_reason,omitempty"`
	Status              DocumentStatus      `json:"status"`
	CurrentStep         string              `json:"current_step,omitempty"`
	ExtractionMethod    ExtractionMethod    `json:"extraction_method,omitempty"`
	StructuredData      *StructuredData     `json:"structured_data,omitempty"`
	ExtractionMeta      ExtractionMetadata  `json:"extraction_metadata"`
	FailureReason       string              `json:"failure_reason,omitempty"`
	SourcePath          string              `json:"source_path,omitempty"`
	CompanyName         string              `json:"company_name,omitempty"`
	FiscalYear          int                 `json:"fiscal_year,omitempty"`
	UpdatedAt           time.Time           `json:"updated_at"`
}

const CurrentSchemaVersion = 1

// NewDocument builds a freshly-uploaded Document record.
func NewDocument(id, filename string, size int64, retentionHorizon time.Duration) *Document {
	now := time.Now().UTC()
	return &Document{
		ID:                id,
		SchemaVersion:     CurrentSchemaVersion,
		OriginalFilename:  filename,
		SizeBytes:         size,
		UploadedAt:        now,
		RetentionDeadline: now.Add(retentionHorizon),
		DocumentType:      TypeUnknown,
		Status:            StatusQueued,
		UpdatedAt:         now,
	}
}

// IsExpired reports whether the document's retention deadline has passed
// as of now. Both timestamps must carry explicit UTC per spec.md §4.7.
func (d *Document) IsExpired(now time.Time) bool {
	return now.UTC().After(d.RetentionDeadline.UTC())
}

// Validate enforces the Document lifecycle invariant from spec.md §3:
// a structured document must carry non-empty StructuredData, and a
// document of unknown type must never be structured.
func (d *Document) Validate() error {
	if d.Status == StatusStructured {
		if d.StructuredData == nil || len(d.StructuredData.Pages) == 0 {
			return errInvariant("document marked structured with no StructuredData")
		}
		if d.DocumentType == TypeUnknown {
			return errInvariant("document of unknown type cannot be structured")
		}
	}
	return nil
}

type invariantError string

func (e invariantError) Error() string { return string(e) }

func errInvariant(msg string) error { return invariantError(msg) }
