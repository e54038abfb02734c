// Package orchestrator implements the Structuring and Comparison
// Orchestrators (spec.md §4.8, §4.10): the two top-level sequencers that
// drive every other core component. Grounded on the teacher's
// pipeline.PipelineOrchestrator staged-pipeline shape, rewired from
// fmt.Printf progress narration to the Progress Reporter / Metadata Store
// primitives this spec introduces.
package orchestrator

import (
	"context"
	"fmt"

	"disclosurecore/pkg/core/errs"
	"disclosurecore/pkg/core/extract/table"
	"disclosurecore/pkg/core/extract/text"
	"disclosurecore/pkg/core/extract/vision"
	"disclosurecore/pkg/core/logging"
	"disclosurecore/pkg/core/models"
	"disclosurecore/pkg/core/progress"
	"disclosurecore/pkg/core/section"
	"disclosurecore/pkg/core/store"
	"disclosurecore/pkg/core/template"
)

// CancelFunc reports whether the enclosing structuring or comparison run
// has been asked to stop. Orchestrators check it between stages only
// (spec.md §5: cancellation is cooperative, never mid-call).
type CancelFunc func() bool

// StructuringOrchestrator sequences one document through text extraction,
// the vision fallback, table extraction, section detection and section
// content extraction (spec.md §4.8).
type StructuringOrchestrator struct {
	Metadata         *store.MetadataStore
	Progress         *progress.Reporter
	Templates        *template.Registry
	TextExtractor    *text.Extractor
	VisionExtractor  *vision.Extractor
	TableExtractor   *table.Extractor
	SectionDetector  *section.Detector
	ContentExtractor *section.ContentExtractor
}

// StructureDocument runs the full pipeline for docID, reading its current
// Document record to discover the resume point. Idempotent on an already
// structured document per spec.md §6: a second call is a no-op.
func (o *StructuringOrchestrator) StructureDocument(ctx context.Context, docID string, cancel CancelFunc) error {
	doc, err := o.Metadata.Load(docID)
	if err != nil {
		return fmt.Errorf("structuring: load %s: %w", docID, err)
	}
	if doc.Status == models.StatusStructured || doc.Status == models.StatusPendingClassification {
		return nil
	}

	o.setStatus(docID, models.StatusProcessing, "", 5)

	var meta models.ExtractionMetadata

	o.setStatus(docID, models.StatusExtractingText, "text", 10)
	textResult, err := o.TextExtractor.Extract(doc.SourcePath)
	if err != nil {
		return o.fail(docID, fmt.Sprintf("text extraction: %v", err))
	}
	meta.TextExtraction = &models.StageRecord{Success: !textResult.LowQuality}

	pages := textResult.Pages
	method := models.MethodText

	if o.cancelled(cancel) {
		return nil
	}

	if textResult.LowQuality {
		o.setStatus(docID, models.StatusExtractingVision, "vision", 25)
		visionResult, err := o.VisionExtractor.Extract(ctx, doc.SourcePath)
		if err != nil {
			// Vision is the sole remaining text source once the quality
			// gate fails; its irrecoverable failure leaves the document
			// with no usable page text, so this is an ExtractionError
			// rather than a swallowed ModelError (spec.md §7).
			return o.fail(docID, fmt.Sprintf("vision extraction: %v", err))
		}
		meta.VisionExtraction = &models.StageRecord{Success: true}
		meta.VisionTokensUsed = visionResult.TokensUsed
		if len(visionResult.Errors) > 0 {
			meta.VisionExtraction.Notes = fmt.Sprintf("%d page(s) failed, see logs", len(visionResult.Errors))
			for _, e := range visionResult.Errors {
				logging.Named("orchestrator").Warnw("vision page failure", "document", docID, "detail", e)
			}
		}
		// Vision output wholesale replaces the text-layer pages above, so
		// the method is always vision here, never hybrid — hybrid is
		// reserved for a real per-page merge, which this pipeline doesn't
		// do (spec.md §8 scenario 2: a scanned PDF resolves to "vision").
		pages = visionResult.Pages
		method = models.MethodVision
	}

	if o.cancelled(cancel) {
		return nil
	}

	// The table extractor always runs, whether or not vision replaced the
	// text-layer pages (spec.md §4.8 step 2-3).
	o.setStatus(docID, models.StatusExtractingTables, "tables", 45)
	tables := o.TableExtractor.Extract(pages)
	meta.TableExtraction = &models.StageRecord{Success: true}

	data := &models.StructuredData{Pages: pages, Tables: tables, Sections: map[string]models.SectionInfo{}}
	data.FullText = data.PageText(1, data.TotalPages())

	if o.cancelled(cancel) {
		return nil
	}

	if doc.DocumentType != models.TypeUnknown {
		o.setStatus(docID, models.StatusDetectingSections, "sections", 60)
		tmpl := o.Templates.Load(doc.DocumentType)
		sections, err := o.SectionDetector.Detect(ctx, pages, tmpl)
		if err != nil {
			meta.SectionDetection = &models.StageRecord{Success: false, Error: err.Error()}
			logging.Named("orchestrator").Warnw("section detection failed", "document", docID, "error", err)
		} else {
			meta.SectionDetection = &models.StageRecord{Success: true}
			data.Sections = sections
		}

		if o.cancelled(cancel) {
			return nil
		}

		if len(data.Sections) > 0 {
			o.setStatus(docID, models.StatusExtractingSectionData, "section_content", 80)
			data.Sections = o.ContentExtractor.ExtractAll(ctx, data.Sections, data)
			meta.SectionContent = &models.StageRecord{Success: true}
		}
	}

	if err := o.Metadata.SaveStructured(docID, data, method, meta); err != nil {
		return o.fail(docID, fmt.Sprintf("persist structured data: %v", err))
	}
	o.Progress.UpdateDocument(docID, models.Progress{Status: models.ProgressCompleted, PercentComplete: 100, Step: "structured"})
	return nil
}

// cancelled reports whether the run should stop. A true result is
// returned only between stages — the current stage always runs to
// completion (spec.md §5). The document's status already reflects the
// last completed stage, so there is nothing further to persist here.
func (o *StructuringOrchestrator) cancelled(cancel CancelFunc) bool {
	return cancel != nil && cancel()
}

func (o *StructuringOrchestrator) setStatus(docID string, status models.DocumentStatus, step string, pct int) {
	if err := o.Metadata.UpdateStatus(docID, status, step); err != nil {
		logging.Named("orchestrator").Warnw("status update failed", "document", docID, "status", status, "error", err)
	}
	o.Progress.UpdateDocument(docID, models.Progress{Status: models.ProgressRunning, PercentComplete: pct, Step: step})
}

func (o *StructuringOrchestrator) fail(docID string, reason string) error {
	if err := o.Metadata.MarkFailed(docID, reason); err != nil {
		logging.Named("orchestrator").Errorw("mark failed also failed", "document", docID, "error", err)
	}
	o.Progress.UpdateDocument(docID, models.Progress{Status: models.ProgressFailed, Error: reason})
	return fmt.Errorf("structuring %s: %s: %w", docID, reason, errs.Extraction)
}
