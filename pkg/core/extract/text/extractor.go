// Package text implements the Text Extraction stage (spec.md §4.1): pull
// per-page text out of an uploaded PDF and flag pages too sparse to trust,
// so the orchestrator can route them to vision extraction instead.
// Grounded on the pdfcpu-based extractor in ternarybob-quaero's internal
// /services/pdf package — same write-to-tempfile-then-ExtractContentFile
// flow, adapted from single-string output to a per-page Page/quality model.
package text

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"disclosurecore/pkg/core/errs"
	"disclosurecore/pkg/core/models"
)

// Extractor pulls per-page text from a PDF file on disk.
type Extractor struct {
	// QualityThreshold is the minimum average characters-per-page below
	// which Extract flags the document as low quality (spec.md §4.1:
	// default 50, configurable via config.ServiceConfig.Extraction).
	QualityThreshold float64
	tempDir          string
}

// NewExtractor builds an Extractor with the given quality threshold.
func NewExtractor(qualityThreshold float64) *Extractor {
	tempDir := filepath.Join(os.TempDir(), "disclosurecore-text")
	os.MkdirAll(tempDir, 0o755)
	return &Extractor{QualityThreshold: qualityThreshold, tempDir: tempDir}
}

// Result is the outcome of one Extract call.
type Result struct {
	Pages      []models.Page
	LowQuality bool // true when avg chars/page < QualityThreshold
}

// Extract reads pdfPath and returns one models.Page per page, in order,
// with HasImages left false (text extraction alone cannot tell; the
// vision stage sets it when it processes a page).
func (e *Extractor) Extract(pdfPath string) (*Result, error) {
	pdfCtx, err := api.ReadContextFile(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("text extract: read pdf: %w: %w", errs.Extraction, err)
	}
	pageCount := pdfCtx.PageCount
	if pageCount == 0 {
		return &Result{}, nil
	}

	outDir, err := os.MkdirTemp(e.tempDir, "pages-*")
	if err != nil {
		return nil, fmt.Errorf("text extract: temp dir: %w: %w", errs.Extraction, err)
	}
	defer os.RemoveAll(outDir)

	conf := model.NewDefaultConfiguration()
	pageTexts := make(map[int]string, pageCount)
	if err := api.ExtractContentFile(pdfPath, outDir, nil, conf); err != nil {
		// Content extraction failed outright (e.g. encrypted, malformed
		// content streams) — every page comes back empty and the caller's
		// low-quality gate routes the whole document to vision.
		return e.buildResult(pageCount, pageTexts), nil
	}

	entries, _ := os.ReadDir(outDir)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		var pageNum int
		name := entry.Name()
		if _, err := fmt.Sscanf(name, "Content_page_%d", &pageNum); err != nil {
			if _, err := fmt.Sscanf(name, "page_%d", &pageNum); err != nil {
				continue
			}
		}
		data, err := os.ReadFile(filepath.Join(outDir, name))
		if err != nil {
			continue
		}
		pageTexts[pageNum] = string(data)
	}

	return e.buildResult(pageCount, pageTexts), nil
}

func (e *Extractor) buildResult(pageCount int, pageTexts map[int]string) *Result {
	pages := make([]models.Page, 0, pageCount)
	var totalChars int
	for n := 1; n <= pageCount; n++ {
		txt := pageTexts[n]
		pages = append(pages, models.Page{
			Number:    n,
			Text:      txt,
			CharCount: len(txt),
		})
		totalChars += len(txt)
	}
	avg := 0.0
	if pageCount > 0 {
		avg = float64(totalChars) / float64(pageCount)
	}
	return &Result{Pages: pages, LowQuality: avg < e.QualityThreshold}
}
