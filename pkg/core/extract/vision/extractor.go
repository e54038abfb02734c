// Package vision implements the Vision Extractor fallback (spec.md §4.3):
// when the Text Extractor's quality gate fails, render page images and
// run them through a vision-capable LLM, batch by batch, carrying the
// previous page's extracted text forward as context for the next prompt.
// The bounded worker pool is grounded on golang.org/x/sync/semaphore,
// already present (indirect) in the teacher's dependency graph; this is
// the first component to use it directly.
package vision

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"sync"

	"github.com/gen2brain/go-fitz"
	"golang.org/x/sync/semaphore"

	"disclosurecore/pkg/core/llm"
	"disclosurecore/pkg/core/logging"
	"disclosurecore/pkg/core/models"
)

const component = "vision_extractor"

// Extractor runs the bounded vision-OCR fallback over a PDF's pages.
type Extractor struct {
	Manager   *llm.Manager
	BatchSize int // pages per batch, default 10
	PoolWidth int // concurrent batches, default 10
	DPI       int // page render resolution, default 150
}

// NewExtractor builds an Extractor with the given batch size, pool width
// and render DPI, falling back to spec.md's defaults for non-positive
// values.
func NewExtractor(manager *llm.Manager, batchSize, poolWidth, dpi int) *Extractor {
	if batchSize <= 0 {
		batchSize = 10
	}
	if poolWidth <= 0 {
		poolWidth = 10
	}
	if dpi <= 0 {
		dpi = 150
	}
	return &Extractor{Manager: manager, BatchSize: batchSize, PoolWidth: poolWidth, DPI: dpi}
}

// Result mirrors the Text Extractor's shape plus a cumulative token count.
type Result struct {
	Pages      []models.Page
	TokensUsed int
	Errors     []string // per-page failures, logged but non-fatal
}

// Extract renders every page of pdfPath to an image and runs it through
// the configured vision provider, batch by batch, on a bounded pool.
func (e *Extractor) Extract(ctx context.Context, pdfPath string) (*Result, error) {
	probe, err := fitz.New(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("vision extract: open pdf: %w", err)
	}
	pageCount := probe.NumPage()
	probe.Close()
	if pageCount == 0 {
		return &Result{}, nil
	}

	batches := make([][]int, 0, (pageCount+e.BatchSize-1)/e.BatchSize)
	for start := 1; start <= pageCount; start += e.BatchSize {
		end := start + e.BatchSize - 1
		if end > pageCount {
			end = pageCount
		}
		pages := make([]int, 0, end-start+1)
		for p := start; p <= end; p++ {
			pages = append(pages, p)
		}
		batches = append(batches, pages)
	}

	pageTexts := make([]string, pageCount+1) // 1-indexed
	pageErrors := make([]string, 0)
	var mu sync.Mutex
	var tokens int

	sem := semaphore.NewWeighted(int64(e.PoolWidth))
	var wg sync.WaitGroup
	for _, batch := range batches {
		if err := sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return nil, fmt.Errorf("vision extract: %w", ctx.Err())
		}
		wg.Add(1)
		go func(pages []int) {
			defer wg.Done()
			defer sem.Release(1)

			doc, err := fitz.New(pdfPath)
			if err != nil {
				mu.Lock()
				for _, pageNum := range pages {
					pageErrors = append(pageErrors, fmt.Sprintf("page %d: open pdf: %v", pageNum, err))
				}
				mu.Unlock()
				return
			}
			defer doc.Close()

			carry := ""
			for _, pageNum := range pages {
				text, used, err := e.extractPage(ctx, doc, pageNum, carry)
				mu.Lock()
				if err != nil {
					pageErrors = append(pageErrors, fmt.Sprintf("page %d: %v", pageNum, err))
					logging.Named("vision").Warnw("page extraction failed", "page", pageNum, "error", err)
					pageTexts[pageNum] = ""
				} else {
					pageTexts[pageNum] = text
					tokens += used
				}
				mu.Unlock()
				carry = text
			}
		}(batch)
	}
	wg.Wait()

	pages := make([]models.Page, 0, pageCount)
	for n := 1; n <= pageCount; n++ {
		txt := pageTexts[n]
		pages = append(pages, models.Page{
			Number:    n,
			Text:      txt,
			CharCount: len(txt),
			HasImages: true,
		})
	}
	return &Result{Pages: pages, TokensUsed: tokens, Errors: pageErrors}, nil
}

func (e *Extractor) extractPage(ctx context.Context, doc *fitz.Document, pageNum int, carry string) (string, int, error) {
	image, err := renderPage(doc, pageNum, e.DPI)
	if err != nil {
		return "", 0, err
	}
	systemPrompt := defaultVisionSystemPrompt
	userPrompt := "Transcribe this page's text exactly, preserving original order. Return raw text only, no summarization."
	if carry != "" {
		userPrompt = "Previous page ended with:\n" + tail(carry, 300) + "\n\n" + userPrompt
	}
	text, err := e.Manager.ExecuteVision(ctx, component, userPrompt, systemPrompt, [][]byte{image}, map[string]interface{}{"image_mime_type": "image/jpeg"})
	if err != nil {
		return "", 0, err
	}
	return text, len(text) / 4, nil // rough token estimate, not billed usage
}

const defaultVisionSystemPrompt = "You transcribe scanned document pages verbatim. Output raw text only; preserve original reading order; never summarize or interpret."

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// renderPage rasterizes one 1-based page at the given DPI and encodes it
// as a JPEG for the vision provider's image input.
func renderPage(doc *fitz.Document, pageNum, dpi int) ([]byte, error) {
	img, err := doc.ImageDPI(pageNum-1, float64(dpi))
	if err != nil {
		return nil, fmt.Errorf("render page %d: %w", pageNum, err)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("encode page %d: %w", pageNum, err)
	}
	return buf.Bytes(), nil
}
