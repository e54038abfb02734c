// Package section implements the Section Detector (spec.md §4.5): batch
// pages, ask the LLM which template sections appear in each batch, then
// stitch the per-batch results into whole-document SectionInfo records.
// Grounded on the teacher's pkg/core/agent.Manager-driven prompt pattern
// and the Section Detector's own batch-stitch algorithm in spec.md.
package section

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"

	"disclosurecore/pkg/core/jsonutil"
	"disclosurecore/pkg/core/llm"
	"disclosurecore/pkg/core/logging"
	"disclosurecore/pkg/core/models"
	"disclosurecore/pkg/core/prompt"
	"disclosurecore/pkg/core/template"
)

const detectorComponent = "section_detector"

// Detector batches a document's pages and asks the LLM to place template
// sections within each batch, then stitches the results together.
type Detector struct {
	Manager           *llm.Manager
	BatchPages        int     // pages per batch, default 10
	PoolWidth         int     // concurrent batches, default 5
	DefaultConfidence float64 // used when the model omits one, default 0.5
}

// NewDetector builds a Detector, falling back to spec.md's defaults.
func NewDetector(manager *llm.Manager, batchPages, poolWidth int, defaultConfidence float64) *Detector {
	if batchPages <= 0 {
		batchPages = 10
	}
	if poolWidth <= 0 {
		poolWidth = 5
	}
	if defaultConfidence <= 0 {
		defaultConfidence = 0.5
	}
	return &Detector{Manager: manager, BatchPages: batchPages, PoolWidth: poolWidth, DefaultConfidence: defaultConfidence}
}

// rawSection is one section claim returned by the model for one batch.
type rawSection struct {
	Name       string  `json:"name"`
	FirstPage  int     `json:"first_page"`
	LastPage   int     `json:"last_page"`
	Confidence float64 `json:"confidence"`
}

type batchResponse struct {
	Sections []rawSection `json:"sections"`
}

type batchResult struct {
	index    int
	sections []rawSection
	err      error
}

// Detect returns section name → SectionInfo for the given pages against
// tmpl. A degenerate template (unknown document type) yields an empty map.
func (d *Detector) Detect(ctx context.Context, pages []models.Page, tmpl *template.DocumentTemplate) (map[string]models.SectionInfo, error) {
	if len(tmpl.Sections) == 0 || len(pages) == 0 {
		return map[string]models.SectionInfo{}, nil
	}

	batches := d.buildBatches(pages)
	results := make([]batchResult, len(batches))

	// Each batch's prompt carries the previous batch's detected-section
	// tail as continuation context (spec.md §4.5), so batch i waits for
	// batch i-1 to publish its result before building its own prompt —
	// batches still run on the bounded pool, they just can't outrun their
	// immediate predecessor.
	ready := make([]chan struct{}, len(batches))
	for i := range ready {
		ready[i] = make(chan struct{})
	}

	sem := semaphore.NewWeighted(int64(d.PoolWidth))
	var wg sync.WaitGroup
	for i, b := range batches {
		if err := sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return nil, fmt.Errorf("section detect: %w", ctx.Err())
		}
		wg.Add(1)
		go func(i int, b pageBatch) {
			defer wg.Done()
			defer sem.Release(1)
			defer close(ready[i])

			var tail []rawSection
			if i > 0 {
				<-ready[i-1]
				tail = lastN(results[i-1].sections, 3)
			}
			sections, err := d.detectBatch(ctx, b, tmpl, tail)
			results[i] = batchResult{index: i, sections: sections, err: err}
		}(i, b)
	}
	wg.Wait()

	claims := make([]sectionClaim, 0)
	for _, r := range results {
		if r.err != nil {
			logging.Named("section").Warnw("batch detection failed", "batch", r.index, "error", r.err)
			continue
		}
		for _, s := range r.sections {
			if s.Name == "" {
				continue
			}
			conf := s.Confidence
			if conf == 0 {
				conf = d.DefaultConfidence
			}
			claims = append(claims, sectionClaim{name: s.Name, start: s.FirstPage, end: s.LastPage, confidence: conf})
		}
	}

	stitched := stitch(claims)
	return d.materialize(stitched, pages), nil
}

type pageBatch struct {
	startPage int
	endPage   int
	pages     []models.Page
}

func (d *Detector) buildBatches(pages []models.Page) []pageBatch {
	var batches []pageBatch
	for start := 0; start < len(pages); start += d.BatchPages {
		end := start + d.BatchPages
		if end > len(pages) {
			end = len(pages)
		}
		slice := pages[start:end]
		batches = append(batches, pageBatch{
			startPage: slice[0].Number,
			endPage:   slice[len(slice)-1].Number,
			pages:     slice,
		})
	}
	return batches
}

func (d *Detector) detectBatch(ctx context.Context, b pageBatch, tmpl *template.DocumentTemplate, tail []rawSection) ([]rawSection, error) {
	systemPrompt, err := prompt.GetSectionDetectionPrompt(string(tmpl.DocumentType))
	if err != nil {
		systemPrompt = defaultDetectionSystemPrompt
	}
	userPrompt := buildDetectionPrompt(b, tmpl, tail)

	raw, err := d.Manager.Execute(ctx, detectorComponent, userPrompt, systemPrompt, map[string]interface{}{"response_format": "json_object"})
	if err != nil {
		return nil, fmt.Errorf("section detect batch [%d,%d]: %w", b.startPage, b.endPage, err)
	}
	var resp batchResponse
	if err := jsonutil.SmartParse(raw, &resp); err != nil {
		return nil, fmt.Errorf("section detect batch [%d,%d]: parse response: %w", b.startPage, b.endPage, err)
	}
	return resp.Sections, nil
}

func buildDetectionPrompt(b pageBatch, tmpl *template.DocumentTemplate, tail []rawSection) string {
	var sb strings.Builder
	sb.WriteString("Expected sections:\n")
	for _, s := range tmpl.Sections {
		sb.WriteString("- ")
		sb.WriteString(s.Name)
		if len(s.AlternativeNames) > 0 {
			sb.WriteString(" (aka ")
			sb.WriteString(strings.Join(s.AlternativeNames, ", "))
			sb.WriteString(")")
		}
		sb.WriteString("\n")
	}
	if len(tail) > 0 {
		sb.WriteString("\nSections already detected at the end of the previous batch (continue rather than re-open if the same section spans the boundary):\n")
		for _, t := range tail {
			fmt.Fprintf(&sb, "- %s (pages %d-%d)\n", t.Name, t.FirstPage, t.LastPage)
		}
	}
	sb.WriteString("\nPage contents:\n")
	for _, p := range b.pages {
		fmt.Fprintf(&sb, "--- Page %d ---\n%s\n", p.Number, p.Text)
	}
	sb.WriteString("\nReturn JSON {\"sections\": [{\"name\", \"first_page\", \"last_page\", \"confidence\"}]}.")
	return sb.String()
}

const defaultDetectionSystemPrompt = "You identify which expected sections of a disclosure document appear within the given page range. Respond with JSON only."

func lastN(sections []rawSection, n int) []rawSection {
	if len(sections) <= n {
		return sections
	}
	return sections[len(sections)-n:]
}

// materialize recomputes char count from the authoritative Page records,
// never from LLM output (spec.md §4.5).
func (d *Detector) materialize(stitched []sectionClaim, pages []models.Page) map[string]models.SectionInfo {
	byNumber := make(map[int]models.Page, len(pages))
	for _, p := range pages {
		byNumber[p.Number] = p
	}
	out := make(map[string]models.SectionInfo, len(stitched))
	for _, c := range stitched {
		var chars int
		for n := c.start; n <= c.end; n++ {
			if p, ok := byNumber[n]; ok {
				chars += p.CharCount
			}
		}
		out[c.name] = models.SectionInfo{
			Name:       c.name,
			StartPage:  c.start,
			EndPage:    c.end,
			CharCount:  chars,
			Confidence: c.confidence,
		}
	}
	return out
}
