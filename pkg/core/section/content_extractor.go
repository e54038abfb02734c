package section

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	"disclosurecore/pkg/core/jsonutil"
	"disclosurecore/pkg/core/llm"
	"disclosurecore/pkg/core/logging"
	"disclosurecore/pkg/core/models"
	"disclosurecore/pkg/core/prompt"
)

const contentComponent = "section_content"

// ContentExtractor pulls the four ExtractedContent buckets out of one
// section's page text via a single LLM call per section (spec.md §4.6).
type ContentExtractor struct {
	Manager   *llm.Manager
	PoolWidth int // concurrent sections, default 3
	CharCap   int // content char cap before head/tail elision, default 10000
}

// NewContentExtractor builds a ContentExtractor, falling back to spec.md's
// defaults for non-positive values.
func NewContentExtractor(manager *llm.Manager, poolWidth, charCap int) *ContentExtractor {
	if poolWidth <= 0 {
		poolWidth = 3
	}
	if charCap <= 0 {
		charCap = 10000
	}
	return &ContentExtractor{Manager: manager, PoolWidth: poolWidth, CharCap: charCap}
}

// ExtractAll runs content extraction for every section in sections,
// using data.PageText to recover each section's raw text, on a bounded
// pool. The returned map is keyed identically to the input.
func (c *ContentExtractor) ExtractAll(ctx context.Context, sections map[string]models.SectionInfo, data *models.StructuredData) map[string]models.SectionInfo {
	sem := semaphore.NewWeighted(int64(c.PoolWidth))
	var wg sync.WaitGroup
	var mu sync.Mutex
	out := make(map[string]models.SectionInfo, len(sections))

	for name, info := range sections {
		if err := sem.Acquire(ctx, 1); err != nil {
			mu.Lock()
			out[name] = info
			mu.Unlock()
			continue
		}
		wg.Add(1)
		go func(name string, info models.SectionInfo) {
			defer wg.Done()
			defer sem.Release(1)
			content := c.extractOne(ctx, name, info, data)
			info.Content = content
			mu.Lock()
			out[name] = info
			mu.Unlock()
		}(name, info)
	}
	wg.Wait()
	return out
}

func (c *ContentExtractor) extractOne(ctx context.Context, name string, info models.SectionInfo, data *models.StructuredData) *models.ExtractedContent {
	text := data.PageText(info.StartPage, info.EndPage)
	capped := capMiddle(text, c.CharCap)

	systemPrompt, err := prompt.GetSectionContentPrompt()
	if err != nil {
		systemPrompt = defaultContentSystemPrompt
	}
	userPrompt := fmt.Sprintf("Section %q (pages %d-%d):\n%s\n\nReturn JSON {\"financial_data\":[],\"accounting_notes\":[],\"factual_info\":[],\"messages\":[]}.",
		name, info.StartPage, info.EndPage, capped)

	content, err := c.callOnce(ctx, userPrompt, systemPrompt)
	if err != nil {
		// Single retry per spec.md §4.6, then yield empty buckets with an
		// error annotation.
		content, err = c.callOnce(ctx, userPrompt, systemPrompt)
	}
	if err != nil {
		logging.Named("section").Warnw("content extraction failed", "section", name, "error", err)
		return &models.ExtractedContent{ExtractionError: err.Error()}
	}
	return content
}

func (c *ContentExtractor) callOnce(ctx context.Context, userPrompt, systemPrompt string) (*models.ExtractedContent, error) {
	raw, err := c.Manager.Execute(ctx, contentComponent, userPrompt, systemPrompt, map[string]interface{}{"response_format": "json_object"})
	if err != nil {
		return nil, err
	}
	var content models.ExtractedContent
	if err := jsonutil.SmartParse(raw, &content); err != nil {
		return nil, err
	}
	return &content, nil
}

const defaultContentSystemPrompt = "You extract verbatim financial data, accounting notes, factual information, and management statements from one section of a disclosure document. Never compute derivative metrics. Respond with JSON only."

// capMiddle keeps the head and tail of text and elides the middle with a
// marker when text exceeds cap characters (spec.md §4.6).
func capMiddle(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	half := limit / 2
	return text[:half] + "\n...[elided]...\n" + text[len(text)-half:]
}
