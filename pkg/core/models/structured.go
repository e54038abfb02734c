package models

// Page is one raw page of extracted text.
type Page struct {
	Number    int    `json:"number"` // 1-based
	Text      string `json:"text"`
	CharCount int    `json:"char_count"`
	HasImages bool   `json:"has_images"`
}

// Table is one structured table pulled from a page.
type Table struct {
	Page        int                      `json:"page"`
	IndexInPage int                      `json:"index_in_page"`
	Headers     []string                 `json:"headers"`
	Rows        [][]string               `json:"rows"`
	RowRecords  []map[string]string      `json:"row_records"`
	RowCount    int                      `json:"row_count"`
	ColumnCount int                      `json:"column_count"`
	Numerical   bool                     `json:"numerical"`
}

// ScalarOrSeries holds either a single numeric/string value or a
// period-keyed mapping of values — the "value may be scalar or nested
// period→scalar mapping" shape used by FinancialData and FactualInfo.
type ScalarOrSeries struct {
	Scalar *string           `json:"scalar,omitempty"`
	Series map[string]string `json:"series,omitempty"`
}

// ScalarValue wraps a plain scalar in a ScalarOrSeries.
func ScalarValue(v string) ScalarOrSeries { return ScalarOrSeries{Scalar: &v} }

// SeriesValue wraps a period map in a ScalarOrSeries.
func SeriesValue(v map[string]string) ScalarOrSeries { return ScalarOrSeries{Series: v} }

// FinancialDataPoint is one verbatim numeric fact pulled from a section.
type FinancialDataPoint struct {
	Item    string         `json:"item"`
	Value   ScalarOrSeries `json:"value"`
	Unit    string         `json:"unit,omitempty"`
	Period  string         `json:"period,omitempty"`
	Context string         `json:"context,omitempty"`
}

// AccountingNote is a verbatim note/policy statement.
type AccountingNote struct {
	Topic   string `json:"topic"`
	Content string `json:"content"`
	Type    string `json:"type,omitempty"`
}

// FactualInfoPoint is a verbatim non-financial fact (headcount, stores, etc).
type FactualInfoPoint struct {
	Category string         `json:"category"`
	Item     string         `json:"item"`
	Value    ScalarOrSeries `json:"value"`
}

// Message is a verbatim management statement / tone-bearing passage.
type Message struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	Tone    string `json:"tone,omitempty"`
}

// ExtractedContent is the four typed buckets extracted verbatim from one
// section. No bucket ever carries a computed derivative metric.
type ExtractedContent struct {
	FinancialData   []FinancialDataPoint `json:"financial_data"`
	AccountingNotes []AccountingNote     `json:"accounting_notes"`
	FactualInfo     []FactualInfoPoint   `json:"factual_info"`
	Messages        []Message            `json:"messages"`
	ExtractionError string               `json:"extraction_error,omitempty"`
}

// IsEmpty reports whether every bucket is empty.
func (c *ExtractedContent) IsEmpty() bool {
	if c == nil {
		return true
	}
	return len(c.FinancialData) == 0 && len(c.AccountingNotes) == 0 &&
		len(c.FactualInfo) == 0 && len(c.Messages) == 0
}

// SectionInfo is the stitched, page-anchored record of one named section.
type SectionInfo struct {
	Name       string             `json:"name"`
	StartPage  int                `json:"start_page"`
	EndPage    int                `json:"end_page"` // inclusive
	CharCount  int                `json:"char_count"`
	Confidence float64            `json:"confidence"` // [0,1]
	Content    *ExtractedContent  `json:"content,omitempty"`
}

// StructuredData is the navigable representation of one structured document.
type StructuredData struct {
	Pages    []Page                 `json:"pages"`
	Tables   []Table                `json:"tables"`
	Sections map[string]SectionInfo `json:"sections"`
	FullText string                 `json:"full_text,omitempty"`
}

// PageText concatenates the text of pages [start,end] inclusive (1-based).
func (s *StructuredData) PageText(start, end int) string {
	var out []byte
	for _, p := range s.Pages {
		if p.Number >= start && p.Number <= end {
			if len(out) > 0 {
				out = append(out, '\n')
			}
			out = append(out, []byte(p.Text)...)
		}
	}
	return string(out)
}

// TotalPages returns the number of pages, i.e. the dense upper bound for
// page numbering (spec.md §8: pages are 1..N dense and strictly increasing).
func (s *StructuredData) TotalPages() int {
	return len(s.Pages)
}
