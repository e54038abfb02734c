// Package table implements the Table Extractor (spec.md §4.4): detect
// grid-shaped passages in each page's raw text and turn them into
// models.Table records. PDFs carry no semantic table markup once reduced
// to text, so detection is heuristic: runs of 2+ spaces (or a tab) are
// treated as column separators, grounded on the teacher's fee.TableParser
// column/row model (headers, row labels, numeric classification) adapted
// from HTML cells to whitespace-delimited text cells.
package table

import (
	"regexp"
	"strconv"
	"strings"

	"disclosurecore/pkg/core/models"
)

// columnSplit matches 2+ consecutive spaces or a tab — the column
// separator in whitespace-aligned PDF text extraction.
var columnSplit = regexp.MustCompile(`[ \t]{2,}|\t`)

// defaultNumericRatio is the fraction of data cells that must parse as
// numbers for a table to be flagged numerical (spec.md §4.4: default 0.3).
const defaultNumericRatio = 0.3

// Extractor detects tables within per-page text.
type Extractor struct {
	// NumericRatio is the data-cell-parses-as-number fraction above
	// which a table is flagged numerical.
	NumericRatio float64
}

// NewExtractor builds an Extractor with the given numeric-ratio threshold.
func NewExtractor(numericRatio float64) *Extractor {
	if numericRatio <= 0 {
		numericRatio = defaultNumericRatio
	}
	return &Extractor{NumericRatio: numericRatio}
}

// Extract scans every page's text for whitespace-delimited grids and
// returns one models.Table per candidate found. Failure is never fatal:
// a page that cannot be parsed as a table simply contributes none.
func (e *Extractor) Extract(pages []models.Page) []models.Table {
	var tables []models.Table
	for _, page := range pages {
		candidates := splitCandidates(page.Text)
		indexInPage := 0
		for _, lines := range candidates {
			t, ok := e.parseCandidate(lines, page.Number, indexInPage)
			if !ok {
				continue
			}
			tables = append(tables, t)
			indexInPage++
		}
	}
	return tables
}

// splitCandidates groups consecutive multi-cell lines into runs; a run
// is a candidate table. A run ends at a blank line or a single-cell line.
func splitCandidates(text string) [][]string {
	var runs [][]string
	var current []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" || len(columnSplit.Split(strings.TrimSpace(line), -1)) < 2 {
			if len(current) > 0 {
				runs = append(runs, current)
				current = nil
			}
			continue
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		runs = append(runs, current)
	}
	return runs
}

// parseCandidate turns one run of multi-cell lines into a models.Table.
// The first row is the header; every later row is aligned to it by
// position, padding or truncating as needed. Empty tables are discarded.
func (e *Extractor) parseCandidate(lines []string, page, indexInPage int) (models.Table, bool) {
	if len(lines) < 2 {
		return models.Table{}, false
	}
	header := splitRow(lines[0])
	if len(header) < 2 {
		return models.Table{}, false
	}

	var rows [][]string
	var records []map[string]string
	var numericCells, dataCells int

	for _, line := range lines[1:] {
		cells := splitRow(line)
		aligned := alignToHeader(cells, len(header))
		rows = append(rows, aligned)

		record := make(map[string]string, len(header))
		for i, h := range header {
			record[h] = aligned[i]
			if i == 0 {
				continue // row label, not a data cell
			}
			dataCells++
			if isNumeric(aligned[i]) {
				numericCells++
			}
		}
		records = append(records, record)
	}
	if len(rows) == 0 {
		return models.Table{}, false
	}

	numerical := dataCells > 0 && float64(numericCells)/float64(dataCells) >= e.NumericRatio
	return models.Table{
		Page:        page,
		IndexInPage: indexInPage,
		Headers:     header,
		Rows:        rows,
		RowRecords:  records,
		RowCount:    len(rows),
		ColumnCount: len(header),
		Numerical:   numerical,
	}, true
}

func splitRow(line string) []string {
	raw := columnSplit.Split(strings.TrimRight(line, "\r"), -1)
	cells := make([]string, 0, len(raw))
	for _, c := range raw {
		cells = append(cells, strings.TrimSpace(c))
	}
	return cells
}

func alignToHeader(cells []string, width int) []string {
	out := make([]string, width)
	copy(out, cells)
	return out
}

var numericPattern = regexp.MustCompile(`^[-+]?[\d,]+(\.\d+)?%?$`)

func isNumeric(cell string) bool {
	cell = strings.TrimSpace(cell)
	cell = strings.TrimPrefix(cell, "¥")
	cell = strings.TrimPrefix(cell, "$")
	cell = strings.Trim(cell, "()")
	if cell == "" {
		return false
	}
	if !numericPattern.MatchString(cell) {
		return false
	}
	_, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSuffix(cell, "%"), ",", ""), 64)
	return err == nil
}
