package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"disclosurecore/pkg/core/models"
)

func TestExtractDetectsNumericalTable(t *testing.T) {
	text := "Revenue  FY2023  FY2024\n" +
		"Net sales  1,200  1,400\n" +
		"Operating income  300  350\n"
	pages := []models.Page{{Number: 1, Text: text}}

	e := NewExtractor(0.3)
	tables := e.Extract(pages)
	require.Len(t, tables, 1)
	tbl := tables[0]
	assert.Equal(t, []string{"Revenue", "FY2023", "FY2024"}, tbl.Headers)
	assert.Equal(t, 2, tbl.RowCount)
	assert.True(t, tbl.Numerical)
}

func TestExtractSkipsNonTabularText(t *testing.T) {
	pages := []models.Page{{Number: 1, Text: "This is ordinary prose with no columns.\nAnother plain sentence."}}
	e := NewExtractor(0.3)
	assert.Empty(t, e.Extract(pages))
}

func TestExtractNonNumericalWhenMostlyText(t *testing.T) {
	text := "Item  Description  Notes\n" +
		"Policy  accrual basis  see note 3\n" +
		"Method  straight-line  see note 4\n"
	pages := []models.Page{{Number: 1, Text: text}}
	e := NewExtractor(0.3)
	tables := e.Extract(pages)
	require.Len(t, tables, 1)
	assert.False(t, tables[0].Numerical)
}

func TestIsNumericHandlesCurrencyAndPercent(t *testing.T) {
	assert.True(t, isNumeric("1,200"))
	assert.True(t, isNumeric("¥1,200"))
	assert.True(t, isNumeric("12.5%"))
	assert.True(t, isNumeric("(300)"))
	assert.False(t, isNumeric("N/A"))
	assert.False(t, isNumeric(""))
}
