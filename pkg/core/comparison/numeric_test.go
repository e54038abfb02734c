package comparison

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"disclosurecore/pkg/core/models"
)

func sectionsWithFinancials(item, unit, value string) map[string]models.SectionInfo {
	return map[string]models.SectionInfo{
		"業績": {
			Name: "業績",
			Content: &models.ExtractedContent{
				FinancialData: []models.FinancialDataPoint{
					{Item: item, Unit: unit, Value: models.ScalarValue(value)},
				},
			},
		},
	}
}

func TestDiffNumericalComputesPctAndSignificance(t *testing.T) {
	a := sectionsWithFinancials("売上高", "百万円", "1,000")
	b := sectionsWithFinancials("売上高", "百万円", "1,100")
	mappings := []models.SectionMapping{{Doc1Section: "業績", Doc2Section: "業績", MappingMethod: models.MappingExact, ConfidenceScore: 1.0}}

	diffs := DiffNumerical(mappings, a, b, 0.05)
	require.Len(t, diffs, 1)
	d := diffs[0]
	require.NotNil(t, d.DifferencePct)
	assert.InDelta(t, 0.1, *d.DifferencePct, 1e-9)
	assert.True(t, d.IsSignificant)
}

func TestDiffNumericalNormalizesUnits(t *testing.T) {
	a := sectionsWithFinancials("純利益", "億円", "10")
	b := sectionsWithFinancials("純利益", "百万円", "1000")
	mappings := []models.SectionMapping{{Doc1Section: "業績", Doc2Section: "業績"}}

	diffs := DiffNumerical(mappings, a, b, 0.05)
	require.Len(t, diffs, 1)
	// 10億円 == 1,000百万円 == 1e9円 on both sides, so no real difference.
	assert.InDelta(t, 0.0, diffs[0].Difference, 1e-6)
	assert.False(t, diffs[0].IsSignificant)
}

func TestCanonicalNameIgnoresPunctuationAndCase(t *testing.T) {
	assert.Equal(t, canonicalName("Net Sales"), canonicalName("net-sales"))
	assert.Equal(t, canonicalName("売上高"), canonicalName(" 売上高 "))
}
