package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"disclosurecore/pkg/core/models"
)

func TestSelectModeConsistencyCheck(t *testing.T) {
	infos := []models.DocumentInfo{
		{CompanyName: "Acme", DocumentType: models.TypeSecuritiesReport},
		{CompanyName: "Acme", DocumentType: models.TypeEarningsReport},
	}
	assert.Equal(t, models.ModeConsistencyCheck, SelectMode(infos))
}

func TestSelectModeDiffAnalysisYear(t *testing.T) {
	infos := []models.DocumentInfo{
		{CompanyName: "Acme", DocumentType: models.TypeSecuritiesReport, FiscalYear: 2023},
		{CompanyName: "Acme", DocumentType: models.TypeSecuritiesReport, FiscalYear: 2024},
	}
	assert.Equal(t, models.ModeDiffAnalysisYear, SelectMode(infos))
}

func TestSelectModeDiffAnalysisCompany(t *testing.T) {
	infos := []models.DocumentInfo{
		{CompanyName: "Acme", DocumentType: models.TypeSecuritiesReport, FiscalYear: 2023},
		{CompanyName: "Globex", DocumentType: models.TypeSecuritiesReport, FiscalYear: 2023},
	}
	assert.Equal(t, models.ModeDiffAnalysisCompany, SelectMode(infos))
}

func TestSelectModeMultiDocument(t *testing.T) {
	infos := []models.DocumentInfo{
		{CompanyName: "Acme"}, {CompanyName: "Globex"}, {CompanyName: "Initech"},
	}
	assert.Equal(t, models.ModeMultiDocument, SelectMode(infos))
}

func TestApplyImportancePromotionOverridesOnContradictions(t *testing.T) {
	r := &models.SectionDetailedComparison{
		Importance:       models.ImportanceMedium,
		ImportanceReason: "minor wording difference",
		TextChanges:      models.TextChanges{Contradictions: []string{"revenue mismatch"}},
	}
	applyImportancePromotion(r)
	assert.Equal(t, models.ImportanceHigh, r.Importance)
	assert.Contains(t, r.ImportanceReason, "1 material change")
}

func TestApplyImportancePromotionLeavesLowWhenNoContradictions(t *testing.T) {
	r := &models.SectionDetailedComparison{Importance: models.ImportanceLow}
	applyImportancePromotion(r)
	assert.Equal(t, models.ImportanceLow, r.Importance)
}

func TestFindPassagesCaseFoldedMinLength(t *testing.T) {
	text := "Revenue grew substantially.\n\nCosts were flat this year.\n\nShort hi."
	passages := findPassages(text, []string{"REVENUE", "hi"}, 4)
	assert.Len(t, passages, 1)
	assert.Contains(t, passages[0], "Revenue")
}

func TestOverallPriorityPicksHighestAcrossSections(t *testing.T) {
	detailed := []models.SectionDetailedComparison{
		{Importance: models.ImportanceLow},
		{Importance: models.ImportanceMedium},
	}
	assert.Equal(t, models.ImportanceMedium, overallPriority(detailed))
}
