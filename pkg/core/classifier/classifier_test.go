package classifier

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"disclosurecore/pkg/core/models"
	"disclosurecore/pkg/core/template"
)

func newTestRegistry(t *testing.T) *template.Registry {
	t.Helper()
	dir := t.TempDir()
	securities := `
document_type: securities_report
display_name: Securities Report
description: Annual securities report
keywords_for_detection:
  - 有価証券報告書
  - securities report
sections: []
`
	earnings := `
document_type: earnings_report
display_name: Earnings Report
description: Quarterly earnings summary
keywords_for_detection:
  - 決算短信
  - earnings summary
sections: []
`
	require.NoError(t, os.WriteFile(dir+"/securities.yaml", []byte(securities), 0o644))
	require.NoError(t, os.WriteFile(dir+"/earnings.yaml", []byte(earnings), 0o644))

	reg := template.New()
	require.NoError(t, reg.LoadFromDirectory(dir))
	return reg
}

func TestClassifyByKeywordPicksUnambiguousWinner(t *testing.T) {
	reg := newTestRegistry(t)
	a := &Adapter{Templates: reg}

	docType, reason := a.Classify(context.Background(), "これは有価証券報告書です。内容は有価証券報告書に関するものです。")
	assert.Equal(t, models.TypeSecuritiesReport, docType)
	assert.Contains(t, reason, "keyword match")
}

func TestClassifyFallsBackToUnknownWithNoMatchAndNoLLM(t *testing.T) {
	reg := newTestRegistry(t)
	a := &Adapter{Templates: reg}

	docType, reason := a.Classify(context.Background(), "completely unrelated text with no keywords")
	assert.Equal(t, models.TypeUnknown, docType)
	assert.NotEmpty(t, reason)
}
