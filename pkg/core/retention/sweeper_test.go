package retention

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"disclosurecore/pkg/core/config"
	"disclosurecore/pkg/core/errs"
	"disclosurecore/pkg/core/models"
	"disclosurecore/pkg/core/store"
)

func newSweeperHarness(t *testing.T) (*Sweeper, *store.MetadataStore, *store.ComparisonStore) {
	t.Helper()
	meta, err := store.NewMetadataStore(t.TempDir())
	require.NoError(t, err)
	comps, err := store.NewComparisonStore(t.TempDir())
	require.NoError(t, err)
	s := &Sweeper{Metadata: meta, Comparisons: comps, Config: config.RetentionConfig{SweepCron: "@every 1h"}}
	return s, meta, comps
}

func expiredDoc(t *testing.T, meta *store.MetadataStore, id, sourcePath string) {
	t.Helper()
	doc := models.NewDocument(id, "report.pdf", 10, -time.Second)
	doc.SourcePath = sourcePath
	doc.StructuredData = &models.StructuredData{Pages: []models.Page{{Number: 1, Text: "x", CharCount: 1}}}
	require.NoError(t, meta.Create(doc))
}

func TestSweepDeletesSourceFileAndClearsPayload(t *testing.T) {
	s, meta, _ := newSweeperHarness(t)

	srcPath := filepath.Join(t.TempDir(), "doc.pdf")
	require.NoError(t, os.WriteFile(srcPath, []byte("pdf"), 0o644))
	expiredDoc(t, meta, "doc-1", srcPath)

	require.NoError(t, s.Sweep(time.Now().UTC()))

	_, err := os.Stat(srcPath)
	assert.True(t, os.IsNotExist(err))

	_, loadErr := meta.Load("doc-1")
	assert.ErrorIs(t, loadErr, errs.RetentionExpired)

	raw, err := meta.LoadRaw("doc-1")
	require.NoError(t, err)
	assert.Nil(t, raw.StructuredData)
	assert.Empty(t, raw.SourcePath)
}

func TestSweepDeletesComparisonWhenAllDocumentsExpired(t *testing.T) {
	s, meta, comps := newSweeperHarness(t)
	expiredDoc(t, meta, "doc-a", "")
	expiredDoc(t, meta, "doc-b", "")

	c := models.NewComparison("cmp-1", []string{"doc-a", "doc-b"}, []models.DocumentInfo{
		{DocumentID: "doc-a", StructuredDataPresent: true},
		{DocumentID: "doc-b", StructuredDataPresent: true},
	}, models.ModeDiffAnalysisCompany)
	require.NoError(t, comps.Save(c))

	require.NoError(t, s.Sweep(time.Now().UTC()))

	_, err := comps.Load("cmp-1")
	assert.ErrorIs(t, err, errs.NotFound)
}

func TestSweepStripsExpiredSideWhenOneDocumentSurvives(t *testing.T) {
	s, meta, comps := newSweeperHarness(t)
	expiredDoc(t, meta, "doc-expired", "")

	live := models.NewDocument("doc-live", "live.pdf", 10, time.Hour)
	require.NoError(t, meta.Create(live))

	c := models.NewComparison("cmp-2", []string{"doc-expired", "doc-live"}, []models.DocumentInfo{
		{DocumentID: "doc-expired", StructuredDataPresent: true},
		{DocumentID: "doc-live", StructuredDataPresent: true},
	}, models.ModeDiffAnalysisCompany)
	require.NoError(t, comps.Save(c))

	require.NoError(t, s.Sweep(time.Now().UTC()))

	reloaded, err := comps.Load("cmp-2")
	require.NoError(t, err)
	for _, info := range reloaded.DocumentInfos {
		if info.DocumentID == "doc-expired" {
			assert.False(t, info.StructuredDataPresent)
		}
		if info.DocumentID == "doc-live" {
			assert.True(t, info.StructuredDataPresent)
		}
	}
}

func TestSweepIsNoOpWithNoExpiredDocuments(t *testing.T) {
	s, meta, _ := newSweeperHarness(t)
	doc := models.NewDocument("doc-fresh", "fresh.pdf", 10, time.Hour)
	require.NoError(t, meta.Create(doc))

	require.NoError(t, s.Sweep(time.Now().UTC()))

	reloaded, err := meta.Load("doc-fresh")
	require.NoError(t, err)
	assert.NotNil(t, reloaded)
}
