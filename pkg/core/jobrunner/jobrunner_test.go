package jobrunner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"disclosurecore/pkg/core/models"
	"disclosurecore/pkg/core/orchestrator"
	"disclosurecore/pkg/core/progress"
	"disclosurecore/pkg/core/store"
)

func TestStructureDocumentDelegatesAndIsIdempotent(t *testing.T) {
	meta, err := store.NewMetadataStore(t.TempDir())
	require.NoError(t, err)

	doc := models.NewDocument("doc-1", "report.pdf", 10, 0)
	doc.DocumentType = models.TypeSecuritiesReport
	require.NoError(t, meta.Create(doc))
	require.NoError(t, meta.SaveStructured("doc-1", &models.StructuredData{Pages: []models.Page{{Number: 1, Text: "x", CharCount: 1}}}, models.MethodText, models.ExtractionMetadata{}))

	r := &Runner{Structuring: &orchestrator.StructuringOrchestrator{Metadata: meta, Progress: progress.New()}}
	err = r.StructureDocument(context.Background(), "doc-1")
	require.NoError(t, err)

	reloaded, err := meta.Load("doc-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusStructured, reloaded.Status)
}

func TestStructureDocumentErrorsWithoutOrchestrator(t *testing.T) {
	r := &Runner{}
	err := r.StructureDocument(context.Background(), "doc-1")
	assert.Error(t, err)
}

func TestRunComparisonErrorsWithoutOrchestrator(t *testing.T) {
	r := &Runner{}
	err := r.RunComparison(context.Background(), "cmp-1", []string{"doc-1", "doc-2"}, models.IterativeOff, Options{})
	assert.Error(t, err)
}
