package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"disclosurecore/pkg/core/models"
	"disclosurecore/pkg/core/progress"
	"disclosurecore/pkg/core/store"
)

func newTestMetadata(t *testing.T) *store.MetadataStore {
	t.Helper()
	s, err := store.NewMetadataStore(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestStructureDocumentIsNoOpWhenAlreadyStructured(t *testing.T) {
	meta := newTestMetadata(t)
	doc := models.NewDocument("doc-1", "report.pdf", 100, 0)
	doc.DocumentType = models.TypeSecuritiesReport
	require.NoError(t, meta.Create(doc))
	require.NoError(t, meta.SaveStructured("doc-1", &models.StructuredData{Pages: []models.Page{{Number: 1, Text: "x", CharCount: 1}}}, models.MethodText, models.ExtractionMetadata{}))

	o := &StructuringOrchestrator{Metadata: meta, Progress: progress.New()}
	err := o.StructureDocument(context.Background(), "doc-1", nil)
	require.NoError(t, err)

	reloaded, err := meta.Load("doc-1")
	require.NoError(t, err)
	require.Equal(t, models.StatusStructured, reloaded.Status)
}

func TestStructureDocumentHaltsWhileUnclassified(t *testing.T) {
	meta := newTestMetadata(t)
	doc := models.NewDocument("doc-2", "report.pdf", 100, 0)
	doc.Status = models.StatusPendingClassification
	require.NoError(t, meta.Create(doc))

	o := &StructuringOrchestrator{Metadata: meta, Progress: progress.New()}
	err := o.StructureDocument(context.Background(), "doc-2", nil)
	require.NoError(t, err)

	reloaded, err := meta.Load("doc-2")
	require.NoError(t, err)
	require.Equal(t, models.StatusPendingClassification, reloaded.Status)
}

func TestStructureDocumentUnknownIDIsError(t *testing.T) {
	meta := newTestMetadata(t)
	o := &StructuringOrchestrator{Metadata: meta, Progress: progress.New()}
	err := o.StructureDocument(context.Background(), "missing", nil)
	require.Error(t, err)
}
