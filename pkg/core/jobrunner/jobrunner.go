// Package jobrunner is the Job Runner Adapter (spec.md §6): the thin
// boundary the core exposes to an external background task runtime.
// The runtime itself — queue, retries, crash-restart scheduling — is
// explicitly out of scope (spec.md §1's Non-goals); this package only
// exposes the two idempotent entry points an external worker invokes,
// wrapping the Structuring and Comparison Orchestrators.
package jobrunner

import (
	"context"
	"fmt"

	"disclosurecore/pkg/core/logging"
	"disclosurecore/pkg/core/models"
	"disclosurecore/pkg/core/orchestrator"
)

// Options carries the forward-compatible extras run_comparison accepts
// per spec.md §6's `options` parameter. Cancel lets an external runtime
// signal cooperative cancellation between pipeline stages.
type Options struct {
	Cancel orchestrator.CancelFunc
}

// Runner wraps both orchestrators behind the two entry points the
// background task runtime calls.
type Runner struct {
	Structuring *orchestrator.StructuringOrchestrator
	Comparison  *orchestrator.ComparisonOrchestrator
}

// StructureDocument is structure_document(document_id): idempotent on
// re-entry, safe for an external worker to retry after a crash since the
// orchestrator resumes from the document's persisted status.
func (r *Runner) StructureDocument(ctx context.Context, documentID string) error {
	if r.Structuring == nil {
		return fmt.Errorf("jobrunner: structuring orchestrator not configured")
	}
	logging.Named("jobrunner").Infow("structure_document started", "document", documentID)
	err := r.Structuring.StructureDocument(ctx, documentID, nil)
	if err != nil {
		logging.Named("jobrunner").Errorw("structure_document failed", "document", documentID, "error", err)
	}
	return err
}

// RunComparison is run_comparison(comparison_id, document_ids,
// iterative_mode, options): idempotent on re-entry, resuming from the
// comparison record's persisted status.
func (r *Runner) RunComparison(ctx context.Context, comparisonID string, documentIDs []string, iterativeMode models.IterativeSearchMode, options Options) error {
	if r.Comparison == nil {
		return fmt.Errorf("jobrunner: comparison orchestrator not configured")
	}
	logging.Named("jobrunner").Infow("run_comparison started", "comparison", comparisonID, "documents", documentIDs)
	err := r.Comparison.RunComparison(ctx, comparisonID, documentIDs, iterativeMode, options.Cancel)
	if err != nil {
		logging.Named("jobrunner").Errorw("run_comparison failed", "comparison", comparisonID, "error", err)
	}
	return err
}
