// Package retention implements the Retention Sweeper (spec.md §4.13): a
// cron-scheduled pass that deletes expired documents' source files and
// StructuredData, and either deletes or trims any comparison that
// references them. Grounded on ternarybob-quaero's scheduler.Service use
// of robfig/cron/v3, pared down to the one cadence this spec needs.
package retention

import (
	"errors"
	"os"
	"time"

	"github.com/robfig/cron/v3"

	"disclosurecore/pkg/core/config"
	"disclosurecore/pkg/core/logging"
	"disclosurecore/pkg/core/store"
)

// Sweeper runs Sweep on config.RetentionConfig.SweepCron until Stop is
// called.
type Sweeper struct {
	Metadata    *store.MetadataStore
	Comparisons *store.ComparisonStore
	Config      config.RetentionConfig

	cron *cron.Cron
}

// Start registers the sweep and starts the cron scheduler. Calling Start
// twice is an error, matching robfig/cron's own AddFunc-before-Start
// discipline.
func (s *Sweeper) Start() error {
	if s.cron != nil {
		return errors.New("retention: sweeper already started")
	}
	schedule := s.Config.SweepCron
	if schedule == "" {
		schedule = "@every 1h"
	}

	s.cron = cron.New()
	if _, err := s.cron.AddFunc(schedule, s.runSweep); err != nil {
		return err
	}
	s.cron.Start()
	logging.Named("retention").Infow("sweeper started", "schedule", schedule)
	return nil
}

// Stop halts the scheduler, waiting for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	if s.cron == nil {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Sweeper) runSweep() {
	if err := s.Sweep(time.Now().UTC()); err != nil {
		logging.Named("retention").Errorw("sweep failed", "error", err)
	}
}

// Sweep enumerates every document whose retention deadline has passed as
// of now, deletes its source PDF and StructuredData, and resolves every
// comparison that references it: a comparison whose documents are all
// expired is deleted outright; a comparison with at least one live
// document keeps its identifier and DocumentInfo snapshots, with the
// expired document's snapshot marked as having no StructuredData. Its
// section mappings, differences and per-section results are kept as they
// are (spec.md §4.13).
func (s *Sweeper) Sweep(now time.Time) error {
	expiredIDs, err := s.Metadata.ListExpired(now)
	if err != nil {
		return err
	}
	if len(expiredIDs) == 0 {
		return nil
	}

	expired := make(map[string]bool, len(expiredIDs))
	for _, id := range expiredIDs {
		expired[id] = true
		s.sweepDocument(id)
	}

	return s.sweepComparisons(expired)
}

func (s *Sweeper) sweepDocument(id string) {
	sourcePath, err := s.Metadata.ClearPayload(id)
	if err != nil {
		logging.Named("retention").Warnw("clear payload failed", "document", id, "error", err)
		return
	}
	if sourcePath == "" {
		return
	}
	if err := os.Remove(sourcePath); err != nil && !os.IsNotExist(err) {
		logging.Named("retention").Warnw("delete source file failed", "document", id, "path", sourcePath, "error", err)
	}
}

func (s *Sweeper) sweepComparisons(expired map[string]bool) error {
	comparisons, err := s.Comparisons.All()
	if err != nil {
		return err
	}

	for _, c := range comparisons {
		allExpired := true
		anyExpired := false
		for _, docID := range c.DocumentIDs {
			if expired[docID] {
				anyExpired = true
			} else {
				allExpired = false
			}
		}

		switch {
		case allExpired:
			if err := s.Comparisons.Delete(c.ID); err != nil {
				logging.Named("retention").Warnw("delete comparison failed", "comparison", c.ID, "error", err)
			}
		case anyExpired:
			for _, docID := range c.DocumentIDs {
				if !expired[docID] {
					continue
				}
				if err := s.Comparisons.StripExpiredSide(c.ID, docID); err != nil {
					logging.Named("retention").Warnw("strip expired side failed", "comparison", c.ID, "document", docID, "error", err)
				}
			}
		}
	}
	return nil
}
