package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"disclosurecore/pkg/core/errs"
	"disclosurecore/pkg/core/lockpool"
	"disclosurecore/pkg/core/logging"
	"disclosurecore/pkg/core/models"
)

// MetadataStore is the file-backed mapping from document id to Document
// record described in spec.md §4.7: one file per record, an exclusive
// per-identifier lock around any read-modify-write. It reads and writes
// files only; the optional Postgres pool from InitDB is not used here.
// Grounded on the teacher's FSAPCache hybrid-vault discipline.
type MetadataStore struct {
	dir   string
	locks *lockpool.Pool
}

// NewMetadataStore constructs a file-backed store rooted at dir, creating
// the directory if needed. Individual records are rewritten atomically
// (write-tmp, rename) so a crash never leaves a torn record. Locks are
// 256 hashed stripes, so updates to different documents contend only
// when their identifiers share a stripe.
func NewMetadataStore(dir string) (*MetadataStore, error) {
	if dir == "" {
		dir = filepath.Join(".data", "documents")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("metadata store: create dir: %w", err)
	}
	return &MetadataStore{dir: dir, locks: lockpool.New(256)}, nil
}

func (s *MetadataStore) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Create writes a brand-new Document record.
func (s *MetadataStore) Create(doc *models.Document) error {
	return s.locks.With(doc.ID, func() error {
		return s.writeLocked(doc)
	})
}

// Load reads one Document record by id. Returns errs.NotFound if absent,
// errs.RetentionExpired if its retention deadline has passed.
func (s *MetadataStore) Load(id string) (*models.Document, error) {
	var doc *models.Document
	err := s.locks.With(id, func() error {
		d, err := s.readLocked(id)
		if err != nil {
			return err
		}
		if d.IsExpired(time.Now().UTC()) {
			return errs.RetentionExpired
		}
		doc = d
		return nil
	})
	return doc, err
}

// List returns every non-expired document.
func (s *MetadataStore) List() ([]*models.Document, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("metadata store: list: %w", err)
	}
	now := time.Now().UTC()
	out := make([]*models.Document, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		id := e.Name()[:len(e.Name())-len(".json")]
		doc, err := s.readLocked(id)
		if err != nil {
			continue
		}
		if !doc.IsExpired(now) {
			out = append(out, doc)
		}
	}
	return out, nil
}

// UpdateStatus sets Status (and optionally CurrentStep) under the
// per-identifier lock, preserving everything else in the record.
func (s *MetadataStore) UpdateStatus(id string, status models.DocumentStatus, step string) error {
	return s.locks.With(id, func() error {
		doc, err := s.readLocked(id)
		if err != nil {
			return err
		}
		doc.Status = status
		if step != "" {
			doc.CurrentStep = step
		}
		doc.UpdatedAt = time.Now().UTC()
		return s.writeLocked(doc)
	})
}

// SetClassification records the outcome of document classification:
// the resolved DocumentType and the adapter's reason string. Leaves
// Status untouched — callers decide the next status transition.
func (s *MetadataStore) SetClassification(id string, docType models.DocumentType, reason string) error {
	return s.locks.With(id, func() error {
		doc, err := s.readLocked(id)
		if err != nil {
			return err
		}
		doc.DocumentType = docType
		doc.ClassificationReason = reason
		doc.UpdatedAt = time.Now().UTC()
		return s.writeLocked(doc)
	})
}

// SaveStructured records a completed StructuredData payload, extraction
// method and metadata, and marks the document structured.
func (s *MetadataStore) SaveStructured(id string, payload *models.StructuredData, method models.ExtractionMethod, meta models.ExtractionMetadata) error {
	return s.locks.With(id, func() error {
		doc, err := s.readLocked(id)
		if err != nil {
			return err
		}
		doc.StructuredData = payload
		doc.ExtractionMethod = method
		doc.ExtractionMeta = meta
		doc.Status = models.StatusStructured
		doc.UpdatedAt = time.Now().UTC()
		if err := doc.Validate(); err != nil {
			return fmt.Errorf("metadata store: %w: %w", errs.Extraction, err)
		}
		return s.writeLocked(doc)
	})
}

// MarkFailed records a terminal failure, preserving whatever
// StructuredData earlier stages already produced.
func (s *MetadataStore) MarkFailed(id string, reason string) error {
	return s.locks.With(id, func() error {
		doc, err := s.readLocked(id)
		if err != nil {
			return err
		}
		doc.Status = models.StatusFailed
		doc.FailureReason = reason
		doc.UpdatedAt = time.Now().UTC()
		return s.writeLocked(doc)
	})
}

// ListExpired returns the ids of every document whose retention deadline
// has passed as of now.
func (s *MetadataStore) ListExpired(now time.Time) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("metadata store: list expired: %w", err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		id := e.Name()[:len(e.Name())-len(".json")]
		doc, err := s.readLocked(id)
		if err != nil {
			continue
		}
		if doc.IsExpired(now) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// LoadRaw reads a Document record without the retention-expiry check
// Load applies, so the Retention Sweeper can still see an expired
// document's SourcePath and payload long enough to clean them up.
func (s *MetadataStore) LoadRaw(id string) (*models.Document, error) {
	var doc *models.Document
	err := s.locks.With(id, func() error {
		d, err := s.readLocked(id)
		if err != nil {
			return err
		}
		doc = d
		return nil
	})
	return doc, err
}

// ClearPayload clears an expired document's SourcePath, StructuredData
// and extraction metadata while keeping the record itself, and returns
// the old SourcePath; deleting the file at that path is left to the
// caller (spec.md §4.13). The
// identifier, status and metadata survive so a later Load still reports
// RetentionExpired rather than NotFound.
func (s *MetadataStore) ClearPayload(id string) (sourcePath string, err error) {
	err = s.locks.With(id, func() error {
		doc, err := s.readLocked(id)
		if err != nil {
			return err
		}
		sourcePath = doc.SourcePath
		doc.SourcePath = ""
		doc.StructuredData = nil
		doc.ExtractionMeta = models.ExtractionMetadata{}
		doc.UpdatedAt = time.Now().UTC()
		return s.writeLocked(doc)
	})
	return sourcePath, err
}

// Delete removes a document record and returns nil if it was already
// absent (delete is idempotent).
func (s *MetadataStore) Delete(id string) error {
	return s.locks.With(id, func() error {
		err := os.Remove(s.path(id))
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("metadata store: delete %s: %w", id, err)
		}
		return nil
	})
}

func (s *MetadataStore) readLocked(id string) (*models.Document, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("metadata store: document %s: %w", id, errs.NotFound)
		}
		return nil, fmt.Errorf("metadata store: read %s: %w", id, err)
	}
	var doc models.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("metadata store: decode %s: %w", id, err)
	}
	return &doc, nil
}

func (s *MetadataStore) writeLocked(doc *models.Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("metadata store: encode %s: %w", doc.ID, err)
	}
	tmp := s.path(doc.ID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("metadata store: write %s: %w", doc.ID, err)
	}
	if err := os.Rename(tmp, s.path(doc.ID)); err != nil {
		return fmt.Errorf("metadata store: commit %s: %w", doc.ID, err)
	}
	logging.Named("store").Debugw("wrote document record", "id", doc.ID, "status", doc.Status)
	return nil
}
