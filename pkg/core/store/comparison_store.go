package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"disclosurecore/pkg/core/errs"
	"disclosurecore/pkg/core/lockpool"
	"disclosurecore/pkg/core/models"
)

// ComparisonStore persists Comparison artifacts with the same one-file-
// per-record, per-identifier-locked discipline as MetadataStore
// (spec.md §4.11 "storage format mirrors Metadata Store discipline").
type ComparisonStore struct {
	dir   string
	locks *lockpool.Pool
}

func NewComparisonStore(dir string) (*ComparisonStore, error) {
	if dir == "" {
		dir = filepath.Join(".data", "comparisons")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("comparison store: create dir: %w", err)
	}
	return &ComparisonStore{dir: dir, locks: lockpool.New(256)}, nil
}

func (s *ComparisonStore) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Save writes a full Comparison record under its identifier's lock.
func (s *ComparisonStore) Save(c *models.Comparison) error {
	return s.locks.With(c.ID, func() error {
		return s.writeLocked(c)
	})
}

// Load reads one Comparison by id.
func (s *ComparisonStore) Load(id string) (*models.Comparison, error) {
	var out *models.Comparison
	err := s.locks.With(id, func() error {
		c, err := s.readLocked(id)
		if err != nil {
			return err
		}
		out = c
		return nil
	})
	return out, err
}

// Mutate reads a Comparison, applies fn, and writes the result back
// under the same lock acquisition — the read-modify-write pattern every
// in-progress comparison update (per-section results, progress) uses.
func (s *ComparisonStore) Mutate(id string, fn func(*models.Comparison) error) error {
	return s.locks.With(id, func() error {
		c, err := s.readLocked(id)
		if err != nil {
			return err
		}
		if err := fn(c); err != nil {
			return err
		}
		return s.writeLocked(c)
	})
}

// List returns lightweight descriptors for every stored comparison.
func (s *ComparisonStore) List() ([]models.Descriptor, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("comparison store: list: %w", err)
	}
	out := make([]models.Descriptor, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		id := e.Name()[:len(e.Name())-len(".json")]
		c, err := s.readLocked(id)
		if err != nil {
			continue
		}
		filenames := make([]string, 0, len(c.DocumentInfos))
		for _, info := range c.DocumentInfos {
			filenames = append(filenames, info.Filename)
		}
		out = append(out, models.Descriptor{
			ID:           c.ID,
			CreatedAt:    c.CreatedAt,
			Mode:         c.Mode,
			Filenames:    filenames,
			SectionCount: len(c.SectionDetailedComparisons),
		})
	}
	return out, nil
}

// StripExpiredSide sets StructuredDataPresent to false on the
// DocumentInfo snapshot of one expired document, keeping its identifier
// and the other snapshot fields. The comparison's section mappings,
// numerical and text differences and per-section results are not
// changed.
func (s *ComparisonStore) StripExpiredSide(id string, expiredDocID string) error {
	return s.Mutate(id, func(c *models.Comparison) error {
		for i := range c.DocumentInfos {
			if c.DocumentInfos[i].DocumentID == expiredDocID {
				c.DocumentInfos[i].StructuredDataPresent = false
			}
		}
		return nil
	})
}

// All returns every stored Comparison in full, for callers that need to
// inspect DocumentIDs/DocumentInfos rather than the List summary (the
// Retention Sweeper, spec.md §4.13).
func (s *ComparisonStore) All() ([]*models.Comparison, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("comparison store: list all: %w", err)
	}
	out := make([]*models.Comparison, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		id := e.Name()[:len(e.Name())-len(".json")]
		c, err := s.readLocked(id)
		if err != nil {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// Delete removes a comparison record; deleting an absent one is not an
// error.
func (s *ComparisonStore) Delete(id string) error {
	return s.locks.With(id, func() error {
		err := os.Remove(s.path(id))
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("comparison store: delete %s: %w", id, err)
		}
		return nil
	})
}

func (s *ComparisonStore) readLocked(id string) (*models.Comparison, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("comparison store: %s: %w", id, errs.NotFound)
		}
		return nil, fmt.Errorf("comparison store: read %s: %w", id, err)
	}
	var c models.Comparison
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("comparison store: decode %s: %w", id, err)
	}
	return &c, nil
}

func (s *ComparisonStore) writeLocked(c *models.Comparison) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("comparison store: encode %s: %w", c.ID, err)
	}
	tmp := s.path(c.ID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("comparison store: write %s: %w", c.ID, err)
	}
	return os.Rename(tmp, s.path(c.ID))
}
