package template

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"disclosurecore/pkg/core/models"

	"gopkg.in/yaml.v3"
)

// Registry is the read-only-at-runtime singleton holding all loaded
// DocumentTemplates, grounded on prompt.Registry's RWMutex-guarded map.
type Registry struct {
	mu        sync.RWMutex
	templates map[models.DocumentType]*DocumentTemplate
}

var (
	global *Registry
	once   sync.Once
)

// New constructs a standalone Registry, for tests and any caller that
// wants an instance independent of the process-wide singleton.
func New() *Registry {
	return &Registry{templates: make(map[models.DocumentType]*DocumentTemplate)}
}

// Get returns the global registry singleton.
func Get() *Registry {
	once.Do(func() {
		global = &Registry{templates: make(map[models.DocumentType]*DocumentTemplate)}
	})
	return global
}

// LoadFromDirectory reads every *.yaml/*.yml file in dir as a
// DocumentTemplate and registers it. Templates are loaded once at
// process start (spec.md §4.1) — call this exactly once during startup.
func (r *Registry) LoadFromDirectory(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("template.LoadFromDirectory: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("template.LoadFromDirectory: reading %s: %w", path, err)
		}
		var tpl DocumentTemplate
		if err := yaml.Unmarshal(data, &tpl); err != nil {
			return fmt.Errorf("template.LoadFromDirectory: parsing %s: %w", path, err)
		}
		if tpl.DocumentType == "" {
			return fmt.Errorf("template.LoadFromDirectory: %s missing document_type", path)
		}
		r.templates[tpl.DocumentType] = &tpl
	}
	return nil
}

// Load returns the DocumentTemplate for docType, or a degenerate
// no-expected-sections template when the type is unrecognized.
func (r *Registry) Load(docType models.DocumentType) *DocumentTemplate {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if tpl, ok := r.templates[docType]; ok {
		return tpl
	}
	return degenerate(docType)
}

// All returns every registered template, for callers that need the full
// schema rather than just the type key (the Classifier Adapter's
// keyword front-door).
func (r *Registry) All() []*DocumentTemplate {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*DocumentTemplate, 0, len(r.templates))
	for _, tpl := range r.templates {
		out = append(out, tpl)
	}
	return out
}

// ListTypes returns every registered document type.
func (r *Registry) ListTypes() map[models.DocumentType]struct{} {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[models.DocumentType]struct{}, len(r.templates))
	for k := range r.templates {
		out[k] = struct{}{}
	}
	return out
}
