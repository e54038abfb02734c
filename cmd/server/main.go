// cmd/server exposes the HTTP surface spec.md §6 describes "only so the
// core's outputs are well-shaped": upload/list/get/patch/delete for
// documents, create/status/get/list for comparisons. Grounded on
// cmd/api/main.go's plain net/http.HandleFunc wiring style — no router
// dependency, handlers registered directly against the default mux.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"disclosurecore/pkg/core/classifier"
	"disclosurecore/pkg/core/config"
	"disclosurecore/pkg/core/embedding"
	"disclosurecore/pkg/core/extract/table"
	"disclosurecore/pkg/core/extract/text"
	"disclosurecore/pkg/core/extract/vision"
	"disclosurecore/pkg/core/jobrunner"
	"disclosurecore/pkg/core/llm"
	"disclosurecore/pkg/core/logging"
	"disclosurecore/pkg/core/models"
	"disclosurecore/pkg/core/orchestrator"
	"disclosurecore/pkg/core/progress"
	"disclosurecore/pkg/core/prompt"
	"disclosurecore/pkg/core/retention"
	"disclosurecore/pkg/core/section"
	"disclosurecore/pkg/core/store"
	"disclosurecore/pkg/core/template"
)

type server struct {
	cfg         *config.ServiceConfig
	metadata    *store.MetadataStore
	comparisons *store.ComparisonStore
	progressRpt *progress.Reporter
	templates   *template.Registry
	classifier  *classifier.Adapter
	runner      *jobrunner.Runner
}

func main() {
	if _, err := config.LoadSecrets(); err != nil {
		logging.Named("server").Errorw("load secrets failed", "error", err)
		os.Exit(1)
	}

	svcCfg, err := config.LoadServiceConfig("config/service.toml")
	if err != nil {
		logging.Named("server").Warnw("service config load failed, using built-in defaults", "error", err)
	}

	modelsCfg, err := config.LoadModelsConfig("config/models.yaml")
	if err != nil {
		logging.Named("server").Warnw("models config load failed, using defaults", "error", err)
	}

	resourcesPath := "resources"
	if _, err := os.Stat(resourcesPath); os.IsNotExist(err) {
		exePath, _ := os.Executable()
		resourcesPath = filepath.Join(filepath.Dir(exePath), "resources")
	}
	if err := prompt.LoadFromDirectory(resourcesPath); err != nil {
		logging.Named("server").Warnw("prompt library load failed, falling back to built-in prompts", "error", err)
	}

	templates := template.Get()
	if err := templates.LoadFromDirectory(filepath.Join(resourcesPath, "templates")); err != nil {
		logging.Named("server").Warnw("template load failed", "error", err)
	}

	if err := store.InitDB(context.Background()); err != nil {
		logging.Named("server").Warnw("database init failed, running file-only", "error", err)
	}
	defer store.Close()

	manager := llm.NewManager(modelsCfg)
	embedder := embedding.New()

	metadata, err := store.NewMetadataStore(svcCfg.Storage.DocumentsDir)
	if err != nil {
		logging.Named("server").Errorw("metadata store init failed", "error", err)
		os.Exit(1)
	}
	comparisons, err := store.NewComparisonStore(svcCfg.Storage.ComparisonsDir)
	if err != nil {
		logging.Named("server").Errorw("comparison store init failed", "error", err)
		os.Exit(1)
	}

	progressRpt := progress.New()

	structuring := &orchestrator.StructuringOrchestrator{
		Metadata:         metadata,
		Progress:         progressRpt,
		Templates:        templates,
		TextExtractor:    text.NewExtractor(svcCfg.Extraction.TextQualityThreshold),
		VisionExtractor:  vision.NewExtractor(manager, svcCfg.Extraction.VisionBatchSize, svcCfg.Extraction.VisionPoolWidth, svcCfg.Extraction.VisionDPI),
		TableExtractor:   table.NewExtractor(svcCfg.Extraction.TableNumericRatio),
		SectionDetector:  section.NewDetector(manager, svcCfg.Section.BatchPages, svcCfg.Section.DetectorPoolWidth, svcCfg.Section.DefaultConfidence),
		ContentExtractor: section.NewContentExtractor(manager, svcCfg.Section.ContentPoolWidth, svcCfg.Section.ContentCharCap),
	}
	comparisonOrch := &orchestrator.ComparisonOrchestrator{
		Comparisons: comparisons,
		Metadata:    metadata,
		Progress:    progressRpt,
		Manager:     manager,
		Embedder:    embedder,
		Config:      svcCfg.Comparison,
	}

	sweeper := &retention.Sweeper{Metadata: metadata, Comparisons: comparisons, Config: svcCfg.Retention}
	if err := sweeper.Start(); err != nil {
		logging.Named("server").Warnw("retention sweeper failed to start", "error", err)
	}
	defer sweeper.Stop()

	s := &server{
		cfg:         svcCfg,
		metadata:    metadata,
		comparisons: comparisons,
		progressRpt: progressRpt,
		templates:   templates,
		classifier:  &classifier.Adapter{Templates: templates, Manager: manager},
		runner:      &jobrunner.Runner{Structuring: structuring, Comparison: comparisonOrch},
	}

	http.HandleFunc("/documents/", s.handleDocuments)
	http.HandleFunc("/comparisons/", s.handleComparisons)

	addr := ":8080"
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		addr = v
	}
	logging.Named("server").Infow("listening", "addr", addr)
	if err := http.ListenAndServe(addr, nil); err != nil {
		logging.Named("server").Errorw("server stopped", "error", err)
		os.Exit(1)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// handleDocuments dispatches on method and path shape:
//
//	POST   /documents/          multipart upload
//	GET    /documents/          list
//	GET    /documents/{id}      single record
//	PATCH  /documents/{id}      document_type override
//	DELETE /documents/{id}
func (s *server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/documents/")
	id = strings.Trim(id, "/")

	switch {
	case r.Method == http.MethodPost && id == "":
		s.uploadDocuments(w, r)
	case r.Method == http.MethodGet && id == "":
		s.listDocuments(w, r)
	case r.Method == http.MethodGet:
		s.getDocument(w, r, id)
	case r.Method == http.MethodPatch:
		s.patchDocument(w, r, id)
	case r.Method == http.MethodDelete:
		s.deleteDocument(w, r, id)
	default:
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("unsupported method %s", r.Method))
	}
}

func (s *server) uploadDocuments(w http.ResponseWriter, r *http.Request) {
	maxBytes := int64(s.cfg.Upload.MaxFileSizeMB) << 20
	if maxBytes <= 0 {
		maxBytes = 50 << 20
	}
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	batchID := uuid.NewString()
	var created []*models.Document

	files := r.MultipartForm.File["files"]
	maxFiles := s.cfg.Upload.MaxFiles
	if maxFiles <= 0 {
		maxFiles = 20
	}
	if len(files) > maxFiles {
		files = files[:maxFiles]
	}

	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			continue
		}
		docID := uuid.NewString()
		destPath := filepath.Join(s.cfg.Storage.UploadsDir, docID+".pdf")
		if err := os.MkdirAll(s.cfg.Storage.UploadsDir, 0o755); err != nil {
			f.Close()
			continue
		}
		dest, err := os.Create(destPath)
		if err != nil {
			f.Close()
			continue
		}
		size, err := io.Copy(dest, f)
		dest.Close()
		f.Close()
		if err != nil {
			continue
		}

		doc := models.NewDocument(docID, fh.Filename, size, s.cfg.Retention.Horizon())
		doc.SourcePath = destPath
		if err := s.metadata.Create(doc); err != nil {
			logging.Named("server").Warnw("create document record failed", "document", docID, "error", err)
			continue
		}
		created = append(created, doc)

		go s.classifyAndStructure(docID)
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{"batch_id": batchID, "documents": created})
}

func (s *server) classifyAndStructure(docID string) {
	ctx := context.Background()
	doc, err := s.metadata.Load(docID)
	if err != nil {
		return
	}
	pageText, err := firstPageText(doc)
	if err == nil && pageText != "" {
		docType, reason := s.classifier.Classify(ctx, pageText)
		_ = s.metadata.SetClassification(docID, docType, reason)
		if docType == models.TypeUnknown {
			_ = s.metadata.UpdateStatus(docID, models.StatusPendingClassification, "")
			return
		}
	}
	if err := s.runner.StructureDocument(ctx, docID); err != nil {
		logging.Named("server").Warnw("structure_document failed", "document", docID, "error", err)
	}
}

func (s *server) listDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.metadata.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

func (s *server) getDocument(w http.ResponseWriter, r *http.Request, id string) {
	doc, err := s.metadata.Load(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *server) patchDocument(w http.ResponseWriter, r *http.Request, id string) {
	var body struct {
		DocumentType *string `json:"document_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	doc, err := s.metadata.Load(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	wasUnclassified := doc.DocumentType == models.TypeUnknown
	if body.DocumentType != nil {
		doc.DocumentType = models.DocumentType(*body.DocumentType)
		doc.ClassificationReason = "manual override"
		if err := s.metadata.SetClassification(id, doc.DocumentType, doc.ClassificationReason); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
	}

	if wasUnclassified && doc.DocumentType != models.TypeUnknown {
		go func() {
			if err := s.runner.StructureDocument(context.Background(), id); err != nil {
				logging.Named("server").Warnw("structure_document failed", "document", id, "error", err)
			}
		}()
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *server) deleteDocument(w http.ResponseWriter, r *http.Request, id string) {
	if err := s.metadata.Delete(id); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleComparisons dispatches on method and path shape:
//
//	POST /comparisons/                → create + kick off run_comparison
//	GET  /comparisons/                → history descriptors
//	GET  /comparisons/{id}            → artifact
//	GET  /comparisons/{id}/status     → Progress record
func (s *server) handleComparisons(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/comparisons/")
	rest = strings.Trim(rest, "/")

	switch {
	case r.Method == http.MethodPost && rest == "":
		s.createComparison(w, r)
	case r.Method == http.MethodGet && rest == "":
		s.listComparisons(w, r)
	case r.Method == http.MethodGet && strings.HasSuffix(rest, "/status"):
		s.comparisonStatus(w, r, strings.TrimSuffix(rest, "/status"))
	case r.Method == http.MethodGet:
		s.getComparison(w, r, rest)
	default:
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("unsupported method %s", r.Method))
	}
}

func (s *server) createComparison(w http.ResponseWriter, r *http.Request) {
	var body struct {
		DocumentIDs         []string `json:"document_ids"`
		IterativeSearchMode string   `json:"iterative_search_mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(body.DocumentIDs) < 2 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("at least two document_ids required"))
		return
	}
	mode := models.IterativeSearchMode(body.IterativeSearchMode)
	if mode == "" {
		mode = models.IterativeOff
	}

	comparisonID := uuid.NewString()
	docIDs := body.DocumentIDs
	go func() {
		if err := s.runner.RunComparison(context.Background(), comparisonID, docIDs, mode, jobrunner.Options{}); err != nil {
			logging.Named("server").Warnw("run_comparison failed", "comparison", comparisonID, "error", err)
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"comparison_id": comparisonID, "status": string(models.CompQueued)})
}

func (s *server) listComparisons(w http.ResponseWriter, r *http.Request) {
	descriptors, err := s.comparisons.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, descriptors)
}

func (s *server) getComparison(w http.ResponseWriter, r *http.Request, id string) {
	c, err := s.comparisons.Load(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *server) comparisonStatus(w http.ResponseWriter, r *http.Request, id string) {
	writeJSON(w, http.StatusOK, s.progressRpt.Comparison(id))
}

func firstPageText(doc *models.Document) (string, error) {
	if doc.SourcePath == "" {
		return "", fmt.Errorf("no source path")
	}
	extractor := text.NewExtractor(0)
	result, err := extractor.Extract(doc.SourcePath)
	if err != nil {
		return "", err
	}
	if len(result.Pages) == 0 {
		return "", nil
	}
	return result.Pages[0].Text, nil
}
