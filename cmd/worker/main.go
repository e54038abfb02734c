// cmd/worker is the background task runtime consumer spec.md §1 places
// out of scope for the core itself: a minimal poller that discovers
// queued documents and comparisons and hands them to the Job Runner
// Adapter. A production deployment would swap this file for a real
// queue consumer (SQS, Redis, etc.) without touching pkg/core at all —
// everything it calls is the same jobrunner.Runner the HTTP server uses.
package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/robfig/cron/v3"

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

var log = logging.Named("worker")

func main() {
	if _, err := config.LoadSecrets(); err != nil {
		log.Errorw("load secrets failed", "error", err)
		os.Exit(1)
	}
	svcCfg, err := config.LoadServiceConfig("config/service.toml")
	if err != nil {
		log.Warnw("service config load failed, using built-in defaults", "error", err)
	}
	modelsCfg, err := config.LoadModelsConfig("config/models.yaml")
	if err != nil {
		log.Warnw("models config load failed, using defaults", "error", err)
	}

	resourcesPath := "resources"
	if _, err := os.Stat(resourcesPath); os.IsNotExist(err) {
		exePath, _ := os.Executable()
		resourcesPath = filepath.Join(filepath.Dir(exePath), "resources")
	}
	if err := prompt.LoadFromDirectory(resourcesPath); err != nil {
		log.Warnw("prompt library load failed, falling back to built-in prompts", "error", err)
	}

	templates := template.Get()
	if err := templates.LoadFromDirectory(filepath.Join(resourcesPath, "templates")); err != nil {
		log.Warnw("template load failed", "error", err)
	}

	if err := store.InitDB(context.Background()); err != nil {
		log.Warnw("database init failed, running file-only", "error", err)
	}
	defer store.Close()

	manager := llm.NewManager(modelsCfg)
	embedder := embedding.New()

	metadata, err := store.NewMetadataStore(svcCfg.Storage.DocumentsDir)
	if err != nil {
		log.Errorw("metadata store init failed", "error", err)
		os.Exit(1)
	}
	comparisons, err := store.NewComparisonStore(svcCfg.Storage.ComparisonsDir)
	if err != nil {
		log.Errorw("comparison store init failed", "error", err)
		os.Exit(1)
	}
	progressRpt := progress.New()

	runner := &jobrunner.Runner{
		Structuring: &orchestrator.StructuringOrchestrator{
			Metadata:         metadata,
			Progress:         progressRpt,
			Templates:        templates,
			TextExtractor:    text.NewExtractor(svcCfg.Extraction.TextQualityThreshold),
			VisionExtractor:  vision.NewExtractor(manager, svcCfg.Extraction.VisionBatchSize, svcCfg.Extraction.VisionPoolWidth, svcCfg.Extraction.VisionDPI),
			TableExtractor:   table.NewExtractor(svcCfg.Extraction.TableNumericRatio),
			SectionDetector:  section.NewDetector(manager, svcCfg.Section.BatchPages, svcCfg.Section.DetectorPoolWidth, svcCfg.Section.DefaultConfidence),
			ContentExtractor: section.NewContentExtractor(manager, svcCfg.Section.ContentPoolWidth, svcCfg.Section.ContentCharCap),
		},
		Comparison: &orchestrator.ComparisonOrchestrator{
			Comparisons: comparisons,
			Metadata:    metadata,
			Progress:    progressRpt,
			Manager:     manager,
			Embedder:    embedder,
			Config:      svcCfg.Comparison,
		},
	}
	classifierAdapter := &classifier.Adapter{Templates: templates, Manager: manager}

	sweeper := &retention.Sweeper{Metadata: metadata, Comparisons: comparisons, Config: svcCfg.Retention}
	if err := sweeper.Start(); err != nil {
		log.Warnw("retention sweeper failed to start", "error", err)
	}
	defer sweeper.Stop()

	p := &poller{metadata: metadata, comparisons: comparisons, runner: runner, classifier: classifierAdapter}

	c := cron.New()
	if _, err := c.AddFunc("@every 15s", p.pollOnce); err != nil {
		log.Errorw("schedule poll failed", "error", err)
		os.Exit(1)
	}
	c.Start()
	log.Infow("worker started", "poll_interval", "15s")

	select {}
}

type poller struct {
	metadata    *store.MetadataStore
	comparisons *store.ComparisonStore
	runner      *jobrunner.Runner
	classifier  *classifier.Adapter
}

func (p *poller) pollOnce() {
	ctx := context.Background()

	docs, err := p.metadata.List()
	if err != nil {
		log.Warnw("poll: list documents failed", "error", err)
	}
	for _, doc := range docs {
		switch doc.Status {
		case models.StatusQueued:
			p.dispatchDocument(ctx, doc)
		}
	}

	all, err := p.comparisons.All()
	if err != nil {
		log.Warnw("poll: list comparisons failed", "error", err)
		return
	}
	for _, c := range all {
		if c.Status != models.CompQueued {
			continue
		}
		go func(id string, docIDs []string) {
			if err := p.runner.RunComparison(ctx, id, docIDs, models.IterativeOff, jobrunner.Options{}); err != nil {
				log.Warnw("run_comparison failed", "comparison", id, "error", err)
			}
		}(c.ID, c.DocumentIDs)
	}
}

func (p *poller) dispatchDocument(ctx context.Context, doc *models.Document) {
	go func(docID string) {
		if doc.DocumentType == models.TypeUnknown {
			text, err := firstPageText(doc)
			if err != nil || text == "" {
				_ = p.metadata.UpdateStatus(docID, models.StatusPendingClassification, "")
				return
			}
			docType, reason := p.classifier.Classify(ctx, text)
			_ = p.metadata.SetClassification(docID, docType, reason)
			if docType == models.TypeUnknown {
				_ = p.metadata.UpdateStatus(docID, models.StatusPendingClassification, "")
				return
			}
		}
		if err := p.runner.StructureDocument(ctx, docID); err != nil {
			log.Warnw("structure_document failed", "document", docID, "error", err)
		}
	}(doc.ID)
}

func firstPageText(doc *models.Document) (string, error) {
	if doc.SourcePath == "" {
		return "", os.ErrNotExist
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
