package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"

	"disclosurecore/pkg/core/errs"
)

// ServiceConfig is the TOML-sourced tuning surface: pool widths,
// thresholds, cadences and storage paths. Grounded on doptime-SysEvoV2's
// use of BurntSushi/toml for structured service configuration; the
// teacher itself keeps these as code constants, which this spec
// generalizes into config/service.toml so they're tunable per deployment.
type ServiceConfig struct {
	Storage    StorageConfig    `toml:"storage"`
	Upload     UploadConfig     `toml:"upload"`
	Extraction ExtractionConfig `toml:"extraction"`
	Section    SectionConfig    `toml:"section"`
	Comparison ComparisonConfig `toml:"comparison"`
	Retention  RetentionConfig  `toml:"retention"`
}

type StorageConfig struct {
	DocumentsDir   string `toml:"documents_dir"`
	ComparisonsDir string `toml:"comparisons_dir"`
	UploadsDir     string `toml:"uploads_dir"`
	LockStripes    int    `toml:"lock_stripes"`
}

type UploadConfig struct {
	MaxFiles      int `toml:"max_files"`
	MaxFileSizeMB int `toml:"max_file_size_mb"`
}

type ExtractionConfig struct {
	TextQualityThreshold float64 `toml:"text_quality_threshold"` // avg chars/page, default 50
	VisionDPI            int     `toml:"vision_dpi"`
	VisionBatchSize      int     `toml:"vision_batch_size"`
	VisionPoolWidth      int     `toml:"vision_pool_width"`
	TableNumericRatio    float64 `toml:"table_numeric_ratio"`
}

type SectionConfig struct {
	BatchPages           int     `toml:"batch_pages"`
	DetectorPoolWidth    int     `toml:"detector_pool_width"`
	ContentPoolWidth     int     `toml:"content_pool_width"`
	ContentCharCap       int     `toml:"content_char_cap"`
	DefaultConfidence    float64 `toml:"default_confidence"`
}

type ComparisonConfig struct {
	EmbeddingThreshold       float64 `toml:"embedding_threshold"`
	SignificantDiffPct       float64 `toml:"significant_diff_pct"`
	IterativeMaxRounds       int     `toml:"iterative_max_rounds"`
	IterativeMinKeywordLen   int     `toml:"iterative_min_keyword_len"`
	IterativeSimilarityGate  float64 `toml:"iterative_similarity_gate"`
	CompanySnippetChars      int     `toml:"company_snippet_chars"`
}

type RetentionConfig struct {
	DocumentHours int    `toml:"document_hours"`
	SweepCron     string `toml:"sweep_cron"`
}

// LoadServiceConfig reads and decodes a TOML file, filling in spec.md
// defaults for any field the file omits. Always returns a usable config,
// even on error, so callers can log and continue with defaults rather
// than special-casing a nil result.
func LoadServiceConfig(path string) (*ServiceConfig, error) {
	cfg := defaultServiceConfig()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return cfg, fmt.Errorf("config: decode %s: %w", path, errs.Config)
	}
	return cfg, nil
}

func defaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		Storage: StorageConfig{
			DocumentsDir:   ".data/documents",
			ComparisonsDir: ".data/comparisons",
			UploadsDir:     ".data/uploads",
			LockStripes:    256,
		},
		Upload: UploadConfig{
			MaxFiles:      20,
			MaxFileSizeMB: 50,
		},
		Extraction: ExtractionConfig{
			TextQualityThreshold: 50,
			VisionDPI:            150,
			VisionBatchSize:      10,
			VisionPoolWidth:      10,
			TableNumericRatio:    0.3,
		},
		Section: SectionConfig{
			BatchPages:        10,
			DetectorPoolWidth: 5,
			ContentPoolWidth:  3,
			ContentCharCap:    10000,
			DefaultConfidence: 0.5,
		},
		Comparison: ComparisonConfig{
			EmbeddingThreshold:      0.7,
			SignificantDiffPct:      0.05,
			IterativeMaxRounds:      2,
			IterativeMinKeywordLen:  4,
			IterativeSimilarityGate: 0.6,
			CompanySnippetChars:     4000,
		},
		Retention: RetentionConfig{
			DocumentHours: 72,
			SweepCron:     "@every 1h",
		},
	}
}

// Horizon converts DocumentHours into a time.Duration.
func (r RetentionConfig) Horizon() time.Duration {
	return time.Duration(r.DocumentHours) * time.Hour
}
