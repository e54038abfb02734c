// Package embedding provides the Embedding Service (spec.md §4.9): batch
// text-to-vector requests and the single cosine-similarity comparison op
// exposed to the comparison pipeline's mapping stage. Grounded on the
// embed()/cosine() pattern in other_examples' embedding experiment, wired
// to OpenAI's hosted API with a local hashed-bag-of-words fallback so the
// mapping stage degrades instead of failing when no API key is configured.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"os"
	"strings"
	"time"

	"disclosurecore/pkg/core/errs"
)

const (
	defaultModel = "text-embedding-3-small"
	maxBatch     = 100

	// localDimension is the fallback vectorizer's fixed dimension. It need
	// not match the hosted model's 1536 dims — callers only ever compare
	// vectors produced by the same Service instance.
	localDimension = 512
)

// Service embeds text via a hosted API, falling back to a local,
// deterministic hashed-bag-of-words vectorizer when no API key is set.
type Service struct {
	apiKey     string
	model      string
	httpClient *http.Client
}

// New constructs a Service from OPENAI_API_KEY. An empty key is not an
// error: Embed falls back to the local vectorizer transparently.
func New() *Service {
	return &Service{
		apiKey:     os.Getenv("OPENAI_API_KEY"),
		model:      defaultModel,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Embed returns one fixed-dimension vector per input string, preserving
// order. Batches internally at maxBatch per request per spec.md §4.9.
func (s *Service) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if s.apiKey == "" {
		return localEmbed(texts), nil
	}

	out := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += maxBatch {
		end := start + maxBatch
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := s.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (s *Service) embedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	body, err := json.Marshal(embeddingRequest{Model: s.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("embedding: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.openai.com/v1/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("embedding: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding: %w: %w", errs.Timeout, err)
	}
	defer resp.Body.Close()

	var parsed embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("embedding: decode response: %w: %w", errs.Model, err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("embedding: %s: %w", parsed.Error.Message, errs.Model)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding: status %d: %w", resp.StatusCode, errs.Model)
	}

	vecs := make([][]float64, len(texts))
	for _, d := range parsed.Data {
		if d.Index < 0 || d.Index >= len(vecs) {
			continue
		}
		vecs[d.Index] = d.Embedding
	}
	return vecs, nil
}

// Cosine returns the cosine similarity of a and b. Returns 0 when either
// vector has zero magnitude, per spec.md's boundary-behavior rule — an
// empty or all-zero embedding never compares as similar to anything.
func Cosine(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// localEmbed is a deterministic, dependency-free hashed-bag-of-words
// vectorizer used when no hosted embedding API key is configured. It is
// good enough to preserve relative similarity ordering between section
// titles, which is all the mapping stage requires of a fallback.
func localEmbed(texts []string) [][]float64 {
	out := make([][]float64, len(texts))
	for i, t := range texts {
		out[i] = hashBagOfWords(t)
	}
	return out
}

func hashBagOfWords(text string) []float64 {
	vec := make([]float64, localDimension)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		vec[fnv32a(tok)%localDimension]++
	}
	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}

func fnv32a(s string) uint32 {
	const (
		offset32 = 2166136261
		prime32  = 16777619
	)
	hash := uint32(offset32)
	for i := 0; i < len(s); i++ {
		hash ^= uint32(s[i])
		hash *= prime32
	}
	return hash
}
