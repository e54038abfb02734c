// Package errs defines the error taxonomy shared by every stage of the
// structuring and comparison pipelines.
package errs

import "errors"

// Sentinel categories. Stage code wraps one of these with context via
// fmt.Errorf("%w: ...", errs.Extraction) so callers can classify with
// errors.Is regardless of the wrapped detail.
var (
	// Input is a malformed upload, unsupported media type, or size overflow.
	// Surfaced to the caller; never retried.
	Input = errors.New("input error")

	// Extraction is an irrecoverable stage failure (corrupt PDF, I/O fault).
	// The document transitions to failed; stages that already succeeded
	// keep their partial StructuredData.
	Extraction = errors.New("extraction error")

	// Model is an LLM or embedding call that failed or returned malformed
	// output. Recovered locally with a single retry; on second failure the
	// caller substitutes an empty result.
	Model = errors.New("model error")

	// Config is a missing required setting at startup. Fatal to the process.
	Config = errors.New("config error")

	// Concurrency is a lock acquisition timeout. Retried once with jitter,
	// then surfaced.
	Concurrency = errors.New("concurrency error")

	// Timeout is a per-request deadline exceeded. Treated as Model.
	Timeout = errors.New("timeout error")

	// RetentionExpired is returned for reads of a document past its
	// retention deadline. The core never resurrects expired records.
	RetentionExpired = errors.New("retention expired")

	// NotFound indicates no record exists for the given identifier.
	NotFound = errors.New("not found")
)
