// Package domain defines domain-level errors for the labeling feature.
package domain

import "errors"

// Domain errors for the labeling pipeline.
// They classify failures of the two external dependencies (analysis service
// and record store) so that upper layers can decide between local retry,
// skipping, and failing the whole batch.
var (
	// ErrAnalysisUnavailable indicates the analysis service is unreachable or
	// throttled. Eligible for bounded local retry; the upstream delivery
	// system redelivers the whole batch if the error survives the retries.
	ErrAnalysisUnavailable = errors.New("analysis service unavailable")

	// ErrObjectNotFound indicates the referenced storage object does not
	// exist. Not retryable; terminal for the record being processed.
	ErrObjectNotFound = errors.New("storage object not found")

	// ErrAnalysisInternal indicates an unexpected response from the analysis
	// service. Not retryable.
	ErrAnalysisInternal = errors.New("analysis service internal error")

	// ErrAnalysisContract indicates the analysis service violated its own
	// contract: a confidence outside [0,100] or more results than requested.
	ErrAnalysisContract = errors.New("analysis result violates service contract")

	// ErrMalformedLabel indicates a raw label missing its name or carrying a
	// non-finite confidence, detected during normalization.
	ErrMalformedLabel = errors.New("malformed analysis label")

	// ErrStoreUnavailable indicates the record store is temporarily
	// unreachable or throttled. Eligible for bounded local retry.
	ErrStoreUnavailable = errors.New("record store unavailable")

	// ErrStoreRejected indicates the store rejected the record itself
	// (schema, size or type violation). Not retryable.
	ErrStoreRejected = errors.New("record rejected by store")

	// ErrRecordNotFound indicates no labeling record exists for the given
	// image name.
	ErrRecordNotFound = errors.New("labeling record not found")
)
