// Package jobstate tracks in-flight protection jobs in an ephemeral,
// TTL-bound key-value store. Records are an optimization over the backend's
// durable data, never the source of truth: readers must treat "store
// unreachable" as absent and writers treat failures as best-effort.
package jobstate

import (
	"context"

	"github.com/dunamismax/artshield/internal/domain"
)

// Store is the job-record contract shared by the Redis and in-memory
// implementations.
//
// Get distinguishes "absent" (ok=false, err=nil) from "store unreachable"
// (err!=nil) so degraded-mode behavior stays testable; callers that only
// care about the public contract collapse both to absent.
type Store interface {
	// Create writes a new record in processing state. It never overwrites
	// an existing record for the same job id.
	Create(ctx context.Context, rec domain.JobRecord) error

	// UpdateProgress merges a progress snapshot into the record. Absent or
	// terminal records make this a no-op, not an error.
	UpdateProgress(ctx context.Context, jobID string, p domain.Progress) error

	// RecordStep appends a step-status entry next to the job's progress.
	// Same no-op semantics as UpdateProgress.
	RecordStep(ctx context.Context, jobID, step, status string) error

	// Complete transitions the record to a terminal state. The returned
	// bool reports whether the transition was applied; replays against an
	// already-terminal record return false with no error.
	Complete(ctx context.Context, jobID, status, artifactID string, jerr *domain.JobError) (bool, error)

	// Get returns the current record, or ok=false once the TTL has lapsed
	// or no record was ever written.
	Get(ctx context.Context, jobID string) (domain.JobRecord, bool, error)
}
