// Package result answers status, result and download queries by merging
// the ephemeral job state store with the backend's durable records. The
// store is consulted first; jobs that predate or outlive the TTL window
// fall back to a backend lookup, where presence implies completion.
package result

import (
	"context"
	"io"
	"log"
	"sort"
	"time"

	"github.com/dunamismax/artshield/internal/backend"
	"github.com/dunamismax/artshield/internal/domain"
	"github.com/dunamismax/artshield/internal/jobstate"
	"github.com/dunamismax/artshield/internal/storage"
)

// ArtifactSource is the slice of the backend client the assembler consumes.
type ArtifactSource interface {
	GetArtifact(ctx context.Context, artifactID string) (backend.Artifact, bool, error)
}

// VariantOpener streams stored variant objects.
type VariantOpener interface {
	OpenObject(ctx context.Context, objectKey string) (io.ReadCloser, storage.ObjectInfo, error)
}

type Assembler struct {
	logger  *log.Logger
	store   jobstate.Store
	backend ArtifactSource
	storage VariantOpener
}

func New(logger *log.Logger, store jobstate.Store, source ArtifactSource, opener VariantOpener) *Assembler {
	return &Assembler{
		logger:  logger,
		store:   store,
		backend: source,
		storage: opener,
	}
}

type StatusView struct {
	JobID             string                  `json:"job_id"`
	Status            string                  `json:"status"`
	SubmittedAt       *time.Time              `json:"submitted_at,omitempty"`
	CompletedAt       *time.Time              `json:"completed_at,omitempty"`
	BackendArtifactID string                  `json:"backend_artifact_id,omitempty"`
	ProcessorConfig   *domain.ProcessorConfig `json:"processor_config,omitempty"`
	Progress          *domain.Progress        `json:"progress,omitempty"`
	Steps             []domain.StepStatus     `json:"steps,omitempty"`
	Error             *domain.JobError        `json:"error,omitempty"`
}

type ResultView struct {
	JobID       string            `json:"job_id"`
	Status      string            `json:"status"`
	ArtifactID  string            `json:"artifact_id,omitempty"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
	Title       string            `json:"title,omitempty"`
	Artist      string            `json:"artist,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
	Checksum    string            `json:"checksum,omitempty"`
	Variants    []string          `json:"variants,omitempty"`
	Downloads   map[string]string `json:"downloads,omitempty"`
	Error       *domain.JobError  `json:"error,omitempty"`
}

// Status reports the current view of a job. Store errors degrade to absent;
// a job unknown to both the store and the backend is ErrNotFound.
func (a *Assembler) Status(ctx context.Context, jobID string) (StatusView, error) {
	rec, ok := a.record(ctx, jobID)
	if ok {
		view := StatusView{
			JobID:             rec.JobID,
			Status:            rec.Status,
			SubmittedAt:       &rec.SubmittedAt,
			CompletedAt:       rec.CompletedAt,
			BackendArtifactID: rec.BackendArtifactID,
			Progress:          rec.Progress,
			Steps:             rec.Steps,
			Error:             rec.Error,
		}
		if !rec.Terminal() {
			cfg := rec.ProcessorConfig
			view.ProcessorConfig = &cfg
		}
		return view, nil
	}

	if _, found := a.artifact(ctx, jobID); found {
		return StatusView{
			JobID:             jobID,
			Status:            domain.JobStatusCompleted,
			BackendArtifactID: jobID,
		}, nil
	}

	return StatusView{}, domain.ErrNotFound
}

// Result assembles the completed payload for a job. A job still processing
// is ErrConflict since callers expect a finished artifact.
func (a *Assembler) Result(ctx context.Context, jobID string) (ResultView, error) {
	rec, ok := a.record(ctx, jobID)
	if ok {
		if !rec.Terminal() {
			return ResultView{}, domain.ErrConflict
		}
		if rec.Status == domain.JobStatusFailed {
			return ResultView{
				JobID:       rec.JobID,
				Status:      rec.Status,
				CompletedAt: rec.CompletedAt,
				Error:       rec.Error,
			}, nil
		}
		return a.assemble(ctx, rec.JobID, rec.BackendArtifactID, rec.CompletedAt), nil
	}

	if _, found := a.artifact(ctx, jobID); found {
		return a.assemble(ctx, jobID, jobID, nil), nil
	}

	return ResultView{}, domain.ErrNotFound
}

// Variant resolves and opens the stored object for one download variant.
// The job store's completed pointer wins; the client-supplied id is kept as
// a legacy fallback for jobs the TTL has already evicted.
func (a *Assembler) Variant(ctx context.Context, jobID, variant string) (io.ReadCloser, storage.ObjectInfo, error) {
	artifactID := jobID
	if rec, ok := a.record(ctx, jobID); ok {
		switch rec.Status {
		case domain.JobStatusProcessing:
			return nil, storage.ObjectInfo{}, domain.ErrConflict
		case domain.JobStatusFailed:
			return nil, storage.ObjectInfo{}, domain.ErrNotFound
		}
		if rec.BackendArtifactID != "" {
			artifactID = rec.BackendArtifactID
		}
	}

	artifact, found := a.artifact(ctx, artifactID)
	if !found {
		return nil, storage.ObjectInfo{}, domain.ErrNotFound
	}
	objectKey, ok := artifact.Variants[variant]
	if !ok {
		return nil, storage.ObjectInfo{}, domain.ErrNotFound
	}

	reader, info, err := a.storage.OpenObject(ctx, objectKey)
	if err != nil {
		a.logger.Printf("variant open failed job_id=%s variant=%s err=%v", jobID, variant, err)
		return nil, storage.ObjectInfo{}, domain.ErrNotFound
	}
	return reader, info, nil
}

func (a *Assembler) assemble(ctx context.Context, jobID, artifactID string, completedAt *time.Time) ResultView {
	view := ResultView{
		JobID:       jobID,
		Status:      domain.JobStatusCompleted,
		ArtifactID:  artifactID,
		CompletedAt: completedAt,
	}

	artifact, found := a.artifact(ctx, artifactID)
	if !found {
		return view
	}

	view.Title = artifact.Title
	view.Artist = artifact.Artist
	view.Tags = artifact.Tags
	view.Checksum = artifact.Checksum
	if len(artifact.Variants) > 0 {
		view.Downloads = make(map[string]string, len(artifact.Variants))
		for variant := range artifact.Variants {
			view.Variants = append(view.Variants, variant)
			view.Downloads[variant] = "/v1/artworks/" + jobID + "/download/" + variant
		}
		sort.Strings(view.Variants)
	}
	return view
}

// record collapses store errors to absent at this layer; the store itself
// reports the distinction.
func (a *Assembler) record(ctx context.Context, jobID string) (domain.JobRecord, bool) {
	rec, ok, err := a.store.Get(ctx, jobID)
	if err != nil {
		a.logger.Printf("job store read failed, treating as absent job_id=%s err=%v", jobID, err)
		return domain.JobRecord{}, false
	}
	return rec, ok
}

func (a *Assembler) artifact(ctx context.Context, artifactID string) (backend.Artifact, bool) {
	artifact, found, err := a.backend.GetArtifact(ctx, artifactID)
	if err != nil {
		a.logger.Printf("backend artifact lookup failed artifact_id=%s err=%v", artifactID, err)
		return backend.Artifact{}, false
	}
	return artifact, found
}
