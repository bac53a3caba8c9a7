// Package callback authenticates and applies processor-originated events
// to the job state store. Events arrive unordered; a completion freezes the
// record, after which progress and step updates are dropped.
package callback

import (
	"context"
	"crypto/subtle"
	"log"
	"time"

	"github.com/dunamismax/artshield/internal/domain"
	"github.com/dunamismax/artshield/internal/jobstate"
)

const notifyTimeout = 30 * time.Second

// Notifier delivers completion notices to submitter webhooks.
type Notifier interface {
	Send(ctx context.Context, endpoint, event string, payload any) error
}

type Ingestor struct {
	logger   *log.Logger
	secret   string
	store    jobstate.Store
	notifier Notifier
}

func NewIngestor(logger *log.Logger, secret string, store jobstate.Store, notifier Notifier) *Ingestor {
	return &Ingestor{
		logger:   logger,
		secret:   secret,
		store:    store,
		notifier: notifier,
	}
}

// Authenticate checks the bearer token from the processor against the
// configured secret. A mismatch rejects the callback before any state is
// touched.
func (i *Ingestor) Authenticate(token string) error {
	if i.secret == "" || subtle.ConstantTimeCompare([]byte(token), []byte(i.secret)) != 1 {
		return domain.ErrUnauthorized
	}
	return nil
}

type ProgressEvent struct {
	JobID       string  `json:"job_id"`
	CurrentStep string  `json:"current_step"`
	StepNumber  int     `json:"step_number"`
	TotalSteps  int     `json:"total_steps"`
	Percentage  float64 `json:"percentage"`
	Details     string  `json:"details,omitempty"`
}

type StepEvent struct {
	JobID  string `json:"job_id"`
	Step   string `json:"step"`
	Status string `json:"status"`
}

type CompletionEvent struct {
	JobID             string            `json:"job_id"`
	Status            string            `json:"status"`
	ProcessingTimeMS  int64             `json:"processing_time_ms,omitempty"`
	BackendArtifactID string            `json:"backend_artifact_id,omitempty"`
	Result            *CompletionResult `json:"result,omitempty"`
	Error             *domain.JobError  `json:"error,omitempty"`
}

type CompletionResult struct {
	Hashes    map[string]string `json:"hashes,omitempty"`
	Metadata  map[string]any    `json:"metadata,omitempty"`
	Watermark string            `json:"watermark,omitempty"`
}

// ApplyProgress folds a progress update into the job record. Updates for
// absent or terminal jobs are dropped silently so replays stay idempotent.
func (i *Ingestor) ApplyProgress(ctx context.Context, ev ProgressEvent) error {
	if ev.JobID == "" {
		return &domain.ValidationError{Field: "job_id", Reason: "required"}
	}
	if ev.CurrentStep == "" {
		return &domain.ValidationError{Field: "current_step", Reason: "required"}
	}

	err := i.store.UpdateProgress(ctx, ev.JobID, domain.Progress{
		CurrentStep: ev.CurrentStep,
		StepNumber:  ev.StepNumber,
		TotalSteps:  ev.TotalSteps,
		Percentage:  ev.Percentage,
		Details:     ev.Details,
	})
	if err != nil {
		// The store is best-effort; a dropped progress write is not a
		// callback failure.
		i.logger.Printf("progress write dropped job_id=%s err=%v", ev.JobID, err)
	}
	return nil
}

// ApplyStep records a step-status entry alongside the job's progress.
func (i *Ingestor) ApplyStep(ctx context.Context, ev StepEvent) error {
	if ev.JobID == "" {
		return &domain.ValidationError{Field: "job_id", Reason: "required"}
	}
	if ev.Step == "" {
		return &domain.ValidationError{Field: "step", Reason: "required"}
	}
	if ev.Status == "" {
		return &domain.ValidationError{Field: "status", Reason: "required"}
	}

	if err := i.store.RecordStep(ctx, ev.JobID, ev.Step, ev.Status); err != nil {
		i.logger.Printf("step write dropped job_id=%s step=%s err=%v", ev.JobID, ev.Step, err)
	}
	return nil
}

// ApplyCompletion transitions the job to its terminal state. A completed
// job must name the backend artifact the processor stored; absence means
// the processor skipped its durable write and the callback is rejected.
// Replays against an already-terminal record succeed without re-mutating.
func (i *Ingestor) ApplyCompletion(ctx context.Context, ev CompletionEvent) error {
	if ev.JobID == "" {
		return &domain.ValidationError{Field: "job_id", Reason: "required"}
	}
	if ev.Status != domain.JobStatusCompleted && ev.Status != domain.JobStatusFailed {
		return &domain.ValidationError{Field: "status", Reason: "must be completed or failed"}
	}
	if ev.Status == domain.JobStatusCompleted && ev.BackendArtifactID == "" {
		return &domain.ValidationError{Field: "backend_artifact_id", Reason: "required for completed jobs"}
	}

	applied, err := i.store.Complete(ctx, ev.JobID, ev.Status, ev.BackendArtifactID, ev.Error)
	if err != nil {
		i.logger.Printf("completion write dropped job_id=%s err=%v", ev.JobID, err)
		return nil
	}
	if !applied {
		return nil
	}

	i.logger.Printf("job finished job_id=%s status=%s artifact=%s", ev.JobID, ev.Status, ev.BackendArtifactID)
	i.notifySubmitter(ctx, ev)
	return nil
}

// notifySubmitter forwards the terminal outcome to the submitter's webhook,
// if one was registered. Delivery is fire-and-forget.
func (i *Ingestor) notifySubmitter(ctx context.Context, ev CompletionEvent) {
	if i.notifier == nil {
		return
	}

	rec, ok, err := i.store.Get(ctx, ev.JobID)
	if err != nil || !ok || rec.NotifyURL == "" {
		return
	}

	payload := map[string]any{
		"job_id":              ev.JobID,
		"status":              ev.Status,
		"backend_artifact_id": ev.BackendArtifactID,
		"processing_time_ms":  ev.ProcessingTimeMS,
	}
	if ev.Error != nil {
		payload["error"] = ev.Error
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := i.notifier.Send(ctx, rec.NotifyURL, "protection."+ev.Status, payload); err != nil {
			i.logger.Printf("submitter notification failed job_id=%s err=%v", ev.JobID, err)
		}
	}()
}
