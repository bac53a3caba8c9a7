package domain

import "time"

const (
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// JobRecord is the ephemeral, TTL-bound view of an in-flight or recently
// finished protection job. It is created at dispatch time and mutated only
// by callback ingest; once terminal it never changes again.
type JobRecord struct {
	JobID             string          `json:"job_id"`
	Status            string          `json:"status"`
	SubmittedAt       time.Time       `json:"submitted_at"`
	CompletedAt       *time.Time      `json:"completed_at,omitempty"`
	BackendArtifactID string          `json:"backend_artifact_id,omitempty"`
	ProcessorConfig   ProcessorConfig `json:"processor_config"`
	NotifyURL         string          `json:"notify_url,omitempty"`
	Progress          *Progress       `json:"progress,omitempty"`
	Steps             []StepStatus    `json:"steps,omitempty"`
	Error             *JobError       `json:"error,omitempty"`
}

type Progress struct {
	CurrentStep string    `json:"current_step"`
	StepNumber  int       `json:"step_number"`
	TotalSteps  int       `json:"total_steps"`
	Percentage  float64   `json:"percentage"`
	Details     string    `json:"details,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// StepStatus is auxiliary detail reported by step-status callbacks,
// kept alongside the job's progress history.
type StepStatus struct {
	Step       string    `json:"step"`
	Status     string    `json:"status"`
	RecordedAt time.Time `json:"recorded_at"`
}

type JobError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (r JobRecord) Terminal() bool {
	return r.Status == JobStatusCompleted || r.Status == JobStatusFailed
}

// ApplyProgress merges a progress snapshot into the record. Terminal records
// are frozen, so the update is dropped and the method reports false.
func (r *JobRecord) ApplyProgress(p Progress, now time.Time) bool {
	if r.Terminal() {
		return false
	}
	p.UpdatedAt = now
	r.Progress = &p
	return true
}

// ApplyStep appends a step-status entry. Like progress, it is dropped once
// the record is terminal.
func (r *JobRecord) ApplyStep(step, status string, now time.Time) bool {
	if r.Terminal() {
		return false
	}
	r.Steps = append(r.Steps, StepStatus{Step: step, Status: status, RecordedAt: now})
	return true
}

// ApplyCompletion moves the record to a terminal state. The only legal
// transitions are processing→completed and processing→failed; a completion
// for an already-terminal record is a no-op and reports false.
func (r *JobRecord) ApplyCompletion(status, artifactID string, jerr *JobError, now time.Time) bool {
	if r.Terminal() {
		return false
	}
	if status != JobStatusCompleted && status != JobStatusFailed {
		return false
	}
	r.Status = status
	r.CompletedAt = &now
	if artifactID != "" {
		r.BackendArtifactID = artifactID
	}
	r.Error = jerr
	return true
}
