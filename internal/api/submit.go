package api

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dunamismax/artshield/internal/dedup"
	"github.com/dunamismax/artshield/internal/domain"
	"github.com/dunamismax/artshield/internal/id"
	"github.com/dunamismax/artshield/internal/intake"
	"github.com/dunamismax/artshield/internal/processor"
)

// handleSubmit runs the full intake pipeline: normalize, validate,
// deduplicate, dispatch through the breaker, then track the new job.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	raw, image, filename, err := s.decodeSubmission(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	canonical, err := intake.Normalize(raw)
	if err != nil {
		s.metrics.submissionsTotal.WithLabelValues("rejected").Inc()
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	sub, err := intake.Validate(canonical, len(image) > 0)
	if err != nil {
		s.metrics.submissionsTotal.WithLabelValues("rejected").Inc()
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	checksum := ""
	if len(image) > 0 {
		sum := sha256.Sum256(image)
		checksum = hex.EncodeToString(sum[:])
	}

	// Dedup runs to completion (or fails open) before any dispatch attempt.
	dup := s.dedup.Check(r.Context(), dedup.Query{
		Checksum: checksum,
		Title:    sub.ArtworkTitle,
		Artist:   sub.ArtistName,
		Tags:     sub.Tags,
	})
	if dup.Exists {
		s.metrics.submissionsTotal.WithLabelValues("duplicate").Inc()
		s.metrics.duplicateHits.WithLabelValues(dup.Match.MatchedBy).Inc()
		writeJSON(w, http.StatusOK, map[string]any{
			"status":      "exists",
			"artifact_id": dup.Match.ArtifactID,
			"match":       dup.Match,
		})
		return
	}

	jobID := id.New()
	token, err := s.tokens.IssueUploadToken(r.Context(), jobID)
	if err != nil {
		s.logger.Printf("upload token issuance failed job_id=%s err=%v", jobID, err)
		s.metrics.submissionsTotal.WithLabelValues("failed").Inc()
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "failed to authorize processing"})
		return
	}

	req := processor.SubmitRequest{
		JobID:             jobID,
		ArtistName:        sub.ArtistName,
		ArtworkTitle:      sub.ArtworkTitle,
		Tags:              sub.Tags,
		Processors:        sub.Processors,
		WatermarkStrategy: sub.WatermarkStrategy,
		MaxDimension:      sub.MaxDimension,
		PreserveMetadata:  sub.PreserveMetadata,
		ImageURL:          sub.ImageURL,
		ImagePath:         sub.ImagePath,
		ExtraMetadata:     sub.ExtraMetadata,
		UploadToken:       token,
	}

	if len(image) > 0 {
		err = s.dispatcher.SubmitFile(r.Context(), req, filename, image)
	} else {
		err = s.dispatcher.SubmitJSON(r.Context(), req)
	}
	s.setBreakerGauge()
	if err != nil {
		s.metrics.submissionsTotal.WithLabelValues("failed").Inc()
		if errors.Is(err, domain.ErrCircuitOpen) {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "processor temporarily unavailable"})
			return
		}
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "processor submission failed"})
		return
	}

	rec := domain.JobRecord{
		JobID:           jobID,
		Status:          domain.JobStatusProcessing,
		SubmittedAt:     time.Now().UTC(),
		ProcessorConfig: sub.ProcessorConfig(),
		NotifyURL:       sub.NotifyURL,
	}
	if err := s.jobs.Create(r.Context(), rec); err != nil {
		// Best-effort: the backend remains the source of truth.
		s.logger.Printf("job record write failed job_id=%s err=%v", jobID, err)
	}

	s.metrics.submissionsTotal.WithLabelValues("queued").Inc()
	writeJSON(w, http.StatusAccepted, map[string]string{
		"job_id": jobID,
		"status": domain.JobStatusProcessing,
	})
}

func (s *Server) setBreakerGauge() {
	if s.dispatcher.BreakerOpen() {
		s.metrics.breakerOpen.Set(1)
	} else {
		s.metrics.breakerOpen.Set(0)
	}
}

// decodeSubmission accepts either a JSON body or a multipart form with an
// optional "image" file part; form fields arrive as strings and are left to
// the normalizer to coerce.
func (s *Server) decodeSubmission(r *http.Request) (raw map[string]any, image []byte, filename string, err error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		return s.decodeMultipart(r)
	}

	raw = make(map[string]any)
	if err := decodeJSON(r, &raw); err != nil {
		return nil, nil, "", err
	}
	return raw, nil, "", nil
}

func (s *Server) decodeMultipart(r *http.Request) (map[string]any, []byte, string, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, s.maxUploadSize)
	if err := r.ParseMultipartForm(s.maxUploadSize); err != nil {
		return nil, nil, "", fmt.Errorf("invalid multipart form: %w", err)
	}

	raw := make(map[string]any, len(r.MultipartForm.Value))
	for key, values := range r.MultipartForm.Value {
		if len(values) > 0 {
			raw[key] = values[0]
		}
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return raw, nil, "", nil
		}
		return nil, nil, "", fmt.Errorf("read image part: %w", err)
	}
	defer file.Close()

	image, err := io.ReadAll(file)
	if err != nil {
		return nil, nil, "", fmt.Errorf("read image part: %w", err)
	}

	filename := header.Filename
	if filename == "" {
		filename = "upload"
	}
	return raw, image, filename, nil
}
