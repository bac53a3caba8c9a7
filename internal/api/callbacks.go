package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dunamismax/artshield/internal/callback"
	"github.com/dunamismax/artshield/internal/domain"
)

func (s *Server) handleProgressCallback(w http.ResponseWriter, r *http.Request) {
	s.handleCallback(w, r, "progress", func(ctx context.Context) error {
		var ev callback.ProgressEvent
		if err := decodeJSON(r, &ev); err != nil {
			return &domain.ValidationError{Field: "body", Reason: err.Error()}
		}
		return s.ingest.ApplyProgress(ctx, ev)
	})
}

func (s *Server) handleStepCallback(w http.ResponseWriter, r *http.Request) {
	s.handleCallback(w, r, "step", func(ctx context.Context) error {
		var ev callback.StepEvent
		if err := decodeJSON(r, &ev); err != nil {
			return &domain.ValidationError{Field: "body", Reason: err.Error()}
		}
		return s.ingest.ApplyStep(ctx, ev)
	})
}

func (s *Server) handleCompletionCallback(w http.ResponseWriter, r *http.Request) {
	s.handleCallback(w, r, "complete", func(ctx context.Context) error {
		var ev callback.CompletionEvent
		if err := decodeJSON(r, &ev); err != nil {
			return &domain.ValidationError{Field: "body", Reason: err.Error()}
		}
		return s.ingest.ApplyCompletion(ctx, ev)
	})
}

// handleCallback applies the shared callback contract: bearer auth before
// anything else, 400 on malformed events, 200 on applied or replayed ones.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request, kind string, apply func(context.Context) error) {
	if err := s.ingest.Authenticate(bearerToken(r)); err != nil {
		s.metrics.callbacksTotal.WithLabelValues(kind, "unauthorized").Inc()
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid callback token"})
		return
	}

	if err := apply(r.Context()); err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			s.metrics.callbacksTotal.WithLabelValues(kind, "invalid").Inc()
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": verr.Error()})
			return
		}
		s.metrics.callbacksTotal.WithLabelValues(kind, "error").Inc()
		s.logger.Printf("callback apply failed kind=%s err=%v", kind, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	s.metrics.callbacksTotal.WithLabelValues(kind, "ok").Inc()
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
