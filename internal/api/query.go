package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/dunamismax/artshield/internal/domain"
)

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")

	view, err := s.views.Status(r.Context(), jobID)
	if err != nil {
		s.writeQueryError(w, jobID, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")

	view, err := s.views.Result(r.Context(), jobID)
	if err != nil {
		s.writeQueryError(w, jobID, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	variant := r.PathValue("variant")

	reader, info, err := s.views.Variant(r.Context(), jobID, variant)
	if err != nil {
		s.writeQueryError(w, jobID, err)
		return
	}
	defer reader.Close()

	if info.ContentType != "" {
		w.Header().Set("Content-Type", info.ContentType)
	} else {
		w.Header().Set("Content-Type", "application/octet-stream")
	}
	if info.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	}
	if _, err := io.Copy(w, reader); err != nil {
		s.logger.Printf("variant stream interrupted job_id=%s variant=%s err=%v", jobID, variant, err)
	}
}

func (s *Server) writeQueryError(w http.ResponseWriter, jobID string, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown job: " + jobID})
	case errors.Is(err, domain.ErrConflict):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "job is still processing"})
	default:
		s.logger.Printf("query failed job_id=%s err=%v", jobID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
