// Package api is the HTTP surface of the gateway: submission intake,
// job queries, processor callbacks, health and metrics.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/dunamismax/artshield/internal/callback"
	"github.com/dunamismax/artshield/internal/dedup"
	"github.com/dunamismax/artshield/internal/jobstate"
	"github.com/dunamismax/artshield/internal/processor"
	"github.com/dunamismax/artshield/internal/result"
	"github.com/dunamismax/artshield/internal/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

type duplicateChecker interface {
	Check(ctx context.Context, q dedup.Query) dedup.Result
}

type jobDispatcher interface {
	SubmitJSON(ctx context.Context, req processor.SubmitRequest) error
	SubmitFile(ctx context.Context, req processor.SubmitRequest, filename string, image []byte) error
	Health(ctx context.Context) error
	BreakerOpen() bool
}

type tokenIssuer interface {
	IssueUploadToken(ctx context.Context, jobID string) (string, error)
}

type jobViews interface {
	Status(ctx context.Context, jobID string) (result.StatusView, error)
	Result(ctx context.Context, jobID string) (result.ResultView, error)
	Variant(ctx context.Context, jobID, variant string) (io.ReadCloser, storage.ObjectInfo, error)
}

type callbackIngest interface {
	Authenticate(token string) error
	ApplyProgress(ctx context.Context, ev callback.ProgressEvent) error
	ApplyStep(ctx context.Context, ev callback.StepEvent) error
	ApplyCompletion(ctx context.Context, ev callback.CompletionEvent) error
}

type Server struct {
	logger        *log.Logger
	dedup         duplicateChecker
	dispatcher    jobDispatcher
	tokens        tokenIssuer
	jobs          jobstate.Store
	views         jobViews
	ingest        callbackIngest
	rateLimiter   RateLimiter
	maxUploadSize int64
	metrics       *metrics
	tracer        trace.Tracer
	mux           *http.ServeMux
}

type Options struct {
	Dedup         duplicateChecker
	Dispatcher    jobDispatcher
	Tokens        tokenIssuer
	Jobs          jobstate.Store
	Views         jobViews
	Ingest        callbackIngest
	RateLimiter   RateLimiter
	MaxUploadSize int64
}

func NewServer(logger *log.Logger, opts Options) *Server {
	maxUpload := opts.MaxUploadSize
	if maxUpload <= 0 {
		maxUpload = 25 << 20
	}

	s := &Server{
		logger:        logger,
		dedup:         opts.Dedup,
		dispatcher:    opts.Dispatcher,
		tokens:        opts.Tokens,
		jobs:          opts.Jobs,
		views:         opts.Views,
		ingest:        opts.Ingest,
		rateLimiter:   opts.RateLimiter,
		maxUploadSize: maxUpload,
		metrics:       newMetrics(),
		tracer:        otel.Tracer("artshield/api"),
		mux:           http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.metrics.withHTTPMetrics(s.withTracing(s.withRateLimit(s.mux)))
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.Handle("GET /metrics", s.metrics.metricsHandler())
	s.mux.HandleFunc("POST /v1/artworks", s.handleSubmit)
	s.mux.HandleFunc("GET /v1/artworks/{id}/status", s.handleStatus)
	s.mux.HandleFunc("GET /v1/artworks/{id}/result", s.handleResult)
	s.mux.HandleFunc("GET /v1/artworks/{id}/download/{variant}", s.handleDownload)
	s.mux.HandleFunc("POST /v1/callbacks/progress", s.handleProgressCallback)
	s.mux.HandleFunc("POST /v1/callbacks/step", s.handleStepCallback)
	s.mux.HandleFunc("POST /v1/callbacks/complete", s.handleCompletionCallback)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	body := map[string]string{"status": "ok"}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.dispatcher.Health(ctx); err != nil {
		body["processor"] = "unreachable"
	} else {
		body["processor"] = "ok"
	}
	if s.dispatcher.BreakerOpen() {
		body["circuit"] = "open"
	} else {
		body["circuit"] = "closed"
	}

	writeJSON(w, http.StatusOK, body)
}

func decodeJSON(r *http.Request, into any) error {
	const maxBodyBytes = 1 << 20
	limited := io.LimitReader(r.Body, maxBodyBytes)
	decoder := json.NewDecoder(limited)
	if err := decoder.Decode(into); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return errors.New("invalid JSON body: multiple JSON values are not allowed")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
