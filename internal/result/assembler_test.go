package result

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/dunamismax/artshield/internal/backend"
	"github.com/dunamismax/artshield/internal/domain"
	"github.com/dunamismax/artshield/internal/jobstate"
	"github.com/dunamismax/artshield/internal/storage"
)

type fakeBackend struct {
	artifacts map[string]backend.Artifact
	err       error
}

func (f *fakeBackend) GetArtifact(_ context.Context, artifactID string) (backend.Artifact, bool, error) {
	if f.err != nil {
		return backend.Artifact{}, false, f.err
	}
	artifact, ok := f.artifacts[artifactID]
	return artifact, ok, nil
}

type fakeStorage struct {
	objects map[string][]byte
}

func (f *fakeStorage) OpenObject(_ context.Context, objectKey string) (io.ReadCloser, storage.ObjectInfo, error) {
	data, ok := f.objects[objectKey]
	if !ok {
		return nil, storage.ObjectInfo{}, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(data)), storage.ObjectInfo{
		Size:        int64(len(data)),
		ContentType: "image/png",
	}, nil
}

type failingStore struct{}

func (failingStore) Create(context.Context, domain.JobRecord) error { return errors.New("redis down") }
func (failingStore) UpdateProgress(context.Context, string, domain.Progress) error {
	return errors.New("redis down")
}
func (failingStore) RecordStep(context.Context, string, string, string) error {
	return errors.New("redis down")
}
func (failingStore) Complete(context.Context, string, string, string, *domain.JobError) (bool, error) {
	return false, errors.New("redis down")
}
func (failingStore) Get(context.Context, string) (domain.JobRecord, bool, error) {
	return domain.JobRecord{}, false, errors.New("redis down")
}

func newTestAssembler(store jobstate.Store, src *fakeBackend, opener *fakeStorage) *Assembler {
	if src == nil {
		src = &fakeBackend{}
	}
	if opener == nil {
		opener = &fakeStorage{}
	}
	return New(log.New(io.Discard, "", 0), store, src, opener)
}

func seedProcessing(t *testing.T, store jobstate.Store, jobID string) {
	t.Helper()
	err := store.Create(context.Background(), domain.JobRecord{
		JobID:       jobID,
		Status:      domain.JobStatusProcessing,
		SubmittedAt: time.Now().UTC(),
		ProcessorConfig: domain.ProcessorConfig{
			Processors:        []string{"watermark"},
			WatermarkStrategy: domain.WatermarkInvisible,
			MaxDimension:      2048,
		},
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestStatusProcessingIncludesConfig(t *testing.T) {
	store := jobstate.NewMemoryStore(time.Hour)
	seedProcessing(t, store, "job-1")
	a := newTestAssembler(store, nil, nil)

	view, err := a.Status(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if view.Status != domain.JobStatusProcessing {
		t.Fatalf("expected processing, got %s", view.Status)
	}
	if view.ProcessorConfig == nil || view.ProcessorConfig.MaxDimension != 2048 {
		t.Fatalf("expected processor config in processing view, got %+v", view.ProcessorConfig)
	}
}

func TestStatusTerminalOmitsConfig(t *testing.T) {
	store := jobstate.NewMemoryStore(time.Hour)
	seedProcessing(t, store, "job-1")
	if _, err := store.Complete(context.Background(), "job-1", domain.JobStatusCompleted, "abc123", nil); err != nil {
		t.Fatalf("complete: %v", err)
	}
	a := newTestAssembler(store, nil, nil)

	view, err := a.Status(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if view.ProcessorConfig != nil {
		t.Fatal("expected terminal view to omit the processor config")
	}
	if view.BackendArtifactID != "abc123" {
		t.Fatalf("expected artifact pointer, got %q", view.BackendArtifactID)
	}
}

func TestStatusFallsBackToBackend(t *testing.T) {
	store := jobstate.NewMemoryStore(time.Hour)
	src := &fakeBackend{artifacts: map[string]backend.Artifact{
		"job-old": {ID: "job-old", Title: "Forest"},
	}}
	a := newTestAssembler(store, src, nil)

	view, err := a.Status(context.Background(), "job-old")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if view.Status != domain.JobStatusCompleted {
		t.Fatalf("expected backend presence to imply completion, got %s", view.Status)
	}
	if view.BackendArtifactID != "job-old" {
		t.Fatalf("expected the job id reused as artifact pointer, got %q", view.BackendArtifactID)
	}
}

func TestStatusUnknownEverywhereIsNotFound(t *testing.T) {
	store := jobstate.NewMemoryStore(time.Hour)
	a := newTestAssembler(store, nil, nil)

	_, err := a.Status(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStatusDegradesWhenStoreUnreachable(t *testing.T) {
	src := &fakeBackend{artifacts: map[string]backend.Artifact{
		"job-1": {ID: "job-1"},
	}}
	a := newTestAssembler(failingStore{}, src, nil)

	view, err := a.Status(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("expected degraded answer, got %v", err)
	}
	if view.Status != domain.JobStatusCompleted {
		t.Fatalf("expected backend fallback, got %s", view.Status)
	}
}

func TestResultWhileProcessingIsConflict(t *testing.T) {
	store := jobstate.NewMemoryStore(time.Hour)
	seedProcessing(t, store, "job-1")
	a := newTestAssembler(store, nil, nil)

	_, err := a.Result(context.Background(), "job-1")
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestResultForFailedJobCarriesError(t *testing.T) {
	store := jobstate.NewMemoryStore(time.Hour)
	seedProcessing(t, store, "job-1")
	_, _ = store.Complete(context.Background(), "job-1", domain.JobStatusFailed, "", &domain.JobError{
		Code:    "codec",
		Message: "unsupported format",
	})
	a := newTestAssembler(store, nil, nil)

	view, err := a.Result(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if view.Status != domain.JobStatusFailed {
		t.Fatalf("expected failed view, got %s", view.Status)
	}
	if view.Error == nil || view.Error.Code != "codec" {
		t.Fatalf("expected error detail, got %+v", view.Error)
	}
}

func TestResultAssemblesDownloads(t *testing.T) {
	store := jobstate.NewMemoryStore(time.Hour)
	seedProcessing(t, store, "job-1")
	_, _ = store.Complete(context.Background(), "job-1", domain.JobStatusCompleted, "abc123", nil)

	src := &fakeBackend{artifacts: map[string]backend.Artifact{
		"abc123": {
			ID:       "abc123",
			Title:    "Forest",
			Artist:   "Jane Doe",
			Checksum: "deadbeef",
			Variants: map[string]string{
				"watermarked": "artifacts/abc123/watermarked.png",
				"original":    "artifacts/abc123/original.png",
			},
		},
	}}
	a := newTestAssembler(store, src, nil)

	view, err := a.Result(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if view.ArtifactID != "abc123" || view.Title != "Forest" {
		t.Fatalf("unexpected view %+v", view)
	}
	want := []string{"original", "watermarked"}
	if len(view.Variants) != 2 || view.Variants[0] != want[0] || view.Variants[1] != want[1] {
		t.Fatalf("expected sorted variants %v, got %v", want, view.Variants)
	}
	if view.Downloads["watermarked"] != "/v1/artworks/job-1/download/watermarked" {
		t.Fatalf("unexpected download link %q", view.Downloads["watermarked"])
	}
}

func TestVariantWhileProcessingIsConflict(t *testing.T) {
	store := jobstate.NewMemoryStore(time.Hour)
	seedProcessing(t, store, "job-1")
	a := newTestAssembler(store, nil, nil)

	_, _, err := a.Variant(context.Background(), "job-1", "watermarked")
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestVariantForFailedJobIsNotFound(t *testing.T) {
	store := jobstate.NewMemoryStore(time.Hour)
	seedProcessing(t, store, "job-1")
	_, _ = store.Complete(context.Background(), "job-1", domain.JobStatusFailed, "", nil)
	a := newTestAssembler(store, nil, nil)

	_, _, err := a.Variant(context.Background(), "job-1", "watermarked")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestVariantStreamsStoredObject(t *testing.T) {
	store := jobstate.NewMemoryStore(time.Hour)
	seedProcessing(t, store, "job-1")
	_, _ = store.Complete(context.Background(), "job-1", domain.JobStatusCompleted, "abc123", nil)

	src := &fakeBackend{artifacts: map[string]backend.Artifact{
		"abc123": {
			ID:       "abc123",
			Variants: map[string]string{"watermarked": "artifacts/abc123/watermarked.png"},
		},
	}}
	opener := &fakeStorage{objects: map[string][]byte{
		"artifacts/abc123/watermarked.png": []byte("png-bytes"),
	}}
	a := newTestAssembler(store, src, opener)

	reader, info, err := a.Variant(context.Background(), "job-1", "watermarked")
	if err != nil {
		t.Fatalf("variant: %v", err)
	}
	defer reader.Close()

	data, _ := io.ReadAll(reader)
	if string(data) != "png-bytes" {
		t.Fatalf("unexpected object body %q", data)
	}
	if info.Size != int64(len("png-bytes")) {
		t.Fatalf("unexpected size %d", info.Size)
	}
}

func TestVariantLegacyFallbackUsesJobID(t *testing.T) {
	store := jobstate.NewMemoryStore(time.Hour)
	src := &fakeBackend{artifacts: map[string]backend.Artifact{
		"job-old": {
			ID:       "job-old",
			Variants: map[string]string{"original": "artifacts/job-old/original.png"},
		},
	}}
	opener := &fakeStorage{objects: map[string][]byte{
		"artifacts/job-old/original.png": []byte("legacy"),
	}}
	a := newTestAssembler(store, src, opener)

	reader, _, err := a.Variant(context.Background(), "job-old", "original")
	if err != nil {
		t.Fatalf("variant: %v", err)
	}
	reader.Close()
}

func TestVariantUnknownNameIsNotFound(t *testing.T) {
	store := jobstate.NewMemoryStore(time.Hour)
	seedProcessing(t, store, "job-1")
	_, _ = store.Complete(context.Background(), "job-1", domain.JobStatusCompleted, "abc123", nil)
	src := &fakeBackend{artifacts: map[string]backend.Artifact{
		"abc123": {ID: "abc123", Variants: map[string]string{"original": "k"}},
	}}
	a := newTestAssembler(store, src, nil)

	_, _, err := a.Variant(context.Background(), "job-1", "thumbnail")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
