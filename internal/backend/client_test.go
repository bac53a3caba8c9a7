package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{BaseURL: srv.URL, APIKey: "test-key"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestFindByChecksumReturnsMatch(t *testing.T) {
	var gotKey, gotChecksum string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/artifacts/duplicate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotKey = r.Header.Get("X-Artshield-Api-Key")
		gotChecksum = r.URL.Query().Get("checksum")
		_ = json.NewEncoder(w).Encode(Artifact{
			ID:       "abc123",
			Title:    "Forest",
			Artist:   "Jane Doe",
			Checksum: "deadbeef",
		})
	}))

	match, err := client.FindByChecksum(context.Background(), "deadbeef")
	if err != nil {
		t.Fatalf("find by checksum: %v", err)
	}
	if match == nil || match.ArtifactID != "abc123" || match.MatchedBy != "checksum" {
		t.Fatalf("unexpected match %+v", match)
	}
	if gotKey != "test-key" {
		t.Fatalf("expected api key header, got %q", gotKey)
	}
	if gotChecksum != "deadbeef" {
		t.Fatalf("expected checksum query, got %q", gotChecksum)
	}
}

func TestFindByTitleArtistNoMatchIsNil(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	match, err := client.FindByTitleArtist(context.Background(), "Forest", "Jane Doe")
	if err != nil {
		t.Fatalf("expected 404 to mean no duplicate, got %v", err)
	}
	if match != nil {
		t.Fatalf("expected nil match, got %+v", match)
	}
}

func TestFindByTagsJoinsQuery(t *testing.T) {
	var gotTags string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTags = r.URL.Query().Get("tags")
		w.WriteHeader(http.StatusNotFound)
	}))

	if _, err := client.FindByTags(context.Background(), []string{"forest", "dusk"}); err != nil {
		t.Fatalf("find by tags: %v", err)
	}
	if gotTags != "forest,dusk" {
		t.Fatalf("expected comma-joined tags, got %q", gotTags)
	}
}

func TestDuplicateQueryServerErrorIsError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	if _, err := client.FindByChecksum(context.Background(), "deadbeef"); err == nil {
		t.Fatal("expected an error on 500")
	}
}

func TestGetArtifactReportsExistence(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/artifacts/abc123" {
			_ = json.NewEncoder(w).Encode(Artifact{
				ID:       "abc123",
				Variants: map[string]string{"watermarked": "artifacts/abc123/wm.png"},
			})
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))

	artifact, found, err := client.GetArtifact(context.Background(), "abc123")
	if err != nil || !found {
		t.Fatalf("expected artifact, got found=%v err=%v", found, err)
	}
	if artifact.Variants["watermarked"] == "" {
		t.Fatalf("expected variants decoded, got %+v", artifact)
	}

	_, found, err = client.GetArtifact(context.Background(), "missing")
	if err != nil {
		t.Fatalf("missing artifact must not be an error, got %v", err)
	}
	if found {
		t.Fatal("expected found=false for a missing artifact")
	}
}

func TestIssueUploadToken(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/tokens/upload" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["job_id"] != "job-1" {
			t.Errorf("expected job_id in token request, got %v", body)
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"token": "tok-1"})
	}))

	token, err := client.IssueUploadToken(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if token != "tok-1" {
		t.Fatalf("unexpected token %q", token)
	}
}

func TestIssueUploadTokenRejectsEmptyToken(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"token": ""})
	}))

	if _, err := client.IssueUploadToken(context.Background(), "job-1"); err == nil {
		t.Fatal("expected an error for an empty token")
	}
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Fatal("expected an error without a base URL")
	}
}
