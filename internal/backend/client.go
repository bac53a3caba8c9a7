// Package backend is the HTTP client for the artifact/metadata store: the
// durable system of record the gateway coordinates against. The gateway
// consumes four operations: duplicate-check queries, artifact metadata
// lookup, artifact existence, and one-time upload token issuance.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dunamismax/artshield/internal/domain"
)

const headerAPIKey = "X-Artshield-Api-Key"

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("backend base URL is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    base,
		apiKey:     cfg.APIKey,
	}, nil
}

// Artifact is the backend's durable record of a stored artwork, including
// the object keys of its processed variants.
type Artifact struct {
	ID       string            `json:"id"`
	Title    string            `json:"title"`
	Artist   string            `json:"artist"`
	Tags     []string          `json:"tags,omitempty"`
	Checksum string            `json:"checksum,omitempty"`
	Variants map[string]string `json:"variants,omitempty"`
}

// FindByChecksum looks up an artifact with an identical content checksum.
// A nil match with nil error means no duplicate.
func (c *Client) FindByChecksum(ctx context.Context, checksum string) (*domain.DuplicateMatch, error) {
	q := url.Values{"checksum": {checksum}}
	return c.duplicateQuery(ctx, q, "checksum")
}

// FindByTitleArtist looks up an artifact with the exact title and artist.
// The comparison is case-sensitive on the backend side.
func (c *Client) FindByTitleArtist(ctx context.Context, title, artist string) (*domain.DuplicateMatch, error) {
	q := url.Values{"title": {title}, "artist": {artist}}
	return c.duplicateQuery(ctx, q, "title_artist")
}

// FindByTags looks up an artifact whose tag set intersects the given tags.
func (c *Client) FindByTags(ctx context.Context, tags []string) (*domain.DuplicateMatch, error) {
	q := url.Values{"tags": {strings.Join(tags, ",")}}
	return c.duplicateQuery(ctx, q, "tags")
}

func (c *Client) duplicateQuery(ctx context.Context, q url.Values, strategy string) (*domain.DuplicateMatch, error) {
	endpoint := c.baseURL + "/v1/artifacts/duplicate?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build duplicate query: %w", err)
	}
	c.auth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("duplicate query: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotFound:
		return nil, nil
	case http.StatusOK:
		var artifact Artifact
		if err := json.NewDecoder(resp.Body).Decode(&artifact); err != nil {
			return nil, fmt.Errorf("decode duplicate response: %w", err)
		}
		return &domain.DuplicateMatch{
			ArtifactID: artifact.ID,
			Title:      artifact.Title,
			Artist:     artifact.Artist,
			Tags:       artifact.Tags,
			Checksum:   artifact.Checksum,
			MatchedBy:  strategy,
		}, nil
	default:
		return nil, fmt.Errorf("duplicate query returned status=%d", resp.StatusCode)
	}
}

// GetArtifact fetches the durable record for an artifact id. The boolean
// reports existence; a missing artifact is not an error.
func (c *Client) GetArtifact(ctx context.Context, artifactID string) (Artifact, bool, error) {
	endpoint := c.baseURL + "/v1/artifacts/" + url.PathEscape(artifactID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Artifact{}, false, fmt.Errorf("build artifact request: %w", err)
	}
	c.auth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Artifact{}, false, fmt.Errorf("fetch artifact %s: %w", artifactID, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotFound:
		return Artifact{}, false, nil
	case http.StatusOK:
		var artifact Artifact
		if err := json.NewDecoder(resp.Body).Decode(&artifact); err != nil {
			return Artifact{}, false, fmt.Errorf("decode artifact %s: %w", artifactID, err)
		}
		return artifact, true, nil
	default:
		return Artifact{}, false, fmt.Errorf("fetch artifact %s: status=%d", artifactID, resp.StatusCode)
	}
}

// IssueUploadToken requests a one-time token authorizing the processor to
// store its output for the given job.
func (c *Client) IssueUploadToken(ctx context.Context, jobID string) (string, error) {
	body, err := json.Marshal(map[string]string{"job_id": jobID})
	if err != nil {
		return "", fmt.Errorf("marshal token request: %w", err)
	}

	endpoint := c.baseURL + "/v1/tokens/upload"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.auth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("issue upload token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("issue upload token: status=%d", resp.StatusCode)
	}

	var parsed struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if parsed.Token == "" {
		return "", fmt.Errorf("issue upload token: empty token in response")
	}
	return parsed.Token, nil
}

func (c *Client) auth(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set(headerAPIKey, c.apiKey)
	}
}
