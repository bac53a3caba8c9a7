// Package processor is the HTTP client for the external processing engine
// that performs the actual image protection work. The gateway submits jobs
// here and hears back through callbacks.
package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/dunamismax/artshield/internal/domain"
)

type Config struct {
	BaseURL string
	Timeout time.Duration
}

type Client struct {
	httpClient *http.Client
	baseURL    string
}

func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("processor base URL is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    base,
	}, nil
}

// SubmitRequest is the job envelope sent to the processor. UploadToken is
// the backend-issued one-time token the processor uses to store its output.
type SubmitRequest struct {
	JobID             string         `json:"job_id"`
	ArtistName        string         `json:"artist_name"`
	ArtworkTitle      string         `json:"artwork_title"`
	Tags              []string       `json:"tags,omitempty"`
	Processors        []string       `json:"processors"`
	WatermarkStrategy string         `json:"watermark_strategy"`
	MaxDimension      int            `json:"max_dimension"`
	PreserveMetadata  bool           `json:"preserve_metadata"`
	ImageURL          string         `json:"image_url,omitempty"`
	ImagePath         string         `json:"image_path,omitempty"`
	ExtraMetadata     map[string]any `json:"extra_metadata,omitempty"`
	UploadToken       string         `json:"upload_token"`
}

// Submit sends a JSON-only job referencing a remote image URL or path.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal submit payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/process", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build submit request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	return c.do(httpReq, "submit job")
}

// SubmitFile sends a multipart job carrying the image buffer itself, with
// the JSON envelope in a "payload" part and the bytes in an "image" part.
func (c *Client) SubmitFile(ctx context.Context, req SubmitRequest, filename string, image []byte) error {
	envelope, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal submit payload: %w", err)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if err := writer.WriteField("payload", string(envelope)); err != nil {
		return fmt.Errorf("write payload part: %w", err)
	}
	part, err := writer.CreateFormFile("image", filename)
	if err != nil {
		return fmt.Errorf("create image part: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return fmt.Errorf("write image part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("finish multipart body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/process/upload", &buf)
	if err != nil {
		return fmt.Errorf("build upload request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	return c.do(httpReq, "submit job upload")
}

// Health probes the processor's health endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}
	return c.do(req, "health probe")
}

func (c *Client) do(req *http.Request, op string) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &domain.UpstreamError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &domain.UpstreamError{Op: op, StatusCode: resp.StatusCode}
	}
	return nil
}
