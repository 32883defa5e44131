// Package extractor is the client for the eye-embedding server, the only
// boundary this system has with the perception pipeline. Detection model and
// preprocessing live on the server side and are opaque here; the client gets
// back either a fixed-length vector or a terminal error.
package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
)

const (
	defaultBaseURL = "http://localhost:8000"
	defaultModel   = "arcface"
)

// ErrNoEyeRegion is returned when the extractor could not locate an eye
// region in the image. No partial embedding is ever produced.
var ErrNoEyeRegion = errors.New("no eye region detected")

// Client computes eye-region embeddings using the embedding server.
type Client struct {
	baseURL string
	model   string
	dim     int
	client  *http.Client
}

// New creates an extractor client. dim is the expected embedding length;
// responses of any other length are rejected.
func New(baseURL, model string, dim int) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if model == "" {
		model = defaultModel
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   model,
		dim:     dim,
		client:  &http.Client{},
	}
}

// Model returns the extractor model name being used.
func (c *Client) Model() string {
	return c.model
}

// embedResponse is the JSON shape returned by the embedding server.
type embedResponse struct {
	Dim       int       `json:"dim"`
	Embedding []float32 `json:"embedding"`
	Model     string    `json:"model"`
}

// errorResponse is the JSON shape of extractor failures.
type errorResponse struct {
	Error string `json:"error"`
}

// Extract posts image bytes to the embedding server and returns the
// eye-region embedding. A 422 from the server means no eye region was found
// (ErrNoEyeRegion); any other failure is a generic extraction error.
func (c *Client) Extract(ctx context.Context, imageData []byte) ([]float32, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", "image.jpg")
	if err != nil {
		return nil, fmt.Errorf("creating form file: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("writing image data: %w", err)
	}
	if err := writer.WriteField("model", c.model); err != nil {
		return nil, fmt.Errorf("writing model field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embed/eyes", &buf)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extractor request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading extractor response: %w", err)
	}

	if resp.StatusCode == http.StatusUnprocessableEntity {
		return nil, ErrNoEyeRegion
	}
	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
			return nil, fmt.Errorf("extractor error (status %d): %s", resp.StatusCode, errResp.Error)
		}
		return nil, fmt.Errorf("extractor error (status %d): %s", resp.StatusCode, string(body))
	}

	var embResp embedResponse
	if err := json.Unmarshal(body, &embResp); err != nil {
		return nil, fmt.Errorf("parsing extractor response: %w", err)
	}
	if len(embResp.Embedding) == 0 {
		return nil, errors.New("extractor returned empty embedding")
	}
	if c.dim > 0 && len(embResp.Embedding) != c.dim {
		return nil, fmt.Errorf("extractor returned %d-dim embedding, expected %d",
			len(embResp.Embedding), c.dim)
	}

	return embResp.Embedding, nil
}
