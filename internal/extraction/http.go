package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"loom/internal/config"
	"loom/internal/services"
)

// HTTPExtractor delegates extraction to an external interpretation service.
// The service receives {"content": ...} and answers {"candidates": [...]}.
type HTTPExtractor struct {
	endpoint string
	client   *http.Client
}

// NewHTTPExtractor builds an extractor for the configured endpoint.
func NewHTTPExtractor(cfg config.Extraction) *HTTPExtractor {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPExtractor{
		endpoint: cfg.Endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type extractRequest struct {
	Content string `json:"content"`
}

type extractResponse struct {
	Candidates []Candidate `json:"candidates"`
}

// Extract posts the content to the interpretation service. Failures are
// transient from the pipeline's point of view: the work entry fails and a
// later retry may succeed.
func (e *HTTPExtractor) Extract(ctx context.Context, content string) ([]Candidate, error) {
	body, err := json.Marshal(extractRequest{Content: content})
	if err != nil {
		return nil, fmt.Errorf("extraction: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("extraction: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "capture", "extract", "call extraction service", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, services.Wrap(services.ErrExternal, "capture", "extract",
			fmt.Sprintf("extraction service returned %d: %s", resp.StatusCode, payload), nil)
	}

	var decoded extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, services.Wrap(services.ErrExternal, "capture", "extract", "decode extraction response", err)
	}
	return decoded.Candidates, nil
}
