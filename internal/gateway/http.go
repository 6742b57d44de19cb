package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"repotalk/internal/domain"
)

// Client talks to the repository-analysis backend over HTTP JSON. It is a
// pure transport: one attempt per call, no retries, no local state.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type ingestRequest struct {
	URL string `json:"url"`
}

type ingestResponse struct {
	Content string `json:"content"`
	Tree    string `json:"tree"`
}

type askRequest struct {
	Message string `json:"message"`
	RepoURL string `json:"repoUrl"`
}

type askResponse struct {
	Response string `json:"response"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Ingest asks the backend to fetch and prepare a repository.
func (c *Client) Ingest(ctx context.Context, repoURL string) (domain.IngestResult, error) {
	if err := validateRepoURL(repoURL); err != nil {
		return domain.IngestResult{}, err
	}

	var out ingestResponse
	if err := c.post(ctx, "ingest", "/api/ingest", ingestRequest{URL: repoURL}, &out); err != nil {
		return domain.IngestResult{}, err
	}
	return domain.IngestResult{Content: out.Content, Tree: out.Tree}, nil
}

// Ask sends one chat turn about a previously ingested repository.
func (c *Client) Ask(ctx context.Context, message string, repoURL string) (string, error) {
	var out askResponse
	if err := c.post(ctx, "ask", "/api/ask", askRequest{Message: message, RepoURL: repoURL}, &out); err != nil {
		return "", err
	}
	return out.Response, nil
}

func (c *Client) post(ctx context.Context, op string, path string, in any, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &BackendError{Op: op, StatusCode: resp.StatusCode, Detail: backendDetail(body)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	return nil
}

func backendDetail(body []byte) string {
	var parsed errorResponse
	if err := json.Unmarshal(body, &parsed); err == nil && strings.TrimSpace(parsed.Error) != "" {
		return strings.TrimSpace(parsed.Error)
	}
	return ""
}

func validateRepoURL(repoURL string) error {
	trimmed := strings.TrimSpace(repoURL)
	if trimmed == "" {
		return &ValidationError{Reason: "repository URL is required"}
	}

	parsed, err := url.Parse(trimmed)
	if err != nil || !parsed.IsAbs() || parsed.Host == "" {
		return &ValidationError{Reason: "repository URL must be an absolute http(s) URL"}
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return &ValidationError{Reason: "repository URL must use http or https"}
	}
	return nil
}
