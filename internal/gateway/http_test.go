package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClientIngestSuccess(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/ingest" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}

		var req ingestRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode failed: %v", err)
		}
		if req.URL != "https://github.com/a/b" {
			t.Errorf("unexpected url: %q", req.URL)
		}

		_ = json.NewEncoder(w).Encode(ingestResponse{Content: "files", Tree: "tree"})
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	result, err := client.Ingest(context.Background(), "https://github.com/a/b")
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	if result.Content != "files" || result.Tree != "tree" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestClientIngestRejectsMalformedURL(t *testing.T) {
	t.Parallel()

	client := NewClient("http://unused", time.Second)
	cases := []string{"", "   ", "not a url", "ftp://example.com/repo", "/relative/path"}
	for _, input := range cases {
		_, err := client.Ingest(context.Background(), input)
		var validation *ValidationError
		if !errors.As(err, &validation) {
			t.Fatalf("input %q: expected ValidationError, got %v", input, err)
		}
	}
}

func TestClientIngestBackendError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_ = json.NewEncoder(w).Encode(errorResponse{Error: "clone failed"})
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	_, err := client.Ingest(context.Background(), "https://github.com/a/b")

	var backend *BackendError
	if !errors.As(err, &backend) {
		t.Fatalf("expected BackendError, got %v", err)
	}
	if backend.StatusCode != http.StatusBadGateway {
		t.Fatalf("unexpected status: %d", backend.StatusCode)
	}
	if backend.Error() != "clone failed" {
		t.Fatalf("expected server detail, got %q", backend.Error())
	}
}

func TestClientIngestNetworkError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close()

	client := NewClient(server.URL, time.Second)
	_, err := client.Ingest(context.Background(), "https://github.com/a/b")

	var network *NetworkError
	if !errors.As(err, &network) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
}

func TestClientAskSuccess(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/ask" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		var req askRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode failed: %v", err)
		}
		if req.Message != "what does this do?" || req.RepoURL != "https://github.com/a/b" {
			t.Errorf("unexpected request: %+v", req)
		}

		_ = json.NewEncoder(w).Encode(askResponse{Response: "It is a web service."})
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	reply, err := client.Ask(context.Background(), "what does this do?", "https://github.com/a/b")
	if err != nil {
		t.Fatalf("ask failed: %v", err)
	}
	if reply != "It is a web service." {
		t.Fatalf("unexpected reply: %q", reply)
	}
}

func TestClientAskBackendErrorWithoutDetail(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	_, err := client.Ask(context.Background(), "question", "https://github.com/a/b")

	var backend *BackendError
	if !errors.As(err, &backend) {
		t.Fatalf("expected BackendError, got %v", err)
	}
	if backend.Error() == "" {
		t.Fatalf("expected fallback error message")
	}
}

func TestClientAskMalformedResponseIsNetworkError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	_, err := client.Ask(context.Background(), "question", "https://github.com/a/b")

	var network *NetworkError
	if !errors.As(err, &network) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
}
