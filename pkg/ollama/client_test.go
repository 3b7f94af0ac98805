package ollama

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ollama/ollama/api"
)

func newTestServer(t *testing.T, reply string, seen *api.ChatRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(seen); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/x-ndjson")
		json.NewEncoder(w).Encode(api.ChatResponse{
			Model:   seen.Model,
			Message: api.Message{Role: "assistant", Content: reply},
			Done:    true,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewClientRejectsBadURL(t *testing.T) {
	if _, err := NewClient("localhost", 0); err == nil {
		t.Error("Expected error for URL without scheme")
	}
	c, err := NewClient("http://localhost:11434/api/chat", 0)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if c.timeout != DefaultTimeout {
		t.Errorf("Expected default timeout, got %v", c.timeout)
	}
}

func TestSimpleQuery(t *testing.T) {
	var seen api.ChatRequest
	srv := newTestServer(t, "A silver ring on white.", &seen)

	c, err := NewClient(srv.URL, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	img := base64.StdEncoding.EncodeToString([]byte{0xff, 0xd8, 0xff})
	got, err := c.SimpleQuery(context.Background(), "minicpm-v", "describe", img)
	if err != nil {
		t.Fatalf("SimpleQuery failed: %v", err)
	}
	if got != "A silver ring on white." {
		t.Errorf("Unexpected reply %q", got)
	}
	if seen.Model != "minicpm-v" || len(seen.Messages) != 1 || len(seen.Messages[0].Images) != 1 {
		t.Errorf("Unexpected request %+v", seen)
	}
	if len(seen.Format) != 0 {
		t.Errorf("Expected no format for a simple query, got %s", seen.Format)
	}
}

func TestJSONQuerySanitizes(t *testing.T) {
	var seen api.ChatRequest
	srv := newTestServer(t, "```json\n{\"score\": 81,}\n```", &seen)

	c, _ := NewClient(srv.URL, time.Second)
	got, err := c.JSONQuery(context.Background(), "llava", "grade", "")
	if err != nil {
		t.Fatalf("JSONQuery failed: %v", err)
	}
	if got != `{"score": 81}` {
		t.Errorf("Expected sanitized JSON, got %q", got)
	}
	if string(seen.Format) != `"json"` {
		t.Errorf("Expected json format, got %s", seen.Format)
	}
}

func TestQueryErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"model not loaded"}`))
	}))
	defer srv.Close()

	c, _ := NewClient(srv.URL, time.Second)
	if _, err := c.SimpleQuery(context.Background(), "m", "p", ""); err == nil {
		t.Error("Expected error from failing server")
	}
	if _, err := c.SimpleQuery(context.Background(), "m", "p", "%%%"); err == nil {
		t.Error("Expected error for invalid base64")
	}
}
