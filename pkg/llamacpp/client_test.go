package llamacpp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestServer(t *testing.T, content any, seen *ChatCompletionRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(seen); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id": "cmpl-1",
			"choices": []map[string]any{
				{"index": 0, "message": map[string]any{"role": "assistant", "content": content}},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewClient(t *testing.T) {
	c, err := NewClient("", 0)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if c.baseURL != DefaultURL {
		t.Errorf("Expected %s, got %s", DefaultURL, c.baseURL)
	}
	if _, err := NewClient("localhost:8080", 0); err == nil {
		t.Error("Expected error for URL without scheme")
	}
}

func TestSimpleQuerySendsImagePart(t *testing.T) {
	var seen ChatCompletionRequest
	srv := newTestServer(t, "a ceramic mug", &seen)

	c, _ := NewClient(srv.URL+"/", time.Second)
	got, err := c.SimpleQuery(context.Background(), "qwen2.5-vl", "describe", "AAAA")
	if err != nil {
		t.Fatalf("SimpleQuery failed: %v", err)
	}
	if got != "a ceramic mug" {
		t.Errorf("Unexpected reply %q", got)
	}

	parts, ok := seen.Messages[0].Content.([]any)
	if !ok || len(parts) != 2 {
		t.Fatalf("Expected text and image parts, got %#v", seen.Messages[0].Content)
	}
	img := parts[1].(map[string]any)["image_url"].(map[string]any)["url"].(string)
	if !strings.HasPrefix(img, "data:image/jpeg;base64,AAAA") {
		t.Errorf("Unexpected image url %q", img)
	}
	if seen.ResponseFormat != nil {
		t.Error("Expected no response format for a simple query")
	}
}

func TestJSONQueryHandlesPartArray(t *testing.T) {
	var seen ChatCompletionRequest
	srv := newTestServer(t, []map[string]any{{"type": "text", "text": "```\n{\"score\": 70}\n```"}}, &seen)

	c, _ := NewClient(srv.URL, time.Second)
	got, err := c.JSONQuery(context.Background(), "m", "grade", "")
	if err != nil {
		t.Fatalf("JSONQuery failed: %v", err)
	}
	if got != `{"score": 70}` {
		t.Errorf("Expected sanitized JSON, got %q", got)
	}
	if seen.ResponseFormat == nil || seen.ResponseFormat.Type != "json_object" {
		t.Errorf("Expected json_object response format, got %+v", seen.ResponseFormat)
	}
}

func TestServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "loading model", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, _ := NewClient(srv.URL, time.Second)
	_, err := c.SimpleQuery(context.Background(), "m", "p", "")
	if err == nil || !strings.Contains(err.Error(), "503") {
		t.Errorf("Expected 503 error, got %v", err)
	}

	var seen ChatCompletionRequest
	empty := newTestServer(t, "", &seen)
	c, _ = NewClient(empty.URL, time.Second)
	if _, err := c.SimpleQuery(context.Background(), "m", "p", ""); err == nil {
		t.Error("Expected error for empty content")
	}
}
