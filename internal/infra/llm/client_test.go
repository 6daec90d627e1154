package llm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vietddude/governor/internal/core/domain"
)

func testCredential() domain.Credential {
	return domain.Credential{Name: "primary", Secret: "test-secret", Enabled: true}
}

func TestGenerate_Success(t *testing.T) {
	var gotKey, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-goog-api-key")
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"candidates": [{"content": {"role": "model", "parts": [{"text": "APPROVED: looks sound."}]}}],
			"modelVersion": "gemini-2.5-pro"
		}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, 5*time.Second)
	reply, err := client.Generate(context.Background(), testCredential(), "gemini-2.5-pro", "system", "document")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if reply.Text != "APPROVED: looks sound." {
		t.Errorf("Unexpected text: %q", reply.Text)
	}
	if reply.ModelUsed != "gemini-2.5-pro" {
		t.Errorf("Unexpected model: %q", reply.ModelUsed)
	}
	if gotKey != "test-secret" {
		t.Errorf("Credential secret not sent as API key header, got %q", gotKey)
	}
	if gotPath != "/v1beta/models/gemini-2.5-pro:generateContent" {
		t.Errorf("Unexpected path: %q", gotPath)
	}
}

func TestGenerate_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": {"code": 429, "status": "RESOURCE_EXHAUSTED", "message": "quota exceeded"}}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, 5*time.Second)
	_, err := client.Generate(context.Background(), testCredential(), "gemini-2.5-pro", "", "document")
	if err == nil {
		t.Fatal("Expected error")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected *APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != 429 || apiErr.Status != "RESOURCE_EXHAUSTED" {
		t.Errorf("Unexpected APIError: %+v", apiErr)
	}
	if Classify(err) != domain.CategoryQuota {
		t.Errorf("Expected quota classification, got %v", Classify(err))
	}
}

func TestGenerate_MalformedBody(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no candidates", `{"candidates": [], "modelVersion": "gemini-2.5-pro"}`},
		{"missing model version", `{"candidates": [{"content": {"parts": [{"text": "x"}]}}]}`},
		{"empty text", `{"candidates": [{"content": {"parts": []}}], "modelVersion": "gemini-2.5-pro"}`},
		{"not json", `<html>gateway error</html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewHTTPClient(srv.URL, 5*time.Second)
			_, err := client.Generate(context.Background(), testCredential(), "gemini-2.5-pro", "", "doc")
			if !errors.Is(err, ErrMalformedResponse) {
				t.Errorf("Expected ErrMalformedResponse, got %v", err)
			}
		})
	}
}
