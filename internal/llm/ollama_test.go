package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOllamaProvider_Generate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("Expected path /api/generate, got %s", r.URL.Path)
		}

		var req ollamaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Stream {
			t.Error("Expected non-streaming request")
		}
		if req.Model != "llama3.1:8b" {
			t.Errorf("Expected model llama3.1:8b, got %s", req.Model)
		}

		_ = json.NewEncoder(w).Encode(ollamaResponse{
			Model:    "llama3.1:8b",
			Response: `[{"title": "A"}]`,
			Done:     true,
		})
	}))
	defer server.Close()

	provider, err := NewOllamaProvider(Config{BaseURL: server.URL, Model: "llama3.1:8b"})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	resp, err := provider.Generate(context.Background(), GenerateRequest{Prompt: "brief me"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if resp.Text != `[{"title": "A"}]` {
		t.Errorf("Unexpected text: %q", resp.Text)
	}
	if resp.TokensUsed == 0 {
		t.Error("Expected estimated token count")
	}
}

func TestOllamaProvider_Generate_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error": "model not found"}`))
	}))
	defer server.Close()

	provider, err := NewOllamaProvider(Config{BaseURL: server.URL, Model: "missing"})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	_, err = provider.Generate(context.Background(), GenerateRequest{Prompt: "x"})
	if !errors.Is(err, ErrTransport) {
		t.Errorf("Expected ErrTransport, got %v", err)
	}
}

func TestOllamaProvider_Generate_NoModel(t *testing.T) {
	provider, err := NewOllamaProvider(Config{BaseURL: "http://127.0.0.1:1"})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	_, err = provider.Generate(context.Background(), GenerateRequest{Prompt: "x"})
	if err == nil {
		t.Fatal("Expected error when no model is configured")
	}
}

func TestOllamaProvider_IsAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			_, _ = w.Write([]byte(`{"models": []}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	provider, err := NewOllamaProvider(Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}
	if !provider.IsAvailable(context.Background()) {
		t.Error("Expected provider to be available")
	}
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		desc     string
		config   Config
		wantNil  bool
		wantName string
		wantErr  bool
	}{
		{desc: "disabled", config: Config{}, wantNil: true},
		{desc: "openai", config: Config{Provider: "openai", APIKey: "k"}, wantName: "openai"},
		{desc: "claude alias", config: Config{Provider: "Claude", APIKey: "k"}, wantName: "anthropic"},
		{desc: "ollama", config: Config{Provider: "ollama"}, wantName: "ollama"},
		{desc: "unknown", config: Config{Provider: "parrot"}, wantErr: true},
		{desc: "openai without key", config: Config{Provider: "openai"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			p, err := NewProvider(tt.config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("expected err=%v, got %v", tt.wantErr, err)
			}
			if tt.wantErr {
				return
			}
			if tt.wantNil {
				if p != nil {
					t.Errorf("expected nil provider, got %T", p)
				}
				return
			}
			if p.Name() != tt.wantName {
				t.Errorf("expected %s, got %s", tt.wantName, p.Name())
			}
		})
	}
}
