package llm

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type stubProvider struct {
	calls int32
	text  string
	err   error
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) IsAvailable(ctx context.Context) bool { return true }

func (s *stubProvider) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	atomic.AddInt32(&s.calls, 1)
	if s.err != nil {
		return nil, s.err
	}
	return &GenerateResponse{Text: s.text, Model: req.Model}, nil
}

func TestLimiter_New(t *testing.T) {
	limiter := NewLimiter(10, 5)
	if limiter.defaultBurst != 5 {
		t.Errorf("expected burst 5, got %d", limiter.defaultBurst)
	}

	l2 := NewLimiter(10, -1)
	if l2.defaultBurst != 1 {
		t.Errorf("expected default burst 1 for negative input, got %d", l2.defaultBurst)
	}
}

func TestLimiter_PerKey(t *testing.T) {
	limiter := NewLimiter(1, 1)

	if !limiter.Allow("openai/gpt-4o-mini") {
		t.Error("first request should pass")
	}
	if limiter.Allow("openai/gpt-4o-mini") {
		t.Error("expected allow to fail (exhausted tokens)")
	}
	if !limiter.Allow("ollama/llama3.1:8b") {
		t.Error("expected allow for other key")
	}
}

func TestLimiter_Unlimited(t *testing.T) {
	limiter := NewLimiter(0, 1)
	for i := 0; i < 10; i++ {
		if !limiter.Allow("k") {
			t.Fatalf("request %d throttled by unlimited limiter", i)
		}
	}
}

func TestLimiter_SetRate(t *testing.T) {
	limiter := NewLimiter(10, 10)
	limiter.SetRate("slow", 0.1, 1)

	if !limiter.Allow("slow") {
		t.Error("first request should pass")
	}
	if limiter.Allow("slow") {
		t.Error("second request should fail")
	}
	if !limiter.Allow("fast") {
		t.Error("other key should pass")
	}
}

func TestWithRateLimit_Delegates(t *testing.T) {
	stub := &stubProvider{text: "ok"}
	p := WithRateLimit(stub, NewLimiter(100, 1))

	resp, err := p.Generate(context.Background(), GenerateRequest{Prompt: "x", Model: "m"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if resp.Text != "ok" || p.Name() != "stub" {
		t.Errorf("unexpected delegation: %+v name=%s", resp, p.Name())
	}
}

func TestWithRateLimit_DeadlineIsTransport(t *testing.T) {
	stub := &stubProvider{text: "ok"}
	limiter := NewLimiter(0.01, 1)
	p := WithRateLimit(stub, limiter)

	if _, err := p.Generate(context.Background(), GenerateRequest{Model: "m"}); err != nil {
		t.Fatalf("first call failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := p.Generate(ctx, GenerateRequest{Model: "m"})
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
	if got := atomic.LoadInt32(&stub.calls); got != 1 {
		t.Errorf("expected 1 delegated call, got %d", got)
	}
}

func TestWithRateLimit_Nil(t *testing.T) {
	stub := &stubProvider{}
	if WithRateLimit(stub, nil) != Provider(stub) {
		t.Error("expected provider unchanged without limiter")
	}
	if WithRateLimit(nil, NewLimiter(1, 1)) != nil {
		t.Error("expected nil provider to stay nil")
	}
}
