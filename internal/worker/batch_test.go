package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/newsbrief/internal/model"
	"github.com/ppiankov/newsbrief/internal/pipeline"
)

// mockGenerator implements Generator
type mockGenerator struct {
	shouldError bool
	calls       int32
	forced      int32
}

func (m *mockGenerator) GetOrGenerate(ctx context.Context, req model.GenerationRequest, supply pipeline.CorpusSupplier, force bool) (*model.Artifact, error) {
	atomic.AddInt32(&m.calls, 1)
	if force {
		atomic.AddInt32(&m.forced, 1)
	}
	time.Sleep(5 * time.Millisecond) // Simulate work
	if m.shouldError {
		return nil, errors.New("generation error")
	}
	return &model.Artifact{Key: req.DateRange.Day() + "/" + req.Topic}, nil
}

var day = time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

func requests(topics ...string) []model.GenerationRequest {
	out := make([]model.GenerationRequest, len(topics))
	for i, topic := range topics {
		out[i] = model.GenerationRequest{Topic: topic, DateRange: model.DayRange(day, 1)}
	}
	return out
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "requests.txt")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBatchProcessor_ProcessRequests(t *testing.T) {
	gen := &mockGenerator{}
	processor := NewBatchProcessor(gen, nil, 2, false)

	results := processor.ProcessRequests(context.Background(), requests("technology", "business", "science", "climate"))

	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	for i, res := range results {
		if res.Index != i {
			t.Errorf("expected results in input order, got index %d at %d", res.Index, i)
		}
		if res.Error != nil {
			t.Errorf("unexpected error for %s: %v", res.Request.Topic, res.Error)
		}
		if res.Artifact == nil || res.Artifact.Key != "2025-01-15/"+res.Request.Topic {
			t.Errorf("unexpected artifact for %s: %+v", res.Request.Topic, res.Artifact)
		}
	}
	if gen.forced != 0 {
		t.Errorf("expected no forced generations, got %d", gen.forced)
	}
}

func TestBatchProcessor_ProcessRequests_Error(t *testing.T) {
	processor := NewBatchProcessor(&mockGenerator{shouldError: true}, nil, 2, true)

	results := processor.ProcessRequests(context.Background(), requests("technology"))

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].GetError() == nil {
		t.Error("expected error, got nil")
	}
	if results[0].Artifact != nil {
		t.Error("expected nil artifact on error")
	}
}

func TestBatchProcessor_Force(t *testing.T) {
	gen := &mockGenerator{}
	NewBatchProcessor(gen, nil, 3, true).ProcessRequests(context.Background(), requests("a", "b", "c"))
	if atomic.LoadInt32(&gen.forced) != 3 {
		t.Errorf("expected 3 forced generations, got %d", gen.forced)
	}
}

func TestBatchProcessor_ProcessRequests_Empty(t *testing.T) {
	processor := NewBatchProcessor(&mockGenerator{}, nil, 2, false)

	results := processor.ProcessRequests(context.Background(), nil)
	if len(results) != 0 {
		t.Errorf("expected 0 results, got %d", len(results))
	}
}

func TestReadRequestsFromFile(t *testing.T) {
	content := `2025-01-15 technology
# comment
2025-01-16   Artificial Intelligence

2025-01-15 Technology
2025-01-17   `

	template := model.GenerationRequest{MaxArticles: 30, ItemCount: 4, DateRange: model.DayRange(day, 3)}
	reqs, err := ReadRequestsFromFile(writeFile(t, content), template)
	if err != nil {
		t.Fatalf("ReadRequestsFromFile failed: %v", err)
	}

	if len(reqs) != 3 {
		t.Fatalf("expected 3 requests after deduplication, got %d", len(reqs))
	}

	want := []struct {
		day, topic string
	}{
		{"2025-01-15", "technology"},
		{"2025-01-16", "Artificial Intelligence"},
		{"2025-01-17", ""},
	}
	for i, w := range want {
		if reqs[i].DateRange.Day() != w.day || reqs[i].Topic != w.topic {
			t.Errorf("request %d: expected %s/%q, got %s/%q", i, w.day, w.topic, reqs[i].DateRange.Day(), reqs[i].Topic)
		}
		if reqs[i].MaxArticles != 30 || reqs[i].ItemCount != 4 {
			t.Errorf("request %d: template fields lost: %+v", i, reqs[i])
		}
		if days := reqs[i].DateRange.End.Sub(reqs[i].DateRange.Start); days < 48*time.Hour {
			t.Errorf("request %d: expected a 3-day window, got %v", i, days)
		}
	}
}

func TestReadRequestsFromFile_Errors(t *testing.T) {
	if _, err := ReadRequestsFromFile("non_existent_file.txt", model.GenerationRequest{}); err == nil {
		t.Error("expected error for non-existent file, got nil")
	}
	if _, err := ReadRequestsFromFile(writeFile(t, "yesterday technology\n"), model.GenerationRequest{}); err == nil {
		t.Error("expected error for invalid date, got nil")
	}
}

func TestBatchProcessor_ProcessFile(t *testing.T) {
	gen := &mockGenerator{}
	processor := NewBatchProcessor(gen, nil, 2, false)

	results, err := processor.ProcessFile(context.Background(), writeFile(t, "2025-01-15 technology\n2025-01-15 business\n"), model.GenerationRequest{})
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 results, got %d", len(results))
	}

	if _, err := processor.ProcessFile(context.Background(), "no_such_file.txt", model.GenerationRequest{}); err == nil {
		t.Error("expected error for non-existent file, got nil")
	}
}
