package index

import (
	"context"
	"errors"
	"testing"

	"github.com/ppiankov/newsbrief/internal/model"
	"github.com/ppiankov/newsbrief/internal/relevance"
)

func corpus() []model.CandidateArticle {
	return []model.CandidateArticle{
		{ID: "1", Title: "Nvidia ships Blackwell GPUs to cloud providers", Summary: "GPU supply expands"},
		{ID: "2", Title: "Blackwell GPU demand outstrips Nvidia supply", Summary: "Cloud providers wait for GPUs"},
		{ID: "3", Title: "Central bank holds interest rates", Summary: "Inflation cools"},
		{ID: "4", Title: "Wheat prices climb on drought", Summary: "Harvest forecasts cut"},
	}
}

func TestMemory_Neighbors(t *testing.T) {
	idx := NewMemory()
	idx.Build(corpus())

	if idx.Len() != 4 {
		t.Fatalf("expected 4 items, got %d", idx.Len())
	}

	got, err := idx.Neighbors(context.Background(), "1", 2)
	if err != nil {
		t.Fatalf("Neighbors failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 neighbors, got %d", len(got))
	}
	if got[0].ID != "2" {
		t.Errorf("expected closest neighbor 2, got %s", got[0].ID)
	}
	for _, n := range got {
		if n.ID == "1" {
			t.Error("self returned as neighbor")
		}
		if n.Similarity < 0 || n.Similarity > 1 {
			t.Errorf("similarity out of range: %v", n.Similarity)
		}
	}
	if got[0].Similarity < got[1].Similarity {
		t.Error("neighbors not sorted")
	}
}

func TestMemory_UnknownIdentity(t *testing.T) {
	idx := NewMemory()
	idx.Build(corpus())

	_, err := idx.Neighbors(context.Background(), "nope", 3)
	if !errors.Is(err, relevance.ErrUnknownIdentity) {
		t.Errorf("expected ErrUnknownIdentity, got %v", err)
	}
}

func TestMemory_CanceledContext(t *testing.T) {
	idx := NewMemory()
	idx.Build(corpus())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := idx.Neighbors(ctx, "1", 3); err == nil {
		t.Error("expected error for canceled context")
	}
}
