package model

import "time"

// Entry pairs a StructuredItem with its supporting RelatedItems.
type Entry struct {
	Item    StructuredItem `json:"item"`
	Related []RelatedItem  `json:"related"`
}

// Diagnostics are advisory details about how an artifact was produced.
// Nothing reads them for control flow.
type Diagnostics struct {
	ParseStrategy  string   `json:"parse_strategy,omitempty"`
	GatewayError   string   `json:"gateway_error,omitempty"`
	UnmatchedItems int      `json:"unmatched_items,omitempty"`
	Warnings       []string `json:"warnings,omitempty"`
}

// Artifact is the curated report returned for one generation request.
type Artifact struct {
	ID           string      `json:"id"`
	Key          string      `json:"key"`
	Topic        string      `json:"topic,omitempty"`
	Entries      []Entry     `json:"entries"`
	GeneratedAt  time.Time   `json:"generated_at"`
	ModelID      string      `json:"model_id,omitempty"`
	UsedFallback bool        `json:"used_fallback"`
	Diagnostics  Diagnostics `json:"diagnostics"`
}

// Items returns the structured items in report order.
func (a *Artifact) Items() []StructuredItem {
	items := make([]StructuredItem, len(a.Entries))
	for i, e := range a.Entries {
		items[i] = e.Item
	}
	return items
}

// CacheEntry is an artifact held by the in-process cache tier.
type CacheEntry struct {
	Key        string
	Artifact   *Artifact
	InsertedAt time.Time
}
