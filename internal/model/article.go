package model

import (
	"strings"
	"time"
)

// CandidateArticle is one corpus item offered to the generator.
// It is treated as immutable for the lifetime of a generation cycle.
type CandidateArticle struct {
	ID               string    `json:"id" yaml:"id"`
	Title            string    `json:"title" yaml:"title"`
	Summary          string    `json:"summary" yaml:"summary"`
	Source           string    `json:"source" yaml:"source"`
	URL              string    `json:"url,omitempty" yaml:"url,omitempty"`
	PublishedAt      time.Time `json:"published_at" yaml:"published_at"`
	Category         string    `json:"category,omitempty" yaml:"category,omitempty"`
	Sentiment        string    `json:"sentiment,omitempty" yaml:"sentiment,omitempty"`
	BiasRating       string    `json:"bias_rating,omitempty" yaml:"bias_rating,omitempty"`
	FactualityRating string    `json:"factuality_rating,omitempty" yaml:"factuality_rating,omitempty"`
	Tags             []string  `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// DateRange is an inclusive publication window.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// DayRange returns the range covering the given number of days ending on day.
func DayRange(day time.Time, days int) DateRange {
	if days <= 0 {
		days = 1
	}
	end := time.Date(day.Year(), day.Month(), day.Day(), 23, 59, 59, 0, time.UTC)
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -(days - 1))
	return DateRange{Start: start, End: end}
}

// Day returns the ISO date of the end of the range.
func (r DateRange) Day() string {
	return r.End.UTC().Format("2006-01-02")
}

// Contains reports whether t falls inside the range. A zero bound is open.
func (r DateRange) Contains(t time.Time) bool {
	if !r.Start.IsZero() && t.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && t.After(r.End) {
		return false
	}
	return true
}

// DefaultItemCount is the number of items requested when none is given.
const DefaultItemCount = 6

// GenerationRequest describes one report to produce.
type GenerationRequest struct {
	Topic       string    `json:"topic"`
	DateRange   DateRange `json:"date_range"`
	ModelID     string    `json:"model_id,omitempty"`
	MaxArticles int       `json:"max_articles"`
	OrgContext  string    `json:"org_context,omitempty"`
	ProfileID   string    `json:"profile_id,omitempty"`
	ItemCount   int       `json:"item_count"`
}

// Items returns the requested item count, applying the default.
func (r GenerationRequest) Items() int {
	if r.ItemCount <= 0 {
		return DefaultItemCount
	}
	return r.ItemCount
}

// HasTopic reports whether the request is scoped to a topic.
func (r GenerationRequest) HasTopic() bool {
	t := strings.TrimSpace(strings.ToLower(r.Topic))
	return t != "" && t != "all"
}
