package corpus

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/newsbrief/internal/model"
)

// Provider supplies the filtered, ordered candidate list for a request
type Provider interface {
	Fetch(ctx context.Context, dateRange model.DateRange, topic string, maxArticles int) ([]model.CandidateArticle, error)
}

// FileProvider serves articles loaded from a JSON or YAML file
type FileProvider struct {
	articles []model.CandidateArticle
}

// NewFileProvider wraps an in-memory article list
func NewFileProvider(articles []model.CandidateArticle) *FileProvider {
	return &FileProvider{articles: articles}
}

// LoadFile reads articles from path. The format is chosen by extension;
// .yaml and .yml use YAML, anything else JSON. Either a bare list or an
// object with an "articles" field is accepted.
func LoadFile(path string) (*FileProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}

	articles, err := decode(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("parse corpus %s: %w", path, err)
	}

	return newCleaned(articles), nil
}

// newCleaned assigns missing ids and strips markup from summaries
func newCleaned(articles []model.CandidateArticle) *FileProvider {
	for i := range articles {
		if articles[i].ID == "" {
			articles[i].ID = fmt.Sprintf("article-%d", i+1)
		}
		articles[i].Summary = CleanHTML(articles[i].Summary)
	}
	return NewFileProvider(articles)
}

type wrapped struct {
	Articles []model.CandidateArticle `json:"articles" yaml:"articles"`
}

func decode(data []byte, ext string) ([]model.CandidateArticle, error) {
	var list []model.CandidateArticle
	var obj wrapped

	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &list); err == nil {
			return list, nil
		}
		if err := yaml.Unmarshal(data, &obj); err != nil {
			return nil, err
		}
	default:
		if err := json.Unmarshal(data, &list); err == nil {
			return list, nil
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return nil, err
		}
	}
	return obj.Articles, nil
}

// Fetch filters by date range and topic, sorts newest first and truncates.
// An empty or "all" topic matches everything; otherwise the topic must
// equal the category or one of the tags, case-insensitively.
func (p *FileProvider) Fetch(ctx context.Context, dateRange model.DateRange, topic string, maxArticles int) ([]model.CandidateArticle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []model.CandidateArticle
	for _, a := range p.articles {
		if !a.PublishedAt.IsZero() && !dateRange.Contains(a.PublishedAt) {
			continue
		}
		if !matchesTopic(a, topic) {
			continue
		}
		if strings.TrimSpace(a.Title) == "" {
			continue
		}
		out = append(out, a)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PublishedAt.After(out[j].PublishedAt)
	})

	if maxArticles > 0 && len(out) > maxArticles {
		out = out[:maxArticles]
	}
	return out, nil
}

// Len returns the number of loaded articles
func (p *FileProvider) Len() int {
	return len(p.articles)
}

// Articles returns every loaded article in file order
func (p *FileProvider) Articles() []model.CandidateArticle {
	return p.articles
}

func matchesTopic(a model.CandidateArticle, topic string) bool {
	t := strings.TrimSpace(topic)
	if t == "" || strings.EqualFold(t, "all") {
		return true
	}
	if strings.EqualFold(a.Category, t) {
		return true
	}
	for _, tag := range a.Tags {
		if strings.EqualFold(tag, t) {
			return true
		}
	}
	return false
}
