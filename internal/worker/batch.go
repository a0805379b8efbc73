package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/ppiankov/newsbrief/internal/cache"
	"github.com/ppiankov/newsbrief/internal/model"
	"github.com/ppiankov/newsbrief/internal/pipeline"
)

// Generator produces an artifact for a request, usually through the cache
type Generator interface {
	GetOrGenerate(ctx context.Context, req model.GenerationRequest, supply pipeline.CorpusSupplier, force bool) (*model.Artifact, error)
}

// BriefJob generates one report
type BriefJob struct {
	Index     int
	Request   model.GenerationRequest
	Generator Generator
	Supply    pipeline.CorpusSupplier
	Force     bool
}

// Execute executes the brief job
func (j *BriefJob) Execute(ctx context.Context) Result {
	start := time.Now()
	a, err := j.Generator.GetOrGenerate(ctx, j.Request, j.Supply, j.Force)
	return &BriefResult{
		Index:    j.Index,
		Request:  j.Request,
		Artifact: a,
		Duration: time.Since(start),
		Error:    err,
	}
}

// BriefResult represents the result of a brief job
type BriefResult struct {
	Index    int
	Request  model.GenerationRequest
	Artifact *model.Artifact
	Duration time.Duration
	Error    error
}

// GetError returns the error from the brief result
func (r *BriefResult) GetError() error {
	return r.Error
}

// BatchProcessor generates many reports concurrently
type BatchProcessor struct {
	generator   Generator
	supply      pipeline.CorpusSupplier
	concurrency int
	force       bool
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(generator Generator, supply pipeline.CorpusSupplier, concurrency int, force bool) *BatchProcessor {
	return &BatchProcessor{
		generator:   generator,
		supply:      supply,
		concurrency: concurrency,
		force:       force,
	}
}

// ProcessRequests runs every request and returns results in input order
func (b *BatchProcessor) ProcessRequests(ctx context.Context, reqs []model.GenerationRequest) []*BriefResult {
	if len(reqs) == 0 {
		return []*BriefResult{}
	}

	jobs := make([]Job, len(reqs))
	for i, req := range reqs {
		jobs[i] = &BriefJob{
			Index:     i,
			Request:   req,
			Generator: b.generator,
			Supply:    b.supply,
			Force:     b.force,
		}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()
	results := pool.Run(jobs)

	out := make([]*BriefResult, len(results))
	for i, result := range results {
		out[i] = result.(*BriefResult)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// ProcessFile reads requests from a file and processes them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string, template model.GenerationRequest) ([]*BriefResult, error) {
	reqs, err := ReadRequestsFromFile(filePath, template)
	if err != nil {
		return nil, fmt.Errorf("read requests: %w", err)
	}

	return b.ProcessRequests(ctx, reqs), nil
}

// ReadRequestsFromFile reads one request per line as "YYYY-MM-DD [topic]".
// The template supplies every other field. Blank lines and # comments are
// skipped, and lines mapping to the same cache key are deduplicated.
func ReadRequestsFromFile(filePath string, template model.GenerationRequest) ([]model.GenerationRequest, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	days := int(template.DateRange.End.Sub(template.DateRange.Start).Hours()/24) + 1

	var reqs []model.GenerationRequest
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		dateStr, topic, _ := strings.Cut(line, " ")
		date, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid date %q: %w", lineNo, dateStr, err)
		}

		req := template
		req.Topic = strings.TrimSpace(topic)
		req.DateRange = model.DayRange(date, days)

		key := cache.KeyFor(req)
		if !seen[key] {
			seen[key] = true
			reqs = append(reqs, req)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return reqs, nil
}
