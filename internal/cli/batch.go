package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/newsbrief/internal/metrics"
	"github.com/ppiankov/newsbrief/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
	metricsAddr  string
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Generate briefs for many days and topics in parallel",
	Long: `Batch processes many brief requests concurrently:
- Read requests from the input file, one "YYYY-MM-DD [topic]" per line
- Process requests in parallel with a configurable worker count
- Gateway calls share one rate limiter
- Write one JSON brief per request

Example:
  newsbrief batch requests.txt --corpus articles.json
  newsbrief batch requests.txt --corpus articles.json --concurrency 8 --output-dir ./briefs
  newsbrief batch requests.txt --corpus articles.json --metrics-addr :9090`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	// Concurrency flags
	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent workers (default from config)")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./newsbrief-briefs", "output directory for briefs")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running")

	// Shared with generate
	batchCmd.Flags().StringVar(&corpusPath, "corpus", "", "candidate article file or http(s) feed (JSON or YAML)")
	batchCmd.Flags().StringVar(&profilesPath, "profiles", "", "organization profiles file (YAML, optional)")
	batchCmd.Flags().IntVar(&days, "days", 1, "number of days covered by each request")
	batchCmd.Flags().IntVar(&items, "items", 0, "number of items per brief (default from config)")
	batchCmd.Flags().IntVar(&maxArticles, "max-articles", 0, "max candidate articles per request (default from config)")
	batchCmd.Flags().StringVar(&profile, "profile", "", "organization profile id applied to every request")
	batchCmd.Flags().BoolVar(&force, "force", false, "bypass cache reads and regenerate")
	_ = batchCmd.MarkFlagRequired("corpus")
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	if concurrency <= 0 {
		concurrency = cfg.Concurrency.Workers
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	if metricsAddr != "" {
		srv := &http.Server{Addr: metricsAddr, Handler: metrics.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server", "error", err)
			}
		}()
		defer func() { _ = srv.Close() }()
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "%s\n", rule)
	fmt.Fprintf(os.Stderr, "  Newsbrief Batch Processing\n")
	fmt.Fprintf(os.Stderr, "%s\n", rule)
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Corpus:       %s\n", corpusPath)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", concurrency)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	if cfg.LLM.Provider != "" {
		fmt.Fprintf(os.Stderr, "  LLM:          %s/%s\n", cfg.LLM.Provider, cfg.LLM.Model)
	}
	fmt.Fprintf(os.Stderr, "\n")

	articles, err := loadCorpus(ctx, cfg, corpusPath)
	if err != nil {
		return fmt.Errorf("load corpus: %w", err)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	a, err := newApp(ctx, cfg, profilesPath, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("close cache", "error", err)
		}
	}()

	// Date and topic come from each line; the rest from flags
	template := buildRequest(cfg, "", time.Now().UTC(), days, items, maxArticles, profile)
	processor := worker.NewBatchProcessor(a.service, corpusSupplier(articles), concurrency, force)

	fmt.Fprintf(os.Stderr, "⚙️  Processing requests with %d workers...\n\n", concurrency)
	results, err := processor.ProcessFile(ctx, file, template)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	successCount := 0
	failureCount := 0
	fallbackCount := 0

	for _, result := range results {
		label := result.Request.DateRange.Day() + " " + displayTopic(result.Request.Topic)
		if result.Error != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", label, result.Error)
			continue
		}

		jsonPath := filepath.Join(outputDir, sanitizeFilename(result.Artifact.Key)+".json")
		if err := writeJSON(jsonPath, result.Artifact); err != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", label, err)
			continue
		}

		successCount++
		mode := "generated"
		if result.Artifact.UsedFallback {
			fallbackCount++
			mode = "fallback"
		}
		fmt.Fprintf(os.Stderr, "✓ %s (%d items, %s, %v)\n", label, len(result.Artifact.Entries), mode, result.Duration.Round(time.Millisecond))
	}

	// Summary
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "%s\n", rule)
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "%s\n", rule)
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d requests\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:   %d (%d fallback)\n", successCount, fallbackCount)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")

	if failureCount > 0 && successCount == 0 {
		return fmt.Errorf("all %d requests failed", failureCount)
	}
	return nil
}

func displayTopic(t string) string {
	if t == "" {
		return "all"
	}
	return t
}
