package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	corpusPath   string
	profilesPath string
	topic        string
	date         string
	days         int
	items        int
	maxArticles  int
	force        bool
	profile      string
	outJSON      string
	timeout      time.Duration
)

// generateCmd represents the generate command
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate (or fetch from cache) the brief for one day and topic",
	Long: `Generate builds a brief from the candidate corpus:
- Select candidate articles for the date range and topic
- Ask the configured model for the most significant items
- Recover items from whatever the model returns, or fall back to the newest articles
- Attach thematically related coverage to each item
- Cache the result in memory and in the durable store

Example:
  newsbrief generate --corpus articles.json --date 2025-01-15
  newsbrief generate --corpus articles.yaml --topic technology --days 7 --items 8
  newsbrief generate --corpus articles.json --profile acme --profiles profiles.yaml --json brief.json`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	// Input flags
	generateCmd.Flags().StringVar(&corpusPath, "corpus", "", "candidate article file or http(s) feed (JSON or YAML)")
	generateCmd.Flags().StringVar(&profilesPath, "profiles", "", "organization profiles file (YAML, optional)")
	_ = generateCmd.MarkFlagRequired("corpus")

	// Request flags
	generateCmd.Flags().StringVar(&topic, "topic", "", "topic filter (empty or 'all' for every topic)")
	generateCmd.Flags().StringVar(&date, "date", "", "last day of the range, YYYY-MM-DD (default: today)")
	generateCmd.Flags().IntVar(&days, "days", 1, "number of days covered, ending on --date")
	generateCmd.Flags().IntVar(&items, "items", 0, "number of items in the brief (default from config)")
	generateCmd.Flags().IntVar(&maxArticles, "max-articles", 0, "max candidate articles shown to the model (default from config)")
	generateCmd.Flags().StringVar(&profile, "profile", "", "organization profile id for tailored analysis")
	generateCmd.Flags().BoolVar(&force, "force", false, "bypass cache reads and regenerate")

	// Output flags
	generateCmd.Flags().StringVar(&outJSON, "json", "", "also write the brief as JSON to this path")
	generateCmd.Flags().DurationVar(&timeout, "timeout", 3*time.Minute, "overall command timeout")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	day, err := parseDay(date)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	articles, err := loadCorpus(ctx, cfg, corpusPath)
	if err != nil {
		return fmt.Errorf("load corpus: %w", err)
	}
	logger.Debug("corpus loaded", "path", corpusPath, "articles", articles.Len())

	a, err := newApp(ctx, cfg, profilesPath, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("close cache", "error", err)
		}
	}()

	req := buildRequest(cfg, topic, day, days, items, maxArticles, profile)
	artifact, err := a.service.GetOrGenerate(ctx, req, corpusSupplier(articles), force)
	if err != nil {
		return fmt.Errorf("generate brief: %w", err)
	}

	if err := renderText(cmd.OutOrStdout(), artifact); err != nil {
		return err
	}
	if outJSON != "" {
		if err := writeJSON(outJSON, artifact); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "✓ Wrote %s\n", outJSON)
	}
	return nil
}
