package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/newsbrief/internal/cache"
	"github.com/ppiankov/newsbrief/internal/model"
)

var (
	cacheDate  string
	cacheTopic string
	cacheJSON  bool
)

// cacheCmd represents the cache command
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the durable brief cache",
	Long: `Inspect or clear briefs held by the configured durable store
(disk, sqlite, mysql or redis).

Keys have the form brief:<schema>:<YYYY-MM-DD>:<topic|all>.`,
}

var cacheShowCmd = &cobra.Command{
	Use:   "show [key]",
	Short: "Show a cached brief",
	Long: `Show a cached brief by key, or by --date and --topic.

Example:
  newsbrief cache show brief:v3:2025-01-15:technology
  newsbrief cache show --date 2025-01-15 --topic technology --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCacheShow,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached brief",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		store, err := openDurable(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		if err := store.Clear(ctx); err != nil {
			return fmt.Errorf("clear cache: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Cleared %s cache\n", backendName(cfg))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheShowCmd)
	cacheCmd.AddCommand(cacheClearCmd)

	cacheShowCmd.Flags().StringVar(&cacheDate, "date", "", "brief date, YYYY-MM-DD (default: today)")
	cacheShowCmd.Flags().StringVar(&cacheTopic, "topic", "", "brief topic (empty or 'all' for every topic)")
	cacheShowCmd.Flags().BoolVar(&cacheJSON, "json", false, "print the raw JSON artifact")
}

func runCacheShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	key, err := cacheKeyFromArgs(args, cacheDate, cacheTopic)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	store, err := openDurable(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	artifact, ok, err := store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("read cache: %w", err)
	}
	if !ok {
		return fmt.Errorf("no cached brief for %s", key)
	}

	if cacheJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(artifact)
	}
	return renderText(cmd.OutOrStdout(), artifact)
}

// cacheKeyFromArgs returns the explicit key, or derives one from date and topic
func cacheKeyFromArgs(args []string, date, topic string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	day, err := parseDay(date)
	if err != nil {
		return "", err
	}
	return cache.Key(day, topic, model.SchemaVersion), nil
}

// openDurable opens only the durable tier; the memory tier is per-process
func openDurable(ctx context.Context, cfg *model.Config) (cache.Durable, error) {
	logger := newLogger(cfg)
	store, err := cache.Open(ctx, cfg.Cache, logger)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	if store == nil {
		return nil, fmt.Errorf("durable cache is disabled (cache.backend: none)")
	}
	return store, nil
}

func backendName(cfg *model.Config) string {
	if cfg.Cache.Backend == "" {
		return "disk"
	}
	return cfg.Cache.Backend
}
