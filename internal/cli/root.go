package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/newsbrief/internal/logging"
	"github.com/ppiankov/newsbrief/internal/model"
)

// Version is set at build time via -ldflags
var Version = "v0.2.0"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "newsbrief",
	Short: "Newsbrief - curated news intelligence briefs from a candidate corpus",
	Long: `Newsbrief turns a day's candidate articles into a short, structured
intelligence brief.

A language model picks and analyses the most significant items. When the
model is unavailable or its answer cannot be recovered, the newest articles
are reported instead, so a brief is always produced.

Each item is paired with thematically related coverage, and finished briefs
are cached in memory and in a durable store.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number and build information for Newsbrief.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "newsbrief %s (schema %s)\n", Version, model.SchemaVersion)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.newsbrief/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Bind flags to viper
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in .env, the config file and ENV variables
func initConfig() {
	// A missing .env is normal outside development
	_ = godotenv.Load()

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		// Search for config in home directory
		viper.AddConfigPath(home + "/.newsbrief")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match NEWSBRIEF_* (llm.model -> NEWSBRIEF_LLM_MODEL)
	viper.SetEnvPrefix("NEWSBRIEF")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// loadConfig layers the config file and environment over the defaults
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	registerDefaults(viper.GetViper(), cfg)
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	applyProviderEnv(cfg)
	return cfg, nil
}

// registerDefaults makes every config key known to viper so that
// AutomaticEnv overrides reach Unmarshal.
func registerDefaults(v *viper.Viper, cfg *model.Config) {
	defaults := map[string]any{
		"llm.provider":                      cfg.LLM.Provider,
		"llm.model":                         cfg.LLM.Model,
		"llm.api_key":                       cfg.LLM.APIKey,
		"llm.base_url":                      cfg.LLM.BaseURL,
		"llm.timeout":                       cfg.LLM.Timeout,
		"llm.max_tokens":                    cfg.LLM.MaxTokens,
		"llm.temperature":                   cfg.LLM.Temperature,
		"llm.http_proxy":                    cfg.LLM.HTTPProxy,
		"llm.https_proxy":                   cfg.LLM.HTTPSProxy,
		"llm.no_proxy":                      cfg.LLM.NoProxy,
		"generation.item_count":             cfg.Generation.ItemCount,
		"generation.max_articles":           cfg.Generation.MaxArticles,
		"generation.timeout":                cfg.Generation.Timeout,
		"relevance.top_k":                   cfg.Relevance.TopK,
		"relevance.similarity_floor":        cfg.Relevance.SimilarityFloor,
		"relevance.category_bonus":          cfg.Relevance.CategoryBonus,
		"relevance.entity_bonus":            cfg.Relevance.EntityBonus,
		"relevance.title_overlap_weight":    cfg.Relevance.TitleOverlapWeight,
		"relevance.duplicate_threshold":     cfg.Relevance.DuplicateThreshold,
		"relevance.duplicate_penalty":       cfg.Relevance.DuplicatePenalty,
		"relevance.min_score":               cfg.Relevance.MinScore,
		"cache.enabled":                     cfg.Cache.Enabled,
		"cache.memory_capacity":             cfg.Cache.MemoryCapacity,
		"cache.freshness":                   cfg.Cache.Freshness,
		"cache.backend":                     cfg.Cache.Backend,
		"cache.dir":                         cfg.Cache.Dir,
		"cache.dsn":                         cfg.Cache.DSN,
		"cache.redis_url":                   cfg.Cache.RedisURL,
		"concurrency.workers":               cfg.Concurrency.Workers,
		"concurrency.related_lookups":       cfg.Concurrency.RelatedLookups,
		"rate_limiting.requests_per_second": cfg.RateLimiting.RequestsPerSecond,
		"rate_limiting.burst_size":          cfg.RateLimiting.BurstSize,
		"logging.level":                     cfg.Logging.Level,
		"logging.format":                    cfg.Logging.Format,
	}
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
}

// applyProviderEnv picks up the provider's conventional credentials when
// the config does not set them.
func applyProviderEnv(cfg *model.Config) {
	switch strings.ToLower(cfg.LLM.Provider) {
	case "openai":
		if cfg.LLM.APIKey == "" {
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	case "anthropic", "claude":
		if cfg.LLM.APIKey == "" {
			cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	case "ollama":
		if cfg.LLM.BaseURL == "" {
			cfg.LLM.BaseURL = os.Getenv("OLLAMA_BASE_URL")
		}
	}
}

// newLogger initialises the process logger from config; --verbose forces debug
func newLogger(cfg *model.Config) *slog.Logger {
	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	return logging.Init(level, cfg.Logging.Format)
}
