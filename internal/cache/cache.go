package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/newsbrief/internal/model"
)

// AllTopics is the key sentinel for requests without a topic
const AllTopics = "all"

// Meta is stored next to each durable artifact
type Meta struct {
	ModelID       string    `json:"model_id"`
	ItemCount     int       `json:"item_count"`
	SchemaVersion string    `json:"schema_version"`
	CreatedAt     time.Time `json:"created_at"`
}

// MetaFor describes an artifact for durable storage
func MetaFor(a *model.Artifact) Meta {
	return Meta{
		ModelID:       a.ModelID,
		ItemCount:     len(a.Entries),
		SchemaVersion: model.SchemaVersion,
		CreatedAt:     a.GeneratedAt,
	}
}

// Durable is the persistent tier. Entries never expire; a schema version
// bump changes every key and so orphans old rows.
type Durable interface {
	Get(ctx context.Context, key string) (*model.Artifact, bool, error)
	Put(ctx context.Context, key string, a *model.Artifact, meta Meta) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Close() error
}

// Key builds the cache key for a day and topic. It depends only on
// (date, topic, schema version), never on the candidate set.
func Key(date time.Time, topic, schemaVersion string) string {
	if schemaVersion == "" {
		schemaVersion = model.SchemaVersion
	}
	return fmt.Sprintf("brief:%s:%s:%s", schemaVersion, date.UTC().Format("2006-01-02"), NormalizeTopic(topic))
}

// KeyFor returns the key for a generation request
func KeyFor(req model.GenerationRequest) string {
	return Key(req.DateRange.End, req.Topic, model.SchemaVersion)
}

// NormalizeTopic lowercases, trims and collapses whitespace; empty means all
func NormalizeTopic(topic string) string {
	t := strings.ToLower(strings.Join(strings.Fields(topic), " "))
	if t == "" {
		return AllTopics
	}
	return t
}

// ErrUnknownBackend is returned by Open for unsupported backends
var ErrUnknownBackend = errors.New("unknown cache backend")

// Open builds the durable tier selected by cfg.Backend. Backend "none"
// returns a nil Durable and the two-tier cache runs memory-only.
func Open(ctx context.Context, cfg model.CacheConfig, logger *slog.Logger) (Durable, error) {
	dir := expandHome(cfg.Dir)

	switch strings.ToLower(cfg.Backend) {
	case "", "disk":
		return NewDiskStore(dir), nil
	case "sqlite":
		dsn := cfg.DSN
		if dsn == "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("create cache dir: %w", err)
			}
			dsn = filepath.Join(dir, "newsbrief.db")
		}
		return OpenSQL(ctx, DialectSQLite, dsn, logger)
	case "mysql":
		return OpenSQL(ctx, DialectMySQL, cfg.DSN, logger)
	case "redis":
		return NewRedisStore(ctx, cfg.RedisURL)
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %s (supported: disk, sqlite, mysql, redis, none)", ErrUnknownBackend, cfg.Backend)
	}
}

func expandHome(dir string) string {
	if strings.HasPrefix(dir, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, dir[2:])
		}
	}
	return dir
}
